package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/linkbook/internal/notebook"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(nb *notebook.Notebook, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(nb)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Notes.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/*", h.GetNote)
	r.Delete("/notes/*", h.DeleteNote)
	r.Post("/rename", h.RenameNote)

	// Editor session.
	r.Get("/active", h.GetActive)
	r.Post("/open", h.OpenNote)
	r.Put("/active", h.EditActive)

	// Layout.
	r.Put("/positions/*", h.MoveNode)
	r.Post("/order", h.Reorder)

	// Graph.
	r.Get("/graph", h.Graph)
	r.Get("/graph/backlinks/*", h.Backlinks)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
