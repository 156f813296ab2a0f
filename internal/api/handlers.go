package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/linkbook/internal/apperr"
	"github.com/starford/linkbook/internal/notebook"
)

// Handler holds API route handlers.
type Handler struct {
	nb *notebook.Notebook
}

// NewHandler creates a new Handler.
func NewHandler(nb *notebook.Notebook) *Handler {
	return &Handler{nb: nb}
}

// noteName extracts the note name from the URL wildcard. chi routes on
// RawPath when the request carries one (an escaped slash, for example), and
// only then is the wildcard still escaped.
func noteName(r *http.Request) string {
	name := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if name == "" || r.URL.RawPath == "" {
		return name
	}
	decoded, err := url.PathUnescape(name)
	if err != nil {
		return name
	}
	return decoded
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List notes in display order
//	@Tags			notes
//	@Produce		json
//	@Success		200		{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, _ *http.Request) {
	snap := h.nb.Snapshot()
	items := make([]NoteListItem, 0, len(snap.Order))
	for _, name := range snap.Order {
		items = append(items, NoteListItem{Name: name, Active: name == snap.Active})
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: len(items)})
}

// GetNote handles GET /api/notes/*.
//
//	@Summary		Get a single note with links and backlinks
//	@Tags			notes
//	@Produce		json
//	@Param			name	path		string	true	"Note name"
//	@Success		200		{object}	NoteDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{name} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	name := noteName(r)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	note, err := h.nb.Note(name)
	if err != nil {
		writeError(w, "get note", name, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a note and open it
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	CreateNoteResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !decode(w, r, &req) {
		return
	}
	name, ok := h.nb.CreateNote(r.Context(), req.Name)
	if !ok {
		writeError(w, "create note", req.Name, fmt.Errorf("note %q: %w", req.Name, apperr.ErrAlreadyExists))
		return
	}
	writeJSON(w, http.StatusCreated, CreateNoteResponse{Name: name})
}

// DeleteNote handles DELETE /api/notes/*.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			name	path	string	true	"Note name"
//	@Success		204		"Note deleted"
//	@Failure		403		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{name} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	name := noteName(r)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	if err := h.nb.DeleteNote(r.Context(), name); err != nil {
		writeError(w, "delete note", name, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RenameNote handles POST /api/rename.
//
//	@Summary		Rename a note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RenameRequest	true	"Old and new name"
//	@Success		200		{object}	NoteDetail
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/rename [post]
func (h *Handler) RenameNote(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if !decode(w, r, &req) {
		return
	}
	if req.OldName == "" || req.NewName == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("old_name and new_name are required"))
		return
	}
	if !h.nb.RenameNote(r.Context(), req.OldName, req.NewName) {
		writeJSON(w, http.StatusConflict, errorBody("rename refused"))
		return
	}
	note, err := h.nb.Note(req.NewName)
	if err != nil {
		writeError(w, "rename note", req.NewName, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// GetActive handles GET /api/active.
//
//	@Summary		Get the active note and editing buffer
//	@Tags			editor
//	@Produce		json
//	@Success		200	{object}	ActiveResponse
//	@Security		BearerAuth
//	@Router			/active [get]
func (h *Handler) GetActive(w http.ResponseWriter, _ *http.Request) {
	snap := h.nb.Snapshot()
	writeJSON(w, http.StatusOK, ActiveResponse{Active: snap.Active, Buffer: snap.Buffer})
}

// OpenNote handles POST /api/open.
//
//	@Summary		Make a note active, creating it if missing
//	@Tags			editor
//	@Accept			json
//	@Produce		json
//	@Param			body	body		OpenRequest	true	"Note to open"
//	@Success		200		{object}	ActiveResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/open [post]
func (h *Handler) OpenNote(w http.ResponseWriter, r *http.Request) {
	var req OpenRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.nb.OpenNote(r.Context(), req.Name); err != nil {
		writeError(w, "open note", req.Name, err)
		return
	}
	h.GetActive(w, r)
}

// EditActive handles PUT /api/active.
//
//	@Summary		Replace the content of the active note
//	@Tags			editor
//	@Accept			json
//	@Produce		json
//	@Param			body	body		EditRequest	true	"New content"
//	@Success		200		{object}	EditResponse
//	@Security		BearerAuth
//	@Router			/active [put]
func (h *Handler) EditActive(w http.ResponseWriter, r *http.Request) {
	var req EditRequest
	if !decode(w, r, &req) {
		return
	}
	res := h.nb.EditActiveNoteContent(r.Context(), req.Content)
	writeJSON(w, http.StatusOK, EditResponse{Active: h.nb.Snapshot().Active, Result: res})
}

// MoveNode handles PUT /api/positions/*.
//
//	@Summary		Store a dragged node position
//	@Tags			layout
//	@Accept			json
//	@Produce		json
//	@Param			name	path		string			true	"Note name"
//	@Param			body	body		PositionRequest	true	"Position"
//	@Success		200		{object}	PositionRequest
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/positions/{name} [put]
func (h *Handler) MoveNode(w http.ResponseWriter, r *http.Request) {
	name := noteName(r)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	var req PositionRequest
	if !decode(w, r, &req) {
		return
	}
	pos, err := h.nb.MoveNode(r.Context(), name, req)
	if err != nil {
		writeError(w, "move node", name, err)
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

// Reorder handles POST /api/order.
//
//	@Summary		Move a note in the display order
//	@Tags			layout
//	@Accept			json
//	@Param			body	body	ReorderRequest	true	"Note and target index"
//	@Success		200		{object}	NoteListResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/order [post]
func (h *Handler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req ReorderRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.nb.ReorderNote(r.Context(), req.Name, req.Index); err != nil {
		writeError(w, "reorder", req.Name, err)
		return
	}
	h.ListNotes(w, r)
}

// Graph handles GET /api/graph.
//
//	@Summary		Get the note graph
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	graph.Graph
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.nb.Snapshot().Graph)
}

// Backlinks handles GET /api/graph/backlinks/*.
//
//	@Summary		List notes linking to a note
//	@Tags			graph
//	@Produce		json
//	@Param			name	path		string	true	"Note name"
//	@Success		200		{object}	BacklinksResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/graph/backlinks/{name} [get]
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	name := noteName(r)
	g := h.nb.Snapshot().Graph
	if _, ok := g.Node(name); !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, BacklinksResponse{Note: name, Backlinks: g.Backlinks(name)})
}
