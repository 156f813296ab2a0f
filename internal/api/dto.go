package api

import (
	"github.com/starford/linkbook/internal/layout"
	"github.com/starford/linkbook/internal/linksync"
	"github.com/starford/linkbook/internal/notebook"
)

// CreateNoteRequest is the request body for creating a note. An empty name
// creates the next "New Note".
type CreateNoteRequest struct {
	Name string `json:"name" example:"Ideas"`
}

// CreateNoteResponse names the created note.
type CreateNoteResponse struct {
	Name string `json:"name" example:"New Note 1"`
}

// RenameRequest is the request body for renaming a note.
type RenameRequest struct {
	OldName string `json:"old_name" example:"Proj"`
	NewName string `json:"new_name" example:"Project Plan"`
}

// OpenRequest selects the active note.
type OpenRequest struct {
	Name string `json:"name" example:"Home"`
}

// EditRequest replaces the content of the active note.
type EditRequest struct {
	Content string `json:"content" example:"# Home\nSee [[Ideas]]"`
}

// EditResponse reports the identity changes of an edit.
type EditResponse struct {
	Active string          `json:"active"`
	Result linksync.Result `json:"result"`
}

// ActiveResponse is the editor state.
type ActiveResponse struct {
	Active string `json:"active"`
	Buffer string `json:"buffer"`
}

// ReorderRequest moves a note in the display order.
type ReorderRequest struct {
	Name  string `json:"name" example:"Ideas"`
	Index int    `json:"index" example:"0"`
}

// NoteListItem is one entry of the note list.
type NoteListItem struct {
	Name   string `json:"name" example:"Home"`
	Active bool   `json:"active"`
}

// NoteListResponse lists notes in display order.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes"`
	Total int            `json:"total" example:"3"`
}

// NoteDetail is the full note response type (aliased from the notebook).
type NoteDetail = notebook.NoteView

// PositionRequest is a dragged node position.
type PositionRequest = layout.Point

// BacklinksResponse lists the notes linking to a note.
type BacklinksResponse struct {
	Note      string   `json:"note"`
	Backlinks []string `json:"backlinks"`
}
