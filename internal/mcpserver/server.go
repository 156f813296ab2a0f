// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes linkbook tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/linkbook/internal/notebook"
)

// NoteFormatURI is the resource URI of the note format contract.
const NoteFormatURI = "linkbook://note-format"

// Server wraps the MCP server with linkbook tools.
type Server struct {
	mcp *server.MCPServer
	nb  *notebook.Notebook
}

// New creates a new MCP server with all linkbook tools registered.
func New(nb *notebook.Notebook, version string) *Server {
	s := &Server{nb: nb}

	s.mcp = server.NewMCPServer(
		"Linkbook",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List note names in display order. The active note is marked with '*'."),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a note."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Exact note name")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("open_note",
		mcp.WithDescription("Make a note the active note, creating it if it does not exist. "+
			"Only the active note can be edited with edit_active_note."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Exact note name")),
	), s.openNote)

	s.mcp.AddTool(mcp.NewTool("edit_active_note",
		mcp.WithDescription("Replace the content of the active note. Links are reconciled: "+
			"new [[links]] create or rename notes, removed links delete unreferenced notes. "+
			"Read the contract first via get_note_contract or the "+NoteFormatURI+" resource."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Full new Markdown content")),
	), s.editActiveNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note and make it active. Without a name the next free "+
			"'New Note' name is used."),
		mcp.WithString("name", mcp.Description("Name of the new note (optional)")),
		mcp.WithString("content", mcp.Description("Initial content; defaults to '# <name>'")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("rename_note",
		mcp.WithDescription("Rename a note. Its first heading follows the new name. Home cannot be renamed."),
		mcp.WithString("old_name", mcp.Required(), mcp.Description("Current note name")),
		mcp.WithString("new_name", mcp.Required(), mcp.Description("New note name")),
	), s.renameNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Delete a note. Home cannot be deleted."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Exact note name")),
	), s.deleteNote)

	s.mcp.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Return the note graph as JSON nodes and edges."),
	), s.getGraph)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all notes that link to the specified note."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Note to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the linkbook note format contract. "+
			"Call this before editing notes to understand how links drive note creation."),
	), s.getNoteContract)

	s.mcp.AddResource(
		mcp.NewResource(NoteFormatURI, "Note Format Contract",
			mcp.WithResourceDescription("How linkbook notes and [[links]] are written."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap := s.nb.Snapshot()
	lines := make([]string, 0, len(snap.Order))
	for _, name := range snap.Order {
		if name == snap.Active {
			name = "* " + name
		}
		lines = append(lines, name)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.nb.Note(name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", name)), nil
	}
	return mcp.NewToolResultText(note.Content), nil
}

func (s *Server) openNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.nb.OpenNote(ctx, name); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("opened: %s", name)), nil
}

func (s *Server) editActiveNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res := s.nb.EditActiveNoteContent(ctx, content)
	return jsonResult(map[string]any{
		"active": s.nb.Snapshot().Active,
		"result": res,
	})
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := ""
	if v, err := req.RequireString("name"); err == nil {
		name = v
	}
	content := ""
	if v, err := req.RequireString("content"); err == nil {
		content = v
	}
	created, ok, _ := s.nb.CreateNoteWithContent(ctx, name, content)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("note already exists or name is blank: %q", name)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", created)), nil
}

func (s *Server) renameNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	oldName, err := req.RequireString("old_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	newName, err := req.RequireString("new_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !s.nb.RenameNote(ctx, oldName, newName) {
		return mcp.NewToolResultError(fmt.Sprintf("cannot rename %q to %q", oldName, newName)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("renamed: %s -> %s", oldName, newName)), nil
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.nb.DeleteNote(ctx, name); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", name)), nil
}

func (s *Server) getGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.nb.Snapshot().Graph)
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.nb.Note(name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", name)), nil
	}
	if len(note.Backlinks) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(note.Backlinks, "\n")), nil
}

func (s *Server) getNoteContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      NoteFormatURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}
