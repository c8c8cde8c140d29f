// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes dailynotes tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/dailynotes/internal/apperr"
	"github.com/starford/dailynotes/internal/models"
	"github.com/starford/dailynotes/internal/noteservice"
)

const howToUseURI = "dailynotes://how-to-use"

// Server wraps the MCP server with dailynotes tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all dailynotes tools registered.
func New(svc *noteservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"dailynotes",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List all notes, newest first. Pass group=day to group them by creation day."),
		mcp.WithString("group", mcp.Description("Optional grouping: 'day'")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read one note by ID."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note ID")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note. The title must not be blank. "+
			"Read the dailynotes://how-to-use resource for the workflow."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title")),
		mcp.WithString("content", mcp.Description("Note body text")),
		mcp.WithString("tags", mcp.Description("Optional comma-separated tags")),
		mcp.WithString("audio_url", mcp.Description("Optional clip URL returned by attach_audio")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("update_note",
		mcp.WithDescription("Replace the title and content of an existing note."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note ID")),
		mcp.WithString("title", mcp.Required(), mcp.Description("New title")),
		mcp.WithString("content", mcp.Description("New body text")),
		mcp.WithString("tags", mcp.Description("Optional comma-separated tags; omitted keeps the current tags")),
	), s.updateNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Delete a note by ID. Deleting a missing note succeeds."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note ID")),
	), s.deleteNote)

	s.mcp.AddTool(mcp.NewTool("share_note",
		mcp.WithDescription("Build a WhatsApp share link for a note."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note ID")),
	), s.shareNote)

	s.mcp.AddTool(mcp.NewTool("export_pdf",
		mcp.WithDescription("Export all notes as a PDF data URI."),
	), s.exportPDF)

	s.mcp.AddTool(mcp.NewTool("backup_notes",
		mcp.WithDescription("Back up the whole note collection."),
	), s.backupNotes)

	s.mcp.AddTool(mcp.NewTool("attach_audio",
		mcp.WithDescription("Store a voice clip given as a base64 data URI and optionally attach it to a note."),
		mcp.WithString("data", mcp.Required(), mcp.Description("data:audio/wav;base64,... URI")),
		mcp.WithString("note_id", mcp.Description("Optional note to attach the clip to")),
	), s.attachAudio)

	s.mcp.AddResource(
		mcp.NewResource(howToUseURI, "How to Use",
			mcp.WithResourceDescription("User guide for creating, recording, sharing and backing up notes."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readHowToUseResource,
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

// noteResult is returned by mutating tools.
type noteResult struct {
	Note    *models.Note `json:"note,omitempty"`
	Deleted *bool        `json:"deleted,omitempty"`
	Warning string       `json:"warning,omitempty"`
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

// optionalString returns the argument or "" when absent.
func optionalString(req mcp.CallToolRequest, name string) string {
	v, err := req.RequireString(name)
	if err != nil {
		return ""
	}
	return v
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// mutationResult converts a service result into a tool result, turning
// persistence failures into a warning.
func mutationResult(res noteResult, err error) *mcp.CallToolResult {
	var we *apperr.WriteError
	switch {
	case err == nil:
	case errors.As(err, &we):
		res.Warning = we.Error()
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("note not found")
	default:
		return mcp.NewToolResultError(err.Error())
	}
	return jsonResult(res)
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if optionalString(req, "group") == "day" {
		type day struct {
			Date  string        `json:"date"`
			Notes []models.Note `json:"notes"`
		}
		days := s.svc.ListByDay(ctx)
		out := make([]day, len(days))
		for i, d := range days {
			out[i] = day{Date: d.Key, Notes: d.Notes}
		}
		return jsonResult(out), nil
	}
	list, _, err := s.svc.ListNotes(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(list) == 0 {
		return mcp.NewToolResultText("no notes"), nil
	}
	return jsonResult(list), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.GetNote(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return jsonResult(n), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.CreateNote(ctx, models.Draft{
		Title:    title,
		Content:  optionalString(req, "content"),
		Tags:     splitTags(optionalString(req, "tags")),
		AudioURL: models.StringPtr(optionalString(req, "audio_url")),
	})
	return mutationResult(noteResult{Note: &n}, err), nil
}

func (s *Server) updateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	existing, err := s.svc.GetNote(ctx, id)
	if err != nil {
		return mcp.NewToolResultError("note not found"), nil
	}
	draft := models.Draft{
		Title:    title,
		Content:  optionalString(req, "content"),
		AudioURL: existing.AudioURL,
		Tags:     existing.Tags,
	}
	if raw := optionalString(req, "tags"); raw != "" {
		draft.Tags = splitTags(raw)
	}
	n, err := s.svc.UpdateNote(ctx, id, draft)
	return mutationResult(noteResult{Note: &n}, err), nil
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	deleted, err := s.svc.DeleteNote(ctx, id)
	return mutationResult(noteResult{Deleted: &deleted}, err), nil
}

func (s *Server) shareNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	link, err := s.svc.ShareURL(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(link), nil
}

func (s *Server) exportPDF(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := s.svc.ExportPDF(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(doc.DataURI()), nil
}

func (s *Server) backupNotes(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.svc.Backup(ctx) {
		return mcp.NewToolResultError("backup failed"), nil
	}
	return mcp.NewToolResultText("backup complete"), nil
}

func (s *Server) readHowToUseResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      howToUseURI,
			MIMEType: "text/markdown",
			Text:     HowToUse,
		},
	}, nil
}
