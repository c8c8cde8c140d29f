package mcpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/dailynotes/internal/audio"
	"github.com/starford/dailynotes/internal/models"
)

var audioMIMEs = map[string]bool{
	"audio/wav":   true,
	"audio/wave":  true,
	"audio/x-wav": true,
}

type attachResult struct {
	URL     string       `json:"url"`
	Note    *models.Note `json:"note,omitempty"`
	Warning string       `json:"warning,omitempty"`
}

func (s *Server) attachAudio(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("data")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	noteID := optionalString(req, "note_id")

	var note models.Note
	if noteID != "" {
		if note, err = s.svc.GetNote(ctx, noteID); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", noteID)), nil
		}
	}

	data, err := decodeDataURI(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(data) > audio.MaxClipBytes {
		return mcp.NewToolResultError(fmt.Sprintf("clip too large: %d bytes (max %d)", len(data), audio.MaxClipBytes)), nil
	}
	if err := validateMagicBytes(data); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	url, err := s.svc.SaveAudio(ctx, bytes.NewReader(data))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if noteID == "" {
		return jsonResult(attachResult{URL: url}), nil
	}

	updated, err := s.svc.UpdateNote(ctx, noteID, models.Draft{
		Title:    note.Title,
		Content:  note.Content,
		AudioURL: &url,
		Tags:     note.Tags,
	})
	res := mutationResult(noteResult{Note: &updated}, err)
	if res.IsError {
		return res, nil
	}
	out := attachResult{URL: url, Note: &updated}
	if err != nil {
		out.Warning = err.Error()
	}
	return jsonResult(out), nil
}

// decodeDataURI parses a data:<audio mediatype>;base64,<data> URI.
func decodeDataURI(uri string) ([]byte, error) {
	if !strings.HasPrefix(uri, "data:") {
		return nil, fmt.Errorf("invalid data URI: must start with data:")
	}
	rest := strings.TrimPrefix(uri, "data:")
	commaIdx := strings.Index(rest, ",")
	if commaIdx < 0 {
		return nil, fmt.Errorf("invalid data URI: missing comma separator")
	}

	meta := rest[:commaIdx]
	encoded := rest[commaIdx+1:]

	if !strings.Contains(meta, ";base64") {
		return nil, fmt.Errorf("only base64 data URIs are supported")
	}
	mime := strings.Split(meta, ";")[0]
	if !audioMIMEs[mime] {
		return nil, fmt.Errorf("unsupported MIME type in data URI: %s", mime)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 data: %w", err)
		}
	}
	return data, nil
}

// validateMagicBytes verifies the payload is a RIFF/WAVE file.
func validateMagicBytes(data []byte) error {
	detected := http.DetectContentType(data)
	if !audioMIMEs[strings.Split(detected, ";")[0]] {
		return fmt.Errorf("content is not a WAV clip (detected: %s)", detected)
	}
	return nil
}
