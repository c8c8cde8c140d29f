package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/dailynotes/internal/apperr"
	"github.com/starford/dailynotes/internal/noteservice"
	"github.com/starford/dailynotes/internal/share"
)

const maxNoteBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

func decodeNote(w http.ResponseWriter, r *http.Request) (NoteRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxNoteBytes)
	var req NoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return req, false
	}
	return req, true
}

// writeMutationError maps service errors for create/update.
func writeMutationError(w http.ResponseWriter, op, id string, err error) {
	var ve *apperr.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorBody(ve.Error()))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	default:
		slog.Error(op+" note failed", slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List notes, newest first, optionally grouped by day
//	@Tags			notes
//	@Produce		json
//	@Param			group	query		string	false	"Grouping"	Enums(day)
//	@Success		200		{object}	NoteListResponse
//	@Success		304		"Not modified"
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("group") == "day" {
		days := h.svc.ListByDay(r.Context())
		resp := DayListResponse{Days: make([]DayGroup, len(days))}
		for i, d := range days {
			resp.Days[i] = DayGroup{Date: d.Key, Notes: d.Notes}
			resp.Total += len(d.Notes)
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	list, sum, err := h.svc.ListNotes(r.Context())
	if err != nil {
		slog.Error("list notes failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	etag := strconv.Quote(sum)
	w.Header().Set("ETag", etag)
	if match := r.Header.Get("If-None-Match"); match == etag || strings.Trim(match, `"`) == sum {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: list, Total: len(list)})
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a single note
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note ID"
//	@Success		200	{object}	NoteResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	note, err := h.svc.GetNote(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, NoteResponse{Note: note})
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a new note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		NoteRequest	true	"Note to create"
//	@Success		201		{object}	NoteResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeNote(w, r)
	if !ok {
		return
	}
	note, err := h.svc.CreateNote(r.Context(), req.draft())
	warning, err := persistenceWarning(w, err)
	if err != nil {
		writeMutationError(w, "create", "", err)
		return
	}
	writeJSON(w, http.StatusCreated, NoteResponse{Note: note, Warning: warning})
}

// UpdateNote handles PUT /api/notes/{id}.
//
//	@Summary		Replace a note's title, content, audio and tags
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Note ID"
//	@Param			body	body		NoteRequest	true	"Updated note"
//	@Success		200		{object}	NoteResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	req, ok := decodeNote(w, r)
	if !ok {
		return
	}
	note, err := h.svc.UpdateNote(r.Context(), id, req.draft())
	warning, err := persistenceWarning(w, err)
	if err != nil {
		writeMutationError(w, "update", id, err)
		return
	}
	writeJSON(w, http.StatusOK, NoteResponse{Note: note, Warning: warning})
}

// DeleteNote handles DELETE /api/notes/{id}. Deleting an unknown ID succeeds.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			id	path	string	true	"Note ID"
//	@Success		204	"Note deleted"
//	@Success		200	{object}	DeleteResponse	"Deleted, but not persisted"
//	@Security		BearerAuth
//	@Router			/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	deleted, err := h.svc.DeleteNote(r.Context(), id)
	warning, err := persistenceWarning(w, err)
	if err != nil {
		slog.Error("delete note failed", slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if warning != "" {
		writeJSON(w, http.StatusOK, DeleteResponse{Deleted: deleted, Warning: warning})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ShareNote handles GET /api/notes/{id}/share.
//
//	@Summary		WhatsApp share link for a note
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note ID"
//	@Success		200	{object}	ShareResponse
//	@Failure		404	{object}	errResponse
//	@Failure		422	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/share [get]
func (h *Handler) ShareNote(w http.ResponseWriter, r *http.Request) {
	link, err := h.svc.ShareURL(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, share.ErrEmpty):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	default:
		writeJSON(w, http.StatusOK, ShareResponse{URL: link})
	}
}

// GetSelection handles GET /api/selection.
//
//	@Summary		Current note (null in create-mode)
//	@Tags			selection
//	@Produce		json
//	@Success		200	{object}	SelectionResponse
//	@Security		BearerAuth
//	@Router			/selection [get]
func (h *Handler) GetSelection(w http.ResponseWriter, r *http.Request) {
	var resp SelectionResponse
	if cur, ok := h.svc.Current(r.Context()); ok {
		resp.Note = &cur
	}
	writeJSON(w, http.StatusOK, resp)
}

// PutSelection handles PUT /api/selection.
//
//	@Summary		Select a note
//	@Tags			selection
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SelectionRequest	true	"Note to select"
//	@Success		200		{object}	SelectionResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/selection [put]
func (h *Handler) PutSelection(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req SelectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id is required"))
		return
	}
	note, err := h.svc.Select(r.Context(), req.ID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, SelectionResponse{Note: &note})
}

// ClearSelection handles DELETE /api/selection.
//
//	@Summary		Clear the selection (create-mode)
//	@Tags			selection
//	@Success		204	"Selection cleared"
//	@Security		BearerAuth
//	@Router			/selection [delete]
func (h *Handler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	h.svc.ClearSelection(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// ExportPDF handles GET /api/export/pdf. The document is returned as
// application/pdf, or as a JSON data URI with ?format=datauri.
//
//	@Summary		Export all notes as PDF
//	@Tags			export
//	@Produce		application/pdf
//	@Produce		json
//	@Param			format	query		string	false	"Response format"	Enums(pdf, datauri)
//	@Success		200		{object}	ExportResponse
//	@Security		BearerAuth
//	@Router			/export/pdf [get]
func (h *Handler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.ExportPDF(r.Context())
	if err != nil {
		slog.Error("export failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("export failed"))
		return
	}
	if r.URL.Query().Get("format") == "datauri" {
		writeJSON(w, http.StatusOK, ExportResponse{DataURI: doc.DataURI(), Pages: doc.Pages})
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="generated.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Bytes)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Bytes)
}

// Backup handles POST /api/backup.
//
//	@Summary		Back up all notes
//	@Tags			backup
//	@Produce		json
//	@Success		200	{object}	BackupResponse
//	@Failure		502	{object}	BackupResponse
//	@Security		BearerAuth
//	@Router			/backup [post]
func (h *Handler) Backup(w http.ResponseWriter, r *http.Request) {
	if !h.svc.Backup(r.Context()) {
		writeJSON(w, http.StatusBadGateway, BackupResponse{OK: false})
		return
	}
	writeJSON(w, http.StatusOK, BackupResponse{OK: true})
}
