package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/dailynotes/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)
	ah := NewAudioHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Notes CRUD.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/{id}", h.GetNote)
	r.Put("/notes/{id}", h.UpdateNote)
	r.Delete("/notes/{id}", h.DeleteNote)
	r.Get("/notes/{id}/share", h.ShareNote)

	// Selection (create-mode when empty).
	r.Get("/selection", h.GetSelection)
	r.Put("/selection", h.PutSelection)
	r.Delete("/selection", h.ClearSelection)

	r.Get("/export/pdf", h.ExportPDF)
	r.Post("/backup", h.Backup)

	// Audio upload (auth-protected); clips are served by ClipRouter.
	r.Post("/audio", ah.Upload)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

// ClipRouter serves stored audio clips at /{name}. Mount it at /audio.
func ClipRouter(svc *noteservice.Service) chi.Router {
	ah := NewAudioHandler(svc)
	r := chi.NewRouter()
	r.Get("/{name}", ah.ServeClip)
	return r
}
