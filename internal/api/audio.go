package api

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/starford/dailynotes/internal/audio"
	"github.com/starford/dailynotes/internal/noteservice"
)

// AudioHandler accepts voice clips and serves them back.
type AudioHandler struct {
	svc *noteservice.Service
}

// NewAudioHandler creates a handler backed by the service's recorder.
func NewAudioHandler(svc *noteservice.Service) *AudioHandler {
	return &AudioHandler{svc: svc}
}

// ServeClip handles GET /audio/{name}.
func (h *AudioHandler) ServeClip(w http.ResponseWriter, r *http.Request) {
	abs, err := h.svc.Recorder().Path(chi.URLParam(r, "name"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, statErr := os.Stat(abs); os.IsNotExist(statErr) {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	http.ServeFile(w, r, abs)
}

// Upload handles POST /api/audio. The clip is either the raw request body or
// the "file" field of a multipart form.
//
//	@Summary		Store a voice clip
//	@Tags			audio
//	@Accept			audio/wav
//	@Accept			multipart/form-data
//	@Produce		json
//	@Success		201	{object}	AudioUploadResponse
//	@Failure		400	{object}	errResponse
//	@Failure		413	{object}	errResponse
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/audio [post]
func (h *AudioHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if !h.svc.Recorder().Enabled() {
		writeJSON(w, http.StatusServiceUnavailable, errorBody(audio.ErrUnavailable.Error()))
		return
	}
	// The body cap leaves room for multipart framing; the recording itself
	// enforces the exact clip limit.
	r.Body = http.MaxBytesReader(w, r.Body, audio.MaxClipBytes+uploadOverhead)

	var src io.Reader = r.Body
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "multipart/form-data" {
		if err := r.ParseMultipartForm(audio.MaxClipBytes); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
			return
		}
		defer file.Close()
		src = file
	}

	counted := &countingReader{r: src}
	url, err := h.svc.SaveAudio(r.Context(), counted)
	if err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig), errors.Is(err, audio.ErrTooLarge):
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("clip too large"))
		case errors.Is(err, audio.ErrUnavailable):
			writeJSON(w, http.StatusServiceUnavailable, errorBody(err.Error()))
		default:
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		}
		return
	}
	writeJSON(w, http.StatusCreated, AudioUploadResponse{URL: url, Size: counted.n})
}

// uploadOverhead is the allowance for multipart boundaries and part headers
// on top of the clip itself.
const uploadOverhead = 1 << 20

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
