package api

import (
	"github.com/starford/dailynotes/internal/models"
)

// NoteRequest is the request body for creating or replacing a note.
type NoteRequest struct {
	Title    string   `json:"title" example:"Groceries" validate:"required"`
	Content  string   `json:"content" example:"Milk, eggs"`
	AudioURL *string  `json:"audioUrl,omitempty" example:"/audio/0b9c.wav"`
	Tags     []string `json:"tags,omitempty" example:"errands"`
}

func (r NoteRequest) draft() models.Draft {
	return models.Draft{
		Title:    r.Title,
		Content:  r.Content,
		AudioURL: r.AudioURL,
		Tags:     r.Tags,
	}
}

// NoteResponse is a note, plus a warning when the change was applied but not persisted.
type NoteResponse struct {
	models.Note
	Warning string `json:"warning,omitempty" example:"persist create: disk full"`
}

// NoteListResponse wraps the full note listing.
type NoteListResponse struct {
	Notes []models.Note `json:"notes" validate:"required"`
	Total int           `json:"total" example:"42" validate:"required"`
}

// DayGroup is one calendar day in a grouped listing.
type DayGroup struct {
	Date  string        `json:"date" example:"2024-03-10" validate:"required"`
	Notes []models.Note `json:"notes" validate:"required"`
}

// DayListResponse wraps a grouped listing, newest day first.
type DayListResponse struct {
	Days  []DayGroup `json:"days" validate:"required"`
	Total int        `json:"total" example:"42" validate:"required"`
}

// DeleteResponse is returned by DELETE /notes/{id} only when a warning must be reported.
type DeleteResponse struct {
	Deleted bool   `json:"deleted"`
	Warning string `json:"warning,omitempty"`
}

// SelectionRequest selects a note by ID.
type SelectionRequest struct {
	ID string `json:"id" example:"0190c7a2-..." validate:"required"`
}

// SelectionResponse reports the current note; Note is null in create-mode.
type SelectionResponse struct {
	Note *models.Note `json:"note"`
}

// ShareResponse carries an outbound share link.
type ShareResponse struct {
	URL string `json:"url" example:"https://wa.me/?text=Groceries%0A%0AMilk" validate:"required"`
}

// ExportResponse carries the PDF as a data URI.
type ExportResponse struct {
	DataURI string `json:"dataUri" validate:"required"`
	Pages   int    `json:"pages" example:"2" validate:"required"`
}

// BackupResponse reports the backup outcome.
type BackupResponse struct {
	OK bool `json:"ok"`
}

// AudioUploadResponse is returned after a clip is stored.
type AudioUploadResponse struct {
	URL  string `json:"url" example:"/audio/0b9c.wav" validate:"required"`
	Size int64  `json:"size" example:"12345" validate:"required"`
}
