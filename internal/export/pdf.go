package export

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/starford/dailynotes/internal/models"
)

// DataURIPrefix precedes the base64 document in PDF's result.
const DataURIPrefix = "data:application/pdf;filename=generated.pdf;base64,"

// Page geometry in millimetres on A4.
const (
	marginLeft   = 20.0
	dividerRight = 190.0
	wrapWidth    = 170.0
	topY         = 20.0
	contentLimit = 280.0
	cursorLimit  = 270.0
	lineHeight   = 5.0
)

// Options controls rendering.
type Options struct {
	// Location is used for day grouping and the generation date. Nil means time.Local.
	Location *time.Location
	// Now is the generation timestamp source. Nil means time.Now.
	Now func() time.Time
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.Local
	}
	return o.Location
}

func (o Options) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// Document is a rendered PDF.
type Document struct {
	Bytes []byte
	Pages int
}

// DataURI returns the document as a data URI string.
func (d *Document) DataURI() string {
	return DataURIPrefix + base64.StdEncoding.EncodeToString(d.Bytes)
}

// PDF renders notes and returns the document as a data URI.
func PDF(notes []models.Note, opts Options) (string, error) {
	doc, err := Render(notes, opts)
	if err != nil {
		return "", err
	}
	return doc.DataURI(), nil
}

// Render lays out notes grouped by day, newest day first: a day header,
// then each note's title, wrapped content and a divider.
func Render(notes []models.Note, opts Options) (*Document, error) {
	loc := opts.location()
	generated := opts.now().In(loc)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("dailynotes", true)
	pdf.SetTitle("Daily Notes Export", true)
	pdf.SetCreationDate(generated)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	y := topY

	pdf.SetFont("Helvetica", "", 18)
	pdf.Text(marginLeft, y, "Daily Notes Export")
	y += 10

	pdf.SetFont("Helvetica", "", 12)
	pdf.Text(marginLeft, y, "Generated on: "+generated.Format("January 2, 2006"))
	y += 20

	for _, day := range GroupByDay(notes, loc) {
		pdf.SetFont("Helvetica", "B", 14)
		pdf.Text(marginLeft, y, day.Date.Format("Monday, January 2, 2006"))
		y += 10

		for _, n := range day.Notes {
			pdf.SetFont("Helvetica", "B", 12)
			pdf.Text(marginLeft, y, tr(n.Title))
			y += 7

			pdf.SetFont("Helvetica", "", 10)
			lines := pdf.SplitLines([]byte(tr(n.Content)), wrapWidth)
			if len(lines) == 0 {
				lines = [][]byte{nil}
			}
			if y+float64(len(lines))*lineHeight > contentLimit {
				pdf.AddPage()
				y = topY
			}
			for i, line := range lines {
				pdf.Text(marginLeft, y+float64(i)*lineHeight, string(line))
			}
			y += float64(len(lines))*lineHeight + 10

			pdf.SetDrawColor(200, 200, 200)
			pdf.Line(marginLeft, y-5, dividerRight, y-5)

			if y > cursorLimit {
				pdf.AddPage()
				y = topY
			}
		}
	}

	pages := pdf.PageCount()
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("export: render pdf: %w", err)
	}
	return &Document{Bytes: buf.Bytes(), Pages: pages}, nil
}
