// Package export renders the note collection as a PDF document.
package export

import (
	"slices"
	"time"

	"github.com/starford/dailynotes/internal/models"
)

const dayKeyLayout = "2006-01-02"

// Day is the set of notes created on one calendar day.
type Day struct {
	Key   string    // yyyy-mm-dd in the grouping location
	Date  time.Time // midnight of Key in the grouping location
	Notes []models.Note
}

// GroupByDay buckets notes by the calendar day of CreatedAt in loc. Days are
// ordered newest first; notes keep their input order within a day.
func GroupByDay(notes []models.Note, loc *time.Location) []Day {
	if loc == nil {
		loc = time.Local
	}
	index := make(map[string]int)
	var days []Day
	for _, n := range notes {
		local := n.CreatedAt.In(loc)
		key := local.Format(dayKeyLayout)
		i, ok := index[key]
		if !ok {
			i = len(days)
			index[key] = i
			days = append(days, Day{
				Key:  key,
				Date: time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc),
			})
		}
		days[i].Notes = append(days[i].Notes, n.Clone())
	}
	slices.SortStableFunc(days, func(a, b Day) int {
		return b.Date.Compare(a.Date)
	})
	return days
}
