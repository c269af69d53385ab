package pipeline

import (
	"github.com/Marcin0203/1und1-recruitment-task/internal/salesman"
)

// Row is one salesman as the list renders it.
type Row struct {
	ID         salesman.ID
	ShortLabel string // avatar badge
	Name       string
	Areas      string // joined with ", "
	Expanded   bool
}

// DisplayState is everything a view needs to draw the search screen.
type DisplayState struct {
	// QueryText mirrors the raw input immediately, ahead of any filtering.
	QueryText string
	Rows      []Row
	// SourceErr is the last source failure. Rows still hold the last good
	// snapshot while it is set.
	SourceErr error
	// Loaded is false until the first snapshot arrived.
	Loaded bool
}

// Rows derives display rows from a filtered list and the expansion flags.
func Rows(list []salesman.Salesman, expanded map[salesman.ID]bool) []Row {
	rows := make([]Row, 0, len(list))
	for _, s := range list {
		id := s.ID()
		rows = append(rows, Row{
			ID:         id,
			ShortLabel: s.Initial(),
			Name:       s.Name,
			Areas:      s.AreasJoined(),
			Expanded:   expanded[id],
		})
	}
	return rows
}
