package state

import (
	"time"

	"hostwatch/internal/output"
)

type Page int

const (
	PageMenu Page = iota
	PageDashboard
	PageTerminal
	PageHost
)

// AppState holds the latest frame as a view-model
type AppState struct {
	View         output.DashboardView
	LastUpdate   time.Time
	Now          time.Time
	Err          error
	CurrentPage  Page
	SelectedHost int
}

// Selected returns the host shown on the detail page, if any.
func (s AppState) Selected() (output.Section, bool) {
	if len(s.View.Sections) == 0 {
		return output.Section{}, false
	}
	i := s.SelectedHost
	if i < 0 {
		i = 0
	}
	if i >= len(s.View.Sections) {
		i = len(s.View.Sections) - 1
	}
	return s.View.Sections[i], true
}
