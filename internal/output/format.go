package output

import (
	"fmt"
	"strings"
	"time"

	"hostwatch/internal/engine"
	"hostwatch/internal/telemetry"
)

// UI/view-model types (no printing here)
type Item struct {
	Key    string
	Label  string
	Value  float64
	Unit   string
	Status string
	Note   string
}

// Section is one host card.
type Section struct {
	ID               string // hostname
	Title            string
	State            string
	RemainingSeconds int
	Progress         float64 // idle countdown, 0..1
	Items            []Item
}

type FeedLine struct {
	Time     string
	Text     string
	Category telemetry.Category
}

type DashboardView struct {
	Sections    []Section
	Feed        []FeedLine
	ActiveHosts int
	IdleHosts   int
	Now         time.Time
	LogRevision uint64
}

// BuildDashboard converts one engine frame into UI-ready sections.
func BuildDashboard(f engine.Frame) DashboardView {
	view := DashboardView{
		Sections:    make([]Section, 0, len(f.Hosts)),
		Feed:        make([]FeedLine, 0, len(f.Logs)),
		Now:         f.Now,
		LogRevision: f.LogRevision,
	}

	for _, h := range f.Hosts {
		switch h.State {
		case engine.Active:
			view.ActiveHosts++
		case engine.Idle:
			view.IdleHosts++
		}
		view.Sections = append(view.Sections, buildSection(h))
	}

	for _, l := range f.Logs {
		view.Feed = append(view.Feed, FeedLine{
			Time:     time.UnixMilli(l.TimestampMs).Format("15:04:05"),
			Text:     l.Text,
			Category: l.Category,
		})
	}
	return view
}

func buildSection(h engine.HostView) Section {
	sec := Section{
		ID:               h.Hostname,
		Title:            h.Hostname,
		State:            h.State.String(),
		RemainingSeconds: h.RemainingSeconds,
		Progress:         h.ProgressFraction,
	}

	for _, r := range engine.Evaluate(h) {
		name := strings.ToLower(r.Name)

		unit := "%"
		switch {
		case strings.Contains(name, "temperature"):
			unit = "°C"
		case strings.Contains(name, "last seen"):
			unit = "s"
		}

		key := strings.ReplaceAll(name, " ", "_")
		if strings.HasPrefix(name, "last seen") {
			key = "last_seen"
		}
		sec.Items = append(sec.Items, Item{
			Key:    key,
			Label:  r.Name,
			Value:  r.Value,
			Unit:   unit,
			Status: r.Status,
		})
	}

	// Informational
	if h.RAMTotalMB > 0 {
		sec.Items = append(sec.Items, Item{
			Key:   "ram_used",
			Label: "RAM Used",
			Note:  fmt.Sprintf("%.0f / %.0f MB", h.RAMUsedMB, h.RAMTotalMB),
		})
	}
	return sec
}

func (v DashboardView) SectionByID(id string) *Section {
	for i := range v.Sections {
		if v.Sections[i].ID == id {
			return &v.Sections[i]
		}
	}
	return nil
}

func (s Section) ItemByKey(key string) *Item {
	for i := range s.Items {
		if s.Items[i].Key == key {
			return &s.Items[i]
		}
	}
	return nil
}
