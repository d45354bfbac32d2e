// Package view owns the dashboard's saved views (tabs): their filters, sort,
// search term, columns, row order and partition, and which one is active.
//
// All state lives in a [Store]. Every mutation re-serializes the whole store
// through a [Bridge]; save failures are logged and otherwise ignored since
// the in-memory state stays authoritative for the session.
package view

import (
	"context"
	"slices"

	"github.com/calvinalkan/taskboard/internal/query"
)

// KnownColumn is one column the dashboard can display.
type KnownColumn struct {
	ID           string           `json:"id"`
	Label        string           `json:"label"`
	DefaultWidth int              `json:"width"`
	Kind         query.ColumnKind `json:"kind"`
	Custom       bool             `json:"custom,omitempty"`
}

// Config is one saved view.
type Config struct {
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	Filters           []query.Clause  `json:"filters"`
	SortBy            string          `json:"sortBy"`
	SortOrder         query.SortOrder `json:"sortOrder"`
	SearchTerm        string          `json:"searchTerm"`
	StatusFilter      string          `json:"statusFilter"`
	GroupBy           string          `json:"groupBy,omitempty"`
	GroupOrder        []string        `json:"groupOrder,omitempty"`
	VisibleColumns    []string        `json:"visibleColumns"`
	ColumnOrder       []string        `json:"columnOrder"`
	ColumnWidths      map[string]int  `json:"columnWidths"`
	RowOrder          []string        `json:"rowOrder"`
	Partition         string          `json:"partition"`
	SelectedSubjectID string          `json:"selectedSubjectId,omitempty"`
}

// Params returns the query parameters for rendering this view for subject.
// A view-level selected subject overrides the dashboard subject.
func (c Config) Params(subject string) query.Params {
	if c.SelectedSubjectID != "" {
		subject = c.SelectedSubjectID
	}

	return query.Params{
		Filters:      c.Filters,
		SortBy:       c.SortBy,
		SortOrder:    c.SortOrder,
		SearchTerm:   c.SearchTerm,
		StatusFilter: c.StatusFilter,
		Partition:    c.Partition,
		Subject:      subject,
	}
}

// Subject returns the subject the view is rendered for.
func (c Config) Subject(dashboard string) string {
	if c.SelectedSubjectID != "" {
		return c.SelectedSubjectID
	}

	return dashboard
}

func (c Config) clone() Config {
	out := c
	out.Filters = slices.Clone(c.Filters)
	out.GroupOrder = slices.Clone(c.GroupOrder)
	out.VisibleColumns = slices.Clone(c.VisibleColumns)
	out.ColumnOrder = slices.Clone(c.ColumnOrder)
	out.RowOrder = slices.Clone(c.RowOrder)

	if c.ColumnWidths != nil {
		out.ColumnWidths = make(map[string]int, len(c.ColumnWidths))
		for k, v := range c.ColumnWidths {
			out.ColumnWidths[k] = v
		}
	}

	return out
}

// Snapshot is the persisted form of a [Store].
type Snapshot struct {
	Views        []Config `json:"views"`
	ActiveViewID string   `json:"activeViewId"`
	// Columns lists the known column ids at the time of the save. Columns
	// known now but missing here are new and get merged into every view.
	Columns []string `json:"columns,omitempty"`
}

func (s Snapshot) clone() Snapshot {
	out := Snapshot{
		ActiveViewID: s.ActiveViewID,
		Columns:      slices.Clone(s.Columns),
		Views:        make([]Config, len(s.Views)),
	}

	for i, v := range s.Views {
		out.Views[i] = v.clone()
	}

	return out
}

// Bridge loads and saves a whole [Snapshot] keyed by dashboard.
// Load reports found=false when nothing was saved under key.
type Bridge interface {
	Load(ctx context.Context, key string) (snap Snapshot, found bool, err error)
	Save(ctx context.Context, key string, snap Snapshot) error
}

// Patch is a partial update to the active view. Nil fields are left alone.
// ColumnWidths entries are merged into the existing widths.
type Patch struct {
	Title             *string
	Filters           *[]query.Clause
	SortBy            *string
	SortOrder         *query.SortOrder
	SearchTerm        *string
	StatusFilter      *string
	GroupBy           *string
	VisibleColumns    *[]string
	ColumnOrder       *[]string
	ColumnWidths      map[string]int
	RowOrder          *[]string
	Partition         *string
	SelectedSubjectID *string
}

// Ptr returns a pointer to v, for building a [Patch].
func Ptr[T any](v T) *T {
	return &v
}
