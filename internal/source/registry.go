package source

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/calvinalkan/taskboard/internal/query"
	"github.com/calvinalkan/taskboard/internal/view"
)

var (
	// ErrColumnInvalid is returned for a custom column without an id or
	// with an unknown kind.
	ErrColumnInvalid = errors.New("invalid column")

	// ErrColumnExists is returned when a custom column reuses a known id.
	ErrColumnExists = errors.New("column already exists")

	// ErrPriorityInvalid is returned for an empty or already ranked priority.
	ErrPriorityInvalid = errors.New("invalid priority")
)

const defaultCustomWidth = 150

// Registry lists the known columns (builtin first, then custom in the order
// they were added) and the priority ranks. Custom columns may be added at
// runtime; it is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	columns  []view.KnownColumn
	priority []string
}

// NewRegistry returns a registry over [view.BuiltinColumns] plus custom.
func NewRegistry(custom []view.KnownColumn, customPriorities []string) (*Registry, error) {
	r := &Registry{
		columns:  slices.Clone(view.BuiltinColumns),
		priority: slices.Clone(customPriorities),
	}

	for _, col := range custom {
		if err := r.add(col); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// AddColumn registers a custom column. Callers push the new list into the
// view store with [view.Store.SetColumns].
func (r *Registry) AddColumn(col view.KnownColumn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.add(col)
}

func (r *Registry) add(col view.KnownColumn) error {
	if col.ID == "" {
		return fmt.Errorf("%w: empty id", ErrColumnInvalid)
	}

	if col.Kind == "" {
		col.Kind = query.KindText
	}

	if !slices.Contains(query.ColumnKinds, col.Kind) {
		return fmt.Errorf("%w: %s: kind %q", ErrColumnInvalid, col.ID, col.Kind)
	}

	if r.indexLocked(col.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrColumnExists, col.ID)
	}

	if col.Label == "" {
		col.Label = col.ID
	}

	if col.DefaultWidth <= 0 {
		col.DefaultWidth = defaultCustomWidth
	}

	col.Custom = true
	r.columns = append(r.columns, col)

	return nil
}

func (r *Registry) indexLocked(id string) int {
	return slices.IndexFunc(r.columns, func(c view.KnownColumn) bool { return c.ID == id })
}

// Columns returns the known columns.
func (r *Registry) Columns() []view.KnownColumn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.columns)
}

// Known reports whether id is a known column.
func (r *Registry) Known(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.indexLocked(id) >= 0
}

// Kind returns the kind of column id.
func (r *Registry) Kind(id string) (query.ColumnKind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexLocked(id)
	if i < 0 {
		return "", false
	}

	return r.columns[i].Kind, true
}

// RefFields lists the columns holding references.
func (r *Registry) RefFields() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string

	for _, c := range r.columns {
		if c.Kind == query.KindRef {
			out = append(out, c.ID)
		}
	}

	return out
}

// Ranks returns the priority rank table.
func (r *Registry) Ranks() query.RankTable {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return query.NewRankTable(r.priority)
}

// AddPriority ranks a custom priority after every existing one. Callers push
// the new table into the view store with [view.Store.SetRanks].
func (r *Registry) AddPriority(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrPriorityInvalid)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := query.NewRankTable(r.priority)[name]; ok {
		return fmt.Errorf("%w: %s already ranked", ErrPriorityInvalid, name)
	}

	r.priority = append(r.priority, name)

	return nil
}

// Priorities lists every priority with its rank, most urgent first.
func (r *Registry) Priorities() []query.Priority {
	return r.Ranks().Priorities()
}
