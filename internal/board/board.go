// Package board renders the active view: it fetches the view's partition,
// runs the query engine over it, applies the saved row order and publishes a
// [Loaded] event once the rows are in place.
package board

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/calvinalkan/taskboard/internal/query"
	"github.com/calvinalkan/taskboard/internal/record"
	"github.com/calvinalkan/taskboard/internal/view"
)

// Source fetches the records of one partition for one subject.
type Source interface {
	Fetch(ctx context.Context, partition, subject string) ([]record.Record, error)
}

// Views is the part of [view.Store] the board reads.
type Views interface {
	Active() view.Config
}

// Loaded is published after a successful refresh.
type Loaded struct {
	ViewID    string
	Partition string
	IDs       []string
}

// Result is one rendered view.
type Result struct {
	View view.Config
	Rows []record.Record
	// Malformed lists the view's clauses that were evaluated permissively.
	Malformed []query.Clause
}

// Options configures a [Board].
type Options struct {
	Views  Views
	Source Source
	// Subject is the dashboard's person; a view may override it.
	Subject string
	// Known reports known column ids. Nil treats every column as known.
	Known func(string) bool
	// Kind reports a column's kind. Nil compares every column by string form.
	Kind func(string) (query.ColumnKind, bool)
	// Ranks returns the current priority ranks. Nil uses the builtins.
	Ranks  func() query.RankTable
	Logger *slog.Logger
}

// Board holds the rows of the most recently refreshed view. It is safe for
// concurrent use.
type Board struct {
	views   Views
	src     Source
	subject string
	known   func(string) bool
	kind    func(string) (query.ColumnKind, bool)
	ranks   func() query.RankTable
	log     *slog.Logger

	mu        sync.Mutex
	viewID    string
	partition string
	loaded    bool
	rows      []record.Record
	seq       uint64
	listeners map[uint64]func(Loaded)
}

// New returns a Board over opts.
func New(opts Options) *Board {
	b := &Board{
		views:     opts.Views,
		src:       opts.Source,
		subject:   opts.Subject,
		known:     opts.Known,
		kind:      opts.Kind,
		ranks:     opts.Ranks,
		log:       opts.Logger,
		listeners: map[uint64]func(Loaded){},
	}

	if b.ranks == nil {
		b.ranks = func() query.RankTable { return query.NewRankTable(nil) }
	}

	if b.log == nil {
		b.log = slog.New(slog.DiscardHandler)
	}

	return b
}

// Subject returns the dashboard subject.
func (b *Board) Subject() string {
	return b.subject
}

// Refresh renders the active view. While the fetch is in flight
// [Board.Loaded] reports false for it. On a fetch failure the rows are
// cleared and the error is returned; the engine never sees partial data.
func (b *Board) Refresh(ctx context.Context) (Result, error) {
	v := b.views.Active()

	b.mu.Lock()
	b.viewID = v.ID
	b.partition = v.Partition
	b.loaded = false
	b.rows = nil
	b.mu.Unlock()

	subject := v.Subject(b.subject)

	records, err := b.src.Fetch(ctx, v.Partition, subject)
	if err != nil {
		return Result{View: v}, fmt.Errorf("refresh %s (%s): %w", v.Title, v.Partition, err)
	}

	p := v.Params(b.subject)
	p.Known = b.known
	p.Kind = b.kind

	rows := query.FilterAndSort(records, p, b.ranks())
	if v.SortBy == "" {
		rows = query.ApplyRowOrder(rows, v.RowOrder)
	}

	malformed := query.Malformed(v.Filters, b.known)
	if len(malformed) > 0 {
		b.log.Debug("permissive clauses", "view", v.ID, "count", len(malformed))
	}

	b.mu.Lock()

	// A newer refresh for another view owns the state now.
	if b.viewID != v.ID || b.partition != v.Partition {
		b.mu.Unlock()

		return Result{View: v, Rows: rows, Malformed: malformed}, nil
	}

	b.loaded = true
	b.rows = rows
	listeners := make([]func(Loaded), 0, len(b.listeners))

	for _, fn := range b.listeners {
		listeners = append(listeners, fn)
	}

	b.mu.Unlock()

	ev := Loaded{ViewID: v.ID, Partition: v.Partition, IDs: recordIDs(rows)}
	for _, fn := range listeners {
		fn(ev)
	}

	return Result{View: v, Rows: rows, Malformed: malformed}, nil
}

// Loaded reports whether viewID's rows are the ones currently held.
func (b *Board) Loaded(viewID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.loaded && b.viewID == viewID
}

// Rows returns the rows of the last successful refresh.
func (b *Board) Rows() []record.Record {
	b.mu.Lock()
	defer b.mu.Unlock()

	return slices.Clone(b.rows)
}

// OnLoaded registers fn for every [Loaded] event. The returned func
// unregisters it.
func (b *Board) OnLoaded(fn func(Loaded)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	id := b.seq
	b.listeners[id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		delete(b.listeners, id)
	}
}

func recordIDs(rows []record.Record) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID()
	}

	return out
}
