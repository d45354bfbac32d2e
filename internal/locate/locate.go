// Package locate finds which saved view shows a record and switches the
// dashboard to it.
//
// A search fans out over every (view, partition) pair, replays each view's
// search term, status filter and clauses over the partition's records, and
// commits the first match in enumeration order: views in tab order, each
// view's partitions in [query.Partitions] order. After activating the match
// the locator waits for the board to report the view loaded with the record
// present, then highlights it for a fixed duration.
package locate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/calvinalkan/taskboard/internal/query"
	"github.com/calvinalkan/taskboard/internal/record"
	"github.com/calvinalkan/taskboard/internal/view"
)

var (
	// ErrSuperseded is returned by a search that a newer Locate replaced.
	ErrSuperseded = errors.New("locate superseded")

	// ErrNotFound is returned when no (view, partition) pair shows the record.
	ErrNotFound = errors.New("record not found in any view")

	// ErrEmptyID is returned for an empty record id.
	ErrEmptyID = errors.New("record id is empty")
)

// DefaultHighlight is how long a located record stays highlighted.
const DefaultHighlight = 5 * time.Second

const defaultConcurrency = 4

// State is the locator's position in its state machine.
type State int

const (
	Idle State = iota
	Searching
	PendingHighlight
	Found
	NotFound
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Searching:
		return "searching"
	case PendingHighlight:
		return "pending-highlight"
	case Found:
		return "found"
	case NotFound:
		return "not-found"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Fetcher fetches the records of one partition for one subject.
type Fetcher interface {
	Fetch(ctx context.Context, partition, subject string) ([]record.Record, error)
}

// Views is the part of [view.Store] the locator drives.
type Views interface {
	Views() []view.Config
	Activate(ctx context.Context, id, partition string) error
}

// Timer is a pending [Clock.AfterFunc] call.
type Timer interface {
	Stop() bool
}

// Clock schedules the highlight clear.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Pair is one (view, partition) combination.
type Pair struct {
	ViewID    string
	Partition string
}

// Diagnostic explains a failed search.
type Diagnostic struct {
	ID string
	// Fields are the record fields the search replayed across views.
	Fields []string
	// Checked lists every pair searched, Failed the ones whose fetch failed.
	Checked []Pair
	Failed  []Pair
	// Fallback is what the locator activated instead.
	Fallback Pair
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("record %s not found in %d view/partition pairs (%d fetches failed); checked fields: %s; showing %s/%s",
		d.ID, len(d.Checked), len(d.Failed), strings.Join(d.Fields, ", "), d.Fallback.ViewID, d.Fallback.Partition)
}

// Result reports how a search ended.
type Result struct {
	ID         string
	State      State
	Match      Pair
	Diagnostic *Diagnostic
}

// Options configures a [Locator].
type Options struct {
	Views  Views
	Source Fetcher
	// Subject is the dashboard's person; a view may override it.
	Subject string
	// Known reports known column ids. Nil treats every column as known.
	Known func(string) bool
	// Kind reports a column's kind. Nil compares every column by string form.
	Kind func(string) (query.ColumnKind, bool)
	// Highlight is how long the highlight lasts. Zero means [DefaultHighlight].
	Highlight time.Duration
	// Concurrency bounds the parallel fetches. Zero means 4.
	Concurrency int
	Clock       Clock
	Logger      *slog.Logger
}

// Locator runs one search at a time; a new [Locator.Locate] supersedes the
// one in flight. It is safe for concurrent use.
type Locator struct {
	views       Views
	src         Fetcher
	subject     string
	known       func(string) bool
	kind        func(string) (query.ColumnKind, bool)
	highlight   time.Duration
	concurrency int
	clock       Clock
	log         *slog.Logger

	mu          sync.Mutex
	gen         uint64
	state       State
	target      string
	pending     *Pair
	highlighted string
	clear       Timer
	done        chan struct{}
}

// New returns an idle Locator.
func New(opts Options) *Locator {
	l := &Locator{
		views:       opts.Views,
		src:         opts.Source,
		subject:     opts.Subject,
		known:       opts.Known,
		kind:        opts.Kind,
		highlight:   opts.Highlight,
		concurrency: opts.Concurrency,
		clock:       opts.Clock,
		log:         opts.Logger,
		done:        make(chan struct{}),
	}

	if l.highlight <= 0 {
		l.highlight = DefaultHighlight
	}

	if l.concurrency <= 0 {
		l.concurrency = defaultConcurrency
	}

	if l.clock == nil {
		l.clock = realClock{}
	}

	if l.log == nil {
		l.log = slog.New(slog.DiscardHandler)
	}

	return l
}

// State returns the current state.
func (l *Locator) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.state
}

// Highlighted returns the highlighted record id, or "".
func (l *Locator) Highlighted() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.highlighted
}

// Done returns a channel closed when the current search reaches Found or
// NotFound, or is superseded.
func (l *Locator) Done() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.done
}

// Locate searches for id and activates the first (view, partition) pair
// showing it. On a match it returns state PendingHighlight; the highlight is
// set once [Locator.Loaded] reports the record on screen. When nothing
// matches it activates the first view's default partition and returns the
// diagnostic together with [ErrNotFound].
func (l *Locator) Locate(ctx context.Context, id string) (Result, error) {
	if id == "" {
		return Result{}, ErrEmptyID
	}

	gen := l.reset(id)

	views := l.views.Views()
	pairs := enumerate(views)

	matched, failed, err := l.search(ctx, id, views, pairs)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.gen != gen {
		return Result{ID: id, State: l.state}, ErrSuperseded
	}

	if err != nil {
		l.finishLocked(Idle)

		return Result{ID: id, State: Idle}, err
	}

	if matched >= 0 {
		pair := pairs[matched]

		err = l.views.Activate(ctx, pair.ViewID, pair.Partition)
		if err != nil {
			l.finishLocked(NotFound)

			return Result{ID: id, State: NotFound}, fmt.Errorf("activate %s/%s: %w", pair.ViewID, pair.Partition, err)
		}

		l.state = PendingHighlight
		l.pending = &pair

		l.log.Debug("record located", "id", id, "view", pair.ViewID, "partition", pair.Partition)

		return Result{ID: id, State: PendingHighlight, Match: pair}, nil
	}

	diag := &Diagnostic{ID: id, Fields: checkedFields(views), Checked: pairs, Failed: failed}

	if len(views) > 0 {
		diag.Fallback = Pair{ViewID: views[0].ID, Partition: query.DefaultPartition}

		err = l.views.Activate(ctx, diag.Fallback.ViewID, diag.Fallback.Partition)
		if err != nil {
			l.log.Warn("fallback activation failed", "view", diag.Fallback.ViewID, "error", err)
		}
	}

	l.finishLocked(NotFound)
	l.log.Info("locate failed", "diagnostic", diag.String())

	return Result{ID: id, State: NotFound, Match: diag.Fallback, Diagnostic: diag}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// reset starts a new generation, dropping any highlight or pending match.
func (l *Locator) reset(id string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.gen++

	if l.clear != nil {
		l.clear.Stop()
		l.clear = nil
	}

	// Wake anyone waiting on the superseded search.
	select {
	case <-l.done:
	default:
		close(l.done)
	}

	l.done = make(chan struct{})
	l.state = Searching
	l.target = id
	l.pending = nil
	l.highlighted = ""

	return l.gen
}

func enumerate(views []view.Config) []Pair {
	pairs := make([]Pair, 0, len(views)*len(query.Partitions))

	for _, v := range views {
		for _, p := range query.Partitions {
			pairs = append(pairs, Pair{ViewID: v.ID, Partition: p})
		}
	}

	return pairs
}

// search fetches every pair concurrently and returns the index of the first
// matching pair in enumeration order, or -1. A failed fetch counts as no
// match.
func (l *Locator) search(ctx context.Context, id string, views []view.Config, pairs []Pair) (int, []Pair, error) {
	byID := make(map[string]view.Config, len(views))
	for _, v := range views {
		byID[v.ID] = v
	}

	hits := make([]bool, len(pairs))
	errs := make([]error, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)

	for i, pair := range pairs {
		g.Go(func() error {
			v := byID[pair.ViewID]
			p := v.Params(l.subject)
			p.Partition = pair.Partition
			p.Known = l.known
			p.Kind = l.kind

			records, err := l.src.Fetch(gctx, pair.Partition, p.Subject)
			if err != nil {
				errs[i] = err

				return nil
			}

			for _, rec := range records {
				if rec.ID() == id && query.Matches(rec, p) {
					hits[i] = true

					break
				}
			}

			return nil
		})
	}

	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return -1, nil, err
	}

	var failed []Pair

	for i, err := range errs {
		if err != nil {
			l.log.Debug("locate fetch failed", "view", pairs[i].ViewID, "partition", pairs[i].Partition, "error", err)
			failed = append(failed, pairs[i])
		}
	}

	for i, hit := range hits {
		if hit {
			return i, failed, nil
		}
	}

	return -1, failed, nil
}

// checkedFields lists the fields the replayed views compared: the search
// fields when any view searches, plus every filtered column.
func checkedFields(views []view.Config) []string {
	fields := []string{record.FieldID, query.FieldStatus}
	seen := map[string]bool{record.FieldID: true, query.FieldStatus: true}

	add := func(f string) {
		if !seen[f] {
			seen[f] = true
			fields = append(fields, f)
		}
	}

	for _, v := range views {
		if strings.TrimSpace(v.SearchTerm) != "" {
			for _, f := range query.SearchFields {
				add(f)
			}
		}

		for _, c := range v.Filters {
			add(c.Column)
		}
	}

	return fields
}

// Loaded is called by the board after a view's rows are in place. When it
// completes the pending match, the record is highlighted and a clear is
// scheduled.
func (l *Locator) Loaded(viewID, partition string, ids []string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != PendingHighlight || l.pending == nil {
		return
	}

	if l.pending.ViewID != viewID || l.pending.Partition != partition {
		return
	}

	present := false

	for _, id := range ids {
		if id == l.target {
			present = true

			break
		}
	}

	if !present {
		return
	}

	l.pending = nil
	l.highlighted = l.target

	gen := l.gen
	l.clear = l.clock.AfterFunc(l.highlight, func() {
		l.mu.Lock()
		defer l.mu.Unlock()

		if l.gen == gen {
			l.highlighted = ""
			l.clear = nil
		}
	})

	l.finishLocked(Found)
}

func (l *Locator) finishLocked(s State) {
	l.state = s

	select {
	case <-l.done:
	default:
		close(l.done)
	}
}
