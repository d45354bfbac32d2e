package view

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/calvinalkan/taskboard/internal/query"
)

// DefaultTitle is the title of the view synthesized when nothing was saved.
const DefaultTitle = "Tasks"

// Options configures a [Store].
type Options struct {
	// Key identifies the dashboard in the bridge.
	Key    string
	Bridge Bridge
	// Columns is the known-column set at startup.
	Columns []KnownColumn
	// Required columns are enforced on load. Nil means [RequiredColumns].
	Required []RequiredColumn
	Ranks    query.RankTable
	Logger   *slog.Logger
	// NewID generates view ids. Nil means UUIDv7.
	NewID func() (string, error)
}

// Store is the single owner of the dashboard's views. It is safe for
// concurrent use; each mutation and the save that follows it happen under
// one lock, so a save never sees a half-applied change.
type Store struct {
	mu       sync.Mutex
	key      string
	bridge   Bridge
	columns  []KnownColumn
	required []RequiredColumn
	ranks    query.RankTable
	log      *slog.Logger
	newID    func() (string, error)
	state    Snapshot
	saveErr  error
}

// New creates an empty Store. Call [Store.Load] to hydrate it; a store used
// without loading holds a single unsaved default view.
func New(opts Options) *Store {
	s := &Store{
		key:      opts.Key,
		bridge:   opts.Bridge,
		columns:  slices.Clone(opts.Columns),
		required: opts.Required,
		ranks:    opts.Ranks,
		log:      opts.Logger,
		newID:    opts.NewID,
	}

	if s.required == nil {
		s.required = RequiredColumns
	}

	if s.log == nil {
		s.log = slog.New(slog.DiscardHandler)
	}

	if s.newID == nil {
		s.newID = newUUIDv7
	}

	return s
}

func newUUIDv7() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuidv7: %w", err)
	}

	return id.String(), nil
}

// Load hydrates the store from the bridge. A missing or unreadable snapshot
// yields a single default view; a readable one is migrated (required
// columns, known-column changes, cached group order) and saved back if the
// migration changed it. Load never fails.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, found, err := s.loadSnapshot(ctx)

	switch {
	case err != nil:
		s.log.Warn("view store unreadable, starting from default view", "key", s.key, "error", err)

		s.state = s.defaultSnapshot()
		s.saveLocked(ctx)

		return
	case !found || len(snap.Views) == 0:
		s.state = s.defaultSnapshot()
		s.saveLocked(ctx)

		return
	}

	changed := s.migrateLocked(&snap)
	s.state = snap

	if changed {
		s.saveLocked(ctx)
	}
}

func (s *Store) loadSnapshot(ctx context.Context) (Snapshot, bool, error) {
	if s.bridge == nil {
		return Snapshot{}, false, nil
	}

	return s.bridge.Load(ctx, s.key)
}

func (s *Store) migrateLocked(snap *Snapshot) bool {
	changed := false

	seen := snap.Columns
	if seen == nil {
		// Snapshots from before column tracking: assume in sync.
		seen = columnIDs(s.columns)
		changed = true
	}

	for i := range snap.Views {
		v, c := normalize(snap.Views[i])
		changed = changed || c

		v, c = Reconcile(v, s.required)
		changed = changed || c

		v, c = SyncColumns(v, s.columns, seen)
		changed = changed || c

		v, c = s.refreshGroupOrder(v)
		changed = changed || c

		snap.Views[i] = v
	}

	if len(snap.Views) > 0 && s.indexLocked(snap, snap.ActiveViewID) < 0 {
		snap.ActiveViewID = snap.Views[0].ID
		changed = true
	}

	known := columnIDs(s.columns)
	if !slices.Equal(snap.Columns, known) {
		snap.Columns = known
		changed = true
	}

	return changed
}

// normalize fills defaults a hand-edited or older snapshot may lack.
func normalize(v Config) (Config, bool) {
	changed := false

	if v.SortOrder != query.Asc && v.SortOrder != query.Desc {
		v.SortOrder = query.Desc
		changed = true
	}

	if v.StatusFilter == "" {
		v.StatusFilter = query.StatusAll
		changed = true
	}

	if !query.IsPartition(v.Partition) {
		v.Partition = query.DefaultPartition
		changed = true
	}

	if v.ColumnWidths == nil {
		v.ColumnWidths = map[string]int{}
		changed = true
	}

	return v, changed
}

func (s *Store) defaultSnapshot() Snapshot {
	id, err := s.newID()
	if err != nil {
		s.log.Warn("generating view id failed", "error", err)

		id = "default"
	}

	v := s.newConfig(id, DefaultTitle)

	return Snapshot{
		Views:        []Config{v},
		ActiveViewID: v.ID,
		Columns:      columnIDs(s.columns),
	}
}

func (s *Store) newConfig(id, title string) Config {
	visible := columnIDs(s.columns)
	widths := make(map[string]int, len(s.columns))

	for _, c := range s.columns {
		widths[c.ID] = c.DefaultWidth
	}

	v := Config{
		ID:             id,
		Title:          title,
		Filters:        []query.Clause{},
		SortOrder:      query.Desc,
		StatusFilter:   query.StatusAll,
		VisibleColumns: visible,
		ColumnOrder:    slices.Clone(visible),
		ColumnWidths:   widths,
		RowOrder:       []string{},
		Partition:      query.DefaultPartition,
	}

	v, _ = Reconcile(v, s.required)

	return v
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLocked()

	return s.state.clone()
}

// Views returns copies of all views in tab order.
func (s *Store) Views() []Config {
	return s.Snapshot().Views
}

// ActiveID returns the id of the active view.
func (s *Store) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.activeLocked().ID
}

// Active returns a copy of the active view.
func (s *Store) Active() Config {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.activeLocked().clone()
}

// View returns a copy of the view with the given id.
func (s *Store) View(id string) (Config, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLocked()

	i := s.indexLocked(&s.state, id)
	if i < 0 {
		return Config{}, false
	}

	return s.state.Views[i].clone(), true
}

// Columns returns the known-column set.
func (s *Store) Columns() []KnownColumn {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.columns)
}

// LastSaveError returns the error of the most recent save, or nil.
func (s *Store) LastSaveError() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveErr
}

// activeLocked resolves the active view, falling back to the first.
func (s *Store) activeLocked() *Config {
	s.ensureLocked()

	i := s.indexLocked(&s.state, s.state.ActiveViewID)
	if i < 0 {
		i = 0
	}

	return &s.state.Views[i]
}

func (s *Store) ensureLocked() {
	if len(s.state.Views) == 0 {
		s.state = s.defaultSnapshot()
	}
}

func (s *Store) indexLocked(snap *Snapshot, id string) int {
	return slices.IndexFunc(snap.Views, func(v Config) bool { return v.ID == id })
}

// AddView appends a new default view titled "View N" and activates it.
func (s *Store) AddView(ctx context.Context) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLocked()

	id, err := s.newID()
	if err != nil {
		return Config{}, err
	}

	v := s.newConfig(id, s.nextTitleLocked())
	v, _ = s.refreshGroupOrder(v)

	s.state.Views = append(s.state.Views, v)
	s.state.ActiveViewID = v.ID
	s.saveLocked(ctx)

	return v.clone(), nil
}

func (s *Store) nextTitleLocked() string {
	for n := 1; ; n++ {
		title := "View " + strconv.Itoa(n)

		taken := slices.ContainsFunc(s.state.Views, func(v Config) bool { return v.Title == title })
		if !taken {
			return title
		}
	}
}

// CloseView removes a view. The last remaining view cannot be closed. When
// the active view is closed the view before it becomes active.
func (s *Store) CloseView(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLocked()

	i := s.indexLocked(&s.state, id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrViewNotFound, id)
	}

	if len(s.state.Views) == 1 {
		return ErrLastView
	}

	wasActive := s.activeLocked().ID == id

	s.state.Views = slices.Delete(s.state.Views, i, i+1)

	if wasActive {
		s.state.ActiveViewID = s.state.Views[max(i-1, 0)].ID
	}

	s.saveLocked(ctx)

	return nil
}

// RenameView sets a view's title.
func (s *Store) RenameView(ctx context.Context, id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLocked()

	if title == "" {
		return ErrTitleEmpty
	}

	i := s.indexLocked(&s.state, id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrViewNotFound, id)
	}

	s.state.Views[i].Title = title
	s.saveLocked(ctx)

	return nil
}

// ReorderViews sets the tab order. ids must be a permutation of the current
// view ids.
func (s *Store) ReorderViews(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLocked()

	if len(ids) != len(s.state.Views) {
		return fmt.Errorf("%w: got %d ids for %d views", ErrInvalidOrder, len(ids), len(s.state.Views))
	}

	reordered := make([]Config, 0, len(ids))

	for _, id := range ids {
		i := s.indexLocked(&s.state, id)
		if i < 0 {
			return fmt.Errorf("%w: unknown view %s", ErrInvalidOrder, id)
		}

		if slices.ContainsFunc(reordered, func(v Config) bool { return v.ID == id }) {
			return fmt.Errorf("%w: duplicate view %s", ErrInvalidOrder, id)
		}

		reordered = append(reordered, s.state.Views[i])
	}

	s.state.Views = reordered
	s.saveLocked(ctx)

	return nil
}

// SetActive switches the active view.
func (s *Store) SetActive(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLocked()

	if s.indexLocked(&s.state, id) < 0 {
		return fmt.Errorf("%w: %s", ErrViewNotFound, id)
	}

	s.state.ActiveViewID = id
	s.saveLocked(ctx)

	return nil
}

// Activate switches to view id and selects partition in it.
func (s *Store) Activate(ctx context.Context, id, partition string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLocked()

	if !query.IsPartition(partition) {
		return fmt.Errorf("%w: %s", ErrInvalidPartition, partition)
	}

	i := s.indexLocked(&s.state, id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrViewNotFound, id)
	}

	s.state.ActiveViewID = id
	s.state.Views[i].Partition = partition
	s.saveLocked(ctx)

	return nil
}

// PatchActiveView applies p to the active view and returns the result.
//
// A visible-column change recomputes the column order with
// [ReorderColumns]. Grouping or sorting by priority refreshes the cached
// group order from the rank table.
func (s *Store) PatchActiveView(ctx context.Context, p Patch) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.activeLocked().clone()

	err := s.applyLocked(&v, p)
	if err != nil {
		return Config{}, err
	}

	*s.activeLocked() = v
	s.saveLocked(ctx)

	return v.clone(), nil
}

func (s *Store) applyLocked(v *Config, p Patch) error {
	if p.Title != nil {
		if *p.Title == "" {
			return ErrTitleEmpty
		}

		v.Title = *p.Title
	}

	if p.Filters != nil {
		v.Filters = slices.Clone(*p.Filters)
	}

	if p.SortBy != nil {
		v.SortBy = *p.SortBy
	}

	if p.SortOrder != nil {
		if *p.SortOrder != query.Asc && *p.SortOrder != query.Desc {
			return fmt.Errorf("%w: sort order %q", ErrInvalidPatch, *p.SortOrder)
		}

		v.SortOrder = *p.SortOrder
	}

	if p.SearchTerm != nil {
		v.SearchTerm = *p.SearchTerm
	}

	if p.StatusFilter != nil {
		v.StatusFilter = *p.StatusFilter
		if v.StatusFilter == "" {
			v.StatusFilter = query.StatusAll
		}
	}

	if p.GroupBy != nil {
		v.GroupBy = *p.GroupBy
	}

	if p.ColumnOrder != nil {
		v.ColumnOrder = slices.Clone(*p.ColumnOrder)
	}

	if p.VisibleColumns != nil {
		for _, id := range *p.VisibleColumns {
			if !slices.ContainsFunc(s.columns, func(c KnownColumn) bool { return c.ID == id }) {
				return fmt.Errorf("%w: unknown column %s", ErrInvalidPatch, id)
			}
		}

		v.VisibleColumns = slices.Clone(*p.VisibleColumns)
		v.ColumnOrder = ReorderColumns(v.ColumnOrder, v.VisibleColumns)
	}

	for id, width := range p.ColumnWidths {
		if width <= 0 {
			return fmt.Errorf("%w: width of %s must be positive", ErrInvalidPatch, id)
		}

		if v.ColumnWidths == nil {
			v.ColumnWidths = map[string]int{}
		}

		v.ColumnWidths[id] = width
	}

	if p.RowOrder != nil {
		v.RowOrder = slices.Clone(*p.RowOrder)
	}

	if p.Partition != nil {
		if !query.IsPartition(*p.Partition) {
			return fmt.Errorf("%w: %s", ErrInvalidPartition, *p.Partition)
		}

		v.Partition = *p.Partition
	}

	if p.SelectedSubjectID != nil {
		v.SelectedSubjectID = *p.SelectedSubjectID
	}

	if p.GroupBy != nil || p.SortBy != nil {
		*v, _ = s.refreshGroupOrder(*v)
	}

	return nil
}

// SetRanks replaces the priority rank table and refreshes the cached group
// order of every view grouped or sorted by priority.
func (s *Store) SetRanks(ctx context.Context, ranks query.RankTable) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLocked()

	s.ranks = ranks
	changed := false

	for i := range s.state.Views {
		var c bool

		s.state.Views[i], c = s.refreshGroupOrder(s.state.Views[i])
		changed = changed || c
	}

	if changed {
		s.saveLocked(ctx)
	}
}

// SetColumns replaces the known-column set and merges the change into every
// view.
func (s *Store) SetColumns(ctx context.Context, columns []KnownColumn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLocked()

	s.columns = slices.Clone(columns)

	if s.migrateLocked(&s.state) {
		s.saveLocked(ctx)
	}
}

func (s *Store) refreshGroupOrder(v Config) (Config, bool) {
	if v.GroupBy != query.FieldPriority && v.SortBy != query.FieldPriority {
		return v, false
	}

	order := s.ranks.Order()
	if slices.Equal(order, v.GroupOrder) {
		return v, false
	}

	v.GroupOrder = order

	return v, true
}

// saveLocked writes the full current state. Failures are logged and kept
// for [Store.LastSaveError]; they never fail the mutation.
func (s *Store) saveLocked(ctx context.Context) {
	if s.bridge == nil {
		return
	}

	err := s.bridge.Save(ctx, s.key, s.state.clone())
	if err != nil {
		s.log.Warn("saving view store failed", "key", s.key, "error", err)
	}

	s.saveErr = err
}
