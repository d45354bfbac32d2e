package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/calvinalkan/taskboard/internal/board"
	"github.com/calvinalkan/taskboard/internal/config"
	"github.com/calvinalkan/taskboard/internal/fs"
	"github.com/calvinalkan/taskboard/internal/locate"
	"github.com/calvinalkan/taskboard/internal/source"
	"github.com/calvinalkan/taskboard/internal/store"
	"github.com/calvinalkan/taskboard/internal/view"
)

// Session is one dashboard opened for a command or a shell: the view store
// loaded from the bridge, the record source, the board and the locator,
// wired together.
type Session struct {
	cfg      config.Config
	log      *slog.Logger
	registry *source.Registry
	bridge   store.Bridge
	views    *view.Store
	records  *source.Fixture
	board    *board.Board
	locator  *locate.Locator
	stop     func()
}

func openSession(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Session, error) {
	registry, err := source.NewRegistry(cfg.CustomColumns, cfg.CustomPriorities)
	if err != nil {
		return nil, fmt.Errorf("custom columns: %w", err)
	}

	fsys := fs.NewReal()

	bridge, err := store.Open(ctx, fsys, store.Backend(cfg.Backend), cfg.StoreDirAbs)
	if err != nil {
		return nil, err
	}

	views := view.New(view.Options{
		Key:     cfg.Dashboard,
		Bridge:  bridge,
		Columns: registry.Columns(),
		Ranks:   registry.Ranks(),
		Logger:  logger.With("component", "views"),
	})
	views.Load(ctx)

	records := source.NewFixture(fsys, cfg.RecordsAbs, registry.RefFields())

	b := board.New(board.Options{
		Views:   views,
		Source:  records,
		Subject: cfg.Subject,
		Known:   registry.Known,
		Kind:    registry.Kind,
		Ranks:   registry.Ranks,
		Logger:  logger.With("component", "board"),
	})

	loc := locate.New(locate.Options{
		Views:     views,
		Source:    records,
		Subject:   cfg.Subject,
		Known:     registry.Known,
		Kind:      registry.Kind,
		Highlight: cfg.Highlight(),
		Logger:    logger.With("component", "locate"),
	})

	stop := b.OnLoaded(func(ev board.Loaded) {
		loc.Loaded(ev.ViewID, ev.Partition, ev.IDs)
	})

	return &Session{
		cfg:      cfg,
		log:      logger,
		registry: registry,
		bridge:   bridge,
		views:    views,
		records:  records,
		board:    b,
		locator:  loc,
		stop:     stop,
	}, nil
}

// Close releases the bridge.
func (s *Session) Close() error {
	s.stop()

	return s.bridge.Close()
}
