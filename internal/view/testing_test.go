package view_test

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/calvinalkan/taskboard/internal/query"
	"github.com/calvinalkan/taskboard/internal/view"
)

// memBridge stores snapshots as JSON so tests observe exactly what a real
// bridge would persist.
type memBridge struct {
	mu      sync.Mutex
	data    map[string][]byte
	saves   int
	loadErr error
	saveErr error
}

func newMemBridge() *memBridge {
	return &memBridge{data: map[string][]byte{}}
}

func (b *memBridge) Load(_ context.Context, key string) (view.Snapshot, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.loadErr != nil {
		return view.Snapshot{}, false, b.loadErr
	}

	raw, ok := b.data[key]
	if !ok {
		return view.Snapshot{}, false, nil
	}

	var snap view.Snapshot

	err := json.Unmarshal(raw, &snap)
	if err != nil {
		return view.Snapshot{}, false, err
	}

	return snap, true, nil
}

func (b *memBridge) Save(_ context.Context, key string, snap view.Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.saves++

	if b.saveErr != nil {
		return b.saveErr
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	b.data[key] = raw

	return nil
}

func (b *memBridge) saved(t *testing.T, key string) view.Snapshot {
	t.Helper()

	snap, ok, err := b.Load(t.Context(), key)
	if err != nil || !ok {
		t.Fatalf("no snapshot saved under %q (err=%v)", key, err)
	}

	return snap
}

func (b *memBridge) put(t *testing.T, key string, snap view.Snapshot) {
	t.Helper()

	raw, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}

	b.mu.Lock()
	b.data[key] = raw
	b.mu.Unlock()
}

var errBridgeDown = errors.New("bridge down")

func sequentialIDs() func() (string, error) {
	var mu sync.Mutex

	n := 0

	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()

		n++

		return "v" + strconv.Itoa(n), nil
	}
}

var testColumns = []view.KnownColumn{
	{ID: "title", Label: "Title", DefaultWidth: 200, Kind: query.KindText},
	{ID: "status", Label: "Status", DefaultWidth: 100, Kind: query.KindText},
	{ID: "verificationStatus", Label: "Verification", DefaultWidth: 140, Kind: query.KindText},
	{ID: "priority", Label: "Priority", DefaultWidth: 90, Kind: query.KindText},
}

func newTestStore(t *testing.T, bridge view.Bridge) *view.Store {
	t.Helper()

	s := view.New(view.Options{
		Key:     "tasks",
		Bridge:  bridge,
		Columns: testColumns,
		Ranks:   query.NewRankTable(nil),
		NewID:   sequentialIDs(),
	})
	s.Load(t.Context())

	return s
}
