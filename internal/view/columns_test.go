package view_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/calvinalkan/taskboard/internal/view"
)

func Test_ReorderColumns_Keeps_Relative_Order_When_Visible_Set_Changes(t *testing.T) {
	t.Parallel()

	// Contract: ids that stay visible keep their order; new ones are appended
	// in visible order; hidden ones drop out.
	tests := []struct {
		name    string
		order   []string
		visible []string
		want    []string
	}{
		{
			name:    "hide one",
			order:   []string{"a", "b", "c"},
			visible: []string{"c", "a"},
			want:    []string{"a", "c"},
		},
		{
			name:    "show new",
			order:   []string{"b", "a"},
			visible: []string{"a", "b", "d", "c"},
			want:    []string{"b", "a", "d", "c"},
		},
		{
			name:    "empty order",
			order:   nil,
			visible: []string{"x", "y"},
			want:    []string{"x", "y"},
		},
		{
			name:    "duplicates collapse",
			order:   []string{"a", "a", "b"},
			visible: []string{"a", "b"},
			want:    []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := view.ReorderColumns(tt.order, tt.visible)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("ReorderColumns mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func Test_Reconcile_Inserts_Required_Column_After_Anchor_When_Missing(t *testing.T) {
	t.Parallel()

	cfg := view.Config{
		VisibleColumns: []string{"title", "status", "priority"},
		ColumnOrder:    []string{"priority", "status", "title"},
		ColumnWidths:   map[string]int{"status": 50},
	}

	got, changed := view.Reconcile(cfg, view.RequiredColumns)
	if !changed {
		t.Fatal("expected change")
	}

	if diff := cmp.Diff([]string{"title", "status", "verificationStatus", "priority"}, got.VisibleColumns); diff != "" {
		t.Fatalf("visible (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"priority", "status", "verificationStatus", "title"}, got.ColumnOrder); diff != "" {
		t.Fatalf("order (-want +got):\n%s", diff)
	}

	if got.ColumnWidths["verificationStatus"] != 140 {
		t.Fatalf("width=%d, want 140", got.ColumnWidths["verificationStatus"])
	}

	// The input is not mutated.
	if len(cfg.VisibleColumns) != 3 {
		t.Fatalf("input mutated: %v", cfg.VisibleColumns)
	}
}

func Test_Reconcile_Appends_Required_Column_When_Anchor_Missing(t *testing.T) {
	t.Parallel()

	cfg := view.Config{VisibleColumns: []string{"title"}, ColumnOrder: []string{"title"}}

	got, _ := view.Reconcile(cfg, view.RequiredColumns)

	if diff := cmp.Diff([]string{"title", "verificationStatus"}, got.VisibleColumns); diff != "" {
		t.Fatalf("visible (-want +got):\n%s", diff)
	}
}

func Test_Reconcile_Is_Idempotent_When_Applied_Twice(t *testing.T) {
	t.Parallel()

	// Contract: reconcile(reconcile(v)) == reconcile(v), and the second pass
	// reports no change.
	inputs := []view.Config{
		{},
		{VisibleColumns: []string{"status"}, ColumnOrder: []string{"status"}},
		{
			VisibleColumns: []string{"verificationStatus", "title"},
			ColumnOrder:    []string{"title"},
			ColumnWidths:   map[string]int{"verificationStatus": 10},
		},
	}

	for _, in := range inputs {
		once, _ := view.Reconcile(in, view.RequiredColumns)
		twice, changed := view.Reconcile(once, view.RequiredColumns)

		if changed {
			t.Fatalf("second reconcile reported a change for %+v", in)
		}

		if diff := cmp.Diff(once, twice); diff != "" {
			t.Fatalf("not idempotent (-once +twice):\n%s", diff)
		}
	}
}

func Test_Reconcile_Keeps_User_Width_When_Already_Set(t *testing.T) {
	t.Parallel()

	cfg := view.Config{
		VisibleColumns: []string{"status", "verificationStatus"},
		ColumnOrder:    []string{"status", "verificationStatus"},
		ColumnWidths:   map[string]int{"verificationStatus": 999},
	}

	got, changed := view.Reconcile(cfg, view.RequiredColumns)
	if changed {
		t.Fatal("expected no change")
	}

	if got.ColumnWidths["verificationStatus"] != 999 {
		t.Fatalf("width=%d, want 999", got.ColumnWidths["verificationStatus"])
	}
}

func Test_SyncColumns_Adds_New_And_Drops_Removed_Columns_When_Known_Set_Changes(t *testing.T) {
	t.Parallel()

	cfg := view.Config{
		VisibleColumns: []string{"title", "gone"},
		ColumnOrder:    []string{"gone", "title"},
		ColumnWidths:   map[string]int{"title": 200, "gone": 10},
	}

	known := []view.KnownColumn{
		{ID: "title", DefaultWidth: 100},
		{ID: "status", DefaultWidth: 120},
		{ID: "budget", DefaultWidth: 80},
	}

	// status was known before and the user hid it; budget is new.
	seen := []string{"title", "status", "gone"}

	got, changed := view.SyncColumns(cfg, known, seen)
	if !changed {
		t.Fatal("expected change")
	}

	want := view.Config{
		VisibleColumns: []string{"title", "budget"},
		ColumnOrder:    []string{"title", "budget"},
		ColumnWidths:   map[string]int{"title": 200, "budget": 80},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("SyncColumns mismatch (-want +got):\n%s", diff)
	}

	_, changed = view.SyncColumns(got, known, []string{"title", "status", "budget"})
	if changed {
		t.Fatal("second sync reported a change")
	}
}
