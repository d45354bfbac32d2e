package view

import (
	"slices"

	"github.com/calvinalkan/taskboard/internal/query"
)

// RequiredColumn is a column every view must show. Views saved before it
// existed get it inserted after Anchor.
type RequiredColumn struct {
	ID     string
	Anchor string
	Width  int
}

// RequiredColumns are enforced on every load.
var RequiredColumns = []RequiredColumn{
	{ID: "verificationStatus", Anchor: "status", Width: 140},
}

// BuiltinColumns are the columns every dashboard knows about, in default
// display order.
var BuiltinColumns = []KnownColumn{
	{ID: "title", Label: "Title", DefaultWidth: 280, Kind: query.KindText},
	{ID: "client", Label: "Client", DefaultWidth: 180, Kind: query.KindRef},
	{ID: "clientGroup", Label: "Client group", DefaultWidth: 140, Kind: query.KindText},
	{ID: "workType", Label: "Work type", DefaultWidth: 160, Kind: query.KindList},
	{ID: "status", Label: "Status", DefaultWidth: 120, Kind: query.KindText},
	{ID: "verificationStatus", Label: "Verification", DefaultWidth: 140, Kind: query.KindText},
	{ID: "priority", Label: "Priority", DefaultWidth: 110, Kind: query.KindText},
	{ID: "assignedTo", Label: "Assignee", DefaultWidth: 160, Kind: query.KindRef},
	{ID: "createdBy", Label: "Created by", DefaultWidth: 160, Kind: query.KindRef},
	{ID: "verifier", Label: "Verifier", DefaultWidth: 160, Kind: query.KindRef},
	{ID: "secondVerifier", Label: "Second verifier", DefaultWidth: 160, Kind: query.KindRef},
	{ID: "finalVerifier", Label: "Final verifier", DefaultWidth: 160, Kind: query.KindRef},
	{ID: "dueDate", Label: "Due", DefaultWidth: 120, Kind: query.KindDate},
	{ID: "createdAt", Label: "Created", DefaultWidth: 140, Kind: query.KindDate},
	{ID: "description", Label: "Description", DefaultWidth: 320, Kind: query.KindText},
}

// ReorderColumns returns the column order after the visible set changed:
// entries that stay visible keep their relative order, newly visible ids are
// appended in the order they appear in visible.
func ReorderColumns(order, visible []string) []string {
	out := make([]string, 0, len(visible))

	for _, id := range order {
		if slices.Contains(visible, id) && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}

	for _, id := range visible {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}

	return out
}

// Reconcile inserts every missing required column into the view's visible
// columns and column order (after its anchor, or at the end) and seeds its
// width. It reports whether anything changed; running it again on its own
// output changes nothing.
func Reconcile(cfg Config, required []RequiredColumn) (Config, bool) {
	out := cfg.clone()
	changed := false

	for _, col := range required {
		if !slices.Contains(out.VisibleColumns, col.ID) {
			out.VisibleColumns = insertAfter(out.VisibleColumns, col.ID, col.Anchor)
			changed = true
		}

		if !slices.Contains(out.ColumnOrder, col.ID) {
			out.ColumnOrder = insertAfter(out.ColumnOrder, col.ID, col.Anchor)
			changed = true
		}

		if out.ColumnWidths == nil {
			out.ColumnWidths = map[string]int{}
		}

		if _, ok := out.ColumnWidths[col.ID]; !ok {
			out.ColumnWidths[col.ID] = col.Width
			changed = true
		}
	}

	return out, changed
}

// SyncColumns merges a changed known-column set into the view. Columns in
// known but not in seen are new: they become visible at the end of the
// order with their default width. Ids no longer known are removed from the
// visible set, the order and the widths. User choices about columns that
// were already known are kept.
func SyncColumns(cfg Config, known []KnownColumn, seen []string) (Config, bool) {
	out := cfg.clone()
	changed := false

	isKnown := make(map[string]bool, len(known))
	for _, col := range known {
		isKnown[col.ID] = true
	}

	keep := func(ids []string) []string {
		kept := slices.DeleteFunc(slices.Clone(ids), func(id string) bool { return !isKnown[id] })
		if len(kept) != len(ids) {
			changed = true
		}

		return kept
	}

	out.VisibleColumns = keep(out.VisibleColumns)
	out.ColumnOrder = keep(out.ColumnOrder)

	for id := range out.ColumnWidths {
		if !isKnown[id] {
			delete(out.ColumnWidths, id)

			changed = true
		}
	}

	for _, col := range known {
		if slices.Contains(seen, col.ID) {
			continue
		}

		if !slices.Contains(out.VisibleColumns, col.ID) {
			out.VisibleColumns = append(out.VisibleColumns, col.ID)
			changed = true
		}

		if !slices.Contains(out.ColumnOrder, col.ID) {
			out.ColumnOrder = append(out.ColumnOrder, col.ID)
			changed = true
		}

		if out.ColumnWidths == nil {
			out.ColumnWidths = map[string]int{}
		}

		if _, ok := out.ColumnWidths[col.ID]; !ok {
			out.ColumnWidths[col.ID] = col.DefaultWidth
			changed = true
		}
	}

	// Every visible column must be placed.
	for _, id := range out.VisibleColumns {
		if !slices.Contains(out.ColumnOrder, id) {
			out.ColumnOrder = append(out.ColumnOrder, id)
			changed = true
		}
	}

	return out, changed
}

func insertAfter(ids []string, id, anchor string) []string {
	i := slices.Index(ids, anchor)
	if i < 0 {
		return append(ids, id)
	}

	return slices.Insert(ids, i+1, id)
}

func columnIDs(cols []KnownColumn) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.ID
	}

	return out
}
