package record_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/calvinalkan/taskboard/internal/record"
)

// Contract: reference fields arrive as ids or expanded objects and always leave as Ref.
func Test_Normalize_Folds_Reference_Shapes_Into_Ref(t *testing.T) {
	t.Parallel()

	raw := map[string]any{
		"id":         float64(42),
		"assignedTo": "u1",
		"createdBy":  map[string]any{"id": "u2", "firstName": "Grace"},
		"verifier":   map[string]any{"firstName": "no id"},
		"title":      "keep me",
	}

	got := record.Normalize(raw, []string{"assignedTo", "createdBy", "verifier", "absent"})

	want := record.Record{
		"id":         float64(42),
		"assignedTo": record.Ref{ID: "u1"},
		"createdBy":  record.Ref{ID: "u2", Fields: map[string]any{"id": "u2", "firstName": "Grace"}},
		"title":      "keep me",
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Normalize (-want +got):\n%s", diff)
	}

	if _, ok := raw["verifier"]; !ok {
		t.Fatal("Normalize mutated its input")
	}

	if got.ID() != "42" {
		t.Fatalf("ID() = %q, want 42", got.ID())
	}
}

// Contract: dotted lookups traverse maps and refs; any missing intermediate yields nothing.
func Test_Lookup_Traverses_Dotted_Paths(t *testing.T) {
	t.Parallel()

	rec := record.Normalize(map[string]any{
		"assignedTo": map[string]any{"id": "u1", "team": map[string]any{"name": "tax"}},
		"client":     map[string]any{"name": "Acme", "group": nil},
	}, []string{"assignedTo"})

	tests := []struct {
		path string
		want any
		ok   bool
	}{
		{"assignedTo.id", "u1", true},
		{"assignedTo.team.name", "tax", true},
		{"client.name", "Acme", true},
		{"client.group", nil, false},
		{"client.group.name", nil, false},
		{"missing.anything", nil, false},
		{"", nil, false},
	}

	for _, tt := range tests {
		got, ok := rec.Lookup(tt.path)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Lookup(%q) = (%v, %v), want (%v, %v)", tt.path, got, ok, tt.want, tt.ok)
		}
	}
}

// Contract: String renders values the way filters compare them.
func Test_String_Renders_Filter_Form(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{float64(3), "3"},
		{float64(2.5), "2.5"},
		{true, "true"},
		{record.Ref{ID: "u1"}, "u1"},
		{[]any{"a", float64(1)}, "a,1"},
		{time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), "2024-01-02T03:04:05Z"},
	}

	for _, tt := range tests {
		if got := record.String(tt.in); got != tt.want {
			t.Errorf("String(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// Contract: ParseTime accepts the layouts the record source emits and rejects junk.
func Test_ParseTime_Accepts_Source_Layouts(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"2024-03-01", "2024-03-01T10:00:00", "2024-03-01T10:00:00Z", "2024-03-01T10:00:00.123+01:00"} {
		if _, ok := record.ParseTime(in); !ok {
			t.Errorf("ParseTime(%q) failed", in)
		}
	}

	for _, in := range []any{"", "yesterday", true} {
		if _, ok := record.ParseTime(in); ok {
			t.Errorf("ParseTime(%v) succeeded, want failure", in)
		}
	}
}
