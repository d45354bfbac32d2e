package query

import (
	"slices"
	"strings"

	"github.com/calvinalkan/taskboard/internal/record"
)

// Record fields the engine reads directly.
const (
	FieldStatus     = "status"
	FieldAssignedTo = "assignedTo"
	FieldCreatedBy  = "createdBy"
)

// Status values with engine semantics.
const (
	StatusPending = "pending"
	StatusDone    = "done"
	StatusAll     = "all"
)

// Partitions, in the order the locator enumerates them.
const (
	PartitionAssigned             = "assigned"
	PartitionCreated              = "created"
	PartitionReview               = "review"
	PartitionCompleted            = "completed"
	PartitionReceivedVerification = "receivedVerification"
)

// Partitions is the fixed partition enumeration order. The first entry is
// the default partition of a new view.
var Partitions = []string{
	PartitionAssigned,
	PartitionCreated,
	PartitionReview,
	PartitionCompleted,
	PartitionReceivedVerification,
}

// DefaultPartition is selected for new views and the locator fallback.
const DefaultPartition = PartitionAssigned

// IsPartition reports whether p is a known partition.
func IsPartition(p string) bool {
	return slices.Contains(Partitions, p)
}

// VerifierRoles are ordered from least to most senior.
var VerifierRoles = []string{"verifier", "secondVerifier", "finalVerifier"}

// SearchFields are matched by the free-text search term.
var SearchFields = []string{"title", "description", "client.name", "clientGroup", "workType"}

// Params is the slice of a view's configuration the engine needs.
type Params struct {
	Filters      []Clause
	SortBy       string
	SortOrder    SortOrder
	SearchTerm   string
	StatusFilter string
	Partition    string
	// Subject is the person the dashboard is shown for; partition rules
	// compare reference fields against it.
	Subject string
	// Known, when set, marks clause columns that exist. Clauses on unknown
	// columns match.
	Known func(column string) bool
	// Kind, when set, reports a column's kind. Without it every column
	// compares by string form.
	Kind func(column string) (ColumnKind, bool)
}

// FilterAndSort returns the records a view displays, in display order.
// The input slice is not modified.
func FilterAndSort(records []record.Record, p Params, ranks RankTable) []record.Record {
	out := make([]record.Record, 0, len(records))

	term := strings.ToLower(strings.TrimSpace(p.SearchTerm))

	for _, rec := range records {
		if record.String(rec[FieldStatus]) == StatusPending {
			continue
		}

		if !partitionAllows(rec, p.Partition, p.Subject) {
			continue
		}

		if term != "" && !matchesSearch(rec, term) {
			continue
		}

		if p.StatusFilter != "" && p.StatusFilter != StatusAll && record.String(rec[FieldStatus]) != p.StatusFilter {
			continue
		}

		if !combine(rec, p.Filters, p.Known, p.Kind) {
			continue
		}

		out = append(out, rec)
	}

	if p.SortBy != "" {
		slices.SortStableFunc(out, func(a, b record.Record) int {
			return Compare(a, b, p.SortBy, p.SortOrder, ranks)
		})
	}

	return out
}

// Matches reports whether rec would be displayed under p. The locator uses
// it to replay a view against freshly fetched partition data.
func Matches(rec record.Record, p Params) bool {
	return len(FilterAndSort([]record.Record{rec}, Params{
		Filters:      p.Filters,
		SearchTerm:   p.SearchTerm,
		StatusFilter: p.StatusFilter,
		Partition:    p.Partition,
		Subject:      p.Subject,
		Known:        p.Known,
		Kind:         p.Kind,
	}, nil)) == 1
}

// Malformed returns the clauses that evaluate permissively: unknown
// operators, or columns rejected by known.
func Malformed(clauses []Clause, known func(string) bool) []Clause {
	var out []Clause

	for _, c := range clauses {
		if !c.Operator.Known() || (known != nil && !known(rootColumn(c.Column))) {
			out = append(out, c)
		}
	}

	return out
}

func combine(rec record.Record, clauses []Clause, known func(string) bool, kindOf func(string) (ColumnKind, bool)) bool {
	if len(clauses) == 0 {
		return true
	}

	eval := func(c Clause) bool {
		if known != nil && !known(rootColumn(c.Column)) {
			return true
		}

		var kind ColumnKind

		// Nested paths read a field inside the column, not the column itself.
		if kindOf != nil && !strings.Contains(c.Column, ".") {
			kind, _ = kindOf(c.Column)
		}

		return EvaluateAs(rec, c, kind)
	}

	result := eval(clauses[0])

	for _, c := range clauses[1:] {
		if c.Logic.disjunctive() {
			result = result || eval(c)
		} else {
			result = result && eval(c)
		}
	}

	return result
}

func rootColumn(path string) string {
	root, _, _ := strings.Cut(path, ".")

	return root
}

func matchesSearch(rec record.Record, term string) bool {
	for _, field := range SearchFields {
		v, ok := rec.Lookup(field)
		if !ok {
			continue
		}

		if strings.Contains(strings.ToLower(record.String(v)), term) {
			return true
		}
	}

	return false
}

func partitionAllows(rec record.Record, partition, subject string) bool {
	if subject == "" {
		return true
	}

	switch partition {
	case PartitionCompleted:
		if refID(rec, FieldAssignedTo) == subject {
			return true
		}

		for _, role := range VerifierRoles {
			if refID(rec, role) == subject {
				return true
			}
		}

		return false
	case PartitionReceivedVerification:
		return LastVerifier(rec) == subject
	default:
		return true
	}
}

// LastVerifier returns the id in the most senior filled verifier role.
func LastVerifier(rec record.Record) string {
	for i := len(VerifierRoles) - 1; i >= 0; i-- {
		if id := refID(rec, VerifierRoles[i]); id != "" {
			return id
		}
	}

	return ""
}

func refID(rec record.Record, field string) string {
	v, ok := rec.Lookup(field)
	if !ok {
		return ""
	}

	return record.String(v)
}
