package query

import (
	"slices"
	"strings"
	"time"

	"github.com/calvinalkan/taskboard/internal/record"
)

// Evaluate reports whether rec satisfies clause on a column of unknown kind:
// is and is_not compare string forms (reference ids for references).
func Evaluate(rec record.Record, clause Clause) bool {
	return EvaluateAs(rec, clause, "")
}

// EvaluateAs reports whether rec satisfies clause on a column of the given
// kind. Only date columns compare is and is_not by calendar day.
//
// A field that resolves to nothing only ever matches [OpIsEmpty], whatever
// the operator. On a present value, unknown operators match so a single bad
// saved clause cannot hide a whole view.
func EvaluateAs(rec record.Record, clause Clause, kind ColumnKind) bool {
	resolved, ok := rec.Lookup(clause.Column)
	if !ok || resolved == nil {
		return clause.Operator == OpIsEmpty
	}

	switch clause.Operator {
	case OpIsEmpty:
		return record.IsEmpty(resolved)
	case OpIsNotEmpty:
		return !record.IsEmpty(resolved)
	case OpAnyOf:
		return anyOf(resolved, clause.Value.Items())
	case OpIs:
		return is(resolved, clause.Value.String(), kind)
	case OpIsNot:
		return !is(resolved, clause.Value.String(), kind)
	case OpContains:
		return containsFold(record.String(resolved), clause.Value.String())
	case OpDoesNotContain:
		return !containsFold(record.String(resolved), clause.Value.String())
	case OpBefore, OpAfter, OpOnOrBefore, OpOnOrAfter:
		return compareDates(resolved, clause.Value.String(), clause.Operator)
	default:
		return true
	}
}

// Combine folds the clause results strictly left to right: "A and B or C"
// is (A and B) or C. An empty clause list matches everything.
func Combine(rec record.Record, clauses []Clause) bool {
	return combine(rec, clauses, nil, nil)
}

func is(resolved any, want string, kind ColumnKind) bool {
	if ref, ok := resolved.(record.Ref); ok {
		return ref.ID == want
	}

	if record.String(resolved) == want {
		return true
	}

	if kind != KindDate {
		return false
	}

	// A day-only operand compares against the calendar day of a timestamp.
	day, err := time.Parse(time.DateOnly, want)
	if err != nil {
		return false
	}

	t, ok := record.ParseTime(resolved)
	if !ok {
		return false
	}

	return sameDay(t, day)
}

func anyOf(resolved any, items []string) bool {
	if len(items) == 0 {
		return false
	}

	if slices.Contains(items, record.String(resolved)) {
		return true
	}

	if ref, ok := resolved.(record.Ref); ok && slices.Contains(items, ref.ID) {
		return true
	}

	for _, elem := range record.Elements(resolved) {
		if slices.Contains(items, record.String(elem)) {
			return true
		}
	}

	return false
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func compareDates(resolved any, operand string, op Operator) bool {
	have, ok := record.ParseTime(resolved)
	if !ok {
		return false
	}

	want, ok := record.ParseTime(operand)
	if !ok {
		return false
	}

	// Day-only operands compare whole days so "on or before 2024-03-01"
	// includes the afternoon of March 1st.
	if _, err := time.Parse(time.DateOnly, strings.TrimSpace(operand)); err == nil {
		have = truncateDay(have)
	}

	switch op {
	case OpBefore:
		return have.Before(want)
	case OpAfter:
		return have.After(want)
	case OpOnOrBefore:
		return !have.After(want)
	case OpOnOrAfter:
		return !have.Before(want)
	default:
		return false
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sameDay(a, b time.Time) bool {
	return truncateDay(a).Equal(truncateDay(b))
}
