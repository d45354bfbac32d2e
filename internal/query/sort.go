package query

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/calvinalkan/taskboard/internal/record"
)

// SortOrder is "asc" or "desc".
type SortOrder string

// Sort orders.
const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// ParseSortOrder accepts asc/desc in any case.
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case Asc, Desc:
		return o, nil
	default:
		return "", fmt.Errorf("invalid sort order %q (want asc|desc)", s)
	}
}

// FieldPriority is the sort/group key ranked through a [RankTable].
const FieldPriority = "priority"

// TimestampFields are compared as dates when sorting.
var TimestampFields = []string{"createdAt", "updatedAt", "dueDate"}

// BuiltinPriorities are ranked 1..N in this order.
var BuiltinPriorities = []string{"urgent", "today", "thisWeek", "thisMonth", "later"}

const (
	customRankBase = 100
	unrankedRank   = 999
)

// Priority is one priority definition as listed by the priority registry.
type Priority struct {
	Name   string `json:"name"`
	Rank   int    `json:"rank"`
	Custom bool   `json:"custom,omitempty"`
}

// RankTable maps priority names to their urgency rank (1 is most urgent).
type RankTable map[string]int

// NewRankTable ranks [BuiltinPriorities] 1..N and custom names from 100
// upward in the order given. A custom name shadowing a builtin is ignored.
func NewRankTable(custom []string) RankTable {
	table := make(RankTable, len(BuiltinPriorities)+len(custom))

	for i, name := range BuiltinPriorities {
		table[name] = i + 1
	}

	next := customRankBase

	for _, name := range custom {
		if _, exists := table[name]; exists || name == "" {
			continue
		}

		table[name] = next
		next++
	}

	return table
}

// Rank returns the rank of name; unknown names rank 999.
func (t RankTable) Rank(name string) int {
	if rank, ok := t[name]; ok {
		return rank
	}

	return unrankedRank
}

// Order returns the ranked names sorted ascending by rank. Views grouped by
// priority cache this as their group order.
func (t RankTable) Order() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}

	slices.SortFunc(names, func(a, b string) int {
		if c := cmp.Compare(t[a], t[b]); c != 0 {
			return c
		}

		return strings.Compare(a, b)
	})

	return names
}

// Priorities lists the table as registry entries, ascending by rank.
func (t RankTable) Priorities() []Priority {
	order := t.Order()
	out := make([]Priority, 0, len(order))

	for _, name := range order {
		out = append(out, Priority{Name: name, Rank: t[name], Custom: t[name] >= customRankBase})
	}

	return out
}

// Compare orders a and b by sortBy. An empty sortBy compares equal.
//
// Priority is inverted relative to every other field: desc yields ascending
// rank, so the most urgent records come first under the default order.
func Compare(a, b record.Record, sortBy string, order SortOrder, ranks RankTable) int {
	if sortBy == "" {
		return 0
	}

	av, _ := a.Lookup(sortBy)
	bv, _ := b.Lookup(sortBy)

	if sortBy == FieldPriority {
		ra := ranks.Rank(record.String(av))
		rb := ranks.Rank(record.String(bv))

		if order == Desc {
			return cmp.Compare(ra, rb)
		}

		return cmp.Compare(rb, ra)
	}

	var c int

	if slices.Contains(TimestampFields, sortBy) {
		ta, _ := record.ParseTime(av)
		tb, _ := record.ParseTime(bv)
		c = ta.Compare(tb)
	} else {
		c = compareValues(av, bv)
	}

	if order == Desc {
		return -c
	}

	return c
}

func compareValues(a, b any) int {
	na, aok := record.Number(a)
	nb, bok := record.Number(b)

	if aok && bok {
		return cmp.Compare(na, nb)
	}

	return strings.Compare(record.String(a), record.String(b))
}
