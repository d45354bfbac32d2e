package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/calvinalkan/taskboard/internal/record"
)

// Operator is a filter clause operator as stored in saved views.
type Operator string

// Operators understood by [Evaluate].
const (
	OpIs             Operator = "is"
	OpIsNot          Operator = "is_not"
	OpContains       Operator = "contains"
	OpDoesNotContain Operator = "does_not_contain"
	OpIsEmpty        Operator = "is_empty"
	OpIsNotEmpty     Operator = "is_not_empty"
	OpAnyOf          Operator = "any_of"
	OpBefore         Operator = "before"
	OpAfter          Operator = "after"
	OpOnOrBefore     Operator = "on_or_before"
	OpOnOrAfter      Operator = "on_or_after"
)

var allOperators = []Operator{
	OpIs, OpIsNot, OpContains, OpDoesNotContain, OpIsEmpty, OpIsNotEmpty,
	OpAnyOf, OpBefore, OpAfter, OpOnOrBefore, OpOnOrAfter,
}

var dateOperators = []Operator{
	OpIs, OpIsNot, OpBefore, OpAfter, OpOnOrBefore, OpOnOrAfter, OpIsEmpty, OpIsNotEmpty,
}

// Known reports whether op is one of the defined operators.
func (op Operator) Known() bool {
	for _, o := range allOperators {
		if o == op {
			return true
		}
	}

	return false
}

// ParseOperator accepts the stored spelling in any case, with "-" or "_"
// separators ("IS_NOT", "is-not", "is_not").
func ParseOperator(s string) (Operator, error) {
	op := Operator(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if !op.Known() {
		return op, fmt.Errorf("%w: %q", ErrUnknownOperator, s)
	}

	return op, nil
}

// UnmarshalJSON normalizes the spelling but keeps unknown operators so a
// saved view round-trips unchanged.
func (op *Operator) UnmarshalJSON(data []byte) error {
	var s string

	err := json.Unmarshal(data, &s)
	if err != nil {
		return fmt.Errorf("operator: %w", err)
	}

	parsed, _ := ParseOperator(s)
	if !parsed.Known() {
		parsed = Operator(s)
	}

	*op = parsed

	return nil
}

// ColumnKind describes the value shape a column holds.
type ColumnKind string

// Column kinds.
const (
	KindText   ColumnKind = "text"
	KindNumber ColumnKind = "number"
	KindDate   ColumnKind = "date"
	KindRef    ColumnKind = "ref"
	KindList   ColumnKind = "list"
)

// ColumnKinds lists every column kind.
var ColumnKinds = []ColumnKind{KindText, KindNumber, KindDate, KindRef, KindList}

// OperatorsFor returns the operators legal on a column of the given kind.
func OperatorsFor(kind ColumnKind) []Operator {
	if kind == KindDate {
		return append([]Operator(nil), dateOperators...)
	}

	return append([]Operator(nil), allOperators...)
}

// Logic joins a clause to the result of the clauses before it.
type Logic string

// Logic tags. The zero value behaves as [LogicAnd].
const (
	LogicAnd   Logic = "and"
	LogicOr    Logic = "or"
	LogicAnyOf Logic = "any_of"
)

// ParseLogic accepts "and", "or", "any_of" in any case. Empty means and.
func ParseLogic(s string) (Logic, error) {
	switch l := Logic(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")); l {
	case "":
		return LogicAnd, nil
	case LogicAnd, LogicOr, LogicAnyOf:
		return l, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownLogic, s)
	}
}

// UnmarshalJSON normalizes the stored spelling; unknown tags fold to and.
func (l *Logic) UnmarshalJSON(data []byte) error {
	var s string

	err := json.Unmarshal(data, &s)
	if err != nil {
		return fmt.Errorf("logic: %w", err)
	}

	parsed, err := ParseLogic(s)
	if err != nil {
		parsed = LogicAnd
	}

	*l = parsed

	return nil
}

// disjunctive reports whether l folds with OR. ANY_OF as a combination tag
// is identical to OR.
func (l Logic) disjunctive() bool {
	return l == LogicOr || l == LogicAnyOf
}

// Value is a clause operand: a scalar or, for [OpAnyOf], a list. Scalars are
// kept in their stringified form since every comparison is textual or parsed
// from text.
type Value struct {
	scalar string
	list   []string
	isList bool
}

// Scalar returns a single-valued operand.
func Scalar(s string) Value {
	return Value{scalar: s}
}

// List returns a list operand.
func List(items ...string) Value {
	return Value{list: append([]string{}, items...), isList: true}
}

// IsList reports whether v holds a list.
func (v Value) IsList() bool { return v.isList }

// String returns the scalar, or the comma-joined list.
func (v Value) String() string {
	if v.isList {
		return strings.Join(v.list, ",")
	}

	return v.scalar
}

// Items returns the list members; a scalar reads as a one-element list.
func (v Value) Items() []string {
	if v.isList {
		return append([]string(nil), v.list...)
	}

	if v.scalar == "" {
		return nil
	}

	return []string{v.scalar}
}

// Equal reports whether v and o hold the same operand.
func (v Value) Equal(o Value) bool {
	if v.isList != o.isList || v.scalar != o.scalar || len(v.list) != len(o.list) {
		return false
	}

	for i := range v.list {
		if v.list[i] != o.list[i] {
			return false
		}
	}

	return true
}

// MarshalJSON writes a string or an array of strings.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.isList {
		list := v.list
		if list == nil {
			list = []string{}
		}

		return json.Marshal(list)
	}

	return json.Marshal(v.scalar)
}

// UnmarshalJSON accepts strings, numbers, booleans, null and arrays of those.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var items []any

		err := json.Unmarshal(data, &items)
		if err != nil {
			return fmt.Errorf("value: %w", err)
		}

		out := make([]string, 0, len(items))
		for _, item := range items {
			out = append(out, record.String(item))
		}

		*v = Value{list: out, isList: true}

		return nil
	}

	var scalar any

	err := json.Unmarshal(data, &scalar)
	if err != nil {
		return fmt.Errorf("value: %w", err)
	}

	*v = Value{scalar: record.String(scalar)}

	return nil
}

// Clause is one saved filter condition. Logic is ignored on the first clause
// of a list.
type Clause struct {
	Column   string   `json:"column"`
	Operator Operator `json:"operator"`
	Value    Value    `json:"value"`
	Logic    Logic    `json:"logic,omitempty"`
}

// Validate checks the clause against the kind of its column. It does not
// run at evaluation time: saved clauses are evaluated permissively.
func (c Clause) Validate(kind ColumnKind) error {
	if c.Column == "" {
		return fmt.Errorf("%w: column is empty", ErrInvalidClause)
	}

	if !c.Operator.Known() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidClause, ErrUnknownOperator, string(c.Operator))
	}

	legal := false

	for _, op := range OperatorsFor(kind) {
		if op == c.Operator {
			legal = true

			break
		}
	}

	if !legal {
		return fmt.Errorf("%w: operator %s not allowed on %s column %s", ErrInvalidClause, c.Operator, kind, c.Column)
	}

	if c.Value.IsList() && c.Operator != OpAnyOf {
		return fmt.Errorf("%w: list value requires %s", ErrInvalidClause, OpAnyOf)
	}

	return nil
}

// ParseClause parses the CLI form "column:operator[:value[:logic]]". For
// any_of the value is a "|"-separated list. The value may itself contain
// colons; a trailing segment is only read as logic when it names one.
func ParseClause(s string) (Clause, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) < 2 {
		return Clause{}, fmt.Errorf("%w: want column:operator[:value[:logic]], got %q", ErrInvalidClause, s)
	}

	op, err := ParseOperator(parts[1])
	if err != nil {
		return Clause{}, fmt.Errorf("%w: %w", ErrInvalidClause, err)
	}

	c := Clause{Column: strings.TrimSpace(parts[0]), Operator: op}
	if c.Column == "" {
		return Clause{}, fmt.Errorf("%w: column is empty", ErrInvalidClause)
	}

	raw := ""
	hasValue := len(parts) == 3

	if hasValue {
		raw = parts[2]

		if i := strings.LastIndex(raw, ":"); i >= 0 {
			if logic, err := ParseLogic(raw[i+1:]); err == nil && raw[i+1:] != "" {
				c.Logic = logic
				raw = raw[:i]
			}
		}
	}

	switch {
	case op == OpAnyOf && hasValue:
		c.Value = List(strings.Split(raw, "|")...)
	case op == OpAnyOf:
		c.Value = List()
	default:
		c.Value = Scalar(raw)
	}

	return c, nil
}
