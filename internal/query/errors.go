package query

import "errors"

// Error variables for clause parsing and validation.
var (
	ErrInvalidClause   = errors.New("invalid filter clause")
	ErrUnknownOperator = errors.New("unknown operator")
	ErrUnknownLogic    = errors.New("unknown logic")
)
