package view

import "errors"

// Error variables for view store operations.
var (
	ErrViewNotFound     = errors.New("view not found")
	ErrLastView         = errors.New("cannot close the last view")
	ErrInvalidOrder     = errors.New("view order must list every view exactly once")
	ErrTitleEmpty       = errors.New("view title cannot be empty")
	ErrInvalidPartition = errors.New("unknown partition")
	ErrInvalidPatch     = errors.New("invalid view change")
)
