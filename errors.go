package fqsort

import "errors"

var (
	ErrTruncatedUnit    = errors.New("trailing unit is truncated")
	ErrDegenerateBuffer = errors.New("per-run buffer size must be positive")
	ErrInvalidUnitSize  = errors.New("unit size must be positive")
	ErrInvalidBudget    = errors.New("block byte budget must be positive")
	ErrBlockNotFound    = errors.New("block not found")
	ErrSelectorDrained  = errors.New("selector has no runs left")
)
