package compaction

import "errors"

// ErrInvalidPolicy is returned when the compaction policy is invalid.
var ErrInvalidPolicy = errors.New("invalid compaction policy")
