package registry

import "errors"

// Sentinel errors the registry layer reports; handlers check with errors.Is
// rather than string matching.
var (
	ErrInvalidSchema = errors.New("invalid schema")
)
