package types

import "github.com/pkg/errors"

// ErrMalformedInput marks data that is non-numeric or does not fit the reading schema.
// It is fatal: nothing downstream of the failing step runs.
var ErrMalformedInput = errors.New("malformed input")
