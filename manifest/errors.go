package manifest

import "errors"

// ErrMalformed is returned when a manifest cannot be read or lacks the
// name or dependencies fields.
var ErrMalformed = errors.New("malformed manifest")
