package vector

import "errors"

// Sentinel errors returned (wrapped) by layer operations and storage.
// Callers match them with errors.Is.
var (
	ErrInputNotFound     = errors.New("input not found")
	ErrEmptyGeometry     = errors.New("empty geometry")
	ErrCRSMismatch       = errors.New("crs mismatch")
	ErrMalformedGeometry = errors.New("malformed geometry")
	ErrMultiFeature      = errors.New("multi-feature layer not supported")
)
