package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and oracle clients return
// these (optionally wrapped) so services can classify failures without
// depending on driver-specific error types.
//
//   - ErrUnavailable: remote collaborator unreachable or answered with a failure status
//   - ErrInvalidState: component misconfigured for the requested operation
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrUnavailable  = errors.New("unavailable")
	ErrInvalidState = errors.New("invalid state")
)
