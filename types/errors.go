package types

import "errors"

// Error kinds shared by every package. Packages wrap these with
// fmt.Errorf("%w: ...") so callers can match with errors.Is.
var (
	ErrAlreadyInitialized     = errors.New("already initialized")
	ErrNotInitialized         = errors.New("not initialized")
	ErrInvalidAuthority       = errors.New("invalid authority")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrUnknownOperation       = errors.New("unknown operation")
	ErrEpochWindowViolation   = errors.New("epoch window violation")
	ErrOverflow               = errors.New("arithmetic overflow")
	ErrUnderflow              = errors.New("arithmetic underflow")
	ErrInvalidArgument        = errors.New("invalid argument")
)
