package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	// Validation errors
	ErrValidation    = errors.New("validation error")
	ErrEmptyTarget   = fmt.Errorf("%w: target cannot be empty", ErrValidation)
	ErrInvalidTarget = fmt.Errorf("%w: target is not a valid URL", ErrValidation)
	ErrInvalidConfig = errors.New("invalid configuration")

	// Probe errors
	ErrProbeNetwork = errors.New("probe network error")
	ErrParse        = errors.New("probe response could not be parsed")
	ErrTooLarge     = errors.New("probe response exceeds size limit")
)

// ProbeError describes a failed probe. Kind is ErrProbeNetwork or ErrParse.
type ProbeError struct {
	Probe string
	Kind  error
	Err   error
}

func (e *ProbeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s probe: %v", e.Probe, e.Kind)
	}
	return fmt.Sprintf("%s probe: %v", e.Probe, e.Err)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the error kind of this probe failure.
func (e *ProbeError) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}

// NewNetworkError wraps a transport or upstream status failure.
func NewNetworkError(probe string, err error) *ProbeError {
	return &ProbeError{Probe: probe, Kind: ErrProbeNetwork, Err: err}
}

// NewParseError wraps a malformed probe response.
func NewParseError(probe string, err error) *ProbeError {
	return &ProbeError{Probe: probe, Kind: ErrParse, Err: err}
}
