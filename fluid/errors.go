package fluid

import (
	"errors"
	"fmt"
)

//Error taxonomy. Configuration and capacity errors are returned before any
//state is touched, instability errors after the sub-step that produced them
var (
	ErrInvalidParameter     = errors.New("invalid solver parameter")
	ErrInvalidTimeInterval  = errors.New("invalid time interval")
	ErrCapacityExceeded     = errors.New("particle capacity exceeded")
	ErrLengthMismatch       = errors.New("particle attribute length mismatch")
	ErrNumericalInstability = errors.New("numerical instability")
)

//InstabilityError reports the first non-finite or out of range value found by
//the post sub-step check
type InstabilityError struct {
	Field   string
	Index   int
	Value   float64
	SubStep int
}

func (e *InstabilityError) Error() string {
	return fmt.Sprintf("%v: %s of particle %d is %g after sub-step %d",
		ErrNumericalInstability, e.Field, e.Index, e.Value, e.SubStep)
}

func (e *InstabilityError) Unwrap() error {
	return ErrNumericalInstability
}

func invalidParameter(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidParameter, fmt.Sprintf(format, args...))
}
