package oerror

import "fmt"

// TrampolineError is an error raised by the simulator itself rather than by a library it calls.
type TrampolineError struct {
	Err string
}

// New returns a TrampolineError with the message formatted from the arguments passed.
func New(format string, args ...interface{}) *TrampolineError {
	return &TrampolineError{Err: fmt.Sprintf(format, args...)}
}

func (e *TrampolineError) Error() string {
	return e.Err
}
