package game

import "fmt"

// ValidationError is a precondition failure raised before any I/O. Its
// message is safe to show to the player verbatim.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
