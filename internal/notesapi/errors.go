package notesapi

import "fmt"

const defaultFailureMessage = "failed to generate notes"

// TransportError means no HTTP response was received.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("notes backend %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServerError is a non-2xx status or a body that could not be decoded.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("notes backend returned status %d", e.Status)
	}
	return fmt.Sprintf("notes backend returned status %d: %s", e.Status, e.Message)
}

// ApplicationError is a decoded response that reports failure.
type ApplicationError struct {
	Message string
}

func (e *ApplicationError) Error() string { return e.Message }
