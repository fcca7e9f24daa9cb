package recording

import "fmt"

// Code classifies recording failures for stable mapping to replies.
type Code string

const (
	CodeAlreadyRecording  Code = "ALREADY_RECORDING"
	CodeNotRecording      Code = "NOT_RECORDING"
	CodeSourceUnavailable Code = "SOURCE_UNAVAILABLE"
	CodeEmptyRecording    Code = "EMPTY_RECORDING"
	CodeNoArtifact        Code = "NO_ARTIFACT"
	CodeValidation        Code = "VALIDATION"
)

// Sentinels for errors.Is. Any *Error with the same Code matches.
var (
	ErrAlreadyRecording  = &Error{Code: CodeAlreadyRecording, Message: "already recording"}
	ErrNotRecording      = &Error{Code: CodeNotRecording, Message: "not recording"}
	ErrSourceUnavailable = &Error{Code: CodeSourceUnavailable, Message: "audio source unavailable"}
	ErrEmptyRecording    = &Error{Code: CodeEmptyRecording, Message: "no audio was recorded"}
	ErrNoArtifact        = &Error{Code: CodeNoArtifact, Message: "no recording available"}
	ErrValidation        = &Error{Code: CodeValidation, Message: "invalid request"}
)

// Error is a coded recording error.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches on Code only, so callers can compare against the sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// NewError builds a coded error; cause may be nil.
func NewError(code Code, msg string, cause error) error {
	return &Error{Code: code, Message: msg, Cause: cause}
}
