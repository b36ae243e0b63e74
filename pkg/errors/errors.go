package errors

import "fmt"

// ErrorType represents the stage of a harvesting run an error came from
type ErrorType string

const (
	ErrorTypeNavigation  ErrorType = "navigation"
	ErrorTypeExtraction  ErrorType = "extraction"
	ErrorTypeInteraction ErrorType = "interaction"
	ErrorTypeDownload    ErrorType = "download"
	ErrorTypeCapture     ErrorType = "capture"
	ErrorTypeNormalize   ErrorType = "normalize"
	ErrorTypeSession     ErrorType = "session"
)

// Error represents a harvesting error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

// New creates a typed error wrapping err
func New(errorType ErrorType, message string, err error) *Error {
	return &Error{Type: errorType, Message: message, Err: err}
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error: %s", e.Type, e.Message)
	if e.Code != 0 {
		msg = fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsFatal reports whether an error type ends the whole run.
// Everything except a broken browser session is handled per unit of work.
func IsFatal(errorType ErrorType) bool {
	return errorType == ErrorTypeSession
}

// Tag returns the progress action tag used when reporting the error type
func Tag(errorType ErrorType) string {
	switch errorType {
	case ErrorTypeNavigation, ErrorTypeExtraction, ErrorTypeInteraction:
		return "WARN"
	case ErrorTypeSession:
		return "FATAL"
	default:
		return "ERR "
	}
}
