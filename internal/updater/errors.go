package updater

import (
	"errors"
	"fmt"
)

// Error codes for update operations.
const (
	ErrCodeInvalidState      = "INVALID_STATE"
	ErrCodeMalformedResponse = "MALFORMED_RESPONSE"
	ErrCodeNetworkFailure    = "NETWORK_FAILURE"
	ErrCodeDownloadFailed    = "DOWNLOAD_FAILED"
	ErrCodeWriteFailed       = "WRITE_FAILED"
	ErrCodeLaunchFailed      = "LAUNCH_FAILED"
	ErrCodeDisabled          = "DISABLED"
)

// Error is an update-specific error with a code. Codes, not error values,
// decide which terminal status a failed operation lands in.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// errorCode extracts the code from an updater error, or "" for foreign
// errors.
func errorCode(err error) string {
	var uerr *Error
	if errors.As(err, &uerr) {
		return uerr.Code
	}
	return ""
}
