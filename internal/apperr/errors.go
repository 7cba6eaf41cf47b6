package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error carries a stable machine-readable code alongside the HTTP status
// the API surface should answer with. Handlers map any other error to
// INTERNAL.
type Error struct {
	Code    string
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Stable error codes exposed to clients.
const (
	CodeBadRequest       = "BAD_REQUEST"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeNotFound         = "NOT_FOUND"
	CodeTooManyFiles     = "TOO_MANY_FILES"
	CodeInvalidFileCount = "INVALID_FILE_COUNT"
	CodeFileNotFound     = "FILE_NOT_FOUND"
	CodeFileNotUploaded  = "FILE_NOT_UPLOADED"
	CodeMissingAWSConfig = "MISSING_AWS_CONFIG"
	CodeInternal         = "INTERNAL"
)

func BadRequest(format string, args ...any) *Error {
	return &Error{Code: CodeBadRequest, Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized() *Error {
	return &Error{Code: CodeUnauthorized, Status: http.StatusUnauthorized, Message: "authorization required"}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Status: http.StatusNotFound, Message: fmt.Sprintf(format, args...)}
}

func TooManyFiles(format string, args ...any) *Error {
	return &Error{Code: CodeTooManyFiles, Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

func InvalidFileCount(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidFileCount, Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

func FileNotFound(fileID string) *Error {
	return &Error{Code: CodeFileNotFound, Status: http.StatusNotFound, Message: fmt.Sprintf("file %s not found", fileID)}
}

func FileNotUploaded(fileID string) *Error {
	return &Error{Code: CodeFileNotUploaded, Status: http.StatusBadRequest, Message: fmt.Sprintf("file %s is not uploaded", fileID)}
}

// MissingAWSConfig marks a deployment configuration gap so operators can
// tell it apart from logic bugs.
func MissingAWSConfig(what string) *Error {
	return &Error{Code: CodeMissingAWSConfig, Status: http.StatusInternalServerError, Message: fmt.Sprintf("missing aws configuration: %s", what)}
}

func Internal(err error) *Error {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &Error{Code: CodeInternal, Status: http.StatusInternalServerError, Message: msg}
}

// CodeOf extracts the stable code from err, defaulting to INTERNAL.
func CodeOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

// StatusOf extracts the HTTP status from err, defaulting to 500.
func StatusOf(err error) int {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Status
	}
	return http.StatusInternalServerError
}
