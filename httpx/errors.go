package httpx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/surveyforge/surveyforge/log"
)

// ValidationError reports a missing or malformed form field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Reason)
}

// AuthError reports bad credentials or a missing admin session.
type AuthError struct {
	Reason string
}

func (e AuthError) Error() string {
	return "authentication failed: " + e.Reason
}

// NotFoundError reports an unknown survey or question id.
type NotFoundError struct {
	Kind string
	ID   any
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found (%v)", e.Kind, e.ID)
}

// StorageError wraps a persistence failure. It is logged in full but
// surfaced to the client as a generic failure, without internals.
type StorageError struct {
	Op  string
	Err error
}

func (e StorageError) Error() string {
	return "storage failure in " + e.Op + ": " + e.Err.Error()
}

func (e StorageError) Unwrap() error {
	return e.Err
}

// WriteError maps a domain error to an HTTP status and logs it at the
// appropriate level. Unrecognized errors are treated as internal.
func WriteError(w http.ResponseWriter, code string, err error) {
	var (
		validation ValidationError
		auth       AuthError
		notFound   NotFoundError
		storage    StorageError
	)
	switch {
	case errors.As(err, &validation):
		LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, code, "%s", validation.Error())
	case errors.As(err, &auth):
		log.Debugf("%s: %s", code, auth)
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
	case errors.As(err, &notFound):
		LogNotFound(w, code, notFound.ID)
	case errors.As(err, &storage):
		LogInternalError(w, code, storage)
	default:
		LogInternalError(w, code, err)
	}
}

// Will log an error, and send an HTTP response with status 500 and default text
func LogInternalError(w http.ResponseWriter, code string, err error) {
	log.Errorf("%s: %s", code, err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// Will log a debug message, and send an HTTP response with status 404 and default text
func LogNotFound(w http.ResponseWriter, code string, id any) {
	log.Debugf("%s: not found (%v)", code, id)
	http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
}

// Will log an error code at the given level, and send
// an HTTP response with status and default text
func LogStatus(w http.ResponseWriter, status int, level log.Level, code string) {
	log.Log(level, code)
	http.Error(w, http.StatusText(status), status)
}

// Will log an error code and message at the given level,
// and send an HTTP response with the given status and formatted message
func LogStatusMsg(w http.ResponseWriter, status int, level log.Level, code string, msg string, args ...any) {
	errMsg := fmt.Sprintf(msg, args...)
	log.Log(level, code+":", errMsg)
	http.Error(w, errMsg, status)
}
