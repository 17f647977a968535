package errors

import (
	"net/http"

	"git.backbone/corpix/stingray/pkg/errors"
)

type Meta = map[string]interface{}

// Error is an error which carries an HTTP status code for the client
// and metadata for the request log.
type Error struct {
	Code int
	Meta Meta
	err  error
}

func (e *Error) Error() string {
	if e.err == nil {
		return http.StatusText(e.Code)
	}
	return e.err.Error()
}

func (e *Error) Unwrap() error {
	return e.err
}

// Chain returns the wrapped error chain, suitable for logging.
func (e *Error) Chain() error {
	if e.err == nil {
		return errors.New(e.Error())
	}
	return e.err
}

func NewError(code int, err error, meta Meta) *Error {
	return &Error{
		Code: code,
		Meta: meta,
		err:  err,
	}
}
