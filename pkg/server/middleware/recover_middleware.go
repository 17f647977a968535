package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	echo "github.com/labstack/echo/v4"

	"git.backbone/corpix/stingray/pkg/log"
	"git.backbone/corpix/stingray/pkg/server/errors"
)

type RecoverHandler = func(err error, c echo.Context) error

// NewRecover turns handler panics into errors. When fn is nil the panic
// becomes an internal server error.
func NewRecover(fn RecoverHandler, l log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}

				perr, ok := r.(error)
				if !ok {
					perr = fmt.Errorf("%v", r)
				}

				l.Error().
					Err(perr).
					Bytes("stack", debug.Stack()).
					Msg("recovered from panic")

				if fn != nil {
					err = fn(perr, c)
					return
				}
				err = errors.NewError(
					http.StatusInternalServerError, perr,
					errors.Meta{"panic": true},
				)
			}()

			return next(c)
		}
	}
}
