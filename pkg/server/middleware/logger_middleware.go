package middleware

import (
	"time"

	echo "github.com/labstack/echo/v4"

	"git.backbone/corpix/stingray/pkg/errors"
	"git.backbone/corpix/stingray/pkg/log"
	serverErrors "git.backbone/corpix/stingray/pkg/server/errors"
)

type loggerContext struct {
	echo.Context
	logger *Logger
}

func withLoggerContext(ctx echo.Context, logger *Logger) *loggerContext {
	return &loggerContext{ctx, logger}
}

func (c *loggerContext) Logger() echo.Logger {
	return c.logger
}

//

// NewLogger logs every request once it was handled. Server errors are
// logged at error level, beacon hits and other successful requests at
// debug level to keep collectors quiet under load. Only the size of the
// query is logged, beacon payloads go to the collector sink.
func NewLogger(l log.Logger, msg string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			start := time.Now()

			ll := l.With().
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Str("remote_ip", c.RealIP()).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("query_bytes", len(req.URL.RawQuery)).
				Str("user_agent", req.UserAgent()).
				Logger()

			err := next(withLoggerContext(c, &Logger{Logger: ll}))

			var evt *log.Event
			switch {
			case err != nil || res.Status >= 500:
				evt = ll.Error()
			case res.Status >= 400:
				evt = ll.Info()
			default:
				evt = ll.Debug()
			}

			evt = evt.
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Int64("bytes_out", res.Size)

			var serr *serverErrors.Error
			switch {
			case err == nil:
			case errors.As(err, &serr):
				evt = evt.Interface("meta", serr.Meta).Err(serr.Chain())
			default:
				evt = evt.Err(err)
			}
			evt.Msg(msg)

			return err
		}
	}
}
