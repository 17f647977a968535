package server

import (
	"net/http"

	echo "github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"git.backbone/corpix/stingray/pkg/log"
	serverErrors "git.backbone/corpix/stingray/pkg/server/errors"
	"git.backbone/corpix/stingray/pkg/server/middleware"
	telemetry "git.backbone/corpix/stingray/pkg/telemetry/registry"
)

type (
	Server         = echo.Echo
	MiddlewareFunc = echo.MiddlewareFunc
	HandlerFunc    = echo.HandlerFunc
	Context        = echo.Context
	Router         = echo.Group

	HTTPError = echo.HTTPError
	Error     = serverErrors.Error

	ResultError struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	ResultPayload = interface{}
	Result        struct {
		Ok      bool          `json:"ok"`
		Error   *ResultError  `json:"error,omitempty"`
		Payload ResultPayload `json:"payload,omitempty"`
	}

	HTTPOption = func(*http.Server)
)

const (
	HeaderCacheControl      = middleware.HeaderCacheControl
	HeaderTimingAllowOrigin = middleware.HeaderTimingAllowOrigin
	HeaderContentLength     = echo.HeaderContentLength
	HeaderContentType       = echo.HeaderContentType
	HeaderXRequestID        = echo.HeaderXRequestID
	HeaderXRealIP           = echo.HeaderXRealIP
	HeaderXForwardedFor     = echo.HeaderXForwardedFor
)

var (
	NewError = serverErrors.NewError
)

func HTTPTimeoutOption(c TimeoutConfig) HTTPOption {
	return func(s *http.Server) {
		s.ReadHeaderTimeout = c.ReadHeader
		s.ReadTimeout = c.Read
		s.WriteTimeout = c.Write
		s.IdleTimeout = c.Idle
	}
}

func NewHTTP(addr string, options ...HTTPOption) *http.Server {
	s := &http.Server{Addr: addr}
	for _, fn := range options {
		fn(s)
	}
	return s
}

//

// DefaultHTTPErrorHandler renders errors as a JSON Result. Responses which
// were committed already (beacon hits are answered before their handler
// runs) are left alone, the error is only logged by the logger middleware.
func DefaultHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	if _, ok := err.(*echo.HTTPError); ok {
		c.Echo().DefaultHTTPErrorHandler(err, c)
		return
	}

	//

	code := http.StatusInternalServerError
	r := Result{
		Ok: false,
		Error: &ResultError{
			Code:    code,
			Message: http.StatusText(code),
		},
	}

	if e, ok := err.(*Error); ok {
		r.Error.Code = e.Code
		r.Error.Message = e.Error()
	}

	_ = c.JSON(r.Error.Code, r)
}

func New(name string, l log.Logger, r *telemetry.Registry) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger = &middleware.Logger{Logger: l}
	e.HTTPErrorHandler = DefaultHTTPErrorHandler

	e.Use(echomw.RequestID())
	e.Use(middleware.NewLogger(l, ""))
	e.Use(middleware.NewTelemetry(r, name))
	e.Use(middleware.NewRecover(nil, l))

	return e
}
