package middleware

import (
	"net/http"
	"strconv"
	"time"

	echo "github.com/labstack/echo/v4"

	"git.backbone/corpix/stingray/pkg/server/errors"
	"git.backbone/corpix/stingray/pkg/telemetry/collector"
)

// NewTelemetry counts and times requests handled by the subsystem server.
// It panics if metrics could not be registered.
func NewTelemetry(r collector.Registerer, subsystem string) echo.MiddlewareFunc {
	requests, err := collector.Register(r, collector.NewCounterVec(
		collector.CounterOpts{
			Name: collector.Name(subsystem, "requests_total"),
			Help: "HTTP requests by status code and method",
		},
		[]string{"code", "method"},
	))
	if err != nil {
		panic(err)
	}
	duration, err := collector.Register(r, collector.NewHistogramVec(
		collector.HistogramOpts{
			Name: collector.Name(subsystem, "request_duration_seconds"),
			Help: "HTTP request latency by method",
		},
		[]string{"method"},
	))
	if err != nil {
		panic(err)
	}

	var (
		requestsVec = requests.(*collector.CounterVec)
		durationVec = duration.(*collector.HistogramVec)
	)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			method := c.Request().Method
			status := c.Response().Status
			if err != nil && !c.Response().Committed {
				switch e := err.(type) {
				case *echo.HTTPError:
					status = e.Code
				case *errors.Error:
					status = e.Code
				default:
					status = http.StatusInternalServerError
				}
			}

			requestsVec.With(collector.Labels{
				"code":   strconv.Itoa(status),
				"method": method,
			}).Inc()
			durationVec.With(collector.Labels{
				"method": method,
			}).Observe(time.Since(start).Seconds())

			return err
		}
	}
}
