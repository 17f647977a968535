package middleware

import (
	"net/http"
	"net/url"

	echo "github.com/labstack/echo/v4"

	"git.backbone/corpix/stingray/pkg/beacon"
)

const (
	HeaderCacheControl      = "Cache-Control"
	HeaderTimingAllowOrigin = "Timing-Allow-Origin"
)

// BeaconHandler receives the decoded beacon data together with the original
// request. Returned errors are handed to the server error handler, the
// client has been answered already.
type BeaconHandler = func(query beacon.Query, req *http.Request) error

// NewBeacon answers requests to path with an empty uncacheable 204 which
// browsers are allowed to time, then passes the query to fn. Other paths
// are passed through untouched.
func NewBeacon(path string, fn BeaconHandler) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var (
				req    = c.Request()
				u      = req.URL
				parsed bool
			)

			if u == nil || u.Path == "" {
				pu, err := url.ParseRequestURI(req.RequestURI)
				if err != nil {
					return next(c)
				}
				u, parsed = pu, true
			}

			if u.Path != path {
				return next(c)
			}

			// 204 responses may be cached which would swallow later hits
			header := c.Response().Header()
			header.Set(HeaderCacheControl, "no-cache")
			header.Set(HeaderTimingAllowOrigin, "*")

			err := c.NoContent(http.StatusNoContent)
			if err != nil {
				return err
			}

			var query beacon.Query
			if parsed {
				query = beacon.Decode(u.RawQuery)
			} else {
				query = beacon.FromValues(c.QueryParams())
			}

			return fn(query, req)
		}
	}
}
