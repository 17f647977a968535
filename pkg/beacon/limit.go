package beacon

import (
	"regexp"
)

const (
	// Internet Explorer refuses longer URLs.
	LegacyLimit = 2083
	// Lowest limit among the remaining browsers (older Safari).
	DefaultLimit = 60000
)

var legacyUserAgent = regexp.MustCompile(`([MS]?IE).\d`)

// LimitFor returns the maximum URL length for a client user agent.
func LimitFor(userAgent string) int {
	if legacyUserAgent.MatchString(userAgent) {
		return LegacyLimit
	}
	return DefaultLimit
}
