package beacon

import (
	"net/url"
	"strings"
)

const (
	QueryDelimiter = "?"
	PairDelimiter  = "&"
)

// Encode renders payload as a query string without the leading delimiter.
// Keys are sorted.
func Encode(payload Fields) string {
	values := make(url.Values, len(payload))
	for k, v := range payload {
		values.Set(k, Stringify(v))
	}
	return values.Encode()
}

// Join appends an encoded query to server using the right delimiter.
func Join(server string, query string) string {
	if query == "" {
		return server
	}
	if strings.Contains(server, QueryDelimiter) {
		return server + PairDelimiter + query
	}
	return server + QueryDelimiter + query
}

// Decode parses a query string. A leading "?" is allowed, pairs which fail
// to unescape are dropped and the first occurrence of a key wins.
func Decode(raw string) Query {
	query := Query{}

	raw = strings.TrimPrefix(raw, QueryDelimiter)
	for _, pair := range strings.Split(raw, PairDelimiter) {
		if pair == "" {
			continue
		}

		k, v := pair, ""
		if i := strings.IndexByte(pair, '='); i >= 0 {
			k, v = pair[:i], pair[i+1:]
		}

		key, err := url.QueryUnescape(k)
		if err != nil || key == "" {
			continue
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			continue
		}

		if _, ok := query[key]; ok {
			continue
		}
		query[key] = value
	}

	return query
}

// FromValues flattens values already decoded by a host framework,
// keeping the first value of each key.
func FromValues(values url.Values) Query {
	query := make(Query, len(values))
	for k, vs := range values {
		if len(vs) == 0 {
			continue
		}
		query[k] = vs[0]
	}
	return query
}
