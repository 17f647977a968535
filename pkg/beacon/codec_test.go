package beacon

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payload := Fields{
		"foo":       "bar",
		"space":     "hello world",
		"symbols":   "a&b=c?d/e#f%",
		"unicode":   "stíngráy",
		"flag":      true,
		"off":       false,
		"count":     42,
		"ratio":     0.25,
		"huge":      1e21,
		"userAgent": "Mozilla/5.0 (X11; Linux x86_64)",
	}

	encoded := Encode(payload)
	assert.Contains(t, encoded, "=")
	assert.Contains(t, encoded, "&")

	expected := Query{}
	for k, v := range payload {
		expected[k] = Stringify(v)
	}

	assert.Equal(t, expected, Decode(encoded))
	assert.Equal(t, expected, Decode(QueryDelimiter+encoded))
}

func TestEncodeSorted(t *testing.T) {
	assert.Equal(t, "a=1&b=2&c=x+y", Encode(Fields{"c": "x y", "b": 2, "a": 1}))
	assert.Equal(t, "", Encode(Fields{}))
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "http://example.com?a=1", Join("http://example.com", "a=1"))
	assert.Equal(t, "http://example.com/b.gif?v=1&a=1", Join("http://example.com/b.gif?v=1", "a=1"))
	assert.Equal(t, "http://example.com", Join("http://example.com", ""))
}

func TestDecode(t *testing.T) {
	samples := []struct {
		raw      string
		expected Query
	}{
		{"", Query{}},
		{"?", Query{}},
		{"x=1&y=2", Query{"x": "1", "y": "2"}},
		{"x=1&x=2", Query{"x": "1"}},
		{"flag&x=", Query{"flag": "", "x": ""}},
		{"a=%20b&c=d+e", Query{"a": " b", "c": "d e"}},
		{"bad=%zz&ok=1", Query{"ok": "1"}},
		{"=orphan&&k=v", Query{"k": "v"}},
	}

	for _, sample := range samples {
		assert.Equal(t, sample.expected, Decode(sample.raw), sample.raw)
	}
}

func TestFromValues(t *testing.T) {
	values, err := url.ParseQuery("x=1&y=2&x=3")
	assert.NoError(t, err)
	assert.Equal(t, Query{"x": "1", "y": "2"}, FromValues(values))
	assert.Equal(t, Query{}, FromValues(url.Values{"empty": nil}))
}

func TestEncodeIsURLSafe(t *testing.T) {
	encoded := Encode(Fields{"k": "a b&c=d"})
	assert.False(t, strings.ContainsAny(encoded[2:], " &="))
}
