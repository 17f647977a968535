package collector

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.backbone/corpix/stingray/pkg/beacon"
	"git.backbone/corpix/stingray/pkg/errors"
	"git.backbone/corpix/stingray/pkg/log"
	"git.backbone/corpix/stingray/pkg/telemetry/registry"
)

type memorySink struct {
	lock sync.Mutex
	hits []Hit
	err  error
}

func (s *memorySink) Write(ctx context.Context, hit Hit) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.err != nil {
		return s.err
	}
	s.hits = append(s.hits, hit)
	return nil
}

func (s *memorySink) Close() error { return nil }

func (s *memorySink) all() []Hit {
	s.lock.Lock()
	defer s.lock.Unlock()

	return append([]Hit(nil), s.hits...)
}

func newTestCollector(t *testing.T, sink Sink) (*Collector, *registry.Registry) {
	t.Helper()

	c := Config{Enable: true}
	c.Default()
	require.NoError(t, c.Validate())

	r := registry.New()
	col, err := New(c, log.Nop(), r, nil, sink)
	require.NoError(t, err)

	return col, r
}

func TestCollectorHit(t *testing.T) {
	sink := &memorySink{}
	col, _ := newTestCollector(t, sink)

	req := httptest.NewRequest(http.MethodGet, "/beacon.gif?x=1&y=2", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Referer", "http://example.com/page")
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	rec := httptest.NewRecorder()
	col.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "*", rec.Header().Get("Timing-Allow-Origin"))
	assert.Empty(t, rec.Body.String())

	hits := sink.all()
	require.Len(t, hits, 1)
	assert.Equal(t, beacon.Query{"x": "1", "y": "2"}, hits[0].Data)
	assert.Equal(t, "203.0.113.7", hits[0].RemoteAddr)
	assert.Equal(t, "Mozilla/5.0", hits[0].UserAgent)
	assert.Equal(t, "http://example.com/page", hits[0].Referer)
	assert.Equal(t, "/beacon.gif", hits[0].Path)
	assert.Len(t, hits[0].ID, 32)
	assert.WithinDuration(t, time.Now(), hits[0].Time, time.Minute)

	assert.Equal(t, 1.0, testutil.ToFloat64(col.hits))
}

func TestCollectorOtherPath(t *testing.T) {
	sink := &memorySink{}
	col, _ := newTestCollector(t, sink)

	rec := httptest.NewRecorder()
	col.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/other", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Header().Get("Timing-Allow-Origin"))
	assert.Empty(t, sink.all())
	assert.Equal(t, 0.0, testutil.ToFloat64(col.hits))
}

func TestCollectorSinkError(t *testing.T) {
	sink := &memorySink{err: errors.New("disk full")}
	col, _ := newTestCollector(t, sink)

	rec := httptest.NewRecorder()
	col.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/beacon.gif?x=1", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, 1.0, testutil.ToFloat64(col.sinkErrors))
}

func TestCollectorRequestID(t *testing.T) {
	sink := &memorySink{}
	col, _ := newTestCollector(t, sink)

	req := httptest.NewRequest(http.MethodGet, "/beacon.gif?x=1", nil)
	req.Header.Set("X-Request-Id", "abc")
	col.ServeHTTP(httptest.NewRecorder(), req)

	hits := sink.all()
	require.Len(t, hits, 1)
	assert.Equal(t, "abc", hits[0].ID)
}

func TestCollectorFromSender(t *testing.T) {
	sink, err := OpenSQLiteSink(filepath.Join(t.TempDir(), "hits.db"))
	require.NoError(t, err)

	col, _ := newTestCollector(t, sink)
	srv := httptest.NewServer(col)
	defer srv.Close()
	defer col.Close()

	s, err := beacon.New(srv.URL+"/beacon.gif", beacon.Options{
		Environment: beacon.EmptyEnvironment,
		Delivery:    beacon.NewHTTPDelivery(srv.Client()),
		Dataset:     beacon.Fields{"event": "load", "ms": 125.5, "zero": 0},
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	require.True(t, s.Write(func(err error) { done <- err }))
	require.NoError(t, <-done)

	hits, err := sink.Hits(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, beacon.Query{"event": "load", "ms": "125.5"}, hits[0].Data)
	assert.Equal(t, "127.0.0.1", hits[0].RemoteAddr)
	assert.Equal(t, beacon.UserAgent(), hits[0].UserAgent)
}

func TestConfig(t *testing.T) {
	c := Config{}
	c.Default()

	assert.Equal(t, "/beacon.gif", c.Path)
	assert.Equal(t, SinkTypeLog, c.Sink.Type)
	assert.NoError(t, c.Validate())

	c.Enable = true
	c.Path = "beacon.gif"
	assert.Error(t, c.Validate())

	c.Path = "/b"
	c.Sink.Type = SinkTypeFile
	assert.Error(t, c.Validate())

	c.Sink.Path = "hits.zst"
	assert.NoError(t, c.Validate())

	c.Sink.Type = "kafka"
	assert.Error(t, c.Validate())
}

func TestLogSink(t *testing.T) {
	buf := &bytes.Buffer{}
	l := zerologTo(buf)

	sink, err := NewSink(SinkConfig{Type: SinkTypeLog}, l)
	require.NoError(t, err)

	require.NoError(t, sink.Write(context.Background(), Hit{ID: "1", Data: beacon.Query{"x": "1"}}))
	assert.Contains(t, buf.String(), `"x":"1"`)
	assert.Contains(t, buf.String(), `"message":"beacon"`)
	assert.NoError(t, sink.Close())
}
