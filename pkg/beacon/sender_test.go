package beacon

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.backbone/corpix/stingray/pkg/errors"
)

const server = "http://example.com"

type spyDelivery struct {
	lock    sync.Mutex
	urls    []string
	timeout time.Duration
	result  error
}

func (d *spyDelivery) Deliver(target string, timeout time.Duration) <-chan error {
	d.lock.Lock()
	defer d.lock.Unlock()

	d.urls = append(d.urls, target)
	d.timeout = timeout

	done := make(chan error, 1)
	done <- d.result
	return done
}

func (d *spyDelivery) calls() []string {
	d.lock.Lock()
	defer d.lock.Unlock()

	return append([]string(nil), d.urls...)
}

func newTestSender(t *testing.T, o Options) (*Sender, *spyDelivery) {
	t.Helper()

	spy := &spyDelivery{}
	if o.Delivery == nil {
		o.Delivery = spy
	}
	if o.Environment == nil {
		o.Environment = EmptyEnvironment
	}

	s, err := New(server, o)
	require.NoError(t, err)

	return s, spy
}

func wait(t *testing.T, s *Sender) error {
	t.Helper()

	done := make(chan error, 1)
	require.True(t, s.Write(func(err error) { done <- err }))

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("completion callback was not invoked")
		return nil
	}
}

//

func TestNewDefaults(t *testing.T) {
	s, err := New(server, Options{Environment: EmptyEnvironment})
	require.NoError(t, err)

	assert.Equal(t, server, s.Server())
	assert.Equal(t, DefaultLimit, s.Limit())
	assert.Equal(t, DefaultTimeout, s.Timeout())
	assert.Empty(t, s.Dataset())
}

func TestNewCustomLimit(t *testing.T) {
	s, _ := newTestSender(t, Options{Limit: 500})
	assert.Equal(t, 500, s.Limit())
}

func TestNewLegacyLimit(t *testing.T) {
	env := testEnvironment{navigator: Fields{
		"userAgent": "Mozilla/4.0 (compatible; MSIE 8.0; Windows NT 6.1)",
	}}

	s, _ := newTestSender(t, Options{Environment: env})
	assert.Equal(t, LegacyLimit, s.Limit())

	env.navigator["userAgent"] = "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Firefox/119.0"
	s, _ = newTestSender(t, Options{Environment: env})
	assert.Equal(t, DefaultLimit, s.Limit())
}

func TestNewCopiesDataset(t *testing.T) {
	seed := Fields{"foo": "bar"}

	s, _ := newTestSender(t, Options{Dataset: seed})
	s.Set("foo", "baz")

	assert.Equal(t, "bar", seed["foo"])
	assert.Equal(t, "baz", s.Payload()["foo"])
}

//

func TestSet(t *testing.T) {
	s, _ := newTestSender(t, Options{})

	assert.Nil(t, s.Dataset()["foo"])

	assert.Same(t, s, s.Set("foo", "bar"))
	assert.Equal(t, "bar", s.Dataset()["foo"])

	s.Set("foo", "foo")
	assert.Equal(t, "foo", s.Dataset()["foo"])
}

func TestRemove(t *testing.T) {
	seed := func() Options {
		return Options{Dataset: Fields{"a": 1, "b": 2, "c": 3, "d": 4}}
	}

	byString, _ := newTestSender(t, seed())
	byArgs, _ := newTestSender(t, seed())

	assert.Same(t, byString, byString.Remove("a, b"))
	assert.Same(t, byArgs, byArgs.Remove("a", "b"))

	assert.Equal(t, Fields{"c": 3, "d": 4}, byString.Dataset())
	assert.Equal(t, byArgs.Dataset(), byString.Dataset())

	byString.Remove("c|d missing")
	assert.Empty(t, byString.Dataset())

	byArgs.Remove("missing").Remove()
	assert.Equal(t, Fields{"c": 3, "d": 4}, byArgs.Dataset())
}

func TestRemoveMultipleArgumentsAreNotSplit(t *testing.T) {
	s, _ := newTestSender(t, Options{Dataset: Fields{"a b": 1, "a": 2, "b": 3}})

	s.Remove("a b", "b")
	assert.Equal(t, Fields{"a": 2}, s.Dataset())
}

//

func TestPayloadDatasetWins(t *testing.T) {
	env := newTestEnvironment(false)

	plain, _ := newTestSender(t, Options{Environment: env})
	custom, _ := newTestSender(t, Options{Environment: env, Dataset: Fields{"domain": "bar"}})

	assert.Equal(t, "bar", custom.Payload()["domain"])
	assert.Equal(t, "example.com", plain.Payload()["domain"])

	plain.Set("domain", "baz").Set("foo", "bar")
	assert.Equal(t, "baz", plain.Payload()["domain"])
	assert.Equal(t, "bar", plain.Payload()["foo"])
}

func TestPayloadIgnore(t *testing.T) {
	s, _ := newTestSender(t, Options{
		Environment: newTestEnvironment(false),
		Ignore:      IgnoreSet{SourceNavigator: true, SourceDocument: true, SourcePerformance: true},
	})

	assert.Equal(t, Fields{}, s.Payload())
}

func TestPayloadRestrictedDomain(t *testing.T) {
	s, _ := newTestSender(t, Options{Environment: newTestEnvironment(true)})

	var reported []error
	s.OnError(func(err error) { reported = append(reported, err) })

	payload := s.Payload()
	_, ok := payload["domain"]
	assert.False(t, ok)
	assert.Equal(t, "UTF-8", payload["charset"])

	require.Len(t, reported, 1)
	assert.True(t, errors.Is(reported[0], errRestricted))
}

//

func TestWriteTooLarge(t *testing.T) {
	s, spy := newTestSender(t, Options{Limit: 500})
	for n := 0; n < 50; n++ {
		s.Set(fmt.Sprintf("key%d", n), strings.Repeat("v", 10))
	}

	u, ok := s.URL()
	assert.Greater(t, len(u), 500)
	assert.False(t, ok)

	called := false
	assert.False(t, s.Write(func(error) { called = true }))
	assert.Empty(t, spy.calls())
	assert.False(t, called)
}

func TestWrite(t *testing.T) {
	s, spy := newTestSender(t, Options{Timeout: 250 * time.Millisecond})
	s.Set("foo", "bar").Set("n", 1)

	require.NoError(t, wait(t, s))

	calls := spy.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, server+"?foo=bar&n=1", calls[0])
	assert.Equal(t, 250*time.Millisecond, spy.timeout)
}

func TestWriteNilCallback(t *testing.T) {
	s, spy := newTestSender(t, Options{})

	assert.True(t, s.Write(nil))
	assert.Eventually(t, func() bool {
		return len(spy.calls()) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestWriteCapturesPayload(t *testing.T) {
	release := make(chan struct{})
	var (
		lock sync.Mutex
		sent []string
	)
	delivery := DeliveryFunc(func(target string, timeout time.Duration) <-chan error {
		lock.Lock()
		sent = append(sent, target)
		lock.Unlock()

		done := make(chan error, 1)
		go func() {
			<-release
			done <- nil
		}()
		return done
	})

	s, _ := newTestSender(t, Options{Delivery: delivery, Dataset: Fields{"step": 1}})

	done := make(chan error, 1)
	require.True(t, s.Write(func(err error) { done <- err }))
	s.Set("step", 2)
	close(release)
	require.NoError(t, <-done)

	lock.Lock()
	defer lock.Unlock()
	assert.Equal(t, []string{server + "?step=1"}, sent)
}

func TestWriteDeliveryError(t *testing.T) {
	s, spy := newTestSender(t, Options{})
	spy.result = ErrDelivery{URL: server, Status: http.StatusNotFound}

	var (
		lock  sync.Mutex
		order []string
	)
	record := func(name string) {
		lock.Lock()
		defer lock.Unlock()
		order = append(order, name)
	}

	var observed error
	s.OnError(func(err error) {
		observed = err
		record("observer")
	})

	err := wait(t, s)
	record("callback")

	require.Error(t, err)
	assert.Equal(t, spy.result, err)
	assert.Equal(t, err, observed)

	lock.Lock()
	defer lock.Unlock()
	assert.Equal(t, []string{"observer", "callback"}, order)
}

func TestWriteMetrics(t *testing.T) {
	r := prometheus.NewRegistry()

	s, spy := newTestSender(t, Options{Limit: 40, Registerer: r})

	require.NoError(t, wait(t, s))

	spy.result = errors.New("boom")
	require.Error(t, wait(t, s))

	s.Set("padding", strings.Repeat("x", 40))
	assert.False(t, s.Write(nil))

	m, err := newMetrics(r)
	require.NoError(t, err)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.written))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.oversized))
}

//

func TestHTTPDelivery(t *testing.T) {
	var (
		lock  sync.Mutex
		query string
		agent string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lock.Lock()
		query = r.URL.RawQuery
		agent = r.UserAgent()
		lock.Unlock()

		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewHTTPDelivery(srv.Client())

	require.NoError(t, <-d.Deliver(srv.URL+"/beacon.gif?x=1", time.Second))
	lock.Lock()
	assert.Equal(t, "x=1", query)
	assert.Equal(t, UserAgent(), agent)
	lock.Unlock()

	err := <-d.Deliver(srv.URL+"/missing", time.Second)
	var de ErrDelivery
	require.True(t, errors.As(err, &de))
	assert.Equal(t, http.StatusNotFound, de.Status)
}

func TestHTTPDeliveryTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	s, err := New(srv.URL, Options{
		Environment: EmptyEnvironment,
		Delivery:    NewHTTPDelivery(srv.Client()),
		Timeout:     50 * time.Millisecond,
		Dataset:     Fields{"x": 1},
	})
	require.NoError(t, err)

	var observed error
	s.OnError(func(err error) { observed = err })

	err = wait(t, s)
	require.Error(t, err)
	assert.Equal(t, err, observed)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
