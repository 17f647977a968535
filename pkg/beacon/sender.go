package beacon

import (
	"regexp"
	"sync"
	"time"

	"git.backbone/corpix/stingray/pkg/errors"
	"git.backbone/corpix/stingray/pkg/log"
	"git.backbone/corpix/stingray/pkg/telemetry/collector"
)

type (
	// Callback receives the delivery outcome, nil on success.
	Callback = func(error)

	Options struct {
		// Limit is the maximum URL length, derived from the navigator
		// user agent when zero.
		Limit   int
		Timeout time.Duration
		Ignore  IgnoreSet
		// Dataset seeds the sender dataset, it is copied.
		Dataset Fields
		// Environment defaults to the host process, use EmptyEnvironment
		// to send the dataset only.
		Environment Environment
		Delivery    Delivery
		Log         *log.Logger
		Registerer  collector.Registerer
	}

	Sender struct {
		server   string
		limit    int
		timeout  time.Duration
		ignore   IgnoreSet
		env      Environment
		delivery Delivery
		log      log.Logger
		metrics  *metrics

		lock      sync.RWMutex
		dataset   Fields
		observers []Callback
	}
)

type emptyEnvironment struct{}

func (emptyEnvironment) Navigator() Fields        { return nil }
func (emptyEnvironment) Document() Document       { return nil }
func (emptyEnvironment) Performance() Performance { return nil }

var EmptyEnvironment Environment = emptyEnvironment{}

var keySeparator = regexp.MustCompile(`[,|\s]+`)

//

func (s *Sender) Server() string         { return s.server }
func (s *Sender) Limit() int             { return s.limit }
func (s *Sender) Timeout() time.Duration { return s.timeout }

// OnError registers fn to be called with restricted access and delivery
// errors. Errors are not replayed for observers registered later.
func (s *Sender) OnError(fn Callback) *Sender {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.observers = append(s.observers, fn)
	return s
}

func (s *Sender) emit(err error) {
	s.lock.RLock()
	observers := make([]Callback, len(s.observers))
	copy(observers, s.observers)
	s.lock.RUnlock()

	s.log.Warn().Err(err).Msg("beacon error")

	for _, fn := range observers {
		fn(err)
	}
}

//

// Set stores value under key, overwriting the previous one.
func (s *Sender) Set(key string, value interface{}) *Sender {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.dataset[key] = value
	return s
}

// Remove deletes keys from the dataset. A single argument is treated as
// a list separated by commas or whitespace.
func (s *Sender) Remove(keys ...string) *Sender {
	if len(keys) == 1 {
		keys = keySeparator.Split(keys[0], -1)
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	for _, key := range keys {
		if key == "" {
			continue
		}
		delete(s.dataset, key)
	}
	return s
}

func (s *Sender) Dataset() Fields {
	s.lock.RLock()
	defer s.lock.RUnlock()

	res := make(Fields, len(s.dataset))
	for k, v := range s.dataset {
		res[k] = v
	}
	return res
}

//

// Payload assembles the data which would be sent right now.
func (s *Sender) Payload() Fields {
	sources := Snapshot(s.env, s.ignore, s.emit)

	s.lock.RLock()
	defer s.lock.RUnlock()

	return Assemble(s.dataset, sources...)
}

// URL returns the beacon URL for the current payload and whether it fits
// into the limit.
func (s *Sender) URL() (string, bool) {
	u := Join(s.server, Encode(s.Payload()))
	return u, len(u) <= s.limit
}

// Write sends the current payload. It returns false without any network
// activity when the URL exceeds the limit, in that case fn is never called.
// Otherwise it returns true once the delivery was dispatched and fn (which
// may be nil) receives the outcome after error observers were notified.
func (s *Sender) Write(fn Callback) bool {
	u, ok := s.URL()
	if !ok {
		s.metrics.oversize()
		s.log.Debug().
			Int("length", len(u)).
			Int("limit", s.limit).
			Msg("beacon url exceeds limit, not sending")
		return false
	}

	done := s.delivery.Deliver(u, s.timeout)
	s.metrics.write()

	go func() {
		err := <-done
		if err != nil {
			s.metrics.fail()
			s.emit(err)
		}
		if fn != nil {
			fn(err)
		}
	}()

	return true
}

//

// New creates a sender for server, the URL beacons are sent to.
func New(server string, o Options) (*Sender, error) {
	s := &Sender{
		server:   server,
		limit:    o.Limit,
		timeout:  o.Timeout,
		ignore:   IgnoreSet{},
		env:      o.Environment,
		delivery: o.Delivery,
		dataset:  make(Fields, len(o.Dataset)),
	}

	if o.Log != nil {
		s.log = o.Log.With().Str("component", Subsystem).Logger()
	} else {
		s.log = log.Nop()
	}
	if s.env == nil {
		s.env = NewHostEnvironment(nil)
	}
	if s.delivery == nil {
		s.delivery = NewHTTPDelivery(nil)
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	if s.limit <= 0 {
		userAgent, _ := s.env.Navigator()["userAgent"].(string)
		s.limit = LimitFor(userAgent)
	}
	for k, v := range o.Ignore {
		s.ignore[k] = v
	}
	for k, v := range o.Dataset {
		s.dataset[k] = v
	}

	if o.Registerer != nil {
		m, err := newMetrics(o.Registerer)
		if err != nil {
			return nil, errors.Wrap(err, "failed to register sender metrics")
		}
		s.metrics = m
	}

	return s, nil
}

// FromConfig creates a sender delivering over HTTP from configuration.
func FromConfig(c Config, l log.Logger, r collector.Registerer) (*Sender, error) {
	if c.Server == "" {
		return nil, errors.New("sender server url should not be empty")
	}

	client, err := NewHTTPClient(c.HTTP2)
	if err != nil {
		return nil, err
	}

	var doc Document
	if !c.Document.Empty() {
		doc = NewStaticDocument(*c.Document)
	}

	return New(c.Server, Options{
		Limit:       c.Limit,
		Timeout:     c.Timeout,
		Ignore:      c.Ignore,
		Dataset:     c.Dataset,
		Environment: NewHostEnvironment(doc),
		Delivery:    NewHTTPDelivery(client),
		Log:         &l,
		Registerer:  r,
	})
}
