package beacon

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"time"

	"golang.org/x/net/http2"

	"git.backbone/corpix/stingray/pkg/errors"
)

const (
	DefaultTimeout = 1 * time.Second

	// drained from the response so connections could be reused
	maxDrain = 4 << 10
)

type (
	// Delivery performs a single GET of a URL. The returned channel
	// yields exactly one value, nil on success, even if the request never
	// completes: the timeout is owned by the implementation.
	Delivery interface {
		Deliver(target string, timeout time.Duration) <-chan error
	}
	DeliveryFunc func(target string, timeout time.Duration) <-chan error
)

func (f DeliveryFunc) Deliver(target string, timeout time.Duration) <-chan error {
	return f(target, timeout)
}

//

type ErrDelivery struct {
	URL    string
	Status int
}

func (e ErrDelivery) Error() string {
	return fmt.Sprintf(
		"beacon delivery failed with status %d %q",
		e.Status, http.StatusText(e.Status),
	)
}

//

type HTTPDelivery struct {
	client    *http.Client
	userAgent string
}

func (d *HTTPDelivery) Deliver(target string, timeout time.Duration) <-chan error {
	done := make(chan error, 1)
	go func() { done <- d.get(target, timeout) }()
	return done
}

func (d *HTTPDelivery) get(target string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create beacon request")
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	res, err := d.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return errors.Wrapf(
				context.DeadlineExceeded,
				"beacon was not delivered within %s", timeout,
			)
		}
		return errors.Wrap(err, "failed to deliver beacon")
	}
	defer res.Body.Close()

	_, _ = io.Copy(ioutil.Discard, io.LimitReader(res.Body, maxDrain))

	if res.StatusCode >= http.StatusBadRequest {
		return ErrDelivery{URL: target, Status: res.StatusCode}
	}

	return nil
}

func NewHTTPDelivery(client *http.Client) *HTTPDelivery {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPDelivery{
		client:    client,
		userAgent: UserAgent(),
	}
}

// NewHTTPClient builds a client for deliveries, negotiating HTTP/2 over TLS
// when enabled.
func NewHTTPClient(enableHTTP2 bool) (*http.Client, error) {
	t := http.DefaultTransport.(*http.Transport).Clone()
	if enableHTTP2 {
		err := http2.ConfigureTransport(t)
		if err != nil {
			return nil, errors.Wrap(err, "failed to configure http2 transport")
		}
	}
	return &http.Client{Transport: t}, nil
}
