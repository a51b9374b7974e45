// Package advice asks a hosted generative-language model for disposal and
// recycling tips for a trash category.
//
// Every call is a fresh upstream round trip: there is no caching and no rate
// limiting. Retries are off unless Options.MaxRetries is set, and apply only
// to upstream failures, never to timeouts or client cancellation.
package advice

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"trashd/internal/apperr"
)

// Generator produces text for a prompt. *Gemini implements it; tests use fakes.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Defaults applied when corresponding Options fields are unset.
const (
	DefaultTimeout      = 30 * time.Second
	defaultRetryInitial = 500 * time.Millisecond
	defaultRetryMax     = 5 * time.Second
)

// Options tunes a Client.
type Options struct {
	// Timeout bounds one Suggest call including retries.
	Timeout time.Duration
	// MaxRetries is the number of additional attempts after an upstream
	// failure. Zero disables retries.
	MaxRetries   int
	RetryInitial time.Duration
	Logger       *zerolog.Logger
}

// Client is the advice backend facade. A Client with a nil Generator is
// valid and reports the feature as disabled.
type Client struct {
	gen          Generator
	timeout      time.Duration
	maxRetries   int
	retryInitial time.Duration
	log          zerolog.Logger
}

var requestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "trashd",
		Subsystem: "advice",
		Name:      "requests_total",
		Help:      "Advice requests by outcome",
	},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(requestsTotal)
}

// New builds a Client. gen may be nil when no credential is configured.
func New(gen Generator, opts Options) *Client {
	c := &Client{gen: gen, timeout: opts.Timeout, maxRetries: opts.MaxRetries, retryInitial: opts.RetryInitial}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	}
	if c.retryInitial <= 0 {
		c.retryInitial = defaultRetryInitial
	}
	if opts.Logger != nil {
		c.log = *opts.Logger
	} else {
		c.log = zerolog.Nop()
	}
	return c
}

// Enabled reports whether a backend is configured.
func (c *Client) Enabled() bool { return c != nil && c.gen != nil }

// Suggest returns the backend's advice text for category verbatim.
//
// Errors: ServiceUnavailable when disabled (no network call is made),
// ClientInput for a blank category, UpstreamTimeout when the deadline
// expires, Upstream for any other backend failure. If ctx is canceled by the
// caller, ctx.Err() is returned unchanged.
func (c *Client) Suggest(ctx context.Context, category string) (string, error) {
	if !c.Enabled() {
		requestsTotal.WithLabelValues("disabled").Inc()
		return "", apperr.ServiceUnavailable("AI service not configured")
	}
	category = strings.TrimSpace(category)
	if category == "" {
		requestsTotal.WithLabelValues("invalid").Inc()
		return "", apperr.ClientInput("Trash type not provided")
	}
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt := Prompt(category)
	var text string
	attempt := 0
	op := func() error {
		attempt++
		t, err := c.gen.Generate(callCtx, prompt)
		if err == nil && strings.TrimSpace(t) == "" {
			err = errors.New("empty response")
		}
		if err != nil {
			if callCtx.Err() != nil {
				return backoff.Permanent(err)
			}
			if attempt <= c.maxRetries {
				c.log.Warn().Err(err).Int("attempt", attempt).Str("category", category).Msg("advice retry")
			}
			return err
		}
		text = t
		return nil
	}

	var err error
	if c.maxRetries == 0 {
		err = op()
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
	} else {
		err = backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(c.maxRetries)), callCtx))
	}
	if err != nil {
		return "", c.classify(ctx, callCtx, err)
	}
	requestsTotal.WithLabelValues("ok").Inc()
	return text, nil
}

func (c *Client) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInitial
	b.MaxInterval = defaultRetryMax
	b.MaxElapsedTime = 0 // bounded by MaxRetries and the call deadline
	return b
}

// classify maps a backend failure onto the error taxonomy.
func (c *Client) classify(parent, call context.Context, err error) error {
	switch {
	case errors.Is(parent.Err(), context.Canceled):
		requestsTotal.WithLabelValues("canceled").Inc()
		return parent.Err()
	case errors.Is(call.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		requestsTotal.WithLabelValues("timeout").Inc()
		return apperr.UpstreamTimeout(err)
	default:
		requestsTotal.WithLabelValues("error").Inc()
		return apperr.Upstream(err)
	}
}
