package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"wingman-relay/internal/domain"
	"wingman-relay/internal/infra/config"
)

// Default circuit breaker settings.
const (
	defaultCBMaxFailures uint32        = 5
	defaultCBTimeout     time.Duration = 30 * time.Second
	defaultCBInterval    time.Duration = 60 * time.Second
)

// BreakerUpstream wraps a domain.Upstream with one shared circuit breaker.
// Completions and model listings feed the same counts: both hit the same host.
//
// Only upstream faults (transport errors, 5xx) count as failures. A caller's
// bad credential yields 401 and must not open the circuit for everyone else;
// neither does a call that failed because the caller's context was done.
type BreakerUpstream struct {
	inner   domain.Upstream
	breaker *gobreaker.CircuitBreaker[any]
	logger  *slog.Logger
}

// NewBreakerUpstream wraps inner with a circuit breaker.
// Zero-valued settings fall back to defaults.
func NewBreakerUpstream(inner domain.Upstream, cfg config.CircuitBreakerConfig, logger *slog.Logger) *BreakerUpstream {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultCBTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultCBInterval
	}

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "upstream:" + inner.Name(),
		MaxRequests: 1, // allow 1 probe in half-open state
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			return errors.Is(err, errCallerGone) || !domain.IsUpstreamFault(err)
		},
	})

	return &BreakerUpstream{inner: inner, breaker: cb, logger: logger}
}

// errCallerGone marks a failure caused by the caller abandoning the call.
var errCallerGone = errors.New("caller context done")

// callerScoped tags err with errCallerGone when ctx ended before the upstream
// answered, so the breaker does not hold the caller's departure against it.
func callerScoped(ctx context.Context, err error) error {
	if err == nil || ctx.Err() == nil {
		return err
	}
	return fmt.Errorf("%w: %w", errCallerGone, err)
}

// Complete implements domain.Upstream.
func (b *BreakerUpstream) Complete(ctx context.Context, credential string, req domain.ChatRequest) (*domain.ChatResponse, error) {
	out, err := b.breaker.Execute(func() (any, error) {
		resp, err := b.inner.Complete(ctx, credential, req)
		return resp, callerScoped(ctx, err)
	})
	if err != nil {
		return nil, b.wrap(err)
	}
	return out.(*domain.ChatResponse), nil
}

// ListModels implements domain.Upstream.
func (b *BreakerUpstream) ListModels(ctx context.Context, credential string) ([]domain.UpstreamModel, error) {
	out, err := b.breaker.Execute(func() (any, error) {
		models, err := b.inner.ListModels(ctx, credential)
		return models, callerScoped(ctx, err)
	})
	if err != nil {
		return nil, b.wrap(err)
	}
	return out.([]domain.UpstreamModel), nil
}

func (b *BreakerUpstream) wrap(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: upstream %q: %v", domain.ErrCircuitOpen, b.inner.Name(), err)
	}
	return err
}

// Name implements domain.Upstream.
func (b *BreakerUpstream) Name() string { return b.inner.Name() }

// State returns the current circuit breaker state for monitoring.
func (b *BreakerUpstream) State() gobreaker.State {
	return b.breaker.State()
}

// Counts returns the current circuit breaker counts.
func (b *BreakerUpstream) Counts() gobreaker.Counts {
	return b.breaker.Counts()
}

var _ domain.Upstream = (*BreakerUpstream)(nil)

// --- Connection Pooling ---

// Default connection pool settings: one upstream host, many concurrent
// callers, long-lived connections.
const (
	defaultMaxIdleConns        = 20
	defaultMaxIdleConnsPerHost = 10
	defaultMaxConnsPerHost     = 20
	defaultIdleConnTimeout     = 120 * time.Second
)

// Default upstream timeouts.
const (
	defaultConnTimeout = 30 * time.Second
	defaultRespTimeout = 120 * time.Second
)

// NewPooledTransport creates an http.Transport with connection pooling.
// Zero or negative pool values fall back to defaults.
func NewPooledTransport(connTimeout, respTimeout time.Duration, pool config.PoolConfig) *http.Transport {
	if connTimeout <= 0 {
		connTimeout = defaultConnTimeout
	}
	if respTimeout <= 0 {
		respTimeout = defaultRespTimeout
	}

	maxIdle := pool.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = defaultMaxIdleConns
	}
	maxIdlePerHost := pool.MaxIdleConnsPerHost
	if maxIdlePerHost <= 0 {
		maxIdlePerHost = defaultMaxIdleConnsPerHost
	}
	maxConnsPerHost := pool.MaxConnsPerHost
	if maxConnsPerHost <= 0 {
		maxConnsPerHost = defaultMaxConnsPerHost
	}
	idleTimeout := pool.IdleConnTimeout
	if idleTimeout <= 0 {
		idleTimeout = defaultIdleConnTimeout
	}

	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: respTimeout,
		MaxIdleConns:          maxIdle,
		MaxIdleConnsPerHost:   maxIdlePerHost,
		MaxConnsPerHost:       maxConnsPerHost,
		IdleConnTimeout:       idleTimeout,
		ForceAttemptHTTP2:     true,
	}
}

// NewHTTPClient creates the upstream *http.Client. The overall timeout covers
// dialing plus waiting for the full response.
func NewHTTPClient(cfg config.UpstreamConfig) *http.Client {
	connTimeout := cfg.ConnTimeout
	if connTimeout <= 0 {
		connTimeout = defaultConnTimeout
	}
	respTimeout := cfg.RespTimeout
	if respTimeout <= 0 {
		respTimeout = defaultRespTimeout
	}

	return &http.Client{
		Transport: NewPooledTransport(connTimeout, respTimeout, cfg.Pool),
		Timeout:   connTimeout + respTimeout,
	}
}
