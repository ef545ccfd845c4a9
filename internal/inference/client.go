package inference

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/flowscribe/internal/cache"
	"github.com/dshills/flowscribe/internal/metrics"
	"github.com/dshills/flowscribe/internal/providers"
)

// Client routes requests through the cache to a provider.
type Client struct {
	provider providers.Provider
	store    *cache.Store
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics records provider calls in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New returns a Client that calls provider on cache misses in store.
func New(provider providers.Provider, store *cache.Store, opts ...Option) *Client {
	c := &Client{
		provider: provider,
		store:    store,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Request returns the response for a kind of request with the given logical
// params, from the cache when possible and from the provider otherwise.
func (c *Client) Request(ctx context.Context, kind Kind, params map[string]any) (Response, error) {
	h, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, kind)
	}
	if _, ok := params[KindParam]; ok {
		return nil, fmt.Errorf("%w: %q", ErrReservedParam, KindParam)
	}

	key := make(cache.Params, len(params)+1)
	for k, v := range params {
		key[k] = v
	}
	key[KindParam] = string(kind)

	if c.store != nil {
		if v, ok := c.store.Get(key, h.partition); ok {
			if resp, ok := toResponse(v); ok {
				return resp, nil
			}
			c.logger.Warn("cached response has unexpected shape, refetching",
				zap.String("kind", string(kind)), zap.String("type", fmt.Sprintf("%T", v)))
		}
	}

	start := c.now()
	res, err := h.call(ctx, c.provider, params)
	c.metrics.ObserveProvider(string(kind), c.now().Sub(start), err)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", kind, err)
	}
	resp, err := h.normalize(res)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", kind, err)
	}

	if c.store != nil {
		// A failed write only costs a future cache hit.
		_ = c.store.Set(key, map[string]any(resp), h.partition)
	}
	return resp, nil
}
