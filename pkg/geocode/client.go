package geocode

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cavena/mobility-cli/internal/model"
	"github.com/cavena/mobility-cli/internal/resilience"
)

// ErrExhausted is returned when every configured provider failed for an
// address. The caller drops the depending address pair and continues.
var ErrExhausted = eris.New("geocode: all providers exhausted")

// Tally counts resolution outcomes for one provider.
type Tally struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
}

// Stats summarizes resolver activity for the stage report.
type Stats struct {
	ByProvider map[string]Tally `json:"by_provider"`
	CacheHits  int              `json:"cache_hits"`
	Calls      int              `json:"calls"`
}

// Resolver tries providers in configured order with per-call retry and
// caches every distinct address at most once per run.
type Resolver struct {
	providers  []Provider
	retry      resilience.RetryConfig
	pacer      resilience.Pacer
	cache      *runCache
	persistent PersistentCache
	stats      Stats
}

// Option configures the Resolver.
type Option func(*Resolver)

// WithRetryConfig overrides the per-provider retry policy.
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(r *Resolver) { r.retry = cfg }
}

// WithPacer sets the inter-call pacer shared by all providers.
func WithPacer(p resilience.Pacer) Option {
	return func(r *Resolver) { r.pacer = p }
}

// WithPersistentCache attaches a cross-run cache behind the per-run map.
func WithPersistentCache(pc PersistentCache) Option {
	return func(r *Resolver) { r.persistent = pc }
}

// NewResolver creates a Resolver that tries providers in the given order.
func NewResolver(providers []Provider, opts ...Option) *Resolver {
	r := &Resolver{
		providers: providers,
		retry:     resilience.DefaultRetryConfig(),
		pacer:     resilience.NewPacer(0),
		cache:     newRunCache(),
		stats:     Stats{ByProvider: make(map[string]Tally)},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve geocodes one address. Each distinct address string hits the
// network at most once per run; repeats are answered from the cache,
// including cached failures. Pacing applies per external call, never to
// cache hits.
func (r *Resolver) Resolve(ctx context.Context, address string) (model.GeoPoint, error) {
	key := CacheKey(address)

	if entry, ok := r.cache.get(key); ok {
		r.stats.CacheHits++
		return r.fromEntry(entry, address)
	}

	if r.persistent != nil {
		if entry, err := r.persistent.Lookup(ctx, key); err == nil && entry != nil {
			r.stats.CacheHits++
			r.cache.put(key, *entry)
			return r.fromEntry(*entry, address)
		}
	}

	point, err := r.resolveUncached(ctx, address)
	entry := Entry{Point: point, Matched: err == nil}
	r.cache.put(key, entry)
	if r.persistent != nil {
		if storeErr := r.persistent.Store(ctx, key, entry); storeErr != nil {
			zap.L().Warn("geocode: persistent cache store failed", zap.Error(storeErr))
		}
	}
	return point, err
}

// Stats returns a copy of the resolver's counters.
func (r *Resolver) Stats() Stats {
	out := Stats{
		ByProvider: make(map[string]Tally, len(r.stats.ByProvider)),
		CacheHits:  r.stats.CacheHits,
		Calls:      r.stats.Calls,
	}
	for name, tally := range r.stats.ByProvider {
		out.ByProvider[name] = tally
	}
	return out
}

func (r *Resolver) fromEntry(entry Entry, address string) (model.GeoPoint, error) {
	if !entry.Matched {
		return model.GeoPoint{}, eris.Wrapf(ErrExhausted, "address %q (cached failure)", address)
	}
	return entry.Point, nil
}

// resolveUncached walks the provider order. Transient errors retry the
// same provider with increasing backoff; a definitive empty result falls
// through to the next provider immediately.
func (r *Resolver) resolveUncached(ctx context.Context, address string) (model.GeoPoint, error) {
	log := zap.L().With(zap.String("address", address))

	for _, provider := range r.providers {
		retryCfg := r.retry
		retryCfg.OnRetry = resilience.RetryLogger(provider.Name(), "geocode")

		point, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (model.GeoPoint, error) {
			if err := r.pacer.Wait(ctx); err != nil {
				return model.GeoPoint{}, err
			}
			r.stats.Calls++
			return provider.Geocode(ctx, address)
		})
		if err == nil {
			r.bump(provider.Name(), true)
			return point, nil
		}

		r.bump(provider.Name(), false)
		if ctx.Err() != nil {
			return model.GeoPoint{}, err
		}
		log.Debug("geocode: provider failed, trying next",
			zap.String("provider", provider.Name()),
			zap.Error(err),
		)
	}

	return model.GeoPoint{}, eris.Wrapf(ErrExhausted, "address %q", address)
}

func (r *Resolver) bump(provider string, success bool) {
	tally := r.stats.ByProvider[provider]
	if success {
		tally.Success++
	} else {
		tally.Failure++
	}
	r.stats.ByProvider[provider] = tally
}
