package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/patrickmn/go-cache"

	"github.com/fishing-exam-alert/backend/internal/domain"
	"github.com/fishing-exam-alert/backend/internal/metrics"
	"github.com/fishing-exam-alert/backend/internal/repo"
)

// RouteProvider computes driving routes between two free-form addresses.
type RouteProvider interface {
	Route(ctx context.Context, start, end string) (domain.Route, error)
}

// Alerter delivers a best-effort message to the administrators.
// Implementations never fail the caller; they log delivery problems.
type Alerter interface {
	Alert(ctx context.Context, text string)
}

// DistanceResolver returns the travel distance between two address lines,
// asking the routing provider at most once per directed pair. Results live in
// the distance store and in an in-process cache in front of it.
type DistanceResolver struct {
	repo      repo.DistanceRepo
	provider  RouteProvider
	alerter   Alerter
	cache     *cache.Cache
	threshold int // meters
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewDistanceResolver constructs a DistanceResolver. thresholdMeters is the
// distance above which an admin alert is sent for a newly resolved pair.
func NewDistanceResolver(r repo.DistanceRepo, p RouteProvider, a Alerter, thresholdMeters int, logger *slog.Logger, m *metrics.Metrics) *DistanceResolver {
	return &DistanceResolver{
		repo:      r,
		provider:  p,
		alerter:   a,
		cache:     cache.New(cache.NoExpiration, 0),
		threshold: thresholdMeters,
		logger:    logger,
		metrics:   m,
	}
}

// GetOrCreate returns the distance for the pair, resolving it through the
// provider when neither the cache nor the store has it. The shortest leg of
// the provider answer is stored together with the raw response.
func (r *DistanceResolver) GetOrCreate(ctx context.Context, start, end string) (domain.Distance, error) {
	key := domain.NewRouteKey(start, end)
	ck := cacheKey(key)

	if v, ok := r.cache.Get(ck); ok {
		r.metrics.DistanceCacheHits.Inc()
		return v.(domain.Distance), nil
	}

	stored, err := r.repo.Get(ctx, key)
	if err == nil {
		r.metrics.DistanceCacheHits.Inc()
		r.cache.Set(ck, stored, cache.NoExpiration)
		return stored, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Distance{}, fmt.Errorf("service.DistanceResolver.GetOrCreate: %w", err)
	}

	r.metrics.DistanceLookups.Inc()
	route, err := r.provider.Route(ctx, key.Start, key.End)
	if err != nil {
		return domain.Distance{}, fmt.Errorf("service.DistanceResolver.GetOrCreate: route %q -> %q: %w", key.Start, key.End, err)
	}
	leg, ok := route.ShortestLeg()
	if !ok {
		return domain.Distance{}, fmt.Errorf("service.DistanceResolver.GetOrCreate: route %q -> %q: no legs", key.Start, key.End)
	}

	created, err := r.repo.Create(ctx, domain.Distance{
		StartAddress: key.Start,
		EndAddress:   key.End,
		Meters:       leg.Meters,
		Seconds:      leg.Seconds,
		Details:      route.Raw,
	})
	if err != nil {
		return domain.Distance{}, fmt.Errorf("service.DistanceResolver.GetOrCreate: %w", err)
	}
	r.cache.Set(ck, created, cache.NoExpiration)

	if created.Meters > r.threshold {
		msg := fmt.Sprintf("Distance between %s and %s is %d meters, which exceeds the threshold of %d meters.",
			created.StartAddress, created.EndAddress, created.Meters, r.threshold)
		r.logger.WarnContext(ctx, "distance above threshold",
			"start", created.StartAddress, "end", created.EndAddress, "meters", created.Meters)
		r.alerter.Alert(ctx, msg)
	}
	return created, nil
}

// Distance returns the distance in meters for the pair.
func (r *DistanceResolver) Distance(ctx context.Context, start, end string) (int, error) {
	d, err := r.GetOrCreate(ctx, start, end)
	if err != nil {
		return 0, err
	}
	return d.Meters, nil
}

// Duration returns the travel duration in seconds for the pair.
func (r *DistanceResolver) Duration(ctx context.Context, start, end string) (int, error) {
	d, err := r.GetOrCreate(ctx, start, end)
	if err != nil {
		return 0, err
	}
	return d.Seconds, nil
}

// cacheKey joins both lines with a separator that cannot occur in them
// after normalization.
func cacheKey(k domain.RouteKey) string {
	return k.Start + "\x00" + k.End
}
