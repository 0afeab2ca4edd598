// Package vehicle resolves registration marks to vehicle attributes.
//
// Resolvers are layered: RemoteResolver talks to the registry,
// CachingResolver keeps successful answers in Redis, and FallbackResolver
// turns any failure into deterministic synthetic data so a booking can
// always be priced.
package vehicle

import (
	"context"
	"time"

	"github.com/Domenick1991/garagebooking/internal/domain"
	"github.com/sirupsen/logrus"
)

// Lookup is a resolver that can fail.
type Lookup interface {
	Lookup(ctx context.Context, registration string) (domain.VehicleAttributes, error)
}

type Cache interface {
	GetVehicle(ctx context.Context, registration string) (*domain.VehicleAttributes, error)
	SetVehicle(ctx context.Context, vehicle domain.VehicleAttributes, ttl time.Duration) error
}

// CachingResolver serves repeat lookups from the cache. Cache errors are
// treated as misses; only real registry answers are stored.
type CachingResolver struct {
	next  Lookup
	cache Cache
	ttl   time.Duration
	log   logrus.FieldLogger
}

func NewCachingResolver(next Lookup, cache Cache, ttl time.Duration, log logrus.FieldLogger) *CachingResolver {
	return &CachingResolver{next: next, cache: cache, ttl: ttl, log: log}
}

func (r *CachingResolver) Lookup(ctx context.Context, registration string) (domain.VehicleAttributes, error) {
	reg := domain.NormalizeRegistration(registration)
	if cached, err := r.cache.GetVehicle(ctx, reg); err != nil {
		r.log.WithError(err).WithField("registration", reg).Debug("vehicle cache read failed")
	} else if cached != nil {
		return *cached, nil
	}

	v, err := r.next.Lookup(ctx, reg)
	if err != nil {
		return domain.VehicleAttributes{}, err
	}
	if err := r.cache.SetVehicle(ctx, v, r.ttl); err != nil {
		r.log.WithError(err).WithField("registration", reg).Debug("vehicle cache write failed")
	}
	return v, nil
}

// FallbackResolver never fails: when the wrapped lookup errors it returns
// Synthesize(registration) flagged as mock data.
type FallbackResolver struct {
	next Lookup
	log  logrus.FieldLogger
}

func NewFallbackResolver(next Lookup, log logrus.FieldLogger) *FallbackResolver {
	return &FallbackResolver{next: next, log: log}
}

func (r *FallbackResolver) Resolve(ctx context.Context, registration string) domain.VehicleAttributes {
	reg := domain.NormalizeRegistration(registration)
	if r.next != nil {
		v, err := r.next.Lookup(ctx, reg)
		if err == nil {
			v.UsingMockData = false
			return v
		}
		r.log.WithError(err).WithField("registration", reg).Warn("vehicle lookup failed, using synthetic data")
	}
	return Synthesize(reg)
}
