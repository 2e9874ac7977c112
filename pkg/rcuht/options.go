package rcuht

import (
	"github.com/yndnr/rcuht-go/internal/telemetry/logger"
	"github.com/yndnr/rcuht-go/internal/telemetry/metric"
	"github.com/yndnr/rcuht-go/internal/urcu"
)

type options struct {
	log        logger.Logger
	metrics    *metric.Registry
	domain     *urcu.Domain
	seed       uint32
	seeded     bool
	hasher     any
	reclaim    any
	ownerCheck bool
}

// Option configures a Table.
type Option func(*options)

// WithLogger sets the table logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithMetrics sets the registry that receives table metrics.
func WithMetrics(r *metric.Registry) Option {
	return func(o *options) {
		o.metrics = r
	}
}

// WithDomain runs the table on a private grace-period domain instead of
// the process-wide one.
func WithDomain(d *urcu.Domain) Option {
	return func(o *options) {
		o.domain = d
	}
}

// WithSeed sets the murmur3 seed of the default hasher.
func WithSeed(seed uint32) Option {
	return func(o *options) {
		o.seed = seed
		o.seeded = true
	}
}

// WithHasher replaces the key hash function. Its key type must match the
// table's; New rejects a mismatch with ErrInvalidParameters.
func WithHasher[K comparable](fn func(K) uint64) Option {
	return func(o *options) {
		o.hasher = fn
	}
}

// WithReclaimFunc registers fn to run on every entry once its grace period
// has elapsed, just before the entry is cleared.
func WithReclaimFunc[K comparable, V any](fn func(K, V)) Option {
	return func(o *options) {
		o.reclaim = fn
	}
}

// WithOwnerCheck makes every ThreadContext panic with ErrWrongGoroutine
// when used from a goroutine other than its creator.
func WithOwnerCheck() Option {
	return func(o *options) {
		o.ownerCheck = true
	}
}
