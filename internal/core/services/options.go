package services

import (
	"time"

	"github.com/SscSPs/food_erp_fulfillment/internal/platform/events"
	"github.com/SscSPs/food_erp_fulfillment/internal/platform/locking"
)

type serviceOptions struct {
	locker      locking.Locker
	publisher   events.Publisher
	now         func() time.Time
	parallelism int
}

func defaultServiceOptions() serviceOptions {
	return serviceOptions{
		locker:      locking.NewKeyedMutex(),
		publisher:   events.NoopPublisher{},
		parallelism: 4,
	}
}

// ServiceOption is a functional option shared by the service constructors
type ServiceOption func(*serviceOptions)

// WithLocker sets the per-order lock. Services sharing one container must share one locker.
func WithLocker(locker locking.Locker) ServiceOption {
	return func(o *serviceOptions) {
		if locker != nil {
			o.locker = locker
		}
	}
}

// WithPublisher sets where domain events go after a successful operation.
func WithPublisher(publisher events.Publisher) ServiceOption {
	return func(o *serviceOptions) {
		if publisher != nil {
			o.publisher = publisher
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(o *serviceOptions) {
		o.now = now
	}
}

// WithParallelism bounds how many balance rows reconciliation checks at once.
func WithParallelism(n int) ServiceOption {
	return func(o *serviceOptions) {
		if n > 0 {
			o.parallelism = n
		}
	}
}

func applyOptions(opts []ServiceOption) (serviceOptions, BaseService) {
	o := defaultServiceOptions()
	for _, opt := range opts {
		opt(&o)
	}
	base := newBaseService()
	if o.now != nil {
		base.now = o.now
	}
	return o, base
}
