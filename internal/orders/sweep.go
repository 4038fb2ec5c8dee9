package orders

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/emarket-np/storefront/pkg/logger"
)

// API is the slice of the order client the sweep needs.
type API interface {
	List(ctx context.Context) ([]Order, error)
	Get(ctx context.Context, id int64) (*Order, error)
	PatchStatus(ctx context.Context, id int64, status Status) error
}

// Service layers the stale-pending sweep over the raw order client. An order
// left pending beyond the TTL is canceled before it is ever shown.
type Service struct {
	api  API
	ttl  time.Duration
	logg *logger.Logger
	now  func() time.Time
}

// ServiceParams configures NewService.
type ServiceParams struct {
	API        API
	PendingTTL time.Duration
	Logger     *logger.Logger

	// Now overrides the clock in tests.
	Now func() time.Time
}

// NewService validates params and builds the service.
func NewService(p ServiceParams) (*Service, error) {
	if p.API == nil {
		return nil, fmt.Errorf("order api required")
	}
	if p.PendingTTL <= 0 {
		return nil, fmt.Errorf("pending ttl must be positive")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return &Service{api: p.API, ttl: p.PendingTTL, logg: p.Logger, now: p.Now}, nil
}

func (s *Service) stale(o Order) bool {
	return o.Status == StatusPending && s.now().Sub(o.CreatedAt) > s.ttl
}

// List returns the caller's orders with stale pending ones already canceled.
// The returned slice reflects each cancellation without a second fetch; a
// failed patch leaves that order's reported status untouched.
func (s *Service) List(ctx context.Context) ([]Order, error) {
	list, err := s.api.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if !s.stale(list[i]) {
			continue
		}
		if err := s.api.PatchStatus(ctx, list[i].ID, StatusCanceled); err != nil {
			lctx := s.logg.WithOrderID(ctx, strconv.FormatInt(list[i].ID, 10))
			s.logg.Warn(lctx, fmt.Sprintf("cancel stale order: %v", err))
			continue
		}
		list[i].Status = StatusCanceled
	}
	return list, nil
}

// Get returns one order, applying the same staleness rule as List.
func (s *Service) Get(ctx context.Context, id int64) (*Order, error) {
	order, err := s.api.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.stale(*order) {
		if err := s.api.PatchStatus(ctx, order.ID, StatusCanceled); err != nil {
			lctx := s.logg.WithOrderID(ctx, strconv.FormatInt(order.ID, 10))
			s.logg.Warn(lctx, fmt.Sprintf("cancel stale order: %v", err))
			return order, nil
		}
		order.Status = StatusCanceled
	}
	return order, nil
}

// SweepStale cancels every stale pending order and reports how many were
// transitioned. Used by the background worker.
func (s *Service) SweepStale(ctx context.Context) (int, error) {
	list, err := s.api.List(ctx)
	if err != nil {
		return 0, err
	}
	canceled := 0
	for _, o := range list {
		if !s.stale(o) {
			continue
		}
		if err := s.api.PatchStatus(ctx, o.ID, StatusCanceled); err != nil {
			lctx := s.logg.WithOrderID(ctx, strconv.FormatInt(o.ID, 10))
			s.logg.Warn(lctx, fmt.Sprintf("cancel stale order: %v", err))
			continue
		}
		canceled++
	}
	return canceled, nil
}
