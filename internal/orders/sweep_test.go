package orders

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/emarket-np/storefront/pkg/logger"
)

type fakeAPI struct {
	orders    []Order
	patched   map[int64]Status
	patchErr  error
	listCalls int
}

func (f *fakeAPI) List(ctx context.Context) ([]Order, error) {
	f.listCalls++
	out := make([]Order, len(f.orders))
	copy(out, f.orders)
	return out, nil
}

func (f *fakeAPI) Get(ctx context.Context, id int64) (*Order, error) {
	for _, o := range f.orders {
		if o.ID == id {
			copied := o
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("order %d not found", id)
}

func (f *fakeAPI) PatchStatus(ctx context.Context, id int64, status Status) error {
	if f.patchErr != nil {
		return f.patchErr
	}
	if f.patched == nil {
		f.patched = map[int64]Status{}
	}
	f.patched[id] = status
	return nil
}

func newTestService(t *testing.T, api API, now time.Time) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		API:        api,
		PendingTTL: 10 * time.Minute,
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Now:        func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestListCancelsStalePending(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	api := &fakeAPI{orders: []Order{
		{ID: 1, Status: StatusPending, CreatedAt: now.Add(-15 * time.Minute)},
		{ID: 2, Status: StatusPending, CreatedAt: now.Add(-5 * time.Minute)},
		{ID: 3, Status: StatusShipped, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: 4, Status: StatusDelivered, CreatedAt: now.Add(-48 * time.Hour)},
	}}
	svc := newTestService(t, api, now)

	list, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	byID := map[int64]Status{}
	for _, o := range list {
		byID[o.ID] = o.Status
	}
	if byID[1] != StatusCanceled {
		t.Fatalf("order 1 should be canceled, got %s", byID[1])
	}
	if byID[2] != StatusPending {
		t.Fatalf("order 2 should stay pending, got %s", byID[2])
	}
	if byID[3] != StatusShipped || byID[4] != StatusDelivered {
		t.Fatalf("non-pending orders must be untouched: %+v", byID)
	}
	if got := api.patched[1]; got != StatusCanceled {
		t.Fatalf("order 1 patch not sent, got %q", got)
	}
	if _, ok := api.patched[2]; ok {
		t.Fatal("order 2 must not be patched")
	}
	if api.listCalls != 1 {
		t.Fatalf("list must be fetched exactly once, got %d calls", api.listCalls)
	}
}

func TestListPatchFailureKeepsOriginalStatus(t *testing.T) {
	now := time.Now()
	api := &fakeAPI{
		orders:   []Order{{ID: 1, Status: StatusPending, CreatedAt: now.Add(-time.Hour)}},
		patchErr: fmt.Errorf("order service down"),
	}
	svc := newTestService(t, api, now)

	list, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if list[0].Status != StatusPending {
		t.Fatalf("failed patch must not rewrite local status, got %s", list[0].Status)
	}
}

func TestGetCancelsStalePending(t *testing.T) {
	now := time.Now()
	api := &fakeAPI{orders: []Order{{ID: 7, Status: StatusPending, CreatedAt: now.Add(-11 * time.Minute)}}}
	svc := newTestService(t, api, now)

	order, err := svc.Get(context.Background(), 7)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if order.Status != StatusCanceled {
		t.Fatalf("expected canceled, got %s", order.Status)
	}
}

func TestSweepStaleCounts(t *testing.T) {
	now := time.Now()
	api := &fakeAPI{orders: []Order{
		{ID: 1, Status: StatusPending, CreatedAt: now.Add(-20 * time.Minute)},
		{ID: 2, Status: StatusPending, CreatedAt: now.Add(-30 * time.Minute)},
		{ID: 3, Status: StatusPending, CreatedAt: now.Add(-1 * time.Minute)},
		{ID: 4, Status: StatusProcessing, CreatedAt: now.Add(-2 * time.Hour)},
	}}
	svc := newTestService(t, api, now)

	canceled, err := svc.SweepStale(context.Background())
	if err != nil {
		t.Fatalf("SweepStale: %v", err)
	}
	if canceled != 2 {
		t.Fatalf("expected 2 cancellations, got %d", canceled)
	}
}

func TestExactTTLBoundaryIsNotStale(t *testing.T) {
	now := time.Now()
	api := &fakeAPI{orders: []Order{{ID: 1, Status: StatusPending, CreatedAt: now.Add(-10 * time.Minute)}}}
	svc := newTestService(t, api, now)

	canceled, err := svc.SweepStale(context.Background())
	if err != nil {
		t.Fatalf("SweepStale: %v", err)
	}
	if canceled != 0 {
		t.Fatal("an order pending exactly the TTL must not be canceled")
	}
}
