package cart

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	pkgerrors "github.com/emarket-np/storefront/pkg/errors"
	"github.com/emarket-np/storefront/pkg/logger"
	"github.com/emarket-np/storefront/pkg/money"
	"github.com/shopspring/decimal"
)

// ProductRef is a read-only snapshot copied into the cart at add time.
// Catalog changes after adding do not retroactively update cart copies.
type ProductRef struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	SellerID string `json:"seller_id"`
	ImageURL string `json:"image_url"`
}

// Attribute is one (name, value) pair of a variant, order-preserving.
type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// VariantRef identifies a purchasable configuration. ID is the authoritative
// numeric identifier and may be zero when the item was added from stale
// catalog data; checkout re-resolves it by Code before submission.
type VariantRef struct {
	ID         int64           `json:"id"`
	Code       string          `json:"code"`
	Price      decimal.Decimal `json:"price"`
	StockLimit int             `json:"stock_limit"`
	Attributes []Attribute     `json:"attributes,omitempty"`
}

// LineItem is one variant and its requested quantity.
type LineItem struct {
	Product ProductRef `json:"product"`
	Variant VariantRef `json:"variant"`
	Qty     int        `json:"qty"`
}

// SellerGroup is the ordered slice of line items listed by one seller.
type SellerGroup struct {
	SellerID string
	Items    []LineItem
}

// Store persists the full line-item list. Implementations must write the
// whole list on every Save; the aggregator holds the source of truth in
// memory.
type Store interface {
	Load(ctx context.Context) ([]LineItem, error)
	Save(ctx context.Context, items []LineItem) error
	Clear(ctx context.Context) error
}

// Aggregator owns the shopper's selected items and derives monetary totals.
// It never talks to the network. Every mutation persists the full list
// before returning.
type Aggregator struct {
	mu      sync.Mutex
	items   []LineItem
	store   Store
	taxRate decimal.Decimal
	logg    *logger.Logger
}

// NewAggregator rehydrates prior state from the store. A load failure falls
// back to an empty cart with a logged warning rather than surfacing to the
// caller.
func NewAggregator(ctx context.Context, store Store, taxRate decimal.Decimal, logg *logger.Logger) (*Aggregator, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if taxRate.IsNegative() {
		return nil, fmt.Errorf("tax rate must be non-negative")
	}

	agg := &Aggregator{store: store, taxRate: taxRate, logg: logg}

	items, err := store.Load(ctx)
	if err != nil {
		if logg != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "cart state unreadable, starting empty")
		}
		items = nil
	}
	agg.items = items
	return agg, nil
}

// AddItem appends a new line item preserving insertion order, or increments
// the quantity when the variant code is already present. Stock limits are the
// caller's concern at add time.
func (a *Aggregator) AddItem(ctx context.Context, product ProductRef, variant VariantRef, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if variant.Code == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "variant code is required")
	}
	if variant.Price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "variant price must be non-negative")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range a.items {
		if a.items[i].Variant.Code == variant.Code {
			a.items[i].Qty += qty
			return a.persist(ctx)
		}
	}
	a.items = append(a.items, LineItem{Product: product, Variant: variant, Qty: qty})
	return a.persist(ctx)
}

// RemoveItem deletes the matching line item. Absent codes are a no-op.
func (a *Aggregator) RemoveItem(ctx context.Context, variantCode string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	kept := a.items[:0]
	removed := false
	for _, item := range a.items {
		if item.Variant.Code == variantCode {
			removed = true
			continue
		}
		kept = append(kept, item)
	}
	a.items = kept
	if !removed {
		return nil
	}
	return a.persist(ctx)
}

// SetQuantity replaces the quantity in place; zero or negative removes the
// line item.
func (a *Aggregator) SetQuantity(ctx context.Context, variantCode string, qty int) error {
	if qty <= 0 {
		return a.RemoveItem(ctx, variantCode)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range a.items {
		if a.items[i].Variant.Code == variantCode {
			a.items[i].Qty = qty
			return a.persist(ctx)
		}
	}
	return nil
}

// Clear empties the collection and erases persisted state.
func (a *Aggregator) Clear(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.items = nil
	if err := a.store.Clear(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart state")
	}
	return nil
}

// Items returns a copy of the line items in insertion order.
func (a *Aggregator) Items() []LineItem {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshot()
}

// Count is the total quantity across all line items.
func (a *Aggregator) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	total := 0
	for _, item := range a.items {
		total += item.Qty
	}
	return total
}

// Subtotal is the exact decimal sum of price*qty over every line item.
func (a *Aggregator) Subtotal() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.subtotalLocked()
}

// Tax applies the configured rate to the subtotal, rounded to cents.
func (a *Aggregator) Tax() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return money.Tax(a.subtotalLocked(), a.taxRate)
}

// GrandTotal is subtotal plus tax.
func (a *Aggregator) GrandTotal() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	subtotal := a.subtotalLocked()
	return subtotal.Add(money.Tax(subtotal, a.taxRate))
}

// GroupBySeller partitions line items by listing seller, sellers ordered by
// first occurrence in the cart.
func (a *Aggregator) GroupBySeller() []SellerGroup {
	a.mu.Lock()
	defer a.mu.Unlock()

	var groups []SellerGroup
	index := map[string]int{}
	for _, item := range a.items {
		seller := item.Product.SellerID
		at, ok := index[seller]
		if !ok {
			at = len(groups)
			index[seller] = at
			groups = append(groups, SellerGroup{SellerID: seller})
		}
		groups[at].Items = append(groups[at].Items, item)
	}
	return groups
}

// HasMultipleSellers reports whether the cart spans more than one seller.
func (a *Aggregator) HasMultipleSellers() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	seen := map[string]struct{}{}
	for _, item := range a.items {
		seen[item.Product.SellerID] = struct{}{}
		if len(seen) > 1 {
			return true
		}
	}
	return false
}

func (a *Aggregator) subtotalLocked() decimal.Decimal {
	total := decimal.Zero
	for _, item := range a.items {
		total = total.Add(item.Variant.Price.Mul(decimal.NewFromInt(int64(item.Qty))))
	}
	return total
}

func (a *Aggregator) persist(ctx context.Context) error {
	if err := a.store.Save(ctx, a.snapshot()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist cart state")
	}
	return nil
}

func (a *Aggregator) snapshot() []LineItem {
	items := make([]LineItem, len(a.items))
	copy(items, a.items)
	return items
}

// LineTotal is the display price for one line item.
func (l LineItem) LineTotal() decimal.Decimal {
	return l.Variant.Price.Mul(decimal.NewFromInt(int64(l.Qty)))
}

// VariantIDString renders the numeric variant identifier, empty when the
// item still needs resolution.
func (l LineItem) VariantIDString() string {
	if l.Variant.ID == 0 {
		return ""
	}
	return strconv.FormatInt(l.Variant.ID, 10)
}
