package cart

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/emarket-np/storefront/pkg/logger"
	"github.com/emarket-np/storefront/pkg/money"
	"github.com/shopspring/decimal"
)

var taxRate = money.MustParse("0.13")

func newTestAggregator(t *testing.T) (*Aggregator, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	agg, err := NewAggregator(context.Background(), store, taxRate, logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("NewAggregator: %v", err)
	}
	return agg, store
}

func variant(code, price string) VariantRef {
	return VariantRef{ID: int64(len(code)), Code: code, Price: money.MustParse(price), StockLimit: 100}
}

func product(id int64, seller string) ProductRef {
	return ProductRef{ID: id, Name: fmt.Sprintf("product-%d", id), SellerID: seller}
}

func TestAddItemIncrementsExistingVariant(t *testing.T) {
	agg, _ := newTestAggregator(t)
	ctx := context.Background()

	if err := agg.AddItem(ctx, product(1, "s1"), variant("A-1", "100"), 2); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := agg.AddItem(ctx, product(1, "s1"), variant("A-1", "100"), 3); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	items := agg.Items()
	if len(items) != 1 {
		t.Fatalf("expected 1 line item, got %d", len(items))
	}
	if items[0].Qty != 5 {
		t.Fatalf("expected qty 5, got %d", items[0].Qty)
	}
}

func TestNoDuplicateVariantCodesUnderMixedMutations(t *testing.T) {
	agg, _ := newTestAggregator(t)
	ctx := context.Background()
	codes := []string{"A", "B", "C", "D"}
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		code := codes[rng.Intn(len(codes))]
		switch rng.Intn(3) {
		case 0:
			agg.AddItem(ctx, product(1, "s1"), variant(code, "9.99"), 1+rng.Intn(3))
		case 1:
			agg.RemoveItem(ctx, code)
		case 2:
			agg.SetQuantity(ctx, code, rng.Intn(5))
		}

		seen := map[string]bool{}
		for _, item := range agg.Items() {
			if seen[item.Variant.Code] {
				t.Fatalf("duplicate variant code %q after %d ops", item.Variant.Code, i+1)
			}
			seen[item.Variant.Code] = true
			if item.Qty < 1 {
				t.Fatalf("line item with qty %d", item.Qty)
			}
		}
	}
}

func TestSubtotalExactOverManyAdditions(t *testing.T) {
	agg, _ := newTestAggregator(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(11))

	expected := decimal.Zero
	for i := 0; i < 1000; i++ {
		// Random price with exactly 2 decimal places.
		cents := rng.Intn(100000)
		price := decimal.NewFromInt(int64(cents)).Div(decimal.NewFromInt(100))
		qty := 1 + rng.Intn(4)
		code := fmt.Sprintf("V-%d", i)
		if err := agg.AddItem(ctx, product(int64(i), "s1"), VariantRef{ID: int64(i + 1), Code: code, Price: price}, qty); err != nil {
			t.Fatalf("AddItem: %v", err)
		}
		expected = expected.Add(price.Mul(decimal.NewFromInt(int64(qty))))
	}

	if !agg.Subtotal().Equal(expected) {
		t.Fatalf("subtotal drifted: got %s, want %s", agg.Subtotal(), expected)
	}
}

func TestTotalsScenario(t *testing.T) {
	agg, _ := newTestAggregator(t)
	ctx := context.Background()

	agg.AddItem(ctx, product(1, "s1"), variant("A", "100"), 2)
	agg.AddItem(ctx, product(2, "s1"), variant("B", "50"), 1)

	if !agg.Subtotal().Equal(money.MustParse("250")) {
		t.Fatalf("subtotal = %s, want 250", agg.Subtotal())
	}
	if !agg.Tax().Equal(money.MustParse("32.50")) {
		t.Fatalf("tax = %s, want 32.50", agg.Tax())
	}
	if !agg.GrandTotal().Equal(money.MustParse("282.50")) {
		t.Fatalf("grand total = %s, want 282.50", agg.GrandTotal())
	}
}

func TestGroupBySellerPartitionsEveryItem(t *testing.T) {
	agg, _ := newTestAggregator(t)
	ctx := context.Background()

	agg.AddItem(ctx, product(1, "seller-b"), variant("A", "10"), 1)
	agg.AddItem(ctx, product(2, "seller-a"), variant("B", "10"), 1)
	agg.AddItem(ctx, product(3, "seller-b"), variant("C", "10"), 1)

	groups := agg.GroupBySeller()
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	// First-occurrence order: seller-b entered the cart first.
	if groups[0].SellerID != "seller-b" || groups[1].SellerID != "seller-a" {
		t.Fatalf("unexpected seller order: %s, %s", groups[0].SellerID, groups[1].SellerID)
	}

	total := 0
	seen := map[string]bool{}
	for _, group := range groups {
		for _, item := range group.Items {
			if seen[item.Variant.Code] {
				t.Fatalf("item %q appears in two groups", item.Variant.Code)
			}
			seen[item.Variant.Code] = true
			total++
		}
	}
	if total != 3 {
		t.Fatalf("partition lost items: %d of 3", total)
	}

	if !agg.HasMultipleSellers() {
		t.Fatal("expected multiple sellers")
	}
	agg.RemoveItem(ctx, "B")
	if agg.HasMultipleSellers() {
		t.Fatal("expected single seller after removal")
	}
}

func TestSetQuantityZeroRemoves(t *testing.T) {
	agg, _ := newTestAggregator(t)
	ctx := context.Background()

	agg.AddItem(ctx, product(1, "s1"), variant("A", "10"), 2)
	if err := agg.SetQuantity(ctx, "A", 0); err != nil {
		t.Fatalf("SetQuantity: %v", err)
	}
	if len(agg.Items()) != 0 {
		t.Fatal("expected empty cart")
	}

	// Removing an absent code stays idempotent.
	if err := agg.RemoveItem(ctx, "A"); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
}

func TestEveryMutationPersists(t *testing.T) {
	agg, store := newTestAggregator(t)
	ctx := context.Background()

	agg.AddItem(ctx, product(1, "s1"), variant("A", "10"), 1)
	persisted, _ := store.Load(ctx)
	if len(persisted) != 1 {
		t.Fatalf("add not persisted: %d items", len(persisted))
	}

	agg.SetQuantity(ctx, "A", 4)
	persisted, _ = store.Load(ctx)
	if persisted[0].Qty != 4 {
		t.Fatalf("set quantity not persisted: qty %d", persisted[0].Qty)
	}

	agg.Clear(ctx)
	persisted, _ = store.Load(ctx)
	if len(persisted) != 0 {
		t.Fatal("clear not persisted")
	}
}

func TestCorruptStateFallsBackToEmpty(t *testing.T) {
	store := NewMemoryStore()
	store.FailWith(errors.New("deserialize cart snapshot: unexpected end of JSON input"))

	agg, err := NewAggregator(context.Background(), store, taxRate, logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("NewAggregator must fail soft, got %v", err)
	}
	if len(agg.Items()) != 0 {
		t.Fatal("expected empty cart after corrupt load")
	}
}

func TestRehydrateFromStore(t *testing.T) {
	store := NewMemoryStore()
	store.Save(context.Background(), []LineItem{
		{Product: product(1, "s1"), Variant: variant("A", "10"), Qty: 3},
	})

	agg, err := NewAggregator(context.Background(), store, taxRate, nil)
	if err != nil {
		t.Fatalf("NewAggregator: %v", err)
	}
	items := agg.Items()
	if len(items) != 1 || items[0].Qty != 3 {
		t.Fatalf("rehydration lost state: %+v", items)
	}
}
