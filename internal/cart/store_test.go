package cart

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/emarket-np/storefront/pkg/money"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	return db
}

func TestSnapshotStoreRoundTrip(t *testing.T) {
	store, err := NewSnapshotStore(newTestDB(t))
	require.NoError(t, err)
	ctx := context.Background()

	items := []LineItem{
		{
			Product: ProductRef{ID: 1, Name: "tea", SellerID: "s1"},
			Variant: VariantRef{ID: 11, Code: "T-250G", Price: money.MustParse("4.50"), Attributes: []Attribute{{Name: "size", Value: "250g"}}},
			Qty:     2,
		},
	}
	require.NoError(t, store.Save(ctx, items))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "T-250G", loaded[0].Variant.Code)
	assert.Equal(t, 2, loaded[0].Qty)
	assert.True(t, loaded[0].Variant.Price.Equal(money.MustParse("4.50")), "price lost precision: %s", loaded[0].Variant.Price)
	require.Len(t, loaded[0].Variant.Attributes, 1)
	assert.Equal(t, "250g", loaded[0].Variant.Attributes[0].Value)
}

func TestSnapshotStoreLoadEmpty(t *testing.T) {
	store, err := NewSnapshotStore(newTestDB(t))
	require.NoError(t, err)

	items, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, items, "missing snapshot should load as nil")
}

func TestSnapshotStoreCorruptPayload(t *testing.T) {
	db := newTestDB(t)
	store, err := NewSnapshotStore(db)
	require.NoError(t, err)

	row := snapshotRow{ID: snapshotID, Payload: []byte("{not json")}
	require.NoError(t, db.Save(&row).Error)

	_, err = store.Load(context.Background())
	assert.Error(t, err, "corrupt payload must surface a deserialize error")
}

func TestSnapshotStoreClear(t *testing.T) {
	store, err := NewSnapshotStore(newTestDB(t))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, []LineItem{{Variant: VariantRef{Code: "A", Price: money.MustParse("1")}, Qty: 1}}))
	require.NoError(t, store.Clear(ctx))

	items, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	// Clearing an already-empty store is fine.
	require.NoError(t, store.Clear(ctx))
}
