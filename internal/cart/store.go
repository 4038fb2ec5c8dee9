package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// snapshotRow is the single-row table holding the serialized line-item list.
// It is the storefront's analog of device-local storage: one cart per
// installation.
type snapshotRow struct {
	ID        uint   `gorm:"primaryKey"`
	Payload   []byte `gorm:"type:blob"`
	UpdatedAt time.Time
}

func (snapshotRow) TableName() string { return "cart_snapshots" }

const snapshotID = 1

// SnapshotStore persists the cart to the local database.
type SnapshotStore struct {
	db *gorm.DB
}

// NewSnapshotStore migrates the snapshot table and returns the store.
func NewSnapshotStore(db *gorm.DB) (*SnapshotStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db handle required")
	}
	if err := db.AutoMigrate(&snapshotRow{}); err != nil {
		return nil, fmt.Errorf("migrate cart snapshot table: %w", err)
	}
	return &SnapshotStore{db: db}, nil
}

// Load deserializes the persisted line-item list. A missing row is an empty
// cart; a corrupt payload is returned as an error for the caller's fail-soft
// decision.
func (s *SnapshotStore) Load(ctx context.Context) ([]LineItem, error) {
	var row snapshotRow
	err := s.db.WithContext(ctx).First(&row, snapshotID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cart snapshot: %w", err)
	}
	if len(row.Payload) == 0 {
		return nil, nil
	}
	var items []LineItem
	if err := json.Unmarshal(row.Payload, &items); err != nil {
		return nil, fmt.Errorf("deserialize cart snapshot: %w", err)
	}
	return items, nil
}

// Save writes the full list, replacing any previous snapshot.
func (s *SnapshotStore) Save(ctx context.Context, items []LineItem) error {
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("serialize cart: %w", err)
	}
	row := snapshotRow{ID: snapshotID, Payload: payload, UpdatedAt: time.Now().UTC()}
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("write cart snapshot: %w", err)
	}
	return nil
}

// Clear erases the persisted snapshot.
func (s *SnapshotStore) Clear(ctx context.Context) error {
	err := s.db.WithContext(ctx).Delete(&snapshotRow{}, snapshotID).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("delete cart snapshot: %w", err)
	}
	return nil
}

// MemoryStore keeps the snapshot in process memory. Used in tests and as the
// fallback when no database is configured.
type MemoryStore struct {
	items []LineItem
	fail  error
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

// FailWith makes every subsequent call return err. Test hook.
func (m *MemoryStore) FailWith(err error) { m.fail = err }

func (m *MemoryStore) Load(ctx context.Context) ([]LineItem, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	items := make([]LineItem, len(m.items))
	copy(items, m.items)
	return items, nil
}

func (m *MemoryStore) Save(ctx context.Context, items []LineItem) error {
	if m.fail != nil {
		return m.fail
	}
	m.items = make([]LineItem, len(items))
	copy(m.items, items)
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	if m.fail != nil {
		return m.fail
	}
	m.items = nil
	return nil
}
