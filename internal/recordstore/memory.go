package recordstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/domain"

	"github.com/google/uuid"
)

// MemoryStore supports the records API when no remote store is configured.
// NOTE: data lives only as long as the process.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]domain.BreakdownRecord
	failErr error
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: map[string]domain.BreakdownRecord{},
		now:     time.Now,
	}
}

var _ Store = (*MemoryStore)(nil)

// Fail makes every following call return err (nil restores normal behaviour).
func (m *MemoryStore) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failErr = err
}

// Seed inserts records as-is (ids and timestamps are kept).
func (m *MemoryStore) Seed(records ...domain.BreakdownRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		m.records[r.ID] = r
	}
}

func (m *MemoryStore) List(_ context.Context) ([]domain.BreakdownRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failErr != nil {
		return nil, m.failErr
	}

	all := make([]domain.BreakdownRecord, 0, len(m.records))
	for _, r := range m.records {
		all = append(all, r)
	}
	sortNewestFirst(all)
	return all, nil
}

func (m *MemoryStore) Create(_ context.Context, record domain.BreakdownRecord) (domain.BreakdownRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return domain.BreakdownRecord{}, m.failErr
	}

	now := m.now().UTC()
	record.ID = uuid.NewString()
	record.Timestamp = domain.StoreTime(now)
	if record.CreatedAt.IsZero() {
		record.CreatedAt = domain.RawTime(now.Format(time.RFC3339Nano))
	}
	m.records[record.ID] = record
	return record, nil
}

func (m *MemoryStore) Update(_ context.Context, id string, patch domain.RecordPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}

	r, ok := m.records[id]
	if !ok {
		return newStoreError("update", CodeNotFound, errors.New("no document with id "+id))
	}
	m.records[id] = patch.Apply(r, m.now().UTC())
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}

	if _, ok := m.records[id]; !ok {
		return newStoreError("delete", CodeNotFound, errors.New("no document with id "+id))
	}
	delete(m.records, id)
	return nil
}
