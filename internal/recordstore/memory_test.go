package recordstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_CRUD(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	tick := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}

	first, err := m.Create(ctx, domain.BreakdownRecord{Machine: "Pump"})
	require.NoError(t, err)
	second, err := m.Create(ctx, domain.BreakdownRecord{Machine: "Fan"})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.False(t, first.CreatedAt.IsZero())

	list, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")

	desc := "leak"
	require.NoError(t, m.Update(ctx, first.ID, domain.RecordPatch{Description: &desc}))
	list, _ = m.List(ctx)
	assert.Equal(t, "leak", list[1].Description)
	assert.Equal(t, "Pump", list[1].Machine)

	require.NoError(t, m.Delete(ctx, first.ID))
	assert.True(t, errors.Is(m.Delete(ctx, first.ID), ErrNotFound))
	assert.True(t, errors.Is(m.Update(ctx, "nope", domain.RecordPatch{}), ErrNotFound))
}

func TestMemoryStore_Fail(t *testing.T) {
	m := NewMemoryStore()
	boom := &StoreError{Op: "list", Code: CodeUnavailable, Err: errors.New("offline")}
	m.Fail(boom)

	_, err := m.List(context.Background())
	assert.True(t, errors.Is(err, ErrStoreUnavailable))

	m.Fail(nil)
	_, err = m.List(context.Background())
	assert.NoError(t, err)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeUnknown, CodeOf(errors.New("x")))
	assert.Equal(t, CodeUnavailable, CodeOf(ErrStoreUnavailable))
	assert.Equal(t, CodeNotFound, CodeOf(&StoreError{Code: CodeNotFound}))
}
