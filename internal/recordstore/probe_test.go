package recordstore

import (
	"context"
	"errors"
	"testing"

	"github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestProbe(t *testing.T) {
	m := NewMemoryStore()
	m.Seed(domain.BreakdownRecord{ID: "a"}, domain.BreakdownRecord{ID: "b"})

	ok := Probe(context.Background(), m)
	assert.True(t, ok.Success)
	assert.Equal(t, 2, ok.RecordCount)
	assert.Equal(t, "Record store connected successfully. Found 2 records.", ok.Message)

	m.Fail(newStoreError("list", CodePermissionDenied, errors.New("denied")))
	denied := Probe(context.Background(), m)
	assert.False(t, denied.Success)
	assert.Contains(t, denied.Message, "Permission denied")
	assert.Equal(t, CodePermissionDenied, denied.Code)

	m.Fail(newStoreError("list", CodeUnavailable, errors.New("down")))
	assert.Equal(t, "Record store connection failed: Record store service is unavailable.", Probe(context.Background(), m).Message)

	m.Fail(errors.New("weird"))
	assert.Equal(t, "Record store connection failed: weird", Probe(context.Background(), m).Message)
}
