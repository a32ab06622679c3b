package recordstore

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresStore) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	store := NewPostgresStore(db)
	store.now = func() time.Time { return time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC) }

	return db, mock, store
}

var listColumns = []string{
	"id", "date", "executive", "shift", "machine", "category", "description",
	"delay_time", "priority", "spare_parts", "resolution", "server_timestamp", "created_at", "updated_at",
}

func TestPostgresStore_List_Success(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	newer := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	older := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(listColumns).
		AddRow("id-2", "2024-01-02", "Adarsh", "General (8am-5pm)", "Pump", "Mechanical", "",
			2.5, "High", "bolt, nut", "", newer, "2024-01-02T10:00:00Z", nil).
		AddRow("id-1", "2024-01-01", "Deepak", "Night (12am-8am)", "Fan", "Electrical", "motor hum",
			0.0, "Low", "", "replaced", older, nil, older)

	mock.ExpectQuery(`SELECT\s+id::text`).WillReturnRows(rows)

	records, err := store.List(context.Background())

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "id-2", records[0].ID)
	assert.Equal(t, domain.Hours(2.5), records[0].DelayTime)
	assert.Equal(t, domain.PriorityHigh, records[0].Priority)
	assert.Equal(t, domain.StoreTime(newer), records[0].Timestamp)
	assert.Equal(t, domain.RawTime("2024-01-02T10:00:00Z"), records[0].CreatedAt)
	assert.True(t, records[0].UpdatedAt.IsZero())

	assert.Equal(t, "id-1", records[1].ID)
	assert.True(t, records[1].CreatedAt.IsZero())
	assert.Equal(t, domain.StoreTime(older), records[1].UpdatedAt)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_List_PermissionDenied(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).WillReturnError(&pq.Error{Code: "42501", Message: "permission denied for table breakdown_records"})

	_, err := store.List(context.Background())

	require.Error(t, err)
	assert.Equal(t, CodePermissionDenied, CodeOf(err))
	assert.True(t, errors.Is(err, ErrStoreRejected))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_List_ConnectionFailure(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).WillReturnError(&pq.Error{Code: "08006", Message: "connection failure"})

	_, err := store.List(context.Background())

	assert.True(t, errors.Is(err, ErrStoreUnavailable))
}

func TestPostgresStore_Create_ReturnsAssignedID(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	ts := time.Date(2024, 1, 10, 9, 0, 1, 0, time.UTC)
	mock.ExpectQuery(`INSERT INTO breakdown_records`).
		WithArgs("2024-01-01", "Adarsh", "General (8am-5pm)", "Pump", "Mechanical", "",
			2.5, "High", "", "", "2024-01-10T09:00:00Z").
		WillReturnRows(sqlmock.NewRows([]string{"id", "server_timestamp"}).AddRow("new-id", ts))

	created, err := store.Create(context.Background(), domain.BreakdownRecord{
		Date: "2024-01-01", Executive: "Adarsh", Shift: "General (8am-5pm)",
		Machine: "Pump", Category: "Mechanical", DelayTime: 2.5, Priority: domain.PriorityHigh,
	})

	require.NoError(t, err)
	assert.Equal(t, "new-id", created.ID)
	assert.Equal(t, domain.StoreTime(ts), created.Timestamp)
	assert.Equal(t, domain.RawTime("2024-01-10T09:00:00Z"), created.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Update_OnlySuppliedFields(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	machine := "Fan"
	delay := domain.Hours(3)
	mock.ExpectExec(`UPDATE breakdown_records SET machine = \$1, delay_time = \$2, updated_at = \$3 WHERE id = \$4`).
		WithArgs("Fan", 3.0, store.now().UTC(), "id-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Update(context.Background(), "id-1", domain.RecordPatch{Machine: &machine, DelayTime: &delay})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Update_NotFound(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE breakdown_records`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Update(context.Background(), "missing", domain.RecordPatch{})

	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestPostgresStore_Delete(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM breakdown_records WHERE id = \$1`).
		WithArgs("id-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM breakdown_records`).
		WithArgs("not-a-uuid").
		WillReturnError(&pq.Error{Code: "22P02"})

	require.NoError(t, store.Delete(context.Background(), "id-1"))
	err := store.Delete(context.Background(), "not-a-uuid")
	assert.Equal(t, CodeNotFound, CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_EnsureSchema(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS breakdown_records`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassifyPostgres_ContextDeadline(t *testing.T) {
	err := classifyPostgres("list", context.DeadlineExceeded)
	assert.Equal(t, CodeUnavailable, CodeOf(err))
	assert.Contains(t, err.Error(), "breakdownRecords list (unavailable)")
}
