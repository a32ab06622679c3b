package recordstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/domain"

	"github.com/lib/pq"
)

// PostgresStore Record Store 的 PostgreSQL 实现
// 每个集合对应一张表，文档字段平铺为列
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresStore 创建 PostgreSQL Record Store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

// 确保实现了接口
var _ Store = (*PostgresStore)(nil)

const schemaDDL = `
	CREATE TABLE IF NOT EXISTS breakdown_records (
		id               UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		date             TEXT NOT NULL,
		executive        TEXT NOT NULL,
		shift            TEXT NOT NULL,
		machine          TEXT NOT NULL,
		category         TEXT NOT NULL,
		description      TEXT NOT NULL DEFAULT '',
		delay_time       DOUBLE PRECISION NOT NULL DEFAULT 0,
		priority         TEXT NOT NULL,
		spare_parts      TEXT NOT NULL DEFAULT '',
		resolution       TEXT NOT NULL DEFAULT '',
		server_timestamp TIMESTAMPTZ NOT NULL DEFAULT now(),
		created_at       TEXT,
		updated_at       TIMESTAMPTZ
	);
	CREATE INDEX IF NOT EXISTS idx_breakdown_records_ts ON breakdown_records (server_timestamp DESC);
`

// EnsureSchema 创建表和索引（幂等）
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaDDL); err != nil {
		return classifyPostgres("schema", err)
	}
	return nil
}

// List 按 server_timestamp 倒序查询全部记录
func (s *PostgresStore) List(ctx context.Context) ([]domain.BreakdownRecord, error) {
	query := `
		SELECT
			id::text,
			date,
			executive,
			shift,
			machine,
			category,
			description,
			delay_time,
			priority,
			spare_parts,
			resolution,
			server_timestamp,
			created_at,
			updated_at
		FROM breakdown_records
		ORDER BY server_timestamp DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, classifyPostgres("list", err)
	}
	defer rows.Close()

	records := []domain.BreakdownRecord{}
	for rows.Next() {
		var (
			r         domain.BreakdownRecord
			delay     float64
			priority  string
			ts        time.Time
			createdAt sql.NullString
			updatedAt sql.NullTime
		)
		if err := rows.Scan(
			&r.ID,
			&r.Date,
			&r.Executive,
			&r.Shift,
			&r.Machine,
			&r.Category,
			&r.Description,
			&delay,
			&priority,
			&r.SpareParts,
			&r.Resolution,
			&ts,
			&createdAt,
			&updatedAt,
		); err != nil {
			return nil, classifyPostgres("list", fmt.Errorf("failed to scan record: %w", err))
		}
		r.DelayTime = domain.Hours(delay)
		r.Priority = domain.Priority(priority)
		r.Timestamp = domain.StoreTime(ts.UTC())
		if createdAt.Valid {
			r.CreatedAt = domain.RawTime(createdAt.String)
		}
		if updatedAt.Valid {
			r.UpdatedAt = domain.StoreTime(updatedAt.Time.UTC())
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyPostgres("list", err)
	}

	return records, nil
}

// Create 插入记录，id 和 server_timestamp 由数据库分配
func (s *PostgresStore) Create(ctx context.Context, record domain.BreakdownRecord) (domain.BreakdownRecord, error) {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = domain.RawTime(s.now().UTC().Format(time.RFC3339Nano))
	}

	query := `
		INSERT INTO breakdown_records (
			date, executive, shift, machine, category, description,
			delay_time, priority, spare_parts, resolution, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id::text, server_timestamp
	`

	var ts time.Time
	err := s.db.QueryRowContext(ctx, query,
		record.Date,
		record.Executive,
		record.Shift,
		record.Machine,
		record.Category,
		record.Description,
		float64(record.DelayTime),
		string(record.Priority),
		record.SpareParts,
		record.Resolution,
		record.CreatedAt.Raw,
	).Scan(&record.ID, &ts)
	if err != nil {
		return domain.BreakdownRecord{}, classifyPostgres("create", err)
	}

	record.Timestamp = domain.StoreTime(ts.UTC())
	return record, nil
}

// Update 只更新 patch 中提交的字段，并刷新 updated_at
func (s *PostgresStore) Update(ctx context.Context, id string, patch domain.RecordPatch) error {
	sets := []string{}
	args := []any{}
	argIdx := 1

	add := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}
	if patch.Date != nil {
		add("date", *patch.Date)
	}
	if patch.Executive != nil {
		add("executive", *patch.Executive)
	}
	if patch.Shift != nil {
		add("shift", *patch.Shift)
	}
	if patch.Machine != nil {
		add("machine", *patch.Machine)
	}
	if patch.Category != nil {
		add("category", *patch.Category)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.DelayTime != nil {
		add("delay_time", float64(*patch.DelayTime))
	}
	if patch.Priority != nil {
		add("priority", string(*patch.Priority))
	}
	if patch.SpareParts != nil {
		add("spare_parts", *patch.SpareParts)
	}
	if patch.Resolution != nil {
		add("resolution", *patch.Resolution)
	}
	add("updated_at", s.now().UTC())

	query := fmt.Sprintf(`UPDATE breakdown_records SET %s WHERE id = $%d`, strings.Join(sets, ", "), argIdx)
	args = append(args, id)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return classifyPostgres("update", err)
	}
	return checkAffected("update", id, result)
}

// Delete 删除记录
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM breakdown_records WHERE id = $1`, id)
	if err != nil {
		return classifyPostgres("delete", err)
	}
	return checkAffected("delete", id, result)
}

func checkAffected(op, id string, result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return classifyPostgres(op, err)
	}
	if n == 0 {
		return newStoreError(op, CodeNotFound, fmt.Errorf("no document with id %s", id))
	}
	return nil
}

// classifyPostgres 将 lib/pq / 连接错误映射为存储层错误码
func classifyPostgres(op string, err error) error {
	var pqErr *pq.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return newStoreError(op, CodeUnavailable, err)
	case errors.As(err, &pqErr):
		switch {
		case pqErr.Code == "42501": // insufficient_privilege
			return newStoreError(op, CodePermissionDenied, err)
		case pqErr.Code == "22P02": // invalid_text_representation: 非法 uuid 视为不存在
			return newStoreError(op, CodeNotFound, err)
		case pqErr.Code.Class() == "08", pqErr.Code.Class() == "57", pqErr.Code.Class() == "53":
			return newStoreError(op, CodeUnavailable, err)
		case pqErr.Code.Class() == "22", pqErr.Code.Class() == "23":
			return newStoreError(op, CodeInvalidArgument, err)
		}
		return newStoreError(op, CodeUnknown, err)
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, sql.ErrConnDone):
		return newStoreError(op, CodeUnavailable, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return newStoreError(op, CodeUnavailable, err)
	}
	return newStoreError(op, CodeUnknown, err)
}
