package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Avicted/aicall/internal/callrecord"
)

const callRecordColumns = `id, call_id, user_id, call_type, started_at, ended_at, end_reason, utterances, messages`

type callRecordRepo struct {
	db *sql.DB
}

func (r *callRecordRepo) Save(ctx context.Context, rec callrecord.Record) error {
	if rec.ID == "" || rec.CallID == "" || rec.UserID == "" || rec.StartedAt.IsZero() || rec.EndedAt.IsZero() {
		return fmt.Errorf("id, call_id, user_id, started_at, and ended_at are required")
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO call_sessions (`+callRecordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.CallID, rec.UserID, rec.CallType, rec.StartedAt, rec.EndedAt, rec.EndReason, rec.Utterances, rec.Messages)
	if err != nil {
		return fmt.Errorf("insert call session: %w", err)
	}
	return nil
}

func (r *callRecordRepo) GetByID(ctx context.Context, id callrecord.ID) (callrecord.Record, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+callRecordColumns+` FROM call_sessions WHERE id = $1`, id)
	rec, err := scanCallRecord(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return callrecord.Record{}, ErrNotFound
		}
		return callrecord.Record{}, fmt.Errorf("select call session: %w", err)
	}
	return rec, nil
}

func (r *callRecordRepo) ListRecent(ctx context.Context, limit int) ([]callrecord.Record, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+callRecordColumns+` FROM call_sessions
		ORDER BY ended_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list call sessions: %w", err)
	}
	return collectCallRecords(rows)
}

func (r *callRecordRepo) ListByUser(ctx context.Context, userID string, limit int) ([]callrecord.Record, error) {
	if userID == "" || limit <= 0 {
		return nil, fmt.Errorf("user id and positive limit are required")
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+callRecordColumns+` FROM call_sessions
		WHERE user_id = $1 ORDER BY ended_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list call sessions by user: %w", err)
	}
	return collectCallRecords(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCallRecord(row rowScanner) (callrecord.Record, error) {
	var rec callrecord.Record
	err := row.Scan(&rec.ID, &rec.CallID, &rec.UserID, &rec.CallType, &rec.StartedAt, &rec.EndedAt,
		&rec.EndReason, &rec.Utterances, &rec.Messages)
	return rec, err
}

func collectCallRecords(rows *sql.Rows) ([]callrecord.Record, error) {
	defer rows.Close()
	var out []callrecord.Record
	for rows.Next() {
		rec, err := scanCallRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan call session: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate call sessions: %w", err)
	}
	return out, nil
}
