package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"bfban-bot/internal/report"
)

var ErrNotFound = sql.ErrNoRows

// ReportRepo keeps an audit trail of reports the bot submitted successfully.
type ReportRepo struct{ DB *sql.DB }

func NewReportRepo(db *sql.DB) *ReportRepo { return &ReportRepo{DB: db} }

// SubmittedRow is one accepted report.
type SubmittedRow struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Target    string
	PID       int64
	Reporter  int64
	Origin    int64
	Game      string
	CaseURL   string
}

// EnsureSchema creates the audit table when it is missing.
func (r *ReportRepo) EnsureSchema(ctx context.Context) error {
	const q = `
create table if not exists submitted_reports (
  id uuid primary key,
  created_at timestamptz not null default now(),
  target text not null,
  pid bigint not null,
  reporter bigint not null,
  origin bigint not null,
  game text not null,
  case_url text not null
)`
	_, err := r.DB.ExecContext(ctx, q)
	return err
}

// RecordSubmission writes one accepted report.
func (r *ReportRepo) RecordSubmission(ctx context.Context, rec report.SubmissionRecord) error {
	const q = `
insert into submitted_reports (id, target, pid, reporter, origin, game, case_url)
values ($1,$2,$3,$4,$5,$6,$7)`
	_, err := r.DB.ExecContext(ctx, q,
		uuid.New(), rec.Target, rec.PID, rec.Reporter, rec.Origin, rec.Game, rec.CaseURL)
	return err
}

// RecentByTarget returns the newest submissions against one target,
// case-insensitively.
func (r *ReportRepo) RecentByTarget(ctx context.Context, target string, limit int) ([]SubmittedRow, error) {
	if limit <= 0 {
		limit = 10
	}
	const q = `
select id, created_at, target, pid, reporter, origin, game, case_url
from submitted_reports
where lower(target) = lower($1)
order by created_at desc
limit $2`
	rows, err := r.DB.QueryContext(ctx, q, target, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SubmittedRow
	for rows.Next() {
		var row SubmittedRow
		if err := rows.Scan(&row.ID, &row.CreatedAt, &row.Target, &row.PID,
			&row.Reporter, &row.Origin, &row.Game, &row.CaseURL); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// PurgeOlderThan drops ancient audit rows so the table stays small.
func (r *ReportRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, errors.New("olderThan must be > 0")
	}
	cutoff := time.Now().Add(-olderThan)
	const q = `delete from submitted_reports where created_at < $1`
	res, err := r.DB.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}
