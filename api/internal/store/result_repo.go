package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/marshmallow3210/patent-drawing-parser/api/internal/pipeline"
)

var ErrNotFound = sql.ErrNoRows

const schema = `
create table if not exists extraction_results (
  id            bigserial primary key,
  created_at    timestamptz not null default now(),
  doc_hash      text not null,
  engine        text not null,
  model         text not null,
  pages         text not null,
  show_rotation boolean not null default false,
  run_id        text not null default '',
  result_json   jsonb not null,
  unique (doc_hash, engine, model, pages, show_rotation)
)`

// ResultKey identifies one extraction: the same document, engine, model and
// page selection always produce the same records.
type ResultKey struct {
	DocHash      string
	Engine       string
	Model        string
	Pages        string
	ShowRotation bool
}

type ResultRow struct {
	ID        int64
	CreatedAt time.Time
	RunID     string
	Key       ResultKey
	Records   []pipeline.Record
}

type ResultRepo struct{ DB *sql.DB }

func NewResultRepo(db *sql.DB) *ResultRepo { return &ResultRepo{DB: db} }

// EnsureSchema creates the cache table if it does not exist yet.
func (r *ResultRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, schema)
	return err
}

// Find returns the cached records for key. If maxAge > 0 and the row is
// older, ErrNotFound is returned so the caller runs the pipeline again.
func (r *ResultRepo) Find(ctx context.Context, key ResultKey, maxAge time.Duration) (*ResultRow, error) {
	const q = `
select id, created_at, run_id, result_json
from extraction_results
where doc_hash = $1 and engine = $2 and model = $3 and pages = $4 and show_rotation = $5`

	var (
		row ResultRow
		js  []byte
	)

	err := r.DB.QueryRowContext(ctx, q, key.DocHash, key.Engine, key.Model, key.Pages, key.ShowRotation).
		Scan(&row.ID, &row.CreatedAt, &row.RunID, &js)
	if err != nil {
		return nil, err
	}

	if maxAge > 0 && time.Since(row.CreatedAt) > maxAge {
		return nil, ErrNotFound
	}

	if err := json.Unmarshal(js, &row.Records); err != nil {
		// an unreadable row counts as a miss
		return nil, ErrNotFound
	}

	row.Key = key
	return &row, nil
}

// Upsert stores records, replacing any row with the same key.
func (r *ResultRepo) Upsert(ctx context.Context, key ResultKey, runID string, records []pipeline.Record) error {
	if records == nil {
		records = []pipeline.Record{}
	}

	js, err := json.Marshal(records)
	if err != nil {
		return err
	}

	const q = `
insert into extraction_results (doc_hash, engine, model, pages, show_rotation, run_id, result_json)
values ($1,$2,$3,$4,$5,$6,$7)
on conflict (doc_hash, engine, model, pages, show_rotation) do update
set run_id = excluded.run_id,
    result_json = excluded.result_json,
    created_at = now()`

	_, err = r.DB.ExecContext(ctx, q, key.DocHash, key.Engine, key.Model, key.Pages, key.ShowRotation, runID, js)
	return err
}

// PurgeOlderThan deletes rows created before now-olderThan.
func (r *ResultRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, errors.New("olderThan must be > 0")
	}
	cutoff := time.Now().Add(-olderThan)
	const q = `delete from extraction_results where created_at < $1`
	res, err := r.DB.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}
