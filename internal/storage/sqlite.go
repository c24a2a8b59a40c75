// Package storage persists decoded archive fetches in an embedded SQLite
// database, keyed by the deterministic fetch ID so repeat fetches overwrite
// instead of accumulating.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kitewatch/wind-archive/internal/domain"
)

// ErrNotFound is returned when no fetch with the given ID exists.
var ErrNotFound = errors.New("fetch not found")

const schema = `
CREATE TABLE IF NOT EXISTS fetches (
	id          TEXT PRIMARY KEY,
	spot_id     INTEGER NOT NULL,
	model_id    INTEGER NOT NULL,
	date_from   TEXT NOT NULL,
	date_to     TEXT NOT NULL,
	step_hours  INTEGER NOT NULL,
	point_count INTEGER NOT NULL,
	fetched_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS data_points (
	fetch_id    TEXT NOT NULL REFERENCES fetches(id) ON DELETE CASCADE,
	seq         INTEGER NOT NULL,
	date        TEXT NOT NULL,
	hour        INTEGER NOT NULL,
	ts          TEXT NOT NULL,
	wind_speed  REAL,
	wind_dir    INTEGER,
	temperature REAL,
	wind_gust   REAL,
	PRIMARY KEY (fetch_id, seq)
);
`

// Store is a SQLite-backed fetch store. Safe for concurrent use; SQLite
// serializes writers internally.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if necessary) the database at path and ensures the
// schema exists.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveDataset stores a fetch record and its points, replacing any previous
// fetch with the same ID.
func (s *Store) SaveDataset(ctx context.Context, record domain.FetchRecord, dataset domain.Dataset) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM data_points WHERE fetch_id = ?`, record.ID); err != nil {
		return fmt.Errorf("clear previous points: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO fetches (id, spot_id, model_id, date_from, date_to, step_hours, point_count, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			spot_id = excluded.spot_id,
			model_id = excluded.model_id,
			date_from = excluded.date_from,
			date_to = excluded.date_to,
			step_hours = excluded.step_hours,
			point_count = excluded.point_count,
			fetched_at = excluded.fetched_at`,
		record.ID, record.SpotID, record.ModelID,
		record.From.Format(time.RFC3339), record.To.Format(time.RFC3339),
		record.StepHours, dataset.Len(), record.FetchedAt.Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("upsert fetch record: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO data_points (fetch_id, seq, date, hour, ts, wind_speed, wind_dir, temperature, wind_gust)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare point insert: %w", err)
	}
	defer stmt.Close()

	for seq, p := range dataset.Points {
		if _, err := stmt.ExecContext(ctx,
			record.ID, seq,
			p.Date.Format(time.RFC3339), p.Hour, p.Timestamp.Format(time.RFC3339),
			p.WindSpeed, p.WindDir, p.Temperature, p.WindGust,
		); err != nil {
			return fmt.Errorf("insert point %d: %w", seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit fetch: %w", err)
	}

	s.logger.Debug("dataset stored", "fetch_id", record.ID, "points", dataset.Len())
	return nil
}

// GetDataset loads a stored fetch and its points in their original order.
func (s *Store) GetDataset(ctx context.Context, id string) (domain.FetchRecord, domain.Dataset, error) {
	record, err := s.getRecord(ctx, id)
	if err != nil {
		return domain.FetchRecord{}, domain.Dataset{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT date, hour, ts, wind_speed, wind_dir, temperature, wind_gust
		FROM data_points WHERE fetch_id = ? ORDER BY seq`, id)
	if err != nil {
		return domain.FetchRecord{}, domain.Dataset{}, fmt.Errorf("query points: %w", err)
	}
	defer rows.Close()

	dataset := domain.Dataset{
		SpotID:    record.SpotID,
		ModelID:   record.ModelID,
		StepHours: record.StepHours,
	}
	for rows.Next() {
		var (
			dateStr, tsStr string
			point          domain.DataPoint
		)
		if err := rows.Scan(&dateStr, &point.Hour, &tsStr,
			&point.WindSpeed, &point.WindDir, &point.Temperature, &point.WindGust); err != nil {
			return domain.FetchRecord{}, domain.Dataset{}, fmt.Errorf("scan point: %w", err)
		}
		if point.Date, err = time.Parse(time.RFC3339, dateStr); err != nil {
			return domain.FetchRecord{}, domain.Dataset{}, fmt.Errorf("parse point date: %w", err)
		}
		if point.Timestamp, err = time.Parse(time.RFC3339, tsStr); err != nil {
			return domain.FetchRecord{}, domain.Dataset{}, fmt.Errorf("parse point timestamp: %w", err)
		}
		dataset.Points = append(dataset.Points, point)
	}
	if err := rows.Err(); err != nil {
		return domain.FetchRecord{}, domain.Dataset{}, fmt.Errorf("iterate points: %w", err)
	}

	return record, dataset, nil
}

// ListFetches returns stored fetch records, most recent first.
func (s *Store) ListFetches(ctx context.Context) ([]domain.FetchRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, spot_id, model_id, date_from, date_to, step_hours, point_count, fetched_at
		FROM fetches ORDER BY fetched_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query fetches: %w", err)
	}
	defer rows.Close()

	var records []domain.FetchRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fetches: %w", err)
	}
	return records, nil
}

// DeleteFetch removes a stored fetch and its points.
func (s *Store) DeleteFetch(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM fetches WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete fetch: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) getRecord(ctx context.Context, id string) (domain.FetchRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, spot_id, model_id, date_from, date_to, step_hours, point_count, fetched_at
		FROM fetches WHERE id = ?`, id)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.FetchRecord{}, ErrNotFound
	}
	return record, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (domain.FetchRecord, error) {
	var (
		record             domain.FetchRecord
		fromStr, toStr, at string
	)
	if err := row.Scan(&record.ID, &record.SpotID, &record.ModelID,
		&fromStr, &toStr, &record.StepHours, &record.PointCount, &at); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.FetchRecord{}, err
		}
		return domain.FetchRecord{}, fmt.Errorf("scan fetch record: %w", err)
	}

	var err error
	if record.From, err = time.Parse(time.RFC3339, fromStr); err != nil {
		return domain.FetchRecord{}, fmt.Errorf("parse fetch range start: %w", err)
	}
	if record.To, err = time.Parse(time.RFC3339, toStr); err != nil {
		return domain.FetchRecord{}, fmt.Errorf("parse fetch range end: %w", err)
	}
	if record.FetchedAt, err = time.Parse(time.RFC3339, at); err != nil {
		return domain.FetchRecord{}, fmt.Errorf("parse fetch time: %w", err)
	}
	return record, nil
}
