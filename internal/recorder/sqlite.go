package recorder

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"CoinForecast/internal/model"
)

// SQLiteRecorder persists run audit records to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the HTTP API read while a scheduled run writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp       INTEGER NOT NULL,
			coin_id         TEXT NOT NULL,
			currency        TEXT NOT NULL,
			price           REAL,
			price_source    TEXT,
			fetch_error     TEXT,
			output_path     TEXT,
			history_points  INTEGER,
			history_first   REAL,
			history_last    REAL,
			history_mean    REAL,
			history_stddev  REAL,
			history_min     REAL,
			history_max     REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ts ON runs(timestamp)`,

		`CREATE TABLE IF NOT EXISTS horizon_summaries (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id   INTEGER NOT NULL REFERENCES runs(id),
			horizon  TEXT NOT NULL,
			points   INTEGER,
			first    REAL,
			last     REAL,
			mean     REAL,
			stddev   REAL,
			min      REAL,
			max      REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_horizon_run ON horizon_summaries(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRun(evt *RunEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := evt.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	h := evt.History
	res, err := tx.Exec(`INSERT INTO runs
		(timestamp, coin_id, currency, price, price_source, fetch_error, output_path,
		 history_points, history_first, history_last, history_mean, history_stddev, history_min, history_max)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		ts.Unix(), evt.CoinID, evt.Currency, evt.Price, evt.PriceSource, evt.FetchError, evt.OutputPath,
		h.Points, h.First, h.Last, h.Mean, h.StdDev, h.Min, h.Max,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("run id: %w", err)
	}

	for _, hz := range model.Horizons {
		s, ok := evt.Horizons[hz]
		if !ok {
			continue
		}
		if _, err := tx.Exec(`INSERT INTO horizon_summaries
			(run_id, horizon, points, first, last, mean, stddev, min, max)
			VALUES (?,?,?,?,?,?,?,?,?)`,
			runID, string(hz), s.Points, s.First, s.Last, s.Mean, s.StdDev, s.Min, s.Max,
		); err != nil {
			return fmt.Errorf("insert %s summary: %w", hz, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	evt.ID = runID
	return nil
}

func (r *SQLiteRecorder) LatestRun() (*RunEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		evt RunEvent
		ts  int64
		h   = &evt.History
	)
	err := r.db.QueryRow(`SELECT id, timestamp, coin_id, currency, price, price_source, fetch_error, output_path,
		history_points, history_first, history_last, history_mean, history_stddev, history_min, history_max
		FROM runs ORDER BY id DESC LIMIT 1`).Scan(
		&evt.ID, &ts, &evt.CoinID, &evt.Currency, &evt.Price, &evt.PriceSource, &evt.FetchError, &evt.OutputPath,
		&h.Points, &h.First, &h.Last, &h.Mean, &h.StdDev, &h.Min, &h.Max,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, fmt.Errorf("query latest run: %w", err)
	}
	evt.Timestamp = time.Unix(ts, 0)

	rows, err := r.db.Query(`SELECT horizon, points, first, last, mean, stddev, min, max
		FROM horizon_summaries WHERE run_id = ?`, evt.ID)
	if err != nil {
		return nil, fmt.Errorf("query horizon summaries: %w", err)
	}
	defer rows.Close()

	evt.Horizons = make(map[model.Horizon]model.SeriesSummary)
	for rows.Next() {
		var (
			hz string
			s  model.SeriesSummary
		)
		if err := rows.Scan(&hz, &s.Points, &s.First, &s.Last, &s.Mean, &s.StdDev, &s.Min, &s.Max); err != nil {
			return nil, fmt.Errorf("scan horizon summary: %w", err)
		}
		evt.Horizons[model.Horizon(hz)] = s
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate horizon summaries: %w", err)
	}
	return &evt, nil
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
