package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sync"

	_ "modernc.org/sqlite"

	"snowball/internal/model"
)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode for better concurrent read performance (dashboards read while the roller writes).
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
		`CREATE TABLE IF NOT EXISTS roll_runs (
			id             TEXT PRIMARY KEY,
			kind           TEXT NOT NULL,
			started        INTEGER NOT NULL,
			finished       INTEGER NOT NULL,
			symbols_total  INTEGER,
			symbols_failed INTEGER,
			rows_appended  INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON roll_runs(started)`,

		`CREATE TABLE IF NOT EXISTS roll_results (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id   TEXT NOT NULL,
			symbol   TEXT NOT NULL,
			category TEXT,
			rows     INTEGER,
			error    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_run ON roll_results(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun writes the run row and all per-symbol results in one transaction.
func (r *SQLiteRecorder) RecordRun(summary *model.RunSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO roll_runs
		(id, kind, started, finished, symbols_total, symbols_failed, rows_appended)
		VALUES (?,?,?,?,?,?,?)`,
		summary.ID, string(summary.Kind),
		summary.Started.Unix(), summary.Finished.Unix(),
		len(summary.Results), len(summary.Failed()), summary.RowsAppended(),
	)
	if err != nil {
		return err
	}

	for _, res := range summary.Results {
		errText := ""
		if res.Err != nil {
			errText = res.Err.Error()
		}
		_, err = tx.Exec(`INSERT INTO roll_results (run_id, symbol, category, rows, error)
			VALUES (?,?,?,?,?)`,
			summary.ID, res.Symbol, res.Category, res.Rows, errText,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
