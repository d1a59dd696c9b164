package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/i474232898/macro-heatmap/internal/macro"
)

// Archive persists the last published set of observations so a restart can
// serve a grid while every upstream source is unreachable.
type Archive struct {
	db *sql.DB
}

func New(path string) (*Archive, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	archive := &Archive{db: db}
	if err := archive.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return archive, nil
}

func (a *Archive) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

// SaveObservations replaces the archived set wholesale.
func (a *Archive) SaveObservations(ctx context.Context, snapshotID string, observations []macro.Observation) error {
	if len(observations) == 0 {
		return nil
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM observations`); err != nil {
		_ = tx.Rollback()
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO observations (indicator, observed_at, value)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, observation := range observations {
		_, err = stmt.ExecContext(
			ctx,
			observation.Indicator,
			observation.Timestamp.UTC().Format(time.RFC3339),
			observation.Value,
		)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots (id, saved_at, observation_count)
		VALUES (?, ?, ?)
	`, snapshotID, time.Now().UTC().Format(time.RFC3339), len(observations))
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

// LoadObservations returns the archived set as raw rows so it goes through
// the same ingestion rules as live data.
func (a *Archive) LoadObservations(ctx context.Context) ([]macro.RawRow, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT indicator, observed_at, value
		FROM observations
		ORDER BY indicator, observed_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]macro.RawRow, 0)
	for rows.Next() {
		var (
			indicator  string
			observedAt string
			value      float64
		)
		if err := rows.Scan(&indicator, &observedAt, &value); err != nil {
			return nil, err
		}
		results = append(results, macro.RawRow{
			Indicator: indicator,
			Date:      observedAt,
			Value:     strconv.FormatFloat(value, 'g', -1, 64),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// LastSnapshotID returns the id of the most recently archived snapshot.
func (a *Archive) LastSnapshotID(ctx context.Context) (string, error) {
	var id string
	err := a.db.QueryRowContext(ctx, `
		SELECT id FROM snapshots ORDER BY saved_at DESC, rowid DESC LIMIT 1
	`).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return id, err
}

func (a *Archive) migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS observations (
			indicator TEXT NOT NULL,
			observed_at TEXT NOT NULL,
			value REAL NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS observations_indicator_idx ON observations (indicator, observed_at);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			id TEXT PRIMARY KEY,
			saved_at TEXT NOT NULL,
			observation_count INTEGER NOT NULL
		);`,
	}

	for _, statement := range statements {
		if _, err := a.db.Exec(statement); err != nil {
			return err
		}
	}

	return nil
}
