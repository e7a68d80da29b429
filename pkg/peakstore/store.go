// Package peakstore persists peak tables and integration results in SQLite.
package peakstore

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"peakskew/internal/models"
	"peakskew/pkg/config"
	"peakskew/pkg/integration"
)

// ErrNotFound is returned when a peak table or run does not exist.
var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS peak_tables (
	name       TEXT PRIMARY KEY,
	instrument TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS peaks (
	table_name  TEXT NOT NULL REFERENCES peak_tables(name) ON DELETE CASCADE,
	row_index   INTEGER NOT NULL,
	detector_id INTEGER NOT NULL,
	bank_name   TEXT NOT NULL,
	det_row     INTEGER NOT NULL,
	det_col     INTEGER NOT NULL,
	tof         REAL NOT NULL,
	theta       REAL NOT NULL,
	wavelength  REAL NOT NULL,
	PRIMARY KEY (table_name, row_index)
);
CREATE TABLE IF NOT EXISTS runs (
	run_id       TEXT PRIMARY KEY,
	table_name   TEXT NOT NULL,
	instrument   TEXT NOT NULL,
	options_yaml TEXT NOT NULL,
	total        INTEGER NOT NULL,
	skipped      INTEGER NOT NULL,
	created_at   INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS results (
	run_id      TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	row_index   INTEGER NOT NULL,
	detector_id INTEGER NOT NULL,
	bank_name   TEXT NOT NULL,
	det_row     INTEGER NOT NULL,
	det_col     INTEGER NOT NULL,
	tof         REAL NOT NULL,
	theta       REAL NOT NULL,
	wavelength  REAL NOT NULL,
	intensity   REAL NOT NULL,
	sigma       REAL NOT NULL,
	status      TEXT NOT NULL,
	PRIMARY KEY (run_id, row_index)
);`

// Run describes one stored integration run.
type Run struct {
	ID          string
	TableName   string
	Instrument  string
	OptionsYAML string
	Total       int
	Skipped     int
	CreatedAt   time.Time
}

// Store provides persistence for peak tables and integration results.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open peak store: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	s, err := NewStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewStore wraps an open database and creates the schema if missing.
func NewStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create peak store schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SavePeakTable stores t under name, replacing any table of the same name.
func (s *Store) SavePeakTable(name string, t *models.PeakTable) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM peaks WHERE table_name = ?`, name); err != nil {
		return fmt.Errorf("clear peaks: %w", err)
	}
	if _, err := tx.Exec(`
		INSERT INTO peak_tables (name, instrument) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET instrument = excluded.instrument`, name, t.Instrument); err != nil {
		return fmt.Errorf("insert peak table: %w", err)
	}
	stmt, err := tx.Prepare(`
		INSERT INTO peaks (table_name, row_index, detector_id, bank_name, det_row, det_col, tof, theta, wavelength)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare peak insert: %w", err)
	}
	defer stmt.Close()
	for i, p := range t.Peaks {
		if _, err := stmt.Exec(name, i, p.DetectorID, p.BankName, p.Row, p.Col, p.TOF, p.Theta, p.Wavelength); err != nil {
			return fmt.Errorf("insert peak %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// LoadPeakTable returns the table stored under name.
func (s *Store) LoadPeakTable(name string) (*models.PeakTable, error) {
	t := &models.PeakTable{}
	err := s.db.QueryRow(`SELECT instrument FROM peak_tables WHERE name = ?`, name).Scan(&t.Instrument)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("peak table %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query peak table: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT detector_id, bank_name, det_row, det_col, tof, theta, wavelength
		FROM peaks
		WHERE table_name = ?
		ORDER BY row_index`, name)
	if err != nil {
		return nil, fmt.Errorf("query peaks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Peak
		if err := rows.Scan(&p.DetectorID, &p.BankName, &p.Row, &p.Col, &p.TOF, &p.Theta, &p.Wavelength); err != nil {
			return nil, fmt.Errorf("scan peak: %w", err)
		}
		t.Peaks = append(t.Peaks, p)
	}
	return t, rows.Err()
}

// SaveResults records an integration run of the named table with the
// options it used, and returns the generated run ID. Each result is stored
// under its input row, so it joins back to the peaks of the table.
func (s *Store) SaveResults(tableName string, opts *config.Options, res *integration.Result) (string, error) {
	if len(res.InputRows) != res.Peaks.Len() {
		return "", fmt.Errorf("result has %d peaks but %d input rows", res.Peaks.Len(), len(res.InputRows))
	}
	optsYAML, err := opts.Marshal()
	if err != nil {
		return "", err
	}
	runID := uuid.New().String()

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO runs (run_id, table_name, instrument, options_yaml, total, skipped, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, tableName, res.Peaks.Instrument, string(optsYAML),
		res.Summary.Total, res.Summary.Skipped, time.Now().UnixNano()); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	stmt, err := tx.Prepare(`
		INSERT INTO results (run_id, row_index, detector_id, bank_name, det_row, det_col, tof, theta, wavelength, intensity, sigma, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare result insert: %w", err)
	}
	defer stmt.Close()
	for i, p := range res.Peaks.Peaks {
		if _, err := stmt.Exec(runID, res.InputRows[i], p.DetectorID, p.BankName, p.Row, p.Col, p.TOF, p.Theta, p.Wavelength,
			p.Intensity, p.Sigma, p.Status.String()); err != nil {
			return "", fmt.Errorf("insert result for row %d: %w", res.InputRows[i], err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit run: %w", err)
	}
	return runID, nil
}

// Run returns the metadata of a stored run.
func (s *Store) Run(runID string) (*Run, error) {
	r := &Run{}
	var created int64
	err := s.db.QueryRow(`
		SELECT run_id, table_name, instrument, options_yaml, total, skipped, created_at
		FROM runs
		WHERE run_id = ?`, runID).Scan(&r.ID, &r.TableName, &r.Instrument, &r.OptionsYAML, &r.Total, &r.Skipped, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	r.CreatedAt = time.Unix(0, created)
	return r, nil
}

// Results returns the integrated peaks of a run in output order, with the
// input row of each and the run totals.
func (s *Store) Results(runID string) (*integration.Result, error) {
	run, err := s.Run(runID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
		SELECT row_index, detector_id, bank_name, det_row, det_col, tof, theta, wavelength, intensity, sigma, status
		FROM results
		WHERE run_id = ?
		ORDER BY row_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	res := &integration.Result{
		Peaks: &models.PeakTable{Instrument: run.Instrument},
		Summary: integration.Summary{
			Total:    run.Total,
			Skipped:  run.Skipped,
			ByStatus: make(map[models.Status]int),
		},
	}
	for rows.Next() {
		var p models.Peak
		var row int
		var status string
		if err := rows.Scan(&row, &p.DetectorID, &p.BankName, &p.Row, &p.Col, &p.TOF, &p.Theta, &p.Wavelength,
			&p.Intensity, &p.Sigma, &status); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		st, ok := models.ParseStatus(status)
		if !ok {
			return nil, fmt.Errorf("run %s: unknown status %q", runID, status)
		}
		p.Status = st
		res.Peaks.Peaks = append(res.Peaks.Peaks, p)
		res.InputRows = append(res.InputRows, row)
		res.Summary.ByStatus[st]++
	}
	return res, rows.Err()
}
