// Package metrics provides an SQLite based metrics database.
//
// Stored metrics are read back as labeled series ready for outlier
// detection, and detected outliers are recorded next to them.
package metrics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ardanlabs/hampel/hampel"
)

const (
	insertSQL = `
INSERT OR REPLACE INTO metrics (
	time, name, value
) VALUES (
	?, ?, ?
)
`

	schemaSQL = `
CREATE TABLE IF NOT EXISTS metrics (
    time TIMESTAMP,
    name VARCHAR(64),
    value FLOAT
);

CREATE INDEX IF NOT EXISTS metrics_time ON metrics(time);
CREATE UNIQUE INDEX IF NOT EXISTS metrics_name_time ON metrics(name, time);

CREATE TABLE IF NOT EXISTS outliers (
    time TIMESTAMP,
    name VARCHAR(64),
    window_size INTEGER,
    n_sigma FLOAT,
    c FLOAT
);

CREATE INDEX IF NOT EXISTS outliers_name ON outliers(name);
`

	seriesSQL = `
SELECT time, value FROM metrics WHERE name = ? ORDER BY time, rowid
`

	namesSQL = `
SELECT DISTINCT name FROM metrics ORDER BY name
`

	deleteOutliersSQL = `
DELETE FROM outliers WHERE name = ?
`

	insertOutlierSQL = `
INSERT INTO outliers (
	time, name, window_size, n_sigma, c
) VALUES (
	?, ?, ?, ?, ?
)
`

	outliersSQL = `
SELECT time FROM outliers WHERE name = ? ORDER BY time
`
)

// bufferSize is the number of metrics kept in memory before a flush.
const bufferSize = 1024

// Metric is a single named measurement.
type Metric struct {
	Time  time.Time `json:"time"`
	Name  string    `json:"name"`
	Value float64   `json:"value"`
}

// DB is a database of metrics, it is safe for concurrent use.
type DB struct {
	mu     sync.Mutex
	sql    *sql.DB
	stmt   *sql.Stmt
	buffer []Metric
}

// NewDB constructs a DB value for managing metrics in a SQLite database.
// Tables are created if they don't exist.
func NewDB(dbFile string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite3", dbFile)
	if err != nil {
		return nil, err
	}

	if _, err = sqlDB.Exec(schemaSQL); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("unable to create schema: %w", err)
	}

	stmt, err := sqlDB.Prepare(insertSQL)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}

	db := DB{
		sql:    sqlDB,
		stmt:   stmt,
		buffer: make([]Metric, 0, bufferSize),
	}
	return &db, nil
}

// Add stores a metric into the buffer. Once the buffer is full, the
// metrics are flushed to the database. A metric with the name and time of a
// stored one replaces it.
func (db *DB) Add(m Metric) error {
	if m.Name == "" {
		return errors.New("metric without a name")
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if len(db.buffer) == cap(db.buffer) {
		return errors.New("metrics buffer is full")
	}

	db.buffer = append(db.buffer, m)
	if len(db.buffer) == cap(db.buffer) {
		if err := db.flush(); err != nil {
			return fmt.Errorf("unable to flush metrics: %w", err)
		}
	}

	return nil
}

// Flush inserts pending metrics into the database.
func (db *DB) Flush() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.flush()
}

func (db *DB) flush() error {
	if len(db.buffer) == 0 {
		return nil
	}

	tx, err := db.sql.Begin()
	if err != nil {
		return err
	}

	stmt := tx.Stmt(db.stmt)
	for _, m := range db.buffer {
		if _, err := stmt.Exec(m.Time.UTC(), m.Name, m.Value); err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	db.buffer = db.buffer[:0]
	return nil
}

// Series returns the values of name ordered by time, labeled with their time.
// Pending metrics are flushed first.
func (db *DB) Series(ctx context.Context, name string) (hampel.Labeled[time.Time], error) {
	var s hampel.Labeled[time.Time]

	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.flush(); err != nil {
		return s, fmt.Errorf("unable to flush metrics: %w", err)
	}

	rows, err := db.sql.QueryContext(ctx, seriesSQL, name)
	if err != nil {
		return s, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			t time.Time
			v float64
		)
		if err := rows.Scan(&t, &v); err != nil {
			return s, err
		}
		s.Index = append(s.Index, t)
		s.Values = append(s.Values, v)
	}

	return s, rows.Err()
}

// Names returns the distinct metric names.
func (db *DB) Names(ctx context.Context) ([]string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.flush(); err != nil {
		return nil, fmt.Errorf("unable to flush metrics: %w", err)
	}

	rows, err := db.sql.QueryContext(ctx, namesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}

	return names, rows.Err()
}

// SaveOutliers replaces the recorded outliers of name with times, detected
// with p.
func (db *DB) SaveOutliers(ctx context.Context, name string, times []time.Time, p hampel.Params) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, deleteOutliersSQL, name); err != nil {
		tx.Rollback()
		return err
	}

	for _, t := range times {
		_, err := tx.ExecContext(ctx, insertOutlierSQL, t.UTC(), name, p.WindowSize, p.NSigma, p.C)
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// Outliers returns the recorded outlier times of name.
func (db *DB) Outliers(ctx context.Context, name string) ([]time.Time, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rows, err := db.sql.QueryContext(ctx, outliersSQL, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		times = append(times, t)
	}

	return times, rows.Err()
}

// Close flushes all metrics to the database and prevents any future use.
func (db *DB) Close() (err error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	defer func() {
		if cerr := db.sql.Close(); cerr != nil {
			err = cerr
		}
	}()

	defer func() {
		if serr := db.stmt.Close(); serr != nil {
			err = serr
		}
	}()

	if err := db.flush(); err != nil {
		return err
	}

	return nil
}
