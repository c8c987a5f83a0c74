// Package duckdb persists guide annotation results and run summaries in
// DuckDB, and caches parsed gene features as gob files.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection holding annotation results.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS alignment_results (
		sample VARCHAR,
		read_id VARCHAR,
		flag BIGINT,
		decoded_flag VARCHAR,
		chrom VARCHAR,
		pos BIGINT,
		mapq BIGINT,
		cigar VARCHAR,
		declared_gene VARCHAR,
		assigned_chrom VARCHAR,
		assigned_start BIGINT,
		assigned_stop BIGINT,
		assigned_gene VARCHAR
	)`); err != nil {
		return err
	}

	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS run_summaries (
		sample VARCHAR PRIMARY KEY,
		sam_path VARCHAR,
		sam_size BIGINT,
		sam_modtime TIMESTAMP,
		total BIGINT,
		unaligned BIGINT,
		aligned BIGINT,
		matched BIGINT,
		mismatched BIGINT,
		indel_affected BIGINT,
		unresolved BIGINT
	)`)
	return err
}
