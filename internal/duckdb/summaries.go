package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/inodb/sgrna-check/internal/annotate"
)

// WriteSummary stores the summary of a sample run, replacing any earlier run.
func (s *Store) WriteSummary(sample string, sam FileFingerprint, sum annotate.MatchSummary) error {
	return writeSummary(s.db, sample, sam, sum)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func writeSummary(db execer, sample string, sam FileFingerprint, sum annotate.MatchSummary) error {
	_, err := db.ExecContext(context.Background(),
		`INSERT OR REPLACE INTO run_summaries VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sample, sam.Path, sam.Size, sam.ModTime,
		int64(sum.Total), int64(sum.Unaligned), int64(sum.Aligned),
		int64(sum.Matched), int64(sum.Mismatched), int64(sum.IndelAffected), int64(sum.Unresolved))
	if err != nil {
		return fmt.Errorf("write run summary: %w", err)
	}
	return nil
}

// SummaryFor returns the stored summary of a sample.
// ok is false when the sample has not been stored.
func (s *Store) SummaryFor(sample string) (sum annotate.MatchSummary, ok bool, err error) {
	row := s.db.QueryRow(`SELECT total, unaligned, aligned, matched, mismatched, indel_affected, unresolved
		FROM run_summaries WHERE sample=?`, sample)
	if err := row.Scan(&sum.Total, &sum.Unaligned, &sum.Aligned,
		&sum.Matched, &sum.Mismatched, &sum.IndelAffected, &sum.Unresolved); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return annotate.MatchSummary{}, false, nil
		}
		return annotate.MatchSummary{}, false, fmt.Errorf("query run summary: %w", err)
	}
	return sum, true, nil
}

// Summaries returns all stored summaries keyed by SAM path, the same run
// key summary files use. Two samples stored from one SAM path are an error.
func (s *Store) Summaries() (map[string]annotate.MatchSummary, error) {
	rows, err := s.db.Query(`SELECT sample, sam_path, total, unaligned, aligned, matched, mismatched, indel_affected, unresolved
		FROM run_summaries ORDER BY sample`)
	if err != nil {
		return nil, fmt.Errorf("query run summaries: %w", err)
	}
	defer rows.Close()

	out := make(map[string]annotate.MatchSummary)
	samples := make(map[string]string)
	for rows.Next() {
		var sample, samPath string
		var sum annotate.MatchSummary
		if err := rows.Scan(&sample, &samPath, &sum.Total, &sum.Unaligned, &sum.Aligned,
			&sum.Matched, &sum.Mismatched, &sum.IndelAffected, &sum.Unresolved); err != nil {
			return nil, fmt.Errorf("scan run summary: %w", err)
		}
		if prev, dup := samples[samPath]; dup {
			return nil, fmt.Errorf("run %q stored for samples %q and %q", samPath, prev, sample)
		}
		samples[samPath] = sample
		out[samPath] = sum
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run summaries: %w", err)
	}
	return out, nil
}
