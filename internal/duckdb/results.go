package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/sgrna-check/internal/annotate"
)

// StoredResult is an annotated guide read back from the store.
type StoredResult struct {
	Sample string
	annotate.AnnotatedAlignment
}

// WriteResults replaces the stored guides of a sample using the Appender API.
// The old rows are kept if the new ones cannot be written.
func (s *Store) WriteResults(sample string, anns []annotate.AnnotatedAlignment) error {
	return s.inTx(func(conn *sql.Conn) error {
		return replaceResults(conn, sample, anns)
	})
}

// WriteRun replaces the stored guides and the summary of a sample in one
// transaction.
func (s *Store) WriteRun(sample string, sam FileFingerprint, anns []annotate.AnnotatedAlignment, sum annotate.MatchSummary) error {
	return s.inTx(func(conn *sql.Conn) error {
		if err := replaceResults(conn, sample, anns); err != nil {
			return err
		}
		return writeSummary(conn, sample, sam, sum)
	})
}

// inTx runs fn inside BEGIN/COMMIT on one connection, rolling back when fn
// fails. Appenders created on conn join the transaction.
func (s *Store) inTx(fn func(conn *sql.Conn) error) error {
	ctx := context.Background()
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN TRANSACTION"); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(conn); err != nil {
		if _, rbErr := conn.ExecContext(ctx, "ROLLBACK"); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func replaceResults(conn *sql.Conn, sample string, anns []annotate.AnnotatedAlignment) error {
	ctx := context.Background()
	if _, err := conn.ExecContext(ctx, "DELETE FROM alignment_results WHERE sample=?", sample); err != nil {
		return fmt.Errorf("clear sample results: %w", err)
	}
	if len(anns) == 0 {
		return nil
	}

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "alignment_results")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}

	for i := range anns {
		a := &anns[i]
		if err := appender.AppendRow(
			sample, a.ReadID, int64(a.Flag), a.DecodedFlag,
			a.Chrom, a.Pos, int64(a.MapQ), a.Cigar, a.DeclaredGene,
			a.Assigned.Chrom, a.Assigned.Start, a.Assigned.Stop, a.Assigned.Gene,
		); err != nil {
			appender.Close()
			return fmt.Errorf("append alignment result: %w", err)
		}
	}

	if err := appender.Close(); err != nil {
		return fmt.Errorf("flush alignment results: %w", err)
	}
	return nil
}

// ResultsByGene returns stored guides assigned to gene, across samples.
func (s *Store) ResultsByGene(gene string) ([]StoredResult, error) {
	rows, err := s.db.Query(`SELECT
		sample, read_id, flag, decoded_flag, chrom, pos, mapq, cigar, declared_gene,
		assigned_chrom, assigned_start, assigned_stop, assigned_gene
		FROM alignment_results
		WHERE assigned_gene=?
		ORDER BY sample, read_id`, gene)
	if err != nil {
		return nil, fmt.Errorf("query by gene: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

// MismatchedResults returns the stored guides of a sample whose assigned
// gene differs from the declared gene.
func (s *Store) MismatchedResults(sample string) ([]StoredResult, error) {
	rows, err := s.db.Query(`SELECT
		sample, read_id, flag, decoded_flag, chrom, pos, mapq, cigar, declared_gene,
		assigned_chrom, assigned_start, assigned_stop, assigned_gene
		FROM alignment_results
		WHERE sample=? AND declared_gene <> assigned_gene
		ORDER BY read_id`, sample)
	if err != nil {
		return nil, fmt.Errorf("query mismatches: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

func scanResults(rows *sql.Rows) ([]StoredResult, error) {
	var results []StoredResult
	for rows.Next() {
		var r StoredResult
		var flag, mapq int64
		if err := rows.Scan(
			&r.Sample, &r.ReadID, &flag, &r.DecodedFlag, &r.Chrom, &r.Pos, &mapq, &r.Cigar, &r.DeclaredGene,
			&r.Assigned.Chrom, &r.Assigned.Start, &r.Assigned.Stop, &r.Assigned.Gene,
		); err != nil {
			return nil, fmt.Errorf("scan alignment result: %w", err)
		}
		r.Flag = int(flag)
		r.MapQ = int(mapq)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alignment results: %w", err)
	}
	return results, nil
}
