package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/inodb/sgrna-check/internal/annotate"
	"github.com/inodb/sgrna-check/internal/duckdb"
	"github.com/inodb/sgrna-check/internal/output"
)

// combinedKey is the row holding the field-wise sum of all runs.
const combinedKey = "combined"

func newMergeCmd() *cobra.Command {
	var (
		dbPath string
		format string
	)

	cmd := &cobra.Command{
		Use:   "merge [summary-file...]",
		Short: "Combine run summaries",
		Long: `Read summary files written by "process" (or the run summaries stored in a
DuckDB file) and print every run together with their field-wise sum.`,
		Example: `  sgrna-check merge out/s1_summary.json out/s2_summary.yaml
  sgrna-check merge --duckdb runs.duckdb
  sgrna-check merge --format json out/*_summary.json > combined.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && dbPath == "" {
				return usageError{fmt.Errorf("need summary files or --duckdb")}
			}
			runs, err := collectSummaries(args, dbPath)
			if err != nil {
				return err
			}
			return writeMerged(cmd.OutOrStdout(), runs, format)
		},
	}

	cmd.Flags().StringVar(&dbPath, "duckdb", "", "read run summaries from this DuckDB file")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table, json, yaml")

	return cmd
}

// collectSummaries gathers runs from summary files and the store, both
// keyed by SAM path. A run seen twice is an error.
func collectSummaries(paths []string, dbPath string) (map[string]annotate.MatchSummary, error) {
	runs := make(map[string]annotate.MatchSummary)
	add := func(src string, m map[string]annotate.MatchSummary) error {
		for k, s := range m {
			if k == combinedKey {
				return fmt.Errorf("%s: run name %q is reserved for the merged total", src, combinedKey)
			}
			if _, dup := runs[k]; dup {
				return fmt.Errorf("run %q appears more than once (again in %s)", k, src)
			}
			runs[k] = s
		}
		return nil
	}

	for _, p := range paths {
		m, err := readSummaryFile(p)
		if err != nil {
			return nil, err
		}
		if err := add(p, m); err != nil {
			return nil, err
		}
	}

	if dbPath != "" {
		store, err := duckdb.Open(dbPath)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		m, err := store.Summaries()
		if err != nil {
			return nil, err
		}
		if err := add(dbPath, m); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func readSummaryFile(path string) (map[string]annotate.MatchSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := output.ReadSummary(f, output.FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func writeMerged(w io.Writer, runs map[string]annotate.MatchSummary, format string) error {
	var total annotate.MatchSummary
	for _, s := range runs {
		total = total.Add(s)
	}
	runs[combinedKey] = total

	if format == "table" {
		return output.WriteSummaryTable(w, runs)
	}
	f, err := output.ParseFormat(format)
	if err != nil {
		return usageError{err}
	}
	return output.WriteSummary(w, f, runs)
}
