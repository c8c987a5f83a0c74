package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/inodb/sgrna-check/internal/annotate"
)

// ErrUnknownFormat is returned for an unsupported summary format name.
var ErrUnknownFormat = errors.New("unknown summary format")

// Format is a summary serialization format.
type Format string

// Supported summary formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// FormatForPath picks the format matching a file extension, JSON by default.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Ext returns the file extension for the format, including the dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// summaryRecord is the on-disk form of a MatchSummary.
type summaryRecord struct {
	Total         int `json:"Number of total gRNA" yaml:"Number of total gRNA"`
	Unaligned     int `json:"Number of unaligned gRNA" yaml:"Number of unaligned gRNA"`
	Aligned       int `json:"Number of total aligned gRNA" yaml:"Number of total aligned gRNA"`
	Matched       int `json:"Number of gRNA with correct annotations" yaml:"Number of gRNA with correct annotations"`
	Mismatched    int `json:"Number of gRNA with in-correct annotations" yaml:"Number of gRNA with in-correct annotations"`
	IndelAffected int `json:"Number of matches with indels/mismatches" yaml:"Number of matches with indels/mismatches"`
	Unresolved    int `json:"Number of gRNA on unannotated chromosomes" yaml:"Number of gRNA on unannotated chromosomes"`
}

// WriteSummary writes summaries keyed by run (usually the SAM path).
func WriteSummary(w io.Writer, format Format, summaries map[string]annotate.MatchSummary) error {
	records := make(map[string]summaryRecord, len(summaries))
	for k, s := range summaries {
		records[k] = summaryRecord(s)
	}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// ReadSummary reads summaries written by WriteSummary.
func ReadSummary(r io.Reader, format Format) (map[string]annotate.MatchSummary, error) {
	var records map[string]summaryRecord

	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&records); err != nil {
			return nil, fmt.Errorf("decode summary: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&records); err != nil {
			return nil, fmt.Errorf("decode summary: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	summaries := make(map[string]annotate.MatchSummary, len(records))
	for k, rec := range records {
		summaries[k] = annotate.MatchSummary(rec)
	}
	return summaries, nil
}

// WriteSummaryTable prints summaries as an aligned human-readable table,
// one row per run in sorted order.
func WriteSummaryTable(w io.Writer, summaries map[string]annotate.MatchSummary) error {
	keys := make([]string, 0, len(summaries))
	for k := range summaries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Run\tTotal\tUnaligned\tAligned\tMatched\tMismatched\tIndel\tUnresolved\tMatch%")
	for _, k := range keys {
		s := summaries[k]
		rate := float64(0)
		if s.Aligned > 0 {
			rate = float64(s.Matched) / float64(s.Aligned) * 100
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%.1f\n",
			k, s.Total, s.Unaligned, s.Aligned, s.Matched, s.Mismatched, s.IndelAffected, s.Unresolved, rate)
	}
	return tw.Flush()
}
