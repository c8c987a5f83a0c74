// Package expression loads per-sample gene expression tables and joins
// them onto annotated guides by gene name.
package expression

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Missing is rendered for genes without a value in a sample.
const Missing = "-"

// Default column layout of GDC STAR gene count tables.
const (
	DefaultGeneColumn  = 1
	DefaultValueColumn = 6
)

// Matrix holds expression values for a gene set across sample files.
type Matrix struct {
	Samples []string // Column names, one per file
	values  []map[string]string
}

// Row returns the values of gene across all samples, Missing where absent.
func (m *Matrix) Row(gene string) []string {
	row := make([]string, len(m.Samples))
	for i, vals := range m.values {
		if v, ok := vals[gene]; ok {
			row[i] = v
		} else {
			row[i] = Missing
		}
	}
	return row
}

// Loader reads expression tables.
type Loader struct {
	geneColumn  int
	valueColumn int
	logger      *zap.Logger
}

// NewLoader creates a loader reading gene names and values from the given
// 0-based columns.
func NewLoader(geneColumn, valueColumn int) *Loader {
	return &Loader{
		geneColumn:  geneColumn,
		valueColumn: valueColumn,
		logger:      zap.NewNop(),
	}
}

// SetLogger sets the logger for per-file progress messages.
func (l *Loader) SetLogger(lg *zap.Logger) {
	l.logger = lg
}

// LoadDir walks dir in lexical order and loads every regular file as one
// sample, keeping only genes in the requested set.
func (l *Loader) LoadDir(dir string, genes map[string]bool) (*Matrix, error) {
	m := &Matrix{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		vals, err := l.LoadFile(path, genes)
		if err != nil {
			return err
		}
		l.logger.Debug("loaded expression table",
			zap.String("path", path),
			zap.Int("genes", len(vals)))
		m.Samples = append(m.Samples, d.Name())
		m.values = append(m.values, vals)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load expression dir: %w", err)
	}
	return m, nil
}

// LoadFile reads one expression table and returns gene -> value for the
// requested genes. The first value of a repeated gene wins.
func (l *Loader) LoadFile(path string, genes map[string]bool) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open expression table: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	vals, err := l.parse(reader, genes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return vals, nil
}

func (l *Loader) parse(reader io.Reader, genes map[string]bool) (map[string]string, error) {
	need := max(l.geneColumn, l.valueColumn)
	vals := make(map[string]string)

	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		// header and N_unmapped style summary rows
		if fields[0] == "gene_id" || strings.HasPrefix(fields[0], "N_") {
			continue
		}
		if len(fields) <= need {
			continue
		}
		gene := strings.TrimSpace(fields[l.geneColumn])
		if !genes[gene] {
			continue
		}
		if _, seen := vals[gene]; !seen {
			vals[gene] = strings.TrimSpace(fields[l.valueColumn])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading expression table: %w", err)
	}
	return vals, nil
}
