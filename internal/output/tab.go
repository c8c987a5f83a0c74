// Package output provides writers for annotated guide tables and run summaries.
package output

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/sgrna-check/internal/annotate"
	"github.com/inodb/sgrna-check/internal/expression"
)

// AlignmentColumns are the fixed columns of the annotated guide table.
var AlignmentColumns = []string{
	"read_id",
	"decoded_flag",
	"chromosome",
	"position",
	"mapping_quality",
	"cigar",
	"declared_gene",
	"assigned_chromosome",
	"assigned_start",
	"assigned_stop",
	"assigned_gene",
}

// TabWriter writes annotated guides in tab-delimited format, followed by
// one expression column per sample when a matrix is given.
type TabWriter struct {
	w       *bufio.Writer
	expr    *expression.Matrix
	columns []string
}

// NewTabWriter creates a new tab-delimited writer. expr may be nil.
func NewTabWriter(w io.Writer, expr *expression.Matrix) *TabWriter {
	columns := append([]string(nil), AlignmentColumns...)
	if expr != nil {
		columns = append(columns, expr.Samples...)
	}
	return &TabWriter{
		w:       bufio.NewWriter(w),
		expr:    expr,
		columns: columns,
	}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

// Write writes a single annotated guide.
func (tw *TabWriter) Write(a *annotate.AnnotatedAlignment) error {
	assignedChrom, assignedStart, assignedStop, assignedGene := "-", "-", "-", "-"
	if a.Assigned.IsAssigned() {
		assignedChrom = a.Assigned.Chrom
		assignedStart = strconv.FormatInt(a.Assigned.Start, 10)
		assignedStop = strconv.FormatInt(a.Assigned.Stop, 10)
		assignedGene = a.Assigned.Gene
	}

	declared := a.DeclaredGene
	if declared == "" {
		declared = "-"
	}

	values := []string{
		a.ReadID,
		a.DecodedFlag,
		a.Chrom,
		strconv.FormatInt(a.Pos, 10),
		strconv.Itoa(a.MapQ),
		a.Cigar,
		declared,
		assignedChrom,
		assignedStart,
		assignedStop,
		assignedGene,
	}
	if tw.expr != nil {
		values = append(values, tw.expr.Row(a.Assigned.Gene)...)
	}

	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// WriteAll writes the header and every guide, then flushes.
func (tw *TabWriter) WriteAll(anns []annotate.AnnotatedAlignment) error {
	if err := tw.WriteHeader(); err != nil {
		return err
	}
	for i := range anns {
		if err := tw.Write(&anns[i]); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}
