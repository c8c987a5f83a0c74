package alignment

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"

	"github.com/biogo/hts/sam"
)

// MalformedAlignmentError reports a SAM record that could not be parsed,
// such as one with a non-numeric position.
type MalformedAlignmentError struct {
	Record int // 1-based record number, header lines excluded
	Err    error
}

func (e *MalformedAlignmentError) Error() string {
	return fmt.Sprintf("malformed alignment record %d: %v", e.Record, e.Err)
}

func (e *MalformedAlignmentError) Unwrap() error { return e.Err }

// Reader reads guide alignments from a SAM file.
type Reader struct {
	sr         *sam.Reader
	file       *os.File
	gzipReader *gzip.Reader
	records    int
}

// Open creates a Reader for a plain or gzipped SAM file.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sam file: %w", err)
	}

	br := bufio.NewReader(file)
	r := &Reader{file: file}

	var src io.Reader = br
	// gzip magic number (0x1f, 0x8b)
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		r.gzipReader, err = gzip.NewReader(br)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		src = r.gzipReader
	}

	r.sr, err = sam.NewReader(src)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("read sam header: %w", err)
	}
	return r, nil
}

// NewReader creates a Reader from an io.Reader positioned at the SAM header.
func NewReader(src io.Reader) (*Reader, error) {
	sr, err := sam.NewReader(src)
	if err != nil {
		return nil, fmt.Errorf("read sam header: %w", err)
	}
	return &Reader{sr: sr}, nil
}

// Next reads the next alignment record.
// Returns nil, nil when there are no more records.
func (r *Reader) Next() (*Record, error) {
	rec, err := r.sr.Read()
	if err == io.EOF {
		return nil, nil
	}
	r.records++
	if err != nil {
		return nil, &MalformedAlignmentError{Record: r.records, Err: err}
	}
	return fromSAM(rec), nil
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	if r.gzipReader != nil {
		r.gzipReader.Close()
	}
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// ReadAll drains r and returns every record in file order.
func ReadAll(r *Reader) ([]Record, error) {
	var records []Record
	for {
		rec, err := r.Next()
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return records, nil
		}
		records = append(records, *rec)
	}
}

func fromSAM(rec *sam.Record) *Record {
	chrom := UnalignedChrom
	if rec.Ref != nil {
		chrom = rec.Ref.Name()
	}
	return &Record{
		ReadID:       rec.Name,
		Flag:         int(rec.Flags),
		Chrom:        chrom,
		Pos:          int64(rec.Pos) + 1,
		MapQ:         int(rec.MapQ),
		Cigar:        rec.Cigar.String(),
		DeclaredGene: DeclaredGene(rec.Name),
	}
}
