package feature

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// GeneFeatureType is the feature type kept by the loader.
const GeneFeatureType = "gene"

// MalformedFeatureError reports an annotation line that cannot be turned
// into a gene feature.
type MalformedFeatureError struct {
	Line    int
	Message string
}

func (e *MalformedFeatureError) Error() string {
	return fmt.Sprintf("malformed feature at line %d: %s", e.Line, e.Message)
}

// GFFLoader loads gene features from GTF/GFF files.
type GFFLoader struct {
	path string
}

// NewGFFLoader creates a new loader for the annotation file at path.
func NewGFFLoader(path string) *GFFLoader {
	return &GFFLoader{path: path}
}

// Load reads all gene features from the file, in file order.
func (l *GFFLoader) Load() ([]Gene, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open GFF file: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f

	// Handle gzipped files
	if strings.HasSuffix(l.path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	return ParseGFF(reader)
}

// ParseGFF parses GTF/GFF content and returns its gene features.
// Non-gene rows are skipped without inspecting their attributes.
func ParseGFF(reader io.Reader) ([]Gene, error) {
	scanner := bufio.NewScanner(reader)
	// Increase buffer size for long lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	var genes []Gene
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		// Skip comments and empty lines
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}

		g, ok, err := parseLine(line)
		if err != nil {
			return nil, &MalformedFeatureError{Line: lineNum, Message: err.Error()}
		}
		if ok {
			genes = append(genes, g)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan GFF: %w", err)
	}

	return genes, nil
}

// parseLine parses a single annotation line. ok is false for non-gene rows.
func parseLine(line string) (g Gene, ok bool, err error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 9 {
		return Gene{}, false, fmt.Errorf("expected 9 fields, got %d", len(fields))
	}

	if fields[2] != GeneFeatureType {
		return Gene{}, false, nil
	}

	start, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return Gene{}, false, fmt.Errorf("parse start: %w", err)
	}

	stop, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return Gene{}, false, fmt.Errorf("parse stop: %w", err)
	}

	attrs, err := parseAttributes(fields[8])
	if err != nil {
		return Gene{}, false, err
	}

	return Gene{
		Chrom: fields[0],
		Start: start,
		Stop:  stop,
		Name:  attrs.Get("gene_name", MissingGeneName),
	}, true, nil
}

// parseAttributes parses the GTF attribute column.
// Format: key "value"; key "value"; ...
func parseAttributes(attrStr string) (Attributes, error) {
	attrs := make(Attributes)

	for _, part := range strings.Split(attrStr, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		key, value, found := strings.Cut(part, " ")
		if !found {
			return nil, fmt.Errorf("attribute %q is not a key/value pair", part)
		}

		attrs[key] = strings.Trim(strings.TrimSpace(value), "\"")
	}

	return attrs, nil
}
