package duckdb

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/inodb/sgrna-check/internal/feature"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// GeneCache stores the gene features parsed from an annotation file as gob,
// so repeated runs against the same annotation skip parsing:
//
//	{dir}/{gff base name}.genes.gob       (serialized genes)
//	{dir}/{gff base name}.genes.gob.meta  (source file fingerprint)
type GeneCache struct {
	dir  string
	name string
}

// NewGeneCache creates a gene cache in dir for the annotation file gffPath.
func NewGeneCache(dir, gffPath string) *GeneCache {
	return &GeneCache{dir: dir, name: filepath.Base(gffPath)}
}

func (gc *GeneCache) gobPath() string {
	return filepath.Join(gc.dir, gc.name+".genes.gob")
}

func (gc *GeneCache) metaPath() string {
	return gc.gobPath() + ".meta"
}

// Valid checks whether the cached genes match the current annotation file.
func (gc *GeneCache) Valid(gff FileFingerprint) bool {
	meta, err := gc.readMeta()
	if err != nil {
		return false
	}

	if meta["gff_size"] != strconv.FormatInt(gff.Size, 10) ||
		meta["gff_modtime"] != gff.ModTime.UTC().Format(time.RFC3339Nano) {
		return false
	}

	_, err = os.Stat(gc.gobPath())
	return err == nil
}

// Load reads cached genes in their original file order.
func (gc *GeneCache) Load() ([]feature.Gene, error) {
	f, err := os.Open(gc.gobPath())
	if err != nil {
		return nil, fmt.Errorf("open gene cache: %w", err)
	}
	defer f.Close()

	var genes []feature.Gene
	if err := gob.NewDecoder(f).Decode(&genes); err != nil {
		return nil, fmt.Errorf("decode gene cache: %w", err)
	}
	return genes, nil
}

// Write serializes genes to disk along with the annotation fingerprint.
func (gc *GeneCache) Write(genes []feature.Gene, gff FileFingerprint) error {
	if err := os.MkdirAll(gc.dir, 0755); err != nil {
		return fmt.Errorf("create gene cache directory: %w", err)
	}

	f, err := os.Create(gc.gobPath())
	if err != nil {
		return fmt.Errorf("create gene cache: %w", err)
	}

	if err := gob.NewEncoder(f).Encode(genes); err != nil {
		f.Close()
		os.Remove(gc.gobPath())
		return fmt.Errorf("encode gene cache: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close gene cache: %w", err)
	}

	return gc.writeMeta(gff)
}

// Clear removes the cached gene files.
func (gc *GeneCache) Clear() {
	os.Remove(gc.gobPath())
	os.Remove(gc.metaPath())
}

func (gc *GeneCache) writeMeta(gff FileFingerprint) error {
	lines := []string{
		"gff_path=" + gff.Path,
		"gff_size=" + strconv.FormatInt(gff.Size, 10),
		"gff_modtime=" + gff.ModTime.UTC().Format(time.RFC3339Nano),
		"created_at=" + time.Now().UTC().Format(time.RFC3339),
		"",
	}
	return os.WriteFile(gc.metaPath(), []byte(strings.Join(lines, "\n")), 0644)
}

func (gc *GeneCache) readMeta() (map[string]string, error) {
	data, err := os.ReadFile(gc.metaPath())
	if err != nil {
		return nil, err
	}

	meta := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		if k, v, ok := strings.Cut(line, "="); ok {
			meta[k] = v
		}
	}
	return meta, nil
}
