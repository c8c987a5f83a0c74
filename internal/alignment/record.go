// Package alignment reads aligned sgRNA guides from SAM files and decodes
// their alignment flags.
package alignment

import "strings"

// UnalignedChrom is the reference name SAM uses for reads that did not align.
const UnalignedChrom = "*"

// Record is one aligned (or unaligned) guide read.
type Record struct {
	ReadID       string // QNAME, e.g. "sg|lib|KRAS_3|x"
	Flag         int    // Raw FLAG bitmask
	Chrom        string // Reference name, UnalignedChrom when unaligned
	Pos          int64  // 1-based leftmost position
	MapQ         int    // Mapping quality
	Cigar        string // CIGAR string, "*" when unavailable
	DeclaredGene string // Target gene encoded in ReadID
}

// IsAligned reports whether the read mapped to a reference sequence.
func (r *Record) IsAligned() bool {
	return r.Chrom != UnalignedChrom
}

// DeclaredGene extracts the target gene encoded in a guide's read id.
// The id is split on '|', the third segment is taken and cut at the first '_'.
// e.g. "sgRNA|brunello|KRAS_2|chr12" -> "KRAS"
// Ids with fewer than three segments have no declared gene.
func DeclaredGene(readID string) string {
	parts := strings.Split(readID, "|")
	if len(parts) < 3 {
		return ""
	}
	gene, _, _ := strings.Cut(parts[2], "_")
	return gene
}

// Split partitions records into aligned and unaligned reads, preserving order.
func Split(records []Record) (aligned, unaligned []Record) {
	for _, r := range records {
		if r.IsAligned() {
			aligned = append(aligned, r)
		} else {
			unaligned = append(unaligned, r)
		}
	}
	return aligned, unaligned
}
