// Package feature loads gene features from GTF/GFF annotation files and
// indexes them per chromosome.
package feature

// MissingGeneName is the gene name used when a feature carries no gene_name attribute.
const MissingGeneName = "-"

// Gene is a gene-type feature from the annotation table.
type Gene struct {
	Chrom string // Chromosome
	Start int64  // Gene start position (1-based)
	Stop  int64  // Gene end position (1-based, inclusive)
	Name  string // Gene symbol, MissingGeneName if absent
}

// Attributes holds the key/value pairs of a GTF attribute column.
type Attributes map[string]string

// Get returns the value stored under key, or def when the key is absent.
func (a Attributes) Get(key, def string) string {
	if v, ok := a[key]; ok {
		return v
	}
	return def
}
