package feature

import (
	"slices"
	"sort"
)

// Index holds gene features partitioned by chromosome, each partition
// sorted ascending by start. An Index is never modified after BuildIndex.
type Index struct {
	genes map[string][]Gene
}

// BuildIndex partitions genes by chromosome and sorts each partition by
// start. Genes with equal starts keep their input order.
func BuildIndex(genes []Gene) *Index {
	byChrom := make(map[string][]Gene)
	for _, g := range genes {
		byChrom[g.Chrom] = append(byChrom[g.Chrom], g)
	}

	for _, part := range byChrom {
		sort.SliceStable(part, func(i, j int) bool {
			return part[i].Start < part[j].Start
		})
	}

	return &Index{genes: byChrom}
}

// Genes returns the sorted genes for chrom and whether the chromosome is
// present in the index. The returned slice must not be modified.
func (x *Index) Genes(chrom string) ([]Gene, bool) {
	g, ok := x.genes[chrom]
	return g, ok
}

// Chromosomes returns a sorted list of indexed chromosomes.
func (x *Index) Chromosomes() []string {
	chroms := make([]string, 0, len(x.genes))
	for chrom := range x.genes {
		chroms = append(chroms, chrom)
	}
	slices.Sort(chroms)
	return chroms
}

// GeneCount returns the total number of indexed genes.
func (x *Index) GeneCount() int {
	n := 0
	for _, g := range x.genes {
		n += len(g)
	}
	return n
}
