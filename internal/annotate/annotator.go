package annotate

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/inodb/sgrna-check/internal/alignment"
	"github.com/inodb/sgrna-check/internal/feature"
)

// GeneLookup provides the start-sorted genes of a chromosome.
type GeneLookup interface {
	Genes(chrom string) ([]feature.Gene, bool)
}

// UnresolvedChromosome describes aligned guides skipped because their
// chromosome has no gene annotation.
type UnresolvedChromosome struct {
	Chrom   string
	Records int
}

// Resolution is the output of a resolver run.
type Resolution struct {
	Alignments []AnnotatedAlignment // In input record order
	Unresolved []UnresolvedChromosome
}

// Annotator assigns genes to aligned guides.
type Annotator struct {
	index   GeneLookup
	decoder alignment.FlagDecoder
	logger  *zap.Logger
}

// NewAnnotator creates a new annotator over the given gene index.
func NewAnnotator(index GeneLookup) *Annotator {
	return &Annotator{
		index:  index,
		logger: zap.NewNop(),
	}
}

// SetStrictFlags configures whether FLAG bits without a label are an error.
func (a *Annotator) SetStrictFlags(strict bool) {
	a.decoder.Strict = strict
}

// SetLogger sets the logger for warning and info messages.
func (a *Annotator) SetLogger(l *zap.Logger) {
	a.logger = l
}

// Resolve assigns each record the gene starting nearest below its position.
// Records on chromosomes absent from the index are left out of the result
// and reported in Resolution.Unresolved.
func (a *Annotator) Resolve(records []alignment.Record) (*Resolution, error) {
	groups := groupByChrom(records)
	results := make([]groupResult, len(groups))
	for i, g := range groups {
		results[i] = a.resolveGroup(g)
	}
	return a.merge(len(records), results)
}

// chromGroup holds the records of one chromosome and their input positions.
type chromGroup struct {
	chrom   string
	records []alignment.Record
	offsets []int
}

type groupResult struct {
	chrom      string
	alignments []AnnotatedAlignment
	offsets    []int
	unresolved bool
	err        error
}

// groupByChrom splits records into chromosome groups, in order of first appearance.
func groupByChrom(records []alignment.Record) []chromGroup {
	var groups []chromGroup
	byChrom := make(map[string]int)
	for i, r := range records {
		gi, ok := byChrom[r.Chrom]
		if !ok {
			gi = len(groups)
			byChrom[r.Chrom] = gi
			groups = append(groups, chromGroup{chrom: r.Chrom})
		}
		groups[gi].records = append(groups[gi].records, r)
		groups[gi].offsets = append(groups[gi].offsets, i)
	}
	return groups
}

func (a *Annotator) resolveGroup(g chromGroup) groupResult {
	genes, ok := a.index.Genes(g.chrom)
	if !ok || len(genes) == 0 {
		return groupResult{chrom: g.chrom, offsets: g.offsets, unresolved: true}
	}

	out := make([]AnnotatedAlignment, len(g.records))
	for i, r := range g.records {
		decoded, err := a.decoder.Decode(r.Flag)
		if err != nil {
			return groupResult{chrom: g.chrom, err: fmt.Errorf("read %s: %w", r.ReadID, err)}
		}
		gene := precedingGene(genes, r.Pos)
		out[i] = AnnotatedAlignment{
			Record:      r,
			DecodedFlag: decoded,
			Assigned: Assignment{
				Chrom: gene.Chrom,
				Start: gene.Start,
				Stop:  gene.Stop,
				Gene:  gene.Name,
			},
		}
	}
	return groupResult{chrom: g.chrom, alignments: out, offsets: g.offsets}
}

// precedingGene returns the last gene whose start is strictly below pos.
// genes must be non-empty and sorted by start. A position at or before the
// first start wraps around to the last gene of the chromosome, which is
// what existing result sets were produced with.
func precedingGene(genes []feature.Gene, pos int64) feature.Gene {
	l := sort.Search(len(genes), func(i int) bool {
		return genes[i].Start >= pos
	})
	if l == 0 {
		return genes[len(genes)-1]
	}
	return genes[l-1]
}

// merge restores input order across group results and logs one warning per
// unresolved chromosome.
func (a *Annotator) merge(n int, results []groupResult) (*Resolution, error) {
	slots := make([]*AnnotatedAlignment, n)
	res := &Resolution{}

	for _, gr := range results {
		if gr.err != nil {
			return nil, gr.err
		}
		if gr.unresolved {
			a.logger.Warn("no gene annotation for chromosome, skipping its guides",
				zap.String("chrom", gr.chrom),
				zap.Int("records", len(gr.offsets)))
			res.Unresolved = append(res.Unresolved, UnresolvedChromosome{
				Chrom:   gr.chrom,
				Records: len(gr.offsets),
			})
			continue
		}
		for i := range gr.alignments {
			slots[gr.offsets[i]] = &gr.alignments[i]
		}
	}

	res.Alignments = make([]AnnotatedAlignment, 0, n)
	for _, s := range slots {
		if s != nil {
			res.Alignments = append(res.Alignments, *s)
		}
	}
	return res, nil
}
