package annotate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/inodb/sgrna-check/internal/alignment"
)

func annotated(declared, assigned, cigar string) AnnotatedAlignment {
	a := AnnotatedAlignment{
		Record: alignment.Record{Chrom: "chr1", Cigar: cigar, DeclaredGene: declared},
	}
	if assigned != "" {
		a.Assigned = Assignment{Chrom: "chr1", Start: 1, Stop: 2, Gene: assigned}
	}
	return a
}

func TestClassify(t *testing.T) {
	anns := []AnnotatedAlignment{
		annotated("KRAS", "KRAS", "20M"),
		annotated("KRAS", "TP53", "20M"),
		annotated("TP53", "TP53", "18M2S"),
		annotated("MYC", "MYC", "10M1I9M"),
	}

	s := Classify(anns, 6, 2, DefaultGuideLength)
	assert.Equal(t, MatchSummary{
		Total:         6,
		Unaligned:     2,
		Aligned:       4,
		Matched:       3,
		Mismatched:    1,
		IndelAffected: 2,
	}, s)
	assert.Equal(t, s.Aligned, s.Matched+s.Mismatched)
}

func TestClassify_UnassignedCountsAsMismatch(t *testing.T) {
	// An empty declared gene must not match the unassigned sentinel.
	s := Classify([]AnnotatedAlignment{annotated("", "", "20M")}, 1, 0, DefaultGuideLength)
	assert.Equal(t, 0, s.Matched)
	assert.Equal(t, 1, s.Mismatched)
}

func TestClassify_GuideLength(t *testing.T) {
	anns := []AnnotatedAlignment{
		annotated("A", "A", "20M"),
		annotated("A", "A", "19M"),
	}
	assert.Equal(t, 1, Classify(anns, 2, 0, 20).IndelAffected)
	assert.Equal(t, 1, Classify(anns, 2, 0, 19).IndelAffected)
	assert.Equal(t, 2, Classify(anns, 2, 0, 23).IndelAffected)
}

func TestClassify_Unresolved(t *testing.T) {
	s := Classify([]AnnotatedAlignment{annotated("A", "A", "20M")}, 5, 1, DefaultGuideLength)
	assert.Equal(t, 3, s.Unresolved)
	assert.Equal(t, 1, s.Aligned)
}

func TestMatchSummary_Add(t *testing.T) {
	a := MatchSummary{Total: 10, Unaligned: 2, Aligned: 8, Matched: 6, Mismatched: 2, IndelAffected: 3}
	b := MatchSummary{Total: 5, Unaligned: 1, Aligned: 3, Matched: 1, Mismatched: 2, IndelAffected: 0, Unresolved: 1}

	got := a.Add(b)
	assert.Equal(t, MatchSummary{
		Total: 15, Unaligned: 3, Aligned: 11, Matched: 7, Mismatched: 4, IndelAffected: 3, Unresolved: 1,
	}, got)
	assert.Equal(t, got, b.Add(a))
	assert.Equal(t, a, a.Add(MatchSummary{}))
}

func TestPerfectCigar(t *testing.T) {
	assert.Equal(t, "20M", PerfectCigar(20))
	assert.Equal(t, "23M", PerfectCigar(23))
}
