package annotate

import "strconv"

// DefaultGuideLength is the sgRNA spacer length of common CRISPR libraries.
const DefaultGuideLength = 20

// MatchSummary holds guide counts for one or more runs.
type MatchSummary struct {
	Total         int // All records in the SAM file
	Unaligned     int // Records on the unaligned reference
	Aligned       int // Annotated records
	Matched       int // Assigned gene equals declared gene
	Mismatched    int // Aligned - Matched
	IndelAffected int // CIGAR differs from a full-length match
	Unresolved    int // Aligned records on chromosomes without annotation
}

// Add returns the field-wise sum of two summaries.
func (s MatchSummary) Add(o MatchSummary) MatchSummary {
	return MatchSummary{
		Total:         s.Total + o.Total,
		Unaligned:     s.Unaligned + o.Unaligned,
		Aligned:       s.Aligned + o.Aligned,
		Matched:       s.Matched + o.Matched,
		Mismatched:    s.Mismatched + o.Mismatched,
		IndelAffected: s.IndelAffected + o.IndelAffected,
		Unresolved:    s.Unresolved + o.Unresolved,
	}
}

// PerfectCigar returns the CIGAR of a gapless full-length alignment, e.g. "20M".
func PerfectCigar(guideLength int) string {
	return strconv.Itoa(guideLength) + "M"
}

// Classify counts matched, mismatched and indel-affected guides.
// rawTotal and unaligned come from the SAM file before resolution.
func Classify(annotated []AnnotatedAlignment, rawTotal, unaligned, guideLength int) MatchSummary {
	perfect := PerfectCigar(guideLength)

	s := MatchSummary{
		Total:     rawTotal,
		Unaligned: unaligned,
		Aligned:   len(annotated),
	}
	for i := range annotated {
		a := &annotated[i]
		if a.IsMatch() {
			s.Matched++
		}
		if a.Cigar != perfect {
			s.IndelAffected++
		}
	}
	s.Mismatched = s.Aligned - s.Matched
	s.Unresolved = max(rawTotal-unaligned-s.Aligned, 0)
	return s
}
