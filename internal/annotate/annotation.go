// Package annotate assigns gene annotations to aligned guides and scores
// the assignments against each guide's declared target gene.
package annotate

import "github.com/inodb/sgrna-check/internal/alignment"

// Assignment is the gene feature assigned to an aligned guide.
type Assignment struct {
	Chrom string
	Start int64
	Stop  int64
	Gene  string
}

// NoAssignment marks a guide that was not assigned a gene.
var NoAssignment = Assignment{}

// IsAssigned reports whether a gene was assigned.
func (a Assignment) IsAssigned() bool {
	return a != NoAssignment
}

// AnnotatedAlignment is an alignment record extended with its gene assignment.
type AnnotatedAlignment struct {
	alignment.Record
	DecodedFlag string     // FLAG rendered as labels
	Assigned    Assignment // Gene assigned by nearest-below lookup
}

// IsMatch reports whether the assigned gene equals the declared gene.
func (a *AnnotatedAlignment) IsMatch() bool {
	return a.Assigned.IsAssigned() && a.DeclaredGene == a.Assigned.Gene
}
