package annotate

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/sgrna-check/internal/alignment"
	"github.com/inodb/sgrna-check/internal/feature"
)

func randomData(n int) (*feature.Index, []alignment.Record) {
	rng := rand.New(rand.NewSource(42))
	chroms := []string{"chr1", "chr2", "chr3", "chrX", "chrUn"}

	var genes []feature.Gene
	for i := 0; i < 300; i++ {
		start := rng.Int63n(100000) + 1
		genes = append(genes, feature.Gene{
			Chrom: chroms[rng.Intn(len(chroms)-1)], // chrUn never annotated
			Start: start,
			Stop:  start + 500,
			Name:  fmt.Sprintf("G%d", i),
		})
	}

	records := make([]alignment.Record, n)
	for i := range records {
		records[i] = alignment.Record{
			ReadID: fmt.Sprintf("sg|lib|G%d_1|r%d", rng.Intn(300), i),
			Flag:   rng.Intn(4096),
			Chrom:  chroms[rng.Intn(len(chroms))],
			Pos:    rng.Int63n(100000) + 1,
			Cigar:  "20M",
		}
		records[i].DeclaredGene = alignment.DeclaredGene(records[i].ReadID)
	}
	return feature.BuildIndex(genes), records
}

func TestResolveParallel_MatchesSequential(t *testing.T) {
	idx, records := randomData(2000)
	ann := NewAnnotator(idx)

	want, err := ann.Resolve(records)
	require.NoError(t, err)

	for _, workers := range []int{0, 1, 3, 8} {
		got, err := ann.ResolveParallel(records, workers)
		require.NoError(t, err)
		assert.Equal(t, want, got, "workers=%d", workers)
	}
}

func TestResolveParallel_Empty(t *testing.T) {
	res, err := NewAnnotator(threeGeneIndex()).ResolveParallel(nil, 4)
	require.NoError(t, err)
	assert.Empty(t, res.Alignments)
}

func TestResolveParallel_StrictFlagError(t *testing.T) {
	ann := NewAnnotator(threeGeneIndex())
	ann.SetStrictFlags(true)

	r := guide("g|l|A_1", "chr1", 150)
	r.Flag = 1 << 14
	_, err := ann.ResolveParallel([]alignment.Record{guide("g|l|B_1", "chr1", 600), r}, 2)
	require.Error(t, err)
}

func TestOrderedCollect_EarlyError(t *testing.T) {
	results := make(chan workResult, 10)
	for i := 9; i >= 0; i-- {
		results <- workResult{Seq: i}
	}
	close(results)

	var seen []int
	err := orderedCollect(results, func(r workResult) error {
		seen = append(seen, r.Seq)
		if r.Seq == 4 {
			return fmt.Errorf("stop at 4")
		}
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, seen)
}
