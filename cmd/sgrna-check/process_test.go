package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/inodb/sgrna-check/internal/annotate"
	"github.com/inodb/sgrna-check/internal/config"
	"github.com/inodb/sgrna-check/internal/duckdb"
	"github.com/inodb/sgrna-check/internal/output"
)

var (
	testGFF = filepath.Join("..", "..", "testdata", "genes.gtf")
	testSAM = filepath.Join("..", "..", "testdata", "guides.sam")
)

var fixtureSummary = annotate.MatchSummary{
	Total:         10,
	Unaligned:     2,
	Aligned:       8,
	Matched:       6,
	Mismatched:    2,
	IndelAffected: 3,
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)
	v.Set("expression.dir", "")
	cfg, err := config.Load(v)
	require.NoError(t, err)
	return cfg
}

func writeExpressionDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	tables := map[string]string{
		"tumor_a.tsv": "gene_id\tgene_name\tgene_type\tunstranded\tstranded_first\tstranded_second\ttpm_unstranded\n" +
			"N_unmapped\t\t\t1\t1\t1\t\n" +
			"ENSG01\tKRAS\tprotein_coding\t10\t5\t5\t12.5\n" +
			"ENSG02\tTP53\tprotein_coding\t20\t10\t10\t40.1\n",
		"tumor_b.tsv": "gene_id\tgene_name\tgene_type\tunstranded\tstranded_first\tstranded_second\ttpm_unstranded\n" +
			"ENSG01\tKRAS\tprotein_coding\t3\t1\t2\t1.75\n",
	}
	for name, content := range tables {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestRunProcess(t *testing.T) {
	cfg := testConfig(t)
	cfg.Expression.Dir = writeExpressionDir(t)
	out := t.TempDir()
	job := processJob{Sample: "brunello", GFFPath: testGFF, SAMPath: testSAM, OutDir: out}

	summary, err := runProcess(cfg, job, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, fixtureSummary, summary)

	lines := readLines(t, filepath.Join(out, "brunello_final_df.tsv"))
	require.Len(t, lines, 9, "header plus 8 aligned guides")

	header := strings.Split(lines[0], "\t")
	assert.Equal(t, output.AlignmentColumns, header[:len(output.AlignmentColumns)])
	assert.Equal(t, []string{"tumor_a.tsv", "tumor_b.tsv"}, header[len(output.AlignmentColumns):])

	// KRAS_1 is the fifth aligned guide
	kras := strings.Split(lines[5], "\t")
	assert.Equal(t, "KRAS", kras[10])
	assert.Equal(t, []string{"12.5", "1.75"}, kras[11:])

	f, err := os.Open(filepath.Join(out, "brunello_summary.json"))
	require.NoError(t, err)
	defer f.Close()
	got, err := output.ReadSummary(f, output.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, map[string]annotate.MatchSummary{testSAM: fixtureSummary}, got)
}

func TestRunProcess_ParallelMatchesSequential(t *testing.T) {
	cfg := testConfig(t)
	seqOut, parOut := t.TempDir(), t.TempDir()

	_, err := runProcess(cfg, processJob{Sample: "s", GFFPath: testGFF, SAMPath: testSAM, OutDir: seqOut}, zaptest.NewLogger(t))
	require.NoError(t, err)

	cfg.Workers = 0
	_, err = runProcess(cfg, processJob{Sample: "s", GFFPath: testGFF, SAMPath: testSAM, OutDir: parOut}, zaptest.NewLogger(t))
	require.NoError(t, err)

	seq, err := os.ReadFile(filepath.Join(seqOut, "s_final_df.tsv"))
	require.NoError(t, err)
	par, err := os.ReadFile(filepath.Join(parOut, "s_final_df.tsv"))
	require.NoError(t, err)
	assert.True(t, bytes.Equal(seq, par))
}

func TestRunProcess_MissingExpressionDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.Expression.Dir = filepath.Join(t.TempDir(), "absent")
	out := t.TempDir()

	_, err := runProcess(cfg, processJob{Sample: "s", GFFPath: testGFF, SAMPath: testSAM, OutDir: out}, zaptest.NewLogger(t))
	require.NoError(t, err)

	lines := readLines(t, filepath.Join(out, "s_final_df.tsv"))
	assert.Len(t, strings.Split(lines[0], "\t"), len(output.AlignmentColumns))
}

func TestRunProcess_YAMLSummary(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.SummaryFormat = "yaml"
	out := t.TempDir()

	_, err := runProcess(cfg, processJob{Sample: "s", GFFPath: testGFF, SAMPath: testSAM, OutDir: out}, zaptest.NewLogger(t))
	require.NoError(t, err)

	m, err := readSummaryFile(filepath.Join(out, "s_summary.yaml"))
	require.NoError(t, err)
	assert.Equal(t, fixtureSummary, m[testSAM])
}

func TestRunProcess_FailureWritesNothing(t *testing.T) {
	dir := t.TempDir()
	badSAM := filepath.Join(dir, "bad.sam")
	require.NoError(t, os.WriteFile(badSAM, []byte("@SQ\tSN:chr1\tLN:1000\nr1\t0\tchr1\tnotanumber\t60\t20M\t*\t0\t0\t*\t*\n"), 0644))

	tests := []struct {
		name string
		job  processJob
	}{
		{"missing gff", processJob{Sample: "s", GFFPath: filepath.Join(dir, "none.gtf"), SAMPath: testSAM}},
		{"missing sam", processJob{Sample: "s", GFFPath: testGFF, SAMPath: filepath.Join(dir, "none.sam")}},
		{"malformed sam", processJob{Sample: "s", GFFPath: testGFF, SAMPath: badSAM}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.job.OutDir = filepath.Join(t.TempDir(), "out")
			_, err := runProcess(testConfig(t), tt.job, zaptest.NewLogger(t))
			require.Error(t, err)

			entries, _ := os.ReadDir(tt.job.OutDir)
			assert.Empty(t, entries)
		})
	}
}

func TestRunProcess_StoreAndGeneCache(t *testing.T) {
	cfg := testConfig(t)
	tmp := t.TempDir()
	cfg.DuckDB.Path = filepath.Join(tmp, "runs.duckdb")
	cfg.Cache.Dir = filepath.Join(tmp, "cache")
	job := processJob{Sample: "s1", GFFPath: testGFF, SAMPath: testSAM, OutDir: filepath.Join(tmp, "out")}

	// second run reads genes back from the cache and replaces stored rows
	for i := 0; i < 2; i++ {
		_, err := runProcess(cfg, job, zaptest.NewLogger(t))
		require.NoError(t, err)
	}

	assert.FileExists(t, filepath.Join(cfg.Cache.Dir, "genes.gtf.genes.gob"))

	store, err := duckdb.Open(cfg.DuckDB.Path)
	require.NoError(t, err)
	defer store.Close()

	sum, ok, err := store.SummaryFor("s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, fixtureSummary, sum)

	mismatched, err := store.MismatchedResults("s1")
	require.NoError(t, err)
	assert.Len(t, mismatched, 2)
}
