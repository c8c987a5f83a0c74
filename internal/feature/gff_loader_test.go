package feature

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAttributes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Attributes
	}{
		{
			name:  "basic attributes",
			input: `gene_id "ENSG00000133703"; gene_type "protein_coding"; gene_name "KRAS";`,
			expected: Attributes{
				"gene_id":   "ENSG00000133703",
				"gene_type": "protein_coding",
				"gene_name": "KRAS",
			},
		},
		{
			name:  "duplicate keys",
			input: `gene_id "ENSG00000133703"; tag "basic"; tag "CCDS"`,
			expected: Attributes{
				"gene_id": "ENSG00000133703",
				"tag":     "CCDS", // Last value wins
			},
		},
		{
			name:     "empty",
			input:    "",
			expected: Attributes{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseAttributes(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseAttributes_NotKeyValue(t *testing.T) {
	_, err := parseAttributes(`gene_id "G1"; broken; gene_name "A";`)
	assert.Error(t, err)
}

func TestAttributes_Get(t *testing.T) {
	attrs := Attributes{"gene_name": "KRAS"}
	assert.Equal(t, "KRAS", attrs.Get("gene_name", MissingGeneName))
	assert.Equal(t, MissingGeneName, attrs.Get("gene_id", MissingGeneName))
}

func TestGFFLoader_LoadFile(t *testing.T) {
	genes, err := NewGFFLoader(filepath.Join("..", "..", "testdata", "genes.gtf")).Load()
	require.NoError(t, err)

	// transcript and exon rows are dropped
	require.Len(t, genes, 6)

	assert.Equal(t, Gene{Chrom: "chr1", Start: 900, Stop: 1200, Name: "C"}, genes[0])
	assert.Equal(t, "KRAS", genes[3].Name)

	// chr3 gene has no gene_name
	assert.Equal(t, MissingGeneName, genes[5].Name)
	assert.Equal(t, "chr3", genes[5].Chrom)
}

func TestParseGFF_Malformed(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"too few fields", "chr1\tHAVANA\tgene\t100\t200"},
		{"bad start", "chr1\tHAVANA\tgene\tabc\t200\t.\t+\t.\tgene_name \"A\";"},
		{"bad stop", "chr1\tHAVANA\tgene\t100\t2x0\t.\t+\t.\tgene_name \"A\";"},
		{"bad attributes", "chr1\tHAVANA\tgene\t100\t200\t.\t+\t.\tgene_name\"A\";"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := "#header\n" + tt.line + "\n"
			_, err := ParseGFF(strings.NewReader(content))
			var mfe *MalformedFeatureError
			require.ErrorAs(t, err, &mfe)
			assert.Equal(t, 2, mfe.Line)
		})
	}
}

func TestParseGFF_IgnoresNonGeneAttributes(t *testing.T) {
	content := "chr1\tHAVANA\texon\t100\t200\t.\t+\t.\tnot-a-pair\n"
	genes, err := ParseGFF(strings.NewReader(content))
	require.NoError(t, err)
	assert.Empty(t, genes)
}

func TestGFFLoader_NotFound(t *testing.T) {
	_, err := NewGFFLoader("/nonexistent/genes.gtf").Load()
	assert.Error(t, err)
}
