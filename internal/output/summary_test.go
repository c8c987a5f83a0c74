package output

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/sgrna-check/internal/annotate"
)

func writeTestFile(dir, name, content string) error {
	return os.WriteFile(filepath.Join(dir, name), []byte(content), 0644)
}

var testSummary = annotate.MatchSummary{
	Total:         10,
	Unaligned:     2,
	Aligned:       8,
	Matched:       6,
	Mismatched:    2,
	IndelAffected: 3,
}

func TestWriteSummary_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, FormatJSON, map[string]annotate.MatchSummary{"guides.sam": testSummary}))

	want := `{
  "guides.sam": {
    "Number of total gRNA": 10,
    "Number of unaligned gRNA": 2,
    "Number of total aligned gRNA": 8,
    "Number of gRNA with correct annotations": 6,
    "Number of gRNA with in-correct annotations": 2,
    "Number of matches with indels/mismatches": 3,
    "Number of gRNA on unannotated chromosomes": 0
  }
}
`
	assert.Equal(t, want, buf.String())
}

func TestSummary_RoundTrip(t *testing.T) {
	in := map[string]annotate.MatchSummary{
		"a.sam": testSummary,
		"b.sam": {Total: 3, Aligned: 3, Matched: 1, Mismatched: 2, Unresolved: 1},
	}

	for _, f := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(f), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteSummary(&buf, f, in))

			out, err := ReadSummary(&buf, f)
			require.NoError(t, err)
			assert.Equal(t, in, out)
		})
	}
}

func TestWriteSummary_YAMLKeys(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, FormatYAML, map[string]annotate.MatchSummary{"guides.sam": testSummary}))
	assert.Contains(t, buf.String(), "Number of gRNA with correct annotations: 6")
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("YAML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	_, err = ParseFormat("xml")
	assert.ErrorIs(t, err, ErrUnknownFormat)

	assert.Equal(t, FormatYAML, FormatForPath("run_summary.yml"))
	assert.Equal(t, FormatJSON, FormatForPath("run_summary.json"))
	assert.Equal(t, ".json", FormatJSON.Ext())
}

func TestWriteSummaryTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummaryTable(&buf, map[string]annotate.MatchSummary{"guides.sam": testSummary}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Matched")
	assert.Contains(t, lines[1], "guides.sam")
	assert.Contains(t, lines[1], "75.0")
}
