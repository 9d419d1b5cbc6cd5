package formatter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTable_AlignsColumns(t *testing.T) {
	out := RenderTable([]string{"INDEX", "NAME"}, [][]string{
		{"1", "Structure"},
		{"1.10", "Columns"},
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, strings.Index(lines[2], "Structure"), strings.Index(lines[3], "Columns"))
}

func TestTable_NumericColumnsRightAlign(t *testing.T) {
	out := Table{
		Headers: []string{"RESOURCE", "QTY"},
		Rows:    [][]string{{"cement", "5"}, {"gravel", "120"}},
		Numeric: map[int]bool{1: true},
	}.Render()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasSuffix(lines[2], "  5"))
	assert.Equal(t, len(lines[2]), len(lines[3]))
}

func TestRenderTable_NoHeaders(t *testing.T) {
	assert.Empty(t, RenderTable(nil, [][]string{{"x"}}))
}
