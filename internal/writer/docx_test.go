package writer

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLongestFirst_OrdersLongerMentionsBeforeShorterPrefixes(t *testing.T) {
	originals := longestFirst(map[string]string{
		"张三":   "[当事人一]",
		"张三丰":  "[当事人二]",
		"":    "ignored",
	})
	assert.Equal(t, []string{"张三丰", "张三"}, originals)
}

func TestLongestFirst_SkipsEmptyKey(t *testing.T) {
	originals := longestFirst(map[string]string{"": "x", "a": "y"})
	assert.Equal(t, []string{"a"}, originals)
}

func TestFontTracePath_DisabledByDefault(t *testing.T) {
	t.Setenv("DOCX_FONT_TRACE", "")
	t.Setenv("DOCX_FONT_TRACE_PATH", "")
	assert.Empty(t, fontTracePath())
}

func TestFontTracePath_HonorsCustomPathWhenEnabled(t *testing.T) {
	t.Setenv("DOCX_FONT_TRACE", "true")
	t.Setenv("DOCX_FONT_TRACE_PATH", "/tmp/custom_trace.jsonl")
	assert.Equal(t, "/tmp/custom_trace.jsonl", fontTracePath())
}

func TestAppendFontTrace_WritesOneJSONLLinePerMatch(t *testing.T) {
	dir := t.TempDir()
	tracePath := filepath.Join(dir, "trace.jsonl")

	initFontTrace(tracePath, "in.docx", "out.docx", 2)
	appendFontTrace(tracePath, "张三", "[当事人一]")
	appendFontTrace(tracePath, "李四", "[当事人二]")

	f, err := os.Open(tracePath)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines int
	for scanner.Scan() {
		lines++
	}
	assert.Equal(t, 3, lines)
}
