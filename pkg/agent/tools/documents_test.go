package tools

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/newsdesk-ai/newsdesk/pkg/upload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func documentRegistry(t *testing.T) (*Registry, *upload.Store) {
	t.Helper()
	store, err := upload.NewStore(t.TempDir(), 1024*1024, []string{".pdf", ".csv", ".txt"})
	require.NoError(t, err)
	r := NewRegistry()
	require.NoError(t, RegisterDocumentTools(r, store))
	return r, store
}

func TestAnalyzeCSVFile(t *testing.T) {
	r, store := documentRegistry(t)

	csvData := "name,score\nalice,10\nbob,7\ncarol,9\n"
	file, err := store.Save("scores.csv", int64(len(csvData)), strings.NewReader(csvData))
	require.NoError(t, err)

	result, err := r.Execute(context.Background(), "analyze_csv_file",
		map[string]any{"file_id": file.ID})
	require.NoError(t, err)

	m := result.(map[string]any)
	assert.Equal(t, true, m["success"])
	assert.Equal(t, []string{"name", "score"}, m["headers"])
	assert.Equal(t, 3, m["row_count"])
	preview := m["preview_rows"].([]any)
	require.Len(t, preview, 3)
	assert.Equal(t, "alice", preview[0].(map[string]any)["name"])

	t.Run("max_rows limits preview", func(t *testing.T) {
		result, err := r.Execute(context.Background(), "analyze_csv_file",
			map[string]any{"file_id": file.ID, "max_rows": float64(1)})
		require.NoError(t, err)
		assert.Len(t, result.(map[string]any)["preview_rows"], 1)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := r.Execute(context.Background(), "analyze_csv_file",
			map[string]any{"file_id": "b5f5dd4e-7b5a-4fa0-b4a5-7f2b9e3d8a10"})
		require.Error(t, err)
		var failure *ToolFailure
		assert.ErrorAs(t, err, &failure)
	})
}

func TestExtractPDFText_InvalidFile(t *testing.T) {
	r, store := documentRegistry(t)

	file, err := store.Save("fake.pdf", 8, strings.NewReader("not-pdf!"))
	require.NoError(t, err)

	_, err = r.Execute(context.Background(), "extract_pdf_text",
		map[string]any{"file_id": file.ID})
	require.Error(t, err)
	var failure *ToolFailure
	assert.ErrorAs(t, err, &failure)
}

func TestTruncateUTF8(t *testing.T) {
	short, truncated := truncateUTF8("hello", 10)
	assert.Equal(t, "hello", short)
	assert.False(t, truncated)

	// "héllo" is 6 bytes; a 5-byte cap lands mid-rune and must back up.
	cut, truncated := truncateUTF8("hellé", 5)
	assert.Equal(t, "hell", cut)
	assert.True(t, truncated)
	assert.True(t, utf8.ValidString(cut))

	long := strings.Repeat("日", 100) // 3 bytes per rune
	for _, limit := range []int{299, 300, 301} {
		cut, truncated := truncateUTF8(long, limit)
		assert.True(t, truncated)
		assert.True(t, utf8.ValidString(cut))
		assert.LessOrEqual(t, len(cut), limit)
	}
}

func TestExtractActionItems(t *testing.T) {
	r, _ := documentRegistry(t)

	text := strings.Join([]string{
		"Meeting notes from Monday.",
		"- [ ] Ship the release notes",
		"* [ ] Review the ingestion PR",
		"TODO: rotate the API keys",
		"Action: schedule the retro",
		"The weather was nice.",
	}, "\n")

	result, err := r.Execute(context.Background(), "extract_action_items",
		map[string]any{"text": text})
	require.NoError(t, err)

	m := result.(map[string]any)
	assert.Equal(t, 4, m["count"])
	items := m["action_items"].([]any)
	require.Len(t, items, 4)
	assert.Equal(t, "Ship the release notes", items[0])
	assert.Equal(t, "Review the ingestion PR", items[1])

	t.Run("no items", func(t *testing.T) {
		result, err := r.Execute(context.Background(), "extract_action_items",
			map[string]any{"text": "just prose, nothing to do"})
		require.NoError(t, err)
		assert.Equal(t, 0, result.(map[string]any)["count"])
	})

	t.Run("empty text rejected", func(t *testing.T) {
		_, err := r.Execute(context.Background(), "extract_action_items",
			map[string]any{"text": "   "})
		assert.Error(t, err)
	})
}
