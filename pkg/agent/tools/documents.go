package tools

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/newsdesk-ai/newsdesk/pkg/upload"
)

const (
	defaultCSVPreviewRows = 10
	maxExtractedTextLen   = 50000
)

// RegisterDocumentTools adds the upload-backed document tools.
func RegisterDocumentTools(r *Registry, store *upload.Store) error {
	fileIDParam := map[string]any{
		"type":        "string",
		"description": "ID returned by the upload endpoint",
	}

	tools := []Definition{
		{
			Name:        "extract_pdf_text",
			Description: "Extract the plain text of an uploaded PDF file.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"file_id": fileIDParam,
				},
				"required": []any{"file_id"},
			},
			Handler: extractPDFText(store),
		},
		{
			Name: "analyze_csv_file",
			Description: "Inspect an uploaded CSV file: column headers, row count and a " +
				"preview of the first rows.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"file_id": fileIDParam,
					"max_rows": map[string]any{
						"type":        "integer",
						"description": "Number of preview rows to return (default 10)",
					},
				},
				"required": []any{"file_id"},
			},
			Handler: analyzeCSVFile(store),
		},
		{
			Name: "extract_action_items",
			Description: "Extract action items (tasks, TODOs, follow-ups) from a block of text.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"text": map[string]any{
						"type":        "string",
						"description": "Text to scan for action items",
					},
				},
				"required": []any{"text"},
			},
			Handler: extractActionItems,
		},
	}

	for _, def := range tools {
		if err := r.Register(def); err != nil {
			return err
		}
	}
	return nil
}

func fileIDArg(args map[string]any) (string, error) {
	id, _ := args["file_id"].(string)
	if id == "" {
		return "", errors.New("file_id must not be empty")
	}
	return id, nil
}

func extractPDFText(store *upload.Store) Handler {
	return func(ctx context.Context, args map[string]any) (any, error) {
		fileID, err := fileIDArg(args)
		if err != nil {
			return nil, err
		}
		content, err := store.Read(fileID)
		if err != nil {
			return nil, err
		}

		reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
		if err != nil {
			return nil, fmt.Errorf("failed to open pdf: %w", err)
		}

		var text strings.Builder
		pages := 0
		for i := 1; i <= reader.NumPage(); i++ {
			page := reader.Page(i)
			if page.V.IsNull() {
				continue
			}
			pageText, err := page.GetPlainText(nil)
			if err != nil {
				// Unreadable pages are skipped, not fatal.
				continue
			}
			pageText = strings.TrimSpace(pageText)
			if pageText == "" {
				continue
			}
			if text.Len() > 0 {
				text.WriteString("\n\n")
			}
			text.WriteString(pageText)
			pages++
		}

		extracted, truncated := truncateUTF8(text.String(), maxExtractedTextLen)
		return map[string]any{
			"success":   true,
			"file_id":   fileID,
			"pages":     pages,
			"text":      extracted,
			"truncated": truncated,
		}, nil
	}
}

// truncateUTF8 caps s at limit bytes without splitting a rune, backing up
// to the nearest rune boundary.
func truncateUTF8(s string, limit int) (string, bool) {
	if len(s) <= limit {
		return s, false
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut], true
}

func analyzeCSVFile(store *upload.Store) Handler {
	return func(ctx context.Context, args map[string]any) (any, error) {
		fileID, err := fileIDArg(args)
		if err != nil {
			return nil, err
		}
		content, err := store.Read(fileID)
		if err != nil {
			return nil, err
		}

		reader := csv.NewReader(bytes.NewReader(content))
		reader.FieldsPerRecord = -1
		records, err := reader.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("failed to parse csv: %w", err)
		}
		if len(records) == 0 {
			return nil, errors.New("csv file is empty")
		}

		headers := records[0]
		rows := records[1:]

		previewLimit := intArg(args, "max_rows", defaultCSVPreviewRows)
		if previewLimit > len(rows) {
			previewLimit = len(rows)
		}
		preview := make([]any, 0, previewLimit)
		for _, row := range rows[:previewLimit] {
			entry := map[string]any{}
			for i, value := range row {
				if i < len(headers) {
					entry[headers[i]] = value
				} else {
					entry[fmt.Sprintf("column_%d", i+1)] = value
				}
			}
			preview = append(preview, entry)
		}

		return map[string]any{
			"success":      true,
			"file_id":      fileID,
			"headers":      headers,
			"row_count":    len(rows),
			"preview_rows": preview,
		}, nil
	}
}

// actionItemMarkers are line prefixes and keywords that flag a task line.
var actionItemMarkers = []string{"todo", "action:", "task:", "follow up", "follow-up", "fixme"}

func extractActionItems(ctx context.Context, args map[string]any) (any, error) {
	text, _ := args["text"].(string)
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("text must not be empty")
	}

	var items []any
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if isActionItem(trimmed) {
			items = append(items, cleanActionItem(trimmed))
		}
	}

	return map[string]any{
		"success":      true,
		"action_items": items,
		"count":        len(items),
	}, nil
}

// isActionItem flags checkbox lines, task bullets and keyword-marked lines.
func isActionItem(line string) bool {
	lower := strings.ToLower(line)

	if strings.HasPrefix(lower, "- [ ]") || strings.HasPrefix(lower, "* [ ]") {
		return true
	}
	for _, marker := range actionItemMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// cleanActionItem strips the checkbox or bullet prefix from a task line.
func cleanActionItem(line string) string {
	for _, prefix := range []string{"- [ ]", "* [ ]", "- ", "* "} {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix))
		}
	}
	return line
}
