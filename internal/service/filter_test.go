package service

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFilterInput(t *testing.T, content string) (inputPath, outputPath string) {
	t.Helper()
	dir := t.TempDir()
	inputPath = filepath.Join(dir, "catalog.json")
	outputPath = filepath.Join(dir, "static.json")
	if err := os.WriteFile(inputPath, []byte(content), 0o644); err != nil {
		t.Fatalf("writing input: %v", err)
	}
	return inputPath, outputPath
}

// TestFilterStaticMemesArray verifies gif filtering over a bare array input,
// matching on either the name or the url, case-insensitively.
func TestFilterStaticMemesArray(t *testing.T) {
	input := `[
		{"name": "哈哈.jpg", "url": "https://example.com/哈哈.jpg"},
		{"name": "动图.gif", "url": "https://example.com/动图.gif"},
		{"name": "大写.GIF", "url": "https://example.com/大写.GIF"},
		{"name": "藏在链接里", "url": "https://example.com/sneaky.gif"},
		{"name": "喵.png", "url": "https://example.com/喵.png"}
	]`
	inputPath, outputPath := writeFilterInput(t, input)

	stats, err := FilterStaticMemes(inputPath, outputPath)
	if err != nil {
		t.Fatalf("FilterStaticMemes() error = %v", err)
	}
	if stats.Total != 5 || stats.Kept != 2 || stats.Removed != 3 {
		t.Errorf("stats = %+v, want total 5, kept 2, removed 3", stats)
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	var entries []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("output is not a JSON array: %v", err)
	}
	if len(entries) != 2 || entries[0].Name != "哈哈.jpg" || entries[1].Name != "喵.png" {
		t.Errorf("kept entries = %+v, want 哈哈.jpg and 喵.png in order", entries)
	}
	if !strings.Contains(string(data), "哈哈.jpg") {
		t.Error("output should keep multibyte names unescaped")
	}
}

// TestFilterStaticMemesObject verifies that an object input keeps its
// sibling keys and gets the filtered list under data.
func TestFilterStaticMemesObject(t *testing.T) {
	input := `{
		"version": 3,
		"source": "ChineseBQB",
		"data": [
			{"name": "a.jpg", "url": "https://example.com/a.jpg"},
			{"name": "b.gif", "url": "https://example.com/b.gif"}
		]
	}`
	inputPath, outputPath := writeFilterInput(t, input)

	stats, err := FilterStaticMemes(inputPath, outputPath)
	if err != nil {
		t.Fatalf("FilterStaticMemes() error = %v", err)
	}
	if stats.Kept != 1 || stats.Removed != 1 {
		t.Errorf("stats = %+v, want kept 1, removed 1", stats)
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	var out struct {
		Version int    `json:"version"`
		Source  string `json:"source"`
		Data    []struct {
			Name string `json:"name"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("output is not a JSON object: %v", err)
	}
	if out.Version != 3 || out.Source != "ChineseBQB" {
		t.Errorf("sibling keys not preserved: %+v", out)
	}
	if len(out.Data) != 1 || out.Data[0].Name != "a.jpg" {
		t.Errorf("data = %+v, want only a.jpg", out.Data)
	}
}

// TestFilterStaticMemesBadShapes verifies the error cases: unusable input
// shapes and missing files.
func TestFilterStaticMemesBadShapes(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{name: "object without data", content: `{"memes": []}`},
		{name: "data not a list", content: `{"data": "nope"}`},
		{name: "scalar document", content: `42`},
		{name: "broken json", content: `[{"name": `},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			inputPath, outputPath := writeFilterInput(t, tc.content)
			if _, err := FilterStaticMemes(inputPath, outputPath); err == nil {
				t.Error("expected an error")
			}
			if _, err := os.Stat(outputPath); !os.IsNotExist(err) {
				t.Error("no output should be written on failure")
			}
		})
	}

	t.Run("missing input", func(t *testing.T) {
		dir := t.TempDir()
		_, err := FilterStaticMemes(filepath.Join(dir, "absent.json"), filepath.Join(dir, "out.json"))
		if err == nil {
			t.Error("expected an error for a missing input file")
		}
	})
}

// TestFilterStaticMemesKeepsNonObjectEntries verifies that entries that are
// not objects pass through rather than being dropped.
func TestFilterStaticMemesKeepsNonObjectEntries(t *testing.T) {
	inputPath, outputPath := writeFilterInput(t, `[{"name": "x.gif"}, "stray string", 7]`)

	stats, err := FilterStaticMemes(inputPath, outputPath)
	if err != nil {
		t.Fatalf("FilterStaticMemes() error = %v", err)
	}
	if stats.Kept != 2 {
		t.Errorf("Kept = %d, want 2 passthrough entries", stats.Kept)
	}
}
