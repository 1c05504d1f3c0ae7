package repository

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gxPan1006/meme/internal/domain"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "file.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadCatalog(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantNames []string
		wantErr   bool
	}{
		{
			name:      "bare array",
			content:   `[{"name":"a.jpg","url":"u1"},{"name":"b.jpg","url":"u2"}]`,
			wantNames: []string{"a.jpg", "b.jpg"},
		},
		{
			name:      "data wrapper",
			content:   `{"category_total":1,"data":[{"name":"汪星人001.gif","category":"汪星人","url":"u"}]}`,
			wantNames: []string{"汪星人001.gif"},
		},
		{
			name:    "object without data",
			content: `{"items":[]}`,
			wantErr: true,
		},
		{
			name:    "broken json",
			content: `[{"name":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := LoadCatalog(writeFile(t, tt.content))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(records) != len(tt.wantNames) {
				t.Fatalf("expected %d records, got %d", len(tt.wantNames), len(records))
			}
			for i, want := range tt.wantNames {
				if records[i].Name != want {
					t.Errorf("record %d: expected name %q, got %q", i, want, records[i].Name)
				}
			}
		})
	}
}

func TestLoadCatalogShapeError(t *testing.T) {
	_, err := LoadCatalog(writeFile(t, `{"total":3}`))
	if !errors.Is(err, ErrCatalogShape) {
		t.Errorf("expected ErrCatalogShape, got %v", err)
	}
}

func TestLoadResults(t *testing.T) {
	content := `[
  {
    "name": "happy.jpg",
    "category": "熊猫头",
    "url": "https://example.com/happy.jpg",
    "analysis": {
      "emotion": "开心",
      "usage_scene": ["庆祝", "分享好消息"],
      "design_inspiration": "熊猫头配大笑"
    }
  }
]`
	records, err := LoadResults(writeFile(t, content))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.Category != "熊猫头" {
		t.Errorf("expected category 熊猫头, got %q", rec.Category)
	}
	if got := rec.Analysis.QueryText(); got != "开心 庆祝 分享好消息 熊猫头配大笑" {
		t.Errorf("unexpected query text: %q", got)
	}

	if _, err := LoadResults(writeFile(t, `{"data":[]}`)); err == nil {
		t.Error("expected error for non-array results")
	}
}

func TestLoadExisting(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		records, err := LoadExisting(filepath.Join(t.TempDir(), "missing.json"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if records != nil {
			t.Errorf("expected nil records, got %v", records)
		}
	})

	t.Run("wrong shape tolerated", func(t *testing.T) {
		records, err := LoadExisting(writeFile(t, `{"not":"a list"}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 0 {
			t.Errorf("expected no records, got %d", len(records))
		}
	})

	t.Run("broken json", func(t *testing.T) {
		if _, err := LoadExisting(writeFile(t, `[{"name"`)); err == nil {
			t.Error("expected error for broken json")
		}
	})

	t.Run("unnamed skipped, duplicates collapse", func(t *testing.T) {
		content := `[
  {"name":"a.jpg","url":"u1"},
  {"name":"","url":"skipped"},
  {"name":"b.jpg","url":"u2"},
  {"name":"a.jpg","url":"u3"}
]`
		records, err := LoadExisting(writeFile(t, content))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(records))
		}
		if records[0].Name != "a.jpg" || records[0].URL != "u3" {
			t.Errorf("expected a.jpg with the last value first, got %+v", records[0])
		}
		if records[1].Name != "b.jpg" {
			t.Errorf("expected b.jpg second, got %+v", records[1])
		}
	})
}

func TestExistingByName(t *testing.T) {
	byName := ExistingByName([]domain.MemeRecord{
		{Name: "a.jpg", URL: "u1"},
		{Name: "", URL: "unnamed"},
		{Name: "b.jpg", URL: "u2"},
	})
	if len(byName) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(byName))
	}
	if _, ok := byName["a.jpg"]; !ok {
		t.Error("expected a.jpg in map")
	}
}

func TestSaveResultsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "results.json")
	records := []domain.MemeRecord{
		{
			Name:     "开心.jpg",
			Category: "猫咪",
			URL:      "https://example.com/a.jpg?w=1&h=2",
			Analysis: domain.Analysis{
				Emotion:    domain.StringList{"开心"},
				UsageScene: domain.StringList{"庆祝", "打招呼"},
			},
		},
		{
			Name:     "failed.jpg",
			URL:      "https://example.com/b.jpg",
			Analysis: domain.Analysis{Error: "missing choices", Raw: "<html>bad gateway</html>"},
		},
	}

	if err := SaveResults(path, records); err != nil {
		t.Fatalf("save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if !strings.Contains(text, `"开心"`) {
		t.Error("expected unescaped multibyte text in output")
	}
	if !strings.Contains(text, "<html>") || strings.Contains(text, `<`) {
		t.Error("expected angle brackets to stay unescaped")
	}
	if !strings.Contains(text, "\n  {") {
		t.Error("expected two-space indentation")
	}

	loaded, err := LoadResults(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 records, got %d", len(loaded))
	}
	if loaded[0].Analysis.QueryText() != "开心 庆祝 打招呼" {
		t.Errorf("unexpected query text after round trip: %q", loaded[0].Analysis.QueryText())
	}
	if !loaded[1].Analysis.IsError() {
		t.Error("expected error analysis to survive the round trip")
	}
}
