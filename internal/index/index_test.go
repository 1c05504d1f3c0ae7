package index

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/gxPan1006/meme/internal/domain"
)

type stubEmbedder struct {
	vectors    map[string][]float32
	batchCalls int
	queryCalls int
	err        error
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	s.batchCalls++
	if s.err != nil {
		return nil, s.err
	}
	rows := make([][]float32, len(texts))
	for i, text := range texts {
		rows[i] = s.lookup(text)
	}
	return rows, nil
}

func (s *stubEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	s.queryCalls++
	if s.err != nil {
		return nil, s.err
	}
	return s.lookup(text), nil
}

func (s *stubEmbedder) lookup(text string) []float32 {
	if v, ok := s.vectors[text]; ok {
		return v
	}
	return []float32{0, 0}
}

func emotionRecord(name, emotion string) domain.MemeRecord {
	return domain.MemeRecord{
		Name: name,
		URL:  "https://memes.test/" + name,
		Analysis: domain.Analysis{
			Emotion: domain.StringList{emotion},
		},
	}
}

func builtIndex(t *testing.T) (*VectorIndex, *stubEmbedder) {
	t.Helper()
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"开心": {1, 0},
		"愤怒": {0, 1},
	}}
	vi := New(embedder)
	vi.LoadRecords([]domain.MemeRecord{
		emotionRecord("happy.jpg", "开心"),
		emotionRecord("angry.jpg", "愤怒"),
		emotionRecord("happy2.jpg", "开心"),
	})
	if err := vi.Build(context.Background()); err != nil {
		t.Fatalf("build: %v", err)
	}
	return vi, embedder
}

func TestVectorIndexLoadRecordsFiltering(t *testing.T) {
	vi := New(&stubEmbedder{})
	vi.LoadRecords([]domain.MemeRecord{
		emotionRecord("good.jpg", "开心"),
		{Name: "failed.jpg", URL: "u", Analysis: domain.Analysis{Error: "missing choices", Raw: "oops"}},
		{Name: "empty.jpg", URL: "u", Analysis: domain.Analysis{}},
		{Name: "blank.jpg", URL: "u", Analysis: domain.Analysis{Emotion: domain.StringList{""}}},
	})

	if vi.Count() != 1 {
		t.Fatalf("expected 1 indexable record, got %d", vi.Count())
	}
	if vi.records[0].Name != "good.jpg" {
		t.Errorf("expected good.jpg to survive, got %s", vi.records[0].Name)
	}
	if vi.texts[0] != "开心" {
		t.Errorf("expected query text 开心, got %q", vi.texts[0])
	}
}

func TestVectorIndexLoadRecordsResetsMatrix(t *testing.T) {
	vi, _ := builtIndex(t)
	if !vi.Ready() {
		t.Fatal("expected index to be ready after build")
	}

	vi.LoadRecords([]domain.MemeRecord{emotionRecord("new.jpg", "开心")})
	if vi.Ready() {
		t.Error("expected matrix to be discarded after reloading records")
	}
	if vi.Dimensions() != 0 {
		t.Errorf("expected dimensions 0, got %d", vi.Dimensions())
	}
}

func TestVectorIndexBuildNoRecords(t *testing.T) {
	vi := New(&stubEmbedder{})
	if err := vi.Build(context.Background()); !errors.Is(err, ErrNoRecords) {
		t.Errorf("expected ErrNoRecords, got %v", err)
	}

	vi.LoadRecords([]domain.MemeRecord{
		{Name: "failed.jpg", URL: "u", Analysis: domain.Analysis{Error: "api error"}},
	})
	if err := vi.Build(context.Background()); !errors.Is(err, ErrNoRecords) {
		t.Errorf("expected ErrNoRecords when nothing is indexable, got %v", err)
	}
}

func TestVectorIndexBuildEmbedderError(t *testing.T) {
	boom := errors.New("provider down")
	vi := New(&stubEmbedder{err: boom})
	vi.LoadRecords([]domain.MemeRecord{emotionRecord("a.jpg", "开心")})

	if err := vi.Build(context.Background()); !errors.Is(err, boom) {
		t.Errorf("expected embedder error to propagate, got %v", err)
	}
	if vi.Ready() {
		t.Error("expected index to stay unbuilt after a failed build")
	}
}

func TestVectorIndexSearchBeforeBuild(t *testing.T) {
	vi := New(&stubEmbedder{})
	vi.LoadRecords([]domain.MemeRecord{emotionRecord("a.jpg", "开心")})

	if _, err := vi.Search(context.Background(), "开心", 3); !errors.Is(err, ErrNotBuilt) {
		t.Errorf("expected ErrNotBuilt from Search, got %v", err)
	}
	if err := vi.Save(filepath.Join(t.TempDir(), "idx.vec")); !errors.Is(err, ErrNotBuilt) {
		t.Errorf("expected ErrNotBuilt from Save, got %v", err)
	}
}

func TestVectorIndexSearchRanking(t *testing.T) {
	vi, _ := builtIndex(t)

	results, err := vi.Search(context.Background(), "开心", 3)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	// Two records score 1.0 and must keep their insertion order.
	wantNames := []string{"happy.jpg", "happy2.jpg", "angry.jpg"}
	for i, want := range wantNames {
		if results[i].Name != want {
			t.Errorf("rank %d: expected %s, got %s", i, want, results[i].Name)
		}
	}
	if results[0].Score != 1 || results[1].Score != 1 {
		t.Errorf("expected top scores 1.0, got %v and %v", results[0].Score, results[1].Score)
	}
	if results[2].Score != 0 {
		t.Errorf("expected bottom score 0, got %v", results[2].Score)
	}
}

func TestVectorIndexSearchTopK(t *testing.T) {
	vi, _ := builtIndex(t)

	tests := []struct {
		name string
		topK int
		want int
	}{
		{"negative", -1, 0},
		{"zero", 0, 0},
		{"partial", 2, 2},
		{"exact", 3, 3},
		{"clamped", 10, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := vi.Search(context.Background(), "开心", tt.topK)
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if len(results) != tt.want {
				t.Errorf("topK=%d: expected %d results, got %d", tt.topK, tt.want, len(results))
			}
		})
	}
}

func TestVectorIndexSearchDimensionMismatch(t *testing.T) {
	vi, embedder := builtIndex(t)
	embedder.vectors["短"] = []float32{1, 0, 0}

	if _, err := vi.Search(context.Background(), "短", 3); err == nil {
		t.Error("expected error for mismatched query dimension")
	}
}

func TestVectorIndexFindSimilarFromAnalysis(t *testing.T) {
	vi, embedder := builtIndex(t)

	// Empty and error-marked analyses yield nothing and never hit the embedder.
	before := embedder.queryCalls
	results, err := vi.FindSimilarFromAnalysis(context.Background(), domain.Analysis{}, 3)
	if err != nil {
		t.Fatalf("empty analysis: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results for empty analysis, got %d", len(results))
	}
	if embedder.queryCalls != before {
		t.Error("expected embedder to stay untouched for empty analysis")
	}

	results, err = vi.FindSimilarFromAnalysis(context.Background(), domain.Analysis{
		Emotion: domain.StringList{"开心"},
	}, 1)
	if err != nil {
		t.Fatalf("analysis search: %v", err)
	}
	if len(results) != 1 || results[0].Name != "happy.jpg" {
		t.Errorf("expected happy.jpg as best match, got %+v", results)
	}
}

func TestVectorIndexSaveLoadRoundTrip(t *testing.T) {
	vi, embedder := builtIndex(t)

	path := filepath.Join(t.TempDir(), "meme_index.vec")
	if err := vi.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(RecordsPath(path)); err != nil {
		t.Fatalf("expected sibling records file: %v", err)
	}

	loaded := New(&stubEmbedder{vectors: embedder.vectors})
	if err := loaded.LoadFile(path); err != nil {
		t.Fatalf("load: %v", err)
	}

	if !reflect.DeepEqual(loaded.records, vi.records) {
		t.Errorf("records changed across save/load:\n%+v\n%+v", loaded.records, vi.records)
	}
	if !reflect.DeepEqual(loaded.texts, vi.texts) {
		t.Errorf("texts changed across save/load: %v vs %v", loaded.texts, vi.texts)
	}
	if !reflect.DeepEqual(loaded.matrix, vi.matrix) {
		t.Error("matrix changed across save/load")
	}

	results, err := loaded.Search(context.Background(), "开心", 2)
	if err != nil {
		t.Fatalf("search after load: %v", err)
	}
	if len(results) != 2 || results[0].Name != "happy.jpg" || results[1].Name != "happy2.jpg" {
		t.Errorf("unexpected ranking after load: %+v", results)
	}
}

func TestVectorIndexLoadFileCorrupt(t *testing.T) {
	gzipped := func(payload []byte) []byte {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(payload); err != nil {
			t.Fatal(err)
		}
		if err := zw.Close(); err != nil {
			t.Fatal(err)
		}
		return buf.Bytes()
	}

	writePair := func(t *testing.T, dir string, records, vectors []byte) string {
		t.Helper()
		path := filepath.Join(dir, "idx.vec")
		if err := os.WriteFile(RecordsPath(path), records, 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, vectors, 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	emptyRecords := []byte("[]")

	tests := []struct {
		name    string
		records []byte
		vectors []byte
	}{
		{"not gzip", emptyRecords, []byte("plain garbage")},
		{"bad magic", emptyRecords, gzipped([]byte("WRONGMAG\x00\x00\x00\x00\x00\x00\x00\x00"))},
		{"truncated header", emptyRecords, gzipped([]byte(vectorMagic))},
		{"records not json", []byte("{broken"), gzipped([]byte(vectorMagic))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writePair(t, t.TempDir(), tt.records, tt.vectors)
			vi := New(&stubEmbedder{})
			if err := vi.LoadFile(path); !errors.Is(err, ErrCorrupt) {
				t.Errorf("expected ErrCorrupt, got %v", err)
			}
		})
	}
}

func TestVectorIndexLoadFileCountMismatch(t *testing.T) {
	vi, _ := builtIndex(t)
	path := filepath.Join(t.TempDir(), "idx.vec")
	if err := vi.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Rewrite the sibling JSON with fewer records than the matrix has rows.
	extra := []byte(`[{"name":"only.jpg","url":"u"}]`)
	if err := os.WriteFile(RecordsPath(path), extra, 0o644); err != nil {
		t.Fatal(err)
	}

	loaded := New(&stubEmbedder{})
	if err := loaded.LoadFile(path); !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt for record/row mismatch, got %v", err)
	}
}

func TestVectorIndexLoadFileMissingRecords(t *testing.T) {
	vi := New(&stubEmbedder{})
	err := vi.LoadFile(filepath.Join(t.TempDir(), "nowhere.vec"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist, got %v", err)
	}
	if errors.Is(err, ErrCorrupt) {
		t.Error("missing files must not be reported as corrupt")
	}
}

func TestRecordsPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"meme_index.vec", "meme_index.json"},
		{"data/index.npz", "data/index.json"},
		{"plain", "plain.json"},
		{"a.b.vec", "a.b.json"},
	}

	for _, tt := range tests {
		if got := RecordsPath(tt.path); got != tt.want {
			t.Errorf("RecordsPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
