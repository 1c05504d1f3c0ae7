package repository

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gxPan1006/meme/internal/domain"
)

// ErrCatalogShape is returned when a catalog file is neither a JSON array nor
// an object carrying a "data" array.
var ErrCatalogShape = errors.New("repository: catalog must be an array or an object with a data array")

// LoadCatalog reads a catalog file of meme entries. Both layouts produced by
// the crawlers are accepted: a bare JSON array, or an object wrapping the
// array under "data".
// Parameters:
//   - path: catalog JSON file.
// Returns:
//   - []domain.MemeRecord: catalog entries, analysis fields empty.
//   - error: non-nil if the file is unreadable or has the wrong shape.
func LoadCatalog(path string) ([]domain.MemeRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapper struct {
			Data []domain.MemeRecord `json:"data"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, fmt.Errorf("load catalog %s: %w", path, err)
		}
		if wrapper.Data == nil {
			return nil, fmt.Errorf("load catalog %s: %w", path, ErrCatalogShape)
		}
		return wrapper.Data, nil
	}
	var records []domain.MemeRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return records, nil
}

// LoadResults reads an analysis output file, which is always a JSON array of
// analyzed records.
// Parameters:
//   - path: analysis JSON file.
// Returns:
//   - []domain.MemeRecord: analyzed records in file order.
//   - error: non-nil if the file is unreadable or not an array.
func LoadResults(path string) ([]domain.MemeRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}
	var records []domain.MemeRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("load results %s: %w", path, err)
	}
	return records, nil
}

// LoadExisting reads a previous analysis output for resume mode. A missing
// file or a file of the wrong shape yields no records; broken JSON is still
// an error.
// Parameters:
//   - path: analysis JSON file from an earlier run.
// Returns:
//   - []domain.MemeRecord: named records in file order, empty if absent.
//   - error: non-nil only if the file exists but cannot be parsed.
func LoadExisting(path string) ([]domain.MemeRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("load existing: %w", err)
	}
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("load existing %s: %w", path, err)
	}
	var records []domain.MemeRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, nil
	}
	// Duplicate names keep their first position but the last value wins.
	var named []domain.MemeRecord
	pos := make(map[string]int, len(records))
	for _, rec := range records {
		if rec.Name == "" {
			continue
		}
		if i, ok := pos[rec.Name]; ok {
			named[i] = rec
			continue
		}
		pos[rec.Name] = len(named)
		named = append(named, rec)
	}
	return named, nil
}

// ExistingByName indexes records by name for resume lookups. Unnamed records
// are skipped.
func ExistingByName(records []domain.MemeRecord) map[string]domain.MemeRecord {
	byName := make(map[string]domain.MemeRecord, len(records))
	for _, rec := range records {
		if rec.Name == "" {
			continue
		}
		byName[rec.Name] = rec
	}
	return byName
}

// SaveResults writes analyzed records as a JSON array, human readable with
// two-space indentation and unescaped multibyte text.
// Parameters:
//   - path: destination file, parent directories created as needed.
//   - records: analyzed records to persist.
// Returns:
//   - error: non-nil if encoding or writing fails.
func SaveResults(path string, records []domain.MemeRecord) error {
	return WriteJSON(path, records)
}

// WriteJSON writes any value as indented JSON without HTML escaping, the
// shared on-disk convention for every artifact this pipeline produces.
func WriteJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
