package service

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/gxPan1006/meme/internal/repository"
)

// FilterStats holds counts for a static-meme filter run.
type FilterStats struct {
	Total   int
	Kept    int
	Removed int
}

type filterEntry struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// isGIFEntry reports whether an entry names or links a .gif file. Entries
// that do not decode as objects are kept.
func isGIFEntry(raw json.RawMessage) bool {
	var e filterEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(e.Name), ".gif") ||
		strings.HasSuffix(strings.ToLower(e.URL), ".gif")
}

// FilterStaticMemes drops animated .gif entries from a catalog file and
// writes the remainder to outputPath. A bare array stays an array; an
// object with a "data" list keeps its other keys and gets the filtered
// list in place.
// Parameters:
//   - inputPath: catalog JSON file to filter.
//   - outputPath: destination for the filtered catalog.
//
// Returns:
//   - *FilterStats: entry counts for the run.
//   - error: non-nil if the input cannot be read or has no entry list.
func FilterStaticMemes(inputPath, outputPath string) (*FilterStats, error) {
	payload, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("filter catalog: %w", err)
	}

	trimmed := strings.TrimLeft(string(payload), " \t\r\n")
	switch {
	case strings.HasPrefix(trimmed, "["):
		var entries []json.RawMessage
		if err := json.Unmarshal(payload, &entries); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", inputPath, err)
		}
		kept := filterEntries(entries)
		stats := &FilterStats{Total: len(entries), Kept: len(kept), Removed: len(entries) - len(kept)}
		if err := repository.WriteJSON(outputPath, kept); err != nil {
			return nil, err
		}
		return stats, nil

	case strings.HasPrefix(trimmed, "{"):
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(payload, &wrapper); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", inputPath, err)
		}
		dataRaw, ok := wrapper["data"]
		if !ok {
			return nil, fmt.Errorf("catalog %s: object input has no data list", inputPath)
		}
		var entries []json.RawMessage
		if err := json.Unmarshal(dataRaw, &entries); err != nil {
			return nil, fmt.Errorf("catalog %s: data is not a list", inputPath)
		}
		kept := filterEntries(entries)
		replaced, err := json.Marshal(kept)
		if err != nil {
			return nil, err
		}
		wrapper["data"] = replaced
		stats := &FilterStats{Total: len(entries), Kept: len(kept), Removed: len(entries) - len(kept)}
		if err := repository.WriteJSON(outputPath, wrapper); err != nil {
			return nil, err
		}
		return stats, nil

	default:
		return nil, fmt.Errorf("catalog %s: expected a list or an object with data", inputPath)
	}
}

func filterEntries(entries []json.RawMessage) []json.RawMessage {
	kept := make([]json.RawMessage, 0, len(entries))
	for _, entry := range entries {
		if !isGIFEntry(entry) {
			kept = append(kept, entry)
		}
	}
	return kept
}
