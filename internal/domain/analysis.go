package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// StringList holds an analysis field that the vision model returns either as
// a single string or as an ordered list of strings.
type StringList []string

// MarshalJSON implements json.Marshaler. A single element is written back as
// a bare string so round trips preserve the provider's original shape.
func (s StringList) MarshalJSON() ([]byte, error) {
	if len(s) == 1 {
		return json.Marshal(s[0])
	}
	return json.Marshal([]string(s))
}

// UnmarshalJSON implements json.Unmarshaler, accepting a string, a list of
// strings, or null.
func (s *StringList) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = nil
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = StringList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("analysis field must be a string or a list of strings: %w", err)
	}
	*s = StringList(many)
	return nil
}

// Analysis is the metadata the vision model produced for one meme. Three
// shapes occur: structured fields parsed from the model's JSON output, a raw
// fallback holding output that was not valid JSON, and an error marker
// recorded by the batch pipeline when analysis failed outright. Loaders and
// the normalizer branch on the explicit predicates below rather than probing
// for keys.
type Analysis struct {
	Emotion           StringList `json:"emotion,omitempty"`
	UsageScene        StringList `json:"usage_scene,omitempty"`
	DesignInspiration StringList `json:"design_inspiration,omitempty"`
	Raw               string     `json:"raw,omitempty"`
	Error             string     `json:"error,omitempty"`
}

// IsError reports whether the analysis carries an error marker.
func (a Analysis) IsError() bool {
	return a.Error != ""
}

// IsZero reports whether the analysis carries nothing at all.
func (a Analysis) IsZero() bool {
	return len(a.Emotion) == 0 && len(a.UsageScene) == 0 &&
		len(a.DesignInspiration) == 0 && a.Raw == "" && a.Error == ""
}

// Indexable reports whether a record with this analysis belongs in the
// vector index: no error marker and a non-empty query text.
func (a Analysis) Indexable() bool {
	return !a.IsError() && a.QueryText() != ""
}

// QueryText flattens the analysis into the single string fed to the
// embedding model. Elements of emotion, usage scene and design inspiration
// are appended in that fixed order, a non-blank raw fallback is appended
// last, empty elements are skipped, and the parts are joined with single
// spaces. The result is empty only when every field is absent or blank;
// callers treat an empty result as "not indexable". The error marker does
// not short-circuit flattening: error records are excluded by the index
// loader, not here.
func (a Analysis) QueryText() string {
	var parts []string
	for _, field := range []StringList{a.Emotion, a.UsageScene, a.DesignInspiration} {
		for _, p := range field {
			if p != "" {
				parts = append(parts, p)
			}
		}
	}
	if strings.TrimSpace(a.Raw) != "" {
		parts = append(parts, a.Raw)
	}
	return strings.Join(parts, " ")
}
