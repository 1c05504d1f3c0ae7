package domain

// MemeRecord represents one meme image and its analysis metadata.
// Records are created by the analysis phase (one per input image), persisted
// to a JSON array file, and later loaded read-only by indexing and retrieval.
// Name identifies the meme within its catalog but is not guaranteed to be
// globally unique.
type MemeRecord struct {
	Name     string   `json:"name"`
	Category string   `json:"category,omitempty"`
	URL      string   `json:"url"`
	Analysis Analysis `json:"analysis,omitzero"`
}

// SearchResult is a MemeRecord ranked against one query with its similarity
// score. Results are produced fresh per query and never persisted.
type SearchResult struct {
	MemeRecord
	Score float32 `json:"score"`
}
