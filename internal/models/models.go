package models

import "time"

// Mention represents one press article attributed to a tracked brand.
// Provider fields are optional; absent values stay zero ("" / nil).
type Mention struct {
	Brand       string     `json:"brand"`
	Title       string     `json:"title,omitempty"`
	Source      string     `json:"source,omitempty"`
	URL         string     `json:"url,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Snippet     string     `json:"snippet,omitempty"`
}

// DateWindow is the half-open range [Start, End) a refresh covers.
type DateWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window.
func (w DateWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// BrandShare holds one brand's slice of the total mention volume.
type BrandShare struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// ShareOfVoice maps brand name to its share of all mentions in the window.
// Percentages sum to ~100 when any mentions exist, and are all zero otherwise.
type ShareOfVoice map[string]BrandShare

// Digest is the short textual summary produced for one brand's headlines.
type Digest struct {
	Brand string `json:"brand"`
	Text  string `json:"text"`
}

// Snapshot is the complete result of one pipeline run. It is immutable once
// built and replaced wholesale on every refresh; callers must not mutate it.
type Snapshot struct {
	Window      DateWindow   `json:"window"`
	Mentions    []Mention    `json:"mentions"`
	SOV         ShareOfVoice `json:"share_of_voice"`
	TopBrand    string       `json:"top_brand,omitempty"`
	Digests     []Digest     `json:"digests"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// TotalMentions returns the number of mentions across all brands.
func (s *Snapshot) TotalMentions() int {
	return len(s.Mentions)
}
