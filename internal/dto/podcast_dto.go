package dto

import "time"

// PodcastContextItem is one recent-context snippet for episode generation.
// Raw ranked hits, no relevance floor: the generator decides what to use.
type PodcastContextItem struct {
	SubjectId string                 `json:"subject_id"`
	Category  string                 `json:"category"`
	Summary   string                 `json:"summary"`
	Score     float64                `json:"score"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

type PodcastContextResponse struct {
	Topic   string               `json:"topic"`
	Entries []PodcastContextItem `json:"entries"`
}
