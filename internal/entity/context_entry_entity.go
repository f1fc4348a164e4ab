package entity

import (
	"time"

	"github.com/google/uuid"
)

// ContextEntry is one remembered summary in the long-term context store.
// Entries are append-only: a newer entry about the same subject supersedes
// older ones by recency at read time, never by mutation.
type ContextEntry struct {
	Id             uuid.UUID
	UserId         uuid.UUID
	SubjectId      string // Plant/topic the summary is about
	Category       string // "diagnosis" | "conversation"
	Summary        string
	EmbeddingValue []float32
	Metadata       map[string]interface{}
	SourceTurnId   *uuid.UUID
	CreatedAt      time.Time
}
