package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// ContextEntry rows are append-only, there is no soft delete column on
// purpose: supersession is resolved by recency at query time.
type ContextEntry struct {
	Id             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId         uuid.UUID       `gorm:"type:uuid;not null;index"`
	SubjectId      string          `gorm:"type:text;index"`
	Category       string          `gorm:"type:varchar(30);index"` // "diagnosis" | "conversation"
	Summary        string          `gorm:"type:text;not null"`
	EmbeddingValue pgvector.Vector `gorm:"type:vector(768)"` // Gemini text-embedding-004 uses 768 dimensions
	Metadata       datatypes.JSON  `gorm:"type:jsonb"`
	SourceTurnId   *uuid.UUID      `gorm:"type:uuid"`
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
}

func (ContextEntry) TableName() string {
	return "context_entries"
}
