package contract

import (
	"context"

	"ai-plantcare-be/internal/entity"
	"ai-plantcare-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ScoredContextEntry pairs an entry with its cosine similarity to a query.
type ScoredContextEntry struct {
	Entry      *entity.ContextEntry
	Similarity float64
}

// ContextEntryRepository is append-only: entries are created and queried,
// never updated.
type ContextEntryRepository interface {
	Create(ctx context.Context, entry *entity.ContextEntry) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ContextEntry, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// SearchSimilarWithScore returns the top entries for the user ordered by
	// similarity descending. When minScore is non-nil the threshold is applied
	// in SQL before the limit, so low-scoring entries never crowd out the
	// result set.
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, userId uuid.UUID, minScore *float64) ([]*ScoredContextEntry, error)
}
