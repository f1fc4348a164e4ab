package contextstore

import (
	"context"
	"fmt"
	"time"

	"ai-plantcare-be/internal/entity"
	"ai-plantcare-be/internal/pkg/logger"
	"ai-plantcare-be/internal/repository/unitofwork"
	"ai-plantcare-be/pkg/embedding"

	"github.com/google/uuid"
)

const DefaultTopK = 3

// Store is the long-term memory of the assistant: it embeds conversation
// summaries, appends them as context entries and answers similarity queries.
// Entries are never edited or deleted; a newer entry about the same subject
// supersedes older ones by recency on the read side.
type Store struct {
	embedder embedding.EmbeddingProvider
	logger   logger.ILogger
}

func NewStore(embedder embedding.EmbeddingProvider, log logger.ILogger) *Store {
	return &Store{
		embedder: embedder,
		logger:   log,
	}
}

type UpsertInput struct {
	UserId       uuid.UUID
	SubjectId    string // Plant/topic the summary is about
	Category     string // constant.ContextCategoryDiagnosis | ...Conversation
	Summary      string
	SourceTurnId *uuid.UUID
	Metadata     map[string]interface{} // Optional extra metadata
}

type QueryInput struct {
	UserId uuid.UUID
	Text   string
	TopK   int
	// MinScore drops entries below the floor, applied in SQL before the
	// limit. Nil means unfiltered: the raw top-k regardless of score.
	MinScore *float64
}

// ScoredEntry is a query hit with its cosine similarity.
type ScoredEntry struct {
	Entry *entity.ContextEntry
	Score float64
}

// Upsert embeds the summary and appends it as a new context entry.
func (s *Store) Upsert(ctx context.Context, uow unitofwork.UnitOfWork, in UpsertInput) (*entity.ContextEntry, error) {
	if in.Summary == "" {
		return nil, fmt.Errorf("contextstore: summary is required")
	}

	res, err := s.embedder.Generate(in.Summary, embedding.TaskRetrievalDocument)
	if err != nil {
		return nil, fmt.Errorf("contextstore: embed summary: %w", err)
	}

	metadata := map[string]interface{}{
		"user_id":    in.UserId.String(),
		"subject_id": in.SubjectId,
		"category":   in.Category,
		"summary":    in.Summary,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range in.Metadata {
		metadata[k] = v
	}

	entry := &entity.ContextEntry{
		Id:             uuid.New(),
		UserId:         in.UserId,
		SubjectId:      in.SubjectId,
		Category:       in.Category,
		Summary:        in.Summary,
		EmbeddingValue: res.Embedding.Values,
		Metadata:       metadata,
		SourceTurnId:   in.SourceTurnId,
		CreatedAt:      time.Now(),
	}

	if err := uow.ContextEntryRepository().Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("contextstore: persist entry: %w", err)
	}

	s.logger.Info("contextstore", "context entry stored", map[string]interface{}{
		"user_id":    in.UserId.String(),
		"subject_id": in.SubjectId,
		"category":   in.Category,
	})
	return entry, nil
}

// Query embeds the text and returns the user's most similar entries in
// descending score order. Side-effect free: safe for any consumer to call.
func (s *Store) Query(ctx context.Context, uow unitofwork.UnitOfWork, in QueryInput) ([]ScoredEntry, error) {
	if in.Text == "" {
		return nil, nil
	}
	topK := in.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	res, err := s.embedder.Generate(in.Text, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("contextstore: embed query: %w", err)
	}

	scored, err := uow.ContextEntryRepository().SearchSimilarWithScore(
		ctx, res.Embedding.Values, topK, in.UserId, in.MinScore)
	if err != nil {
		return nil, fmt.Errorf("contextstore: similarity search: %w", err)
	}

	entries := make([]ScoredEntry, len(scored))
	for i, hit := range scored {
		entries[i] = ScoredEntry{Entry: hit.Entry, Score: hit.Similarity}
	}
	return entries, nil
}
