package service

import (
	"context"

	"ai-plantcare-be/internal/dto"
	"ai-plantcare-be/internal/repository/unitofwork"
	"ai-plantcare-be/pkg/contextstore"

	"github.com/google/uuid"
)

type IPodcastContextService interface {
	GetRecentContext(ctx context.Context, userId uuid.UUID, topic string, limit int) (*dto.PodcastContextResponse, error)
}

// podcastContextService feeds the episode generator with raw ranked context.
// No relevance floor: weak matches are still useful filler material, and
// the generator makes its own cut.
type podcastContextService struct {
	uowFactory unitofwork.Factory
	contexts   *contextstore.Store
}

func NewPodcastContextService(uowFactory unitofwork.Factory, contexts *contextstore.Store) IPodcastContextService {
	return &podcastContextService{
		uowFactory: uowFactory,
		contexts:   contexts,
	}
}

func (ps *podcastContextService) GetRecentContext(ctx context.Context, userId uuid.UUID, topic string, limit int) (*dto.PodcastContextResponse, error) {
	if limit <= 0 {
		limit = contextstore.DefaultTopK
	}

	uow := ps.uowFactory(ctx)
	entries, err := ps.contexts.Query(ctx, uow, contextstore.QueryInput{
		UserId: userId,
		Text:   topic,
		TopK:   limit,
	})
	if err != nil {
		return nil, err
	}

	items := make([]dto.PodcastContextItem, 0, len(entries))
	for _, hit := range entries {
		items = append(items, dto.PodcastContextItem{
			SubjectId: hit.Entry.SubjectId,
			Category:  hit.Entry.Category,
			Summary:   hit.Entry.Summary,
			Score:     hit.Score,
			Metadata:  hit.Entry.Metadata,
			CreatedAt: hit.Entry.CreatedAt,
		})
	}

	return &dto.PodcastContextResponse{
		Topic:   topic,
		Entries: items,
	}, nil
}
