package implementation

import (
	"context"

	"ai-plantcare-be/internal/entity"
	"ai-plantcare-be/internal/mapper"
	"ai-plantcare-be/internal/model"
	"ai-plantcare-be/internal/repository/contract"
	"ai-plantcare-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type ContextEntryRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ContextEntryMapper
}

func NewContextEntryRepository(db *gorm.DB) contract.ContextEntryRepository {
	return &ContextEntryRepositoryImpl{
		db:     db,
		mapper: mapper.NewContextEntryMapper(),
	}
}

func (r *ContextEntryRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ContextEntryRepositoryImpl) Create(ctx context.Context, entry *entity.ContextEntry) error {
	m := r.mapper.ToModel(entry)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*entry = *r.mapper.ToEntity(m)
	return nil
}

func (r *ContextEntryRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ContextEntry, error) {
	var models []*model.ContextEntry
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *ContextEntryRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.ContextEntry{}).Count(&count).Error
	return count, err
}

func (r *ContextEntryRepositoryImpl) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, userId uuid.UUID, minScore *float64) ([]*contract.ScoredContextEntry, error) {
	if limit <= 0 {
		limit = 5
	}

	// Cosine distance in pgvector is: 1 - cosine_similarity
	// So 1 - (embedding_value <=> query_vector) gives the similarity.
	type result struct {
		model.ContextEntry
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	query := r.db.WithContext(ctx).
		Table("context_entries").
		Select("context_entries.*, 1 - (embedding_value <=> ?) as similarity", queryVector).
		Where("user_id = ?", userId)

	// Threshold before limit: a filtered query must never return entries
	// below the floor just to fill the top-k.
	if minScore != nil {
		query = query.Where("1 - (embedding_value <=> ?) >= ?", queryVector, *minScore)
	}

	err := query.
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error

	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredContextEntry, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredContextEntry{
			Entry:      r.mapper.ToEntity(&res.ContextEntry),
			Similarity: res.Similarity,
		}
	}
	return scored, nil
}
