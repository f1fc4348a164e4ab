package mapper

import (
	"encoding/json"

	"ai-plantcare-be/internal/entity"
	"ai-plantcare-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type ContextEntryMapper struct{}

func NewContextEntryMapper() *ContextEntryMapper {
	return &ContextEntryMapper{}
}

func (m *ContextEntryMapper) ToEntity(e *model.ContextEntry) *entity.ContextEntry {
	if e == nil {
		return nil
	}

	var metadata map[string]interface{}
	if len(e.Metadata) > 0 {
		// Malformed rows degrade to nil metadata rather than failing the read
		_ = json.Unmarshal(e.Metadata, &metadata)
	}

	return &entity.ContextEntry{
		Id:             e.Id,
		UserId:         e.UserId,
		SubjectId:      e.SubjectId,
		Category:       e.Category,
		Summary:        e.Summary,
		EmbeddingValue: e.EmbeddingValue.Slice(),
		Metadata:       metadata,
		SourceTurnId:   e.SourceTurnId,
		CreatedAt:      e.CreatedAt,
	}
}

func (m *ContextEntryMapper) ToModel(e *entity.ContextEntry) *model.ContextEntry {
	if e == nil {
		return nil
	}

	var metadata datatypes.JSON
	if e.Metadata != nil {
		if raw, err := json.Marshal(e.Metadata); err == nil {
			metadata = raw
		}
	}

	return &model.ContextEntry{
		Id:             e.Id,
		UserId:         e.UserId,
		SubjectId:      e.SubjectId,
		Category:       e.Category,
		Summary:        e.Summary,
		EmbeddingValue: pgvector.NewVector(e.EmbeddingValue),
		Metadata:       metadata,
		SourceTurnId:   e.SourceTurnId,
		CreatedAt:      e.CreatedAt,
	}
}

func (m *ContextEntryMapper) ToEntities(entries []*model.ContextEntry) []*entity.ContextEntry {
	entities := make([]*entity.ContextEntry, len(entries))
	for i, e := range entries {
		entities[i] = m.ToEntity(e)
	}
	return entities
}
