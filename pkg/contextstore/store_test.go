package contextstore

import (
	"context"
	"errors"
	"testing"

	"ai-plantcare-be/internal/entity"
	"ai-plantcare-be/internal/repository/contract"
	"ai-plantcare-be/internal/repository/specification"
	"ai-plantcare-be/pkg/embedding"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

type fakeEmbedder struct {
	lastTask string
	err      error
}

func (f *fakeEmbedder) Generate(text string, taskType string) (*embedding.EmbeddingResponse, error) {
	f.lastTask = taskType
	if f.err != nil {
		return nil, f.err
	}
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: []float32{0.5, 0.5}},
	}, nil
}

type fakeContextRepo struct {
	created   []*entity.ContextEntry
	entries   []*contract.ScoredContextEntry
	lastLimit int
	lastMin   *float64
}

func (r *fakeContextRepo) Create(ctx context.Context, entry *entity.ContextEntry) error {
	r.created = append(r.created, entry)
	return nil
}
func (r *fakeContextRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ContextEntry, error) {
	return nil, nil
}
func (r *fakeContextRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return 0, nil
}
func (r *fakeContextRepo) SearchSimilarWithScore(ctx context.Context, emb []float32, limit int, userId uuid.UUID, minScore *float64) ([]*contract.ScoredContextEntry, error) {
	r.lastLimit = limit
	r.lastMin = minScore
	return r.entries, nil
}

type fakeUow struct {
	contexts *fakeContextRepo
}

func (u *fakeUow) Begin(ctx context.Context) error                                 { return nil }
func (u *fakeUow) Commit() error                                                   { return nil }
func (u *fakeUow) Rollback() error                                                 { return nil }
func (u *fakeUow) ChatSessionRepository() contract.ChatSessionRepository           { return nil }
func (u *fakeUow) ChatMessageRepository() contract.ChatMessageRepository           { return nil }
func (u *fakeUow) ContextEntryRepository() contract.ContextEntryRepository {
	return u.contexts
}

func TestUpsertStoresEmbeddedEntry(t *testing.T) {
	embedder := &fakeEmbedder{}
	repo := &fakeContextRepo{}
	s := NewStore(embedder, nopLogger{})
	userId := uuid.New()

	entry, err := s.Upsert(context.Background(), &fakeUow{contexts: repo}, UpsertInput{
		UserId:    userId,
		SubjectId: "Basil",
		Category:  "diagnosis",
		Summary:   "Basil diagnosed with overwatering.",
		Metadata:  map[string]interface{}{"severity": "moderate"},
	})

	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	assert.Equal(t, embedding.TaskRetrievalDocument, embedder.lastTask)
	assert.Equal(t, []float32{0.5, 0.5}, entry.EmbeddingValue)
	assert.Equal(t, userId.String(), entry.Metadata["user_id"])
	assert.Equal(t, "Basil", entry.Metadata["subject_id"])
	assert.Equal(t, "moderate", entry.Metadata["severity"])
	assert.NotEmpty(t, entry.Metadata["timestamp"])
	assert.NotEqual(t, uuid.Nil, entry.Id)
}

func TestUpsertRequiresSummary(t *testing.T) {
	s := NewStore(&fakeEmbedder{}, nopLogger{})

	_, err := s.Upsert(context.Background(), &fakeUow{contexts: &fakeContextRepo{}}, UpsertInput{
		UserId: uuid.New(),
	})

	require.Error(t, err)
}

func TestUpsertEmbeddingFailure(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("quota exhausted")}
	repo := &fakeContextRepo{}
	s := NewStore(embedder, nopLogger{})

	_, err := s.Upsert(context.Background(), &fakeUow{contexts: repo}, UpsertInput{
		UserId:  uuid.New(),
		Summary: "something",
	})

	require.Error(t, err)
	assert.Empty(t, repo.created, "nothing may be stored without an embedding")
}

func TestQueryUsesQueryTask(t *testing.T) {
	embedder := &fakeEmbedder{}
	repo := &fakeContextRepo{entries: []*contract.ScoredContextEntry{
		{Entry: &entity.ContextEntry{Summary: "Basil overwatered."}, Similarity: 0.9},
	}}
	s := NewStore(embedder, nopLogger{})
	minScore := 0.5

	hits, err := s.Query(context.Background(), &fakeUow{contexts: repo}, QueryInput{
		UserId:   uuid.New(),
		Text:     "how is my basil",
		TopK:     5,
		MinScore: &minScore,
	})

	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 0.9, hits[0].Score)
	assert.Equal(t, embedding.TaskRetrievalQuery, embedder.lastTask)
	assert.Equal(t, 5, repo.lastLimit)
	require.NotNil(t, repo.lastMin)
	assert.Equal(t, 0.5, *repo.lastMin)
}

func TestQueryDefaults(t *testing.T) {
	repo := &fakeContextRepo{}
	s := NewStore(&fakeEmbedder{}, nopLogger{})

	_, err := s.Query(context.Background(), &fakeUow{contexts: repo}, QueryInput{
		UserId: uuid.New(),
		Text:   "anything",
	})

	require.NoError(t, err)
	assert.Equal(t, DefaultTopK, repo.lastLimit)
	assert.Nil(t, repo.lastMin, "no floor unless the caller asks for one")
}

func TestQueryEmptyText(t *testing.T) {
	embedder := &fakeEmbedder{}
	s := NewStore(embedder, nopLogger{})

	hits, err := s.Query(context.Background(), &fakeUow{contexts: &fakeContextRepo{}}, QueryInput{
		UserId: uuid.New(),
	})

	require.NoError(t, err)
	assert.Nil(t, hits)
	assert.Empty(t, embedder.lastTask, "no embedding call for empty text")
}
