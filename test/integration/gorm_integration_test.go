package integration

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"ai-plantcare-be/internal/constant"
	"ai-plantcare-be/internal/entity"
	"ai-plantcare-be/internal/repository/specification"
	"ai-plantcare-be/internal/repository/unitofwork"
	"ai-plantcare-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormConnection(t *testing.T) {
	// Load .env from root
	err := godotenv.Load("../../.env")
	if err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	// Verify Wiring
	uowFactory := unitofwork.NewFactory(gormDB)
	uow := uowFactory(context.Background())

	assert.NotNil(t, uow.ChatSessionRepository())
	assert.NotNil(t, uow.ChatMessageRepository())
	assert.NotNil(t, uow.ContextEntryRepository())

	// Basic Ping
	sqlDB, _ := gormDB.DB()
	err = sqlDB.Ping()
	assert.NoError(t, err)
	t.Log("Successfully connected to DB and initialized UnitOfWork Factory")

	// Verify Data Access (implies columns exist)
	t.Run("Check Chat Session Repository", func(t *testing.T) {
		count, err := uow.ChatSessionRepository().Count(context.Background())
		assert.NoError(t, err)
		t.Logf("ChatSession count: %d", count)
	})

	t.Run("Check Context Entry Repository", func(t *testing.T) {
		count, err := uow.ContextEntryRepository().Count(context.Background())
		assert.NoError(t, err)
		t.Logf("ContextEntry count: %d", count)
	})

	t.Run("Check Transactional Session Create", func(t *testing.T) {
		ctx := context.Background()
		uow := uowFactory(ctx)

		err := uow.Begin(ctx)
		require.NoError(t, err)
		defer uow.Rollback()

		sessionId := uuid.New()
		session := &entity.ChatSession{
			Id:        sessionId,
			UserId:    uuid.New(),
			Title:     "Integration Test Session",
			CreatedAt: time.Now(),
		}
		err = uow.ChatSessionRepository().Create(ctx, session)
		assert.NoError(t, err)

		message := &entity.ChatMessage{
			Id:            uuid.New(),
			Chat:          "integration hello",
			Role:          constant.RoleUser,
			ChatSessionId: sessionId,
			CreatedAt:     time.Now(),
		}
		err = uow.ChatMessageRepository().Create(ctx, message)
		assert.NoError(t, err)

		// Visible inside the transaction
		found, err := uow.ChatSessionRepository().FindOne(ctx, specification.ByID{ID: sessionId})
		assert.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "Integration Test Session", found.Title)

		// Rollback via defer keeps the DB clean
	})

	t.Run("Check Vector Similarity Round Trip", func(t *testing.T) {
		ctx := context.Background()
		uow := uowFactory(ctx)

		err := uow.Begin(ctx)
		require.NoError(t, err)
		defer uow.Rollback()

		userId := uuid.New()
		vec := make([]float32, 768)
		vec[0] = 1.0

		entry := &entity.ContextEntry{
			Id:             uuid.New(),
			UserId:         userId,
			SubjectId:      "Integration Basil",
			Category:       constant.ContextCategoryDiagnosis,
			Summary:        "Integration Basil diagnosed with overwatering.",
			EmbeddingValue: vec,
			Metadata:       map[string]interface{}{"user_id": userId.String()},
			CreatedAt:      time.Now(),
		}
		err = uow.ContextEntryRepository().Create(ctx, entry)
		require.NoError(t, err)

		hits, err := uow.ContextEntryRepository().SearchSimilarWithScore(ctx, vec, 3, userId, nil)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "Integration Basil", hits[0].Entry.SubjectId)
		assert.InDelta(t, 1.0, hits[0].Similarity, 0.001, "identical vectors have cosine similarity 1")

		minScore := 0.99
		hits, err = uow.ContextEntryRepository().SearchSimilarWithScore(ctx, vec, 3, userId, &minScore)
		require.NoError(t, err)
		assert.Len(t, hits, 1, "threshold below the score must keep the entry")

		// Other users never see the entry
		hits, err = uow.ContextEntryRepository().SearchSimilarWithScore(ctx, vec, 3, uuid.New(), nil)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})
}
