package agent

import (
	"context"
	"errors"
	"testing"

	"ai-plantcare-be/internal/constant"
	"ai-plantcare-be/internal/entity"
	"ai-plantcare-be/internal/repository/contract"
	"ai-plantcare-be/internal/repository/memory"
	"ai-plantcare-be/internal/repository/specification"
	"ai-plantcare-be/pkg/contextstore"
	"ai-plantcare-be/pkg/diagnosis"
	"ai-plantcare-be/pkg/embedding"
	"ai-plantcare-be/pkg/llm"
	"ai-plantcare-be/pkg/store"
	"ai-plantcare-be/pkg/vision"

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

// scriptedLLM answers queued responses to Chat calls and a fixed response
// to Generate calls.
type scriptedLLM struct {
	chatResponses []string
	chatCalls     int
	generateResp  string
}

func (s *scriptedLLM) Chat(ctx context.Context, messages []llm.Message, opts ...llm.Option) (string, error) {
	i := s.chatCalls
	s.chatCalls++
	if i < len(s.chatResponses) {
		return s.chatResponses[i], nil
	}
	return "", errors.New("no scripted response")
}

func (s *scriptedLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return s.generateResp, nil
}

type scriptedVision struct {
	responses []string
	calls     int
}

func (s *scriptedVision) Analyze(ctx context.Context, prompt string, img vision.Image, opts ...llm.Option) (string, error) {
	i := s.calls
	s.calls++
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return "", errors.New("no scripted response")
}

type fakeEmbedder struct{}

func (fakeEmbedder) Generate(text string, taskType string) (*embedding.EmbeddingResponse, error) {
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: []float32{0.1, 0.2, 0.3}},
	}, nil
}

// fakeUow holds in-memory repositories; Begin/Commit/Rollback are no-ops.
type fakeUow struct {
	sessions *fakeSessionRepo
	messages *fakeMessageRepo
	contexts *fakeContextRepo
}

func newFakeUow() *fakeUow {
	return &fakeUow{
		sessions: &fakeSessionRepo{},
		messages: &fakeMessageRepo{},
		contexts: &fakeContextRepo{},
	}
}

func (u *fakeUow) Begin(ctx context.Context) error { return nil }
func (u *fakeUow) Commit() error                   { return nil }
func (u *fakeUow) Rollback() error                 { return nil }
func (u *fakeUow) ChatSessionRepository() contract.ChatSessionRepository {
	return u.sessions
}
func (u *fakeUow) ChatMessageRepository() contract.ChatMessageRepository {
	return u.messages
}
func (u *fakeUow) ContextEntryRepository() contract.ContextEntryRepository {
	return u.contexts
}

type fakeSessionRepo struct{}

func (r *fakeSessionRepo) Create(ctx context.Context, session *entity.ChatSession) error { return nil }
func (r *fakeSessionRepo) Update(ctx context.Context, session *entity.ChatSession) error { return nil }
func (r *fakeSessionRepo) Delete(ctx context.Context, id uuid.UUID) error                { return nil }
func (r *fakeSessionRepo) AddTokenUsage(ctx context.Context, id uuid.UUID, promptTokens, completionTokens int) error {
	return nil
}
func (r *fakeSessionRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error) {
	return nil, nil
}
func (r *fakeSessionRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error) {
	return nil, nil
}
func (r *fakeSessionRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return 0, nil
}

type fakeMessageRepo struct {
	created   []*entity.ChatMessage
	createErr error
}

func (r *fakeMessageRepo) Create(ctx context.Context, message *entity.ChatMessage) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.created = append(r.created, message)
	return nil
}
func (r *fakeMessageRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }
func (r *fakeMessageRepo) DeleteByChatSessionId(ctx context.Context, sessionId uuid.UUID) error {
	return nil
}
func (r *fakeMessageRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatMessage, error) {
	return nil, nil
}
func (r *fakeMessageRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	return r.created, nil
}
func (r *fakeMessageRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(r.created)), nil
}

type fakeContextRepo struct {
	entries []*contract.ScoredContextEntry
	lastMin *float64
}

func (r *fakeContextRepo) Create(ctx context.Context, entry *entity.ContextEntry) error { return nil }
func (r *fakeContextRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ContextEntry, error) {
	return nil, nil
}
func (r *fakeContextRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return 0, nil
}
func (r *fakeContextRepo) SearchSimilarWithScore(ctx context.Context, emb []float32, limit int, userId uuid.UUID, minScore *float64) ([]*contract.ScoredContextEntry, error) {
	r.lastMin = minScore
	if len(r.entries) > limit {
		return r.entries[:limit], nil
	}
	return r.entries, nil
}

func newTestOrchestrator(llmProvider llm.LLMProvider, visionProvider vision.VisionProvider) *Orchestrator {
	pipeline := diagnosis.NewPipeline(visionProvider, llmProvider, nopLogger{})
	contexts := contextstore.NewStore(fakeEmbedder{}, nopLogger{})
	return NewOrchestrator(llmProvider, pipeline, contexts, memory.NewSessionRepository(), nopLogger{})
}

func TestHandleTurnDirectReply(t *testing.T) {
	l := &scriptedLLM{chatResponses: []string{
		`{"action": "reply", "reply": "Water your basil twice a week."}`,
	}}
	o := newTestOrchestrator(l, &scriptedVision{})
	uow := newFakeUow()

	reply, err := o.HandleTurn(context.Background(), uow, uuid.New(), uuid.New(), Input{
		Text: "How often should I water basil?",
	})

	require.NoError(t, err)
	assert.Equal(t, "Water your basil twice a week.", reply.Text)
	assert.Equal(t, store.ToolNone, reply.ToolUsed)
	assert.Nil(t, reply.Diagnosis)
	require.Len(t, uow.messages.created, 2)
	assert.Equal(t, constant.RoleUser, uow.messages.created[0].Role)
	assert.Equal(t, constant.RoleAssistant, uow.messages.created[1].Role)
	require.NotNil(t, reply.Summary)
	assert.Equal(t, constant.ContextCategoryConversation, reply.Summary.Category)
}

func TestHandleTurnEmptyInput(t *testing.T) {
	o := newTestOrchestrator(&scriptedLLM{}, &scriptedVision{})

	_, err := o.HandleTurn(context.Background(), newFakeUow(), uuid.New(), uuid.New(), Input{})

	require.Error(t, err)
}

func TestHandleTurnImageTool(t *testing.T) {
	l := &scriptedLLM{
		chatResponses: []string{`{"action": "image_diagnosis"}`},
		generateResp:  `[{"id": 1, "action": "Move to indirect light"}]`,
	}
	v := &scriptedVision{responses: []string{
		constant.VerdictValidPlant,
		"Basil",
		"CONDITION: Underwatered\nDIAGNOSIS: Drooping stems and dry soil.",
	}}
	o := newTestOrchestrator(l, v)
	uow := newFakeUow()

	reply, err := o.HandleTurn(context.Background(), uow, uuid.New(), uuid.New(), Input{
		Text:      "what is wrong with it?",
		Image:     []byte("jpegbytes"),
		ImageMIME: "image/jpeg",
	})

	require.NoError(t, err)
	assert.Equal(t, store.ToolImageDiagnosis, reply.ToolUsed)
	require.NotNil(t, reply.Diagnosis)
	assert.Equal(t, "Basil", reply.Diagnosis.PlantName)
	assert.Contains(t, reply.Text, "Basil")
	assert.Contains(t, reply.Text, "Move to indirect light")
	require.NotNil(t, reply.Summary)
	assert.Equal(t, constant.ContextCategoryDiagnosis, reply.Summary.Category)
	assert.Equal(t, "Basil", reply.Summary.SubjectId)
}

func TestHandleTurnRepromptThenFallback(t *testing.T) {
	// The model insists on the image tool with no image attached, twice.
	l := &scriptedLLM{chatResponses: []string{
		`{"action": "image_diagnosis"}`,
		`{"action": "image_diagnosis"}`,
	}}
	o := newTestOrchestrator(l, &scriptedVision{})
	uow := newFakeUow()

	reply, err := o.HandleTurn(context.Background(), uow, uuid.New(), uuid.New(), Input{
		Text: "diagnose my plant please",
	})

	require.NoError(t, err)
	assert.Equal(t, 2, l.chatCalls, "exactly one re-prompt")
	assert.Equal(t, constant.AgentFallbackReply, reply.Text)
	assert.Equal(t, store.ToolNone, reply.ToolUsed)
	assert.Nil(t, reply.Summary, "fallback turns are not worth remembering")
}

func TestHandleTurnRepromptRecovers(t *testing.T) {
	l := &scriptedLLM{chatResponses: []string{
		`not json at all`,
		`{"action": "reply", "reply": "Recovered answer."}`,
	}}
	o := newTestOrchestrator(l, &scriptedVision{})

	reply, err := o.HandleTurn(context.Background(), newFakeUow(), uuid.New(), uuid.New(), Input{
		Text: "hello",
	})

	require.NoError(t, err)
	assert.Equal(t, "Recovered answer.", reply.Text)
	assert.Equal(t, 2, l.chatCalls)
}

func TestHandleTurnTextToolInsufficientContext(t *testing.T) {
	l := &scriptedLLM{chatResponses: []string{
		`{"action": "text_diagnosis", "topic": "my ficus"}`,
	}}
	o := newTestOrchestrator(l, &scriptedVision{})
	uow := newFakeUow() // no stored context entries

	reply, err := o.HandleTurn(context.Background(), uow, uuid.New(), uuid.New(), Input{
		Text: "how is my ficus doing?",
	})

	require.NoError(t, err)
	assert.Equal(t, store.ToolTextDiagnosis, reply.ToolUsed)
	assert.Equal(t, constant.AgentInsufficientContextReply, reply.Text)
	assert.Nil(t, reply.Summary)
}

func TestHandleTurnTextToolSynthesizes(t *testing.T) {
	l := &scriptedLLM{
		chatResponses: []string{`{"action": "text_diagnosis", "topic": "ficus watering"}`},
		generateResp:  "Your ficus was overwatered last month; let the soil dry out between waterings.",
	}
	o := newTestOrchestrator(l, &scriptedVision{})
	uow := newFakeUow()
	uow.contexts.entries = []*contract.ScoredContextEntry{
		{
			Entry: &entity.ContextEntry{
				SubjectId: "Ficus",
				Category:  constant.ContextCategoryDiagnosis,
				Summary:   "Ficus diagnosed with overwatering.",
			},
			Similarity: 0.91,
		},
	}

	reply, err := o.HandleTurn(context.Background(), uow, uuid.New(), uuid.New(), Input{
		Text: "how should I water my ficus?",
	})

	require.NoError(t, err)
	assert.Equal(t, store.ToolTextDiagnosis, reply.ToolUsed)
	assert.Contains(t, reply.Text, "ficus")
	require.NotNil(t, uow.contexts.lastMin, "text tool queries must apply the relevance floor")
	require.NotNil(t, reply.Summary)
	assert.Equal(t, "Ficus", reply.Summary.SubjectId)
}

func TestHandleTurnPersistenceErrorIsSwallowed(t *testing.T) {
	l := &scriptedLLM{chatResponses: []string{
		`{"action": "reply", "reply": "Here is your answer."}`,
	}}
	o := newTestOrchestrator(l, &scriptedVision{})
	uow := newFakeUow()
	uow.messages.createErr = errors.New("connection refused")

	reply, err := o.HandleTurn(context.Background(), uow, uuid.New(), uuid.New(), Input{
		Text: "anything",
	})

	require.NoError(t, err, "losing history must not lose the reply")
	assert.Equal(t, "Here is your answer.", reply.Text)
}

func TestHandleTurnUpdatesScratchpad(t *testing.T) {
	l := &scriptedLLM{
		chatResponses: []string{`{"action": "image_diagnosis"}`},
		generateResp:  `[{"id": 1, "action": "Repot"}]`,
	}
	v := &scriptedVision{responses: []string{
		constant.VerdictValidPlant,
		"Snake Plant",
		"CONDITION: Healthy\nDIAGNOSIS: Looks great.",
	}}
	o := newTestOrchestrator(l, v)
	sessionId := uuid.New()

	_, err := o.HandleTurn(context.Background(), newFakeUow(), uuid.New(), sessionId, Input{
		Text:  "check this out",
		Image: []byte("jpegbytes"),
	})
	require.NoError(t, err)

	scratch, found := o.sessions.Get(sessionId.String())
	require.True(t, found)
	assert.Equal(t, "Snake Plant", scratch.LastPlant)
	assert.Equal(t, store.ToolImageDiagnosis, scratch.LastTool)
	assert.Equal(t, "check this out", scratch.LastQuery)
}
