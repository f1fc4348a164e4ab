package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ai-plantcare-be/internal/constant"
	"ai-plantcare-be/internal/entity"
	"ai-plantcare-be/internal/pkg/logger"
	"ai-plantcare-be/internal/repository/memory"
	"ai-plantcare-be/internal/repository/specification"
	"ai-plantcare-be/internal/repository/unitofwork"
	"ai-plantcare-be/pkg/contextstore"
	"ai-plantcare-be/pkg/diagnosis"
	"ai-plantcare-be/pkg/llm"
	"ai-plantcare-be/pkg/store"

	"github.com/google/uuid"
)

const (
	defaultTopK     = 3
	defaultMinScore = 0.5

	historyWindow = 20
)

// Input is one user turn: text, an image, or both.
type Input struct {
	Text      string
	Image     []byte
	ImageMIME string
	ImageRef  *string // Stored path of the uploaded image, persisted with the message
}

func (in Input) hasImage() bool {
	return len(in.Image) > 0
}

// SummaryCandidate is a noteworthy fact produced by a turn, handed to the
// background summarizer for embedding and context upsert.
type SummaryCandidate struct {
	SubjectId     string
	Category      string
	UserText      string
	AssistantText string
}

// Reply is the outcome of one turn.
type Reply struct {
	Text             string
	ToolUsed         string // store.ToolNone | store.ToolImageDiagnosis | store.ToolTextDiagnosis
	Diagnosis        *diagnosis.Result
	Summary          *SummaryCandidate
	PromptTokens     int
	CompletionTokens int

	// Persisted turn messages, set after SaveState
	UserMessage      *entity.ChatMessage
	AssistantMessage *entity.ChatMessage
}

// Orchestrator drives one chat turn through its state machine:
// load state -> retrieve context -> decide -> dispatch -> save state.
// Turns for the same session are serialized; sessions run independently.
type Orchestrator struct {
	llm      llm.LLMProvider
	pipeline *diagnosis.Pipeline
	contexts *contextstore.Store
	sessions *memory.SessionRepository
	logger   logger.ILogger
	locks    *sessionLocks
	topK     int
	minScore float64
}

type OrchestratorOption func(*Orchestrator)

func WithTopK(k int) OrchestratorOption {
	return func(o *Orchestrator) {
		o.topK = k
	}
}

func WithMinScore(score float64) OrchestratorOption {
	return func(o *Orchestrator) {
		o.minScore = score
	}
}

func NewOrchestrator(
	llmProvider llm.LLMProvider,
	pipeline *diagnosis.Pipeline,
	contexts *contextstore.Store,
	sessions *memory.SessionRepository,
	log logger.ILogger,
	opts ...OrchestratorOption,
) *Orchestrator {
	o := &Orchestrator{
		llm:      llmProvider,
		pipeline: pipeline,
		contexts: contexts,
		sessions: sessions,
		logger:   log,
		locks:    newSessionLocks(),
		topK:     defaultTopK,
		minScore: defaultMinScore,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// HandleTurn processes one user turn to completion. Persistence failures
// after the reply is computed are logged and swallowed so the user still
// gets their answer.
func (o *Orchestrator) HandleTurn(ctx context.Context, uow unitofwork.UnitOfWork, userId, sessionId uuid.UUID, in Input) (*Reply, error) {
	unlock := o.locks.acquire(sessionId.String())
	defer unlock()

	if strings.TrimSpace(in.Text) == "" && !in.hasImage() {
		return nil, fmt.Errorf("agent: turn has neither text nor image")
	}

	// LoadState
	history, err := o.loadHistory(ctx, uow, sessionId)
	if err != nil {
		return nil, fmt.Errorf("agent: load history: %w", err)
	}
	scratch := o.loadScratch(userId, sessionId)

	// RetrieveContext
	retrieved := o.retrieveContext(ctx, uow, userId, in, scratch)

	// Decide, with one re-prompt on contract violation, then hard fallback.
	reply := o.decideAndDispatch(ctx, uow, userId, in, history, retrieved, scratch)

	// SaveState
	o.saveState(ctx, uow, sessionId, in, reply, scratch)

	return reply, nil
}

func (o *Orchestrator) loadHistory(ctx context.Context, uow unitofwork.UnitOfWork, sessionId uuid.UUID) ([]*entity.ChatMessage, error) {
	return uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at"},
	)
}

func (o *Orchestrator) loadScratch(userId, sessionId uuid.UUID) *store.Session {
	if scratch, found := o.sessions.Get(sessionId.String()); found {
		return scratch
	}
	return &store.Session{
		ID:       sessionId.String(),
		UserID:   userId.String(),
		LastTool: store.ToolNone,
	}
}

// retrieveContext queries the context store for the turn text, falling back
// to the prior turn's topic. Failures degrade to an empty context, they
// never fail the turn.
func (o *Orchestrator) retrieveContext(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID, in Input, scratch *store.Session) []contextstore.ScoredEntry {
	queryText := strings.TrimSpace(in.Text)
	if queryText == "" {
		queryText = scratch.LastQuery
	}
	if queryText == "" {
		return nil
	}

	minScore := o.minScore
	entries, err := o.contexts.Query(ctx, uow, contextstore.QueryInput{
		UserId:   userId,
		Text:     queryText,
		TopK:     o.topK,
		MinScore: &minScore,
	})
	if err != nil {
		o.logger.Warn("agent", "context retrieval failed, continuing without context", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}
	return entries
}

func (o *Orchestrator) decideAndDispatch(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID, in Input, history []*entity.ChatMessage, retrieved []contextstore.ScoredEntry, scratch *store.Session) *Reply {
	prompt := o.buildDecisionPrompt(in, history, retrieved)

	d, err := o.requestDecision(ctx, prompt)
	if err == nil {
		err = validateDecision(d, in.hasImage())
	}
	if err != nil {
		o.logger.Warn("agent", "decision contract violation, re-prompting once", map[string]interface{}{
			"error": err.Error(),
		})
		reminder := prompt + "\n\n" + fmt.Sprintf(constant.AgentConstraintReminder, err.Error())
		d, err = o.requestDecision(ctx, reminder)
		if err == nil {
			err = validateDecision(d, in.hasImage())
		}
		if err != nil {
			o.logger.Error("agent", "decision contract violated twice, falling back", map[string]interface{}{
				"error": err.Error(),
			})
			return o.fallbackReply(prompt, in)
		}
	}

	switch d.Action {
	case constant.DecisionImageDiagnosis:
		return o.dispatchImageTool(ctx, in, prompt)
	case constant.DecisionTextDiagnosis:
		return o.dispatchTextTool(ctx, uow, userId, in, d, prompt, scratch)
	default:
		reply := &Reply{
			Text:             d.Reply,
			ToolUsed:         store.ToolNone,
			PromptTokens:     estimateTokens(prompt),
			CompletionTokens: estimateTokens(d.Reply),
		}
		if strings.TrimSpace(in.Text) != "" {
			reply.Summary = &SummaryCandidate{
				SubjectId:     scratch.LastPlant,
				Category:      constant.ContextCategoryConversation,
				UserText:      in.Text,
				AssistantText: d.Reply,
			}
		}
		return reply
	}
}

func (o *Orchestrator) requestDecision(ctx context.Context, prompt string) (*decision, error) {
	raw, err := o.llm.Chat(ctx, []llm.Message{
		{Role: constant.RoleSystem, Content: constant.AgentSystemPrompt},
		{Role: constant.RoleUser, Content: prompt},
	}, llm.WithTemperature(0))
	if err != nil {
		return nil, err
	}
	return parseDecision(raw)
}

func (o *Orchestrator) buildDecisionPrompt(in Input, history []*entity.ChatMessage, retrieved []contextstore.ScoredEntry) string {
	contextBlock := ""
	if len(retrieved) > 0 {
		var sb strings.Builder
		sb.WriteString("Retrieved context from previous conversations:\n")
		for _, hit := range retrieved {
			sb.WriteString(fmt.Sprintf("- [Relevance: %.2f] %s\n", hit.Score, hit.Entry.Summary))
		}
		contextBlock = sb.String()
	}

	historyBlock := "(new conversation)\n"
	if len(history) > 0 {
		var sb strings.Builder
		start := 0
		if len(history) > historyWindow {
			start = len(history) - historyWindow
		}
		for _, msg := range history[start:] {
			sb.WriteString(fmt.Sprintf("%s: %s\n", msg.Role, msg.Chat))
		}
		historyBlock = sb.String()
	}

	imageLine := "The user did NOT attach an image this turn."
	if in.hasImage() {
		imageLine = "The user ATTACHED an image this turn."
	}

	latest := in.Text
	if latest == "" {
		latest = "(no text, image only)"
	}

	return fmt.Sprintf(constant.AgentDecisionPrompt, contextBlock, historyBlock, imageLine, latest)
}

func (o *Orchestrator) dispatchImageTool(ctx context.Context, in Input, prompt string) *Reply {
	state := o.pipeline.Diagnose(ctx, diagnosis.Request{
		Image:    in.Image,
		MIMEType: in.ImageMIME,
		Notes:    in.Text,
	})

	if state.Failed() {
		// Validation and provider failures are reported directly, no partial result.
		return &Reply{
			Text:             state.Err.Message,
			ToolUsed:         store.ToolImageDiagnosis,
			PromptTokens:     estimateTokens(prompt),
			CompletionTokens: estimateTokens(state.Err.Message),
		}
	}

	text := formatDiagnosisReply(state.Output)
	return &Reply{
		Text:             text,
		ToolUsed:         store.ToolImageDiagnosis,
		Diagnosis:        state.Output,
		PromptTokens:     estimateTokens(prompt),
		CompletionTokens: estimateTokens(text),
		Summary: &SummaryCandidate{
			SubjectId:     state.Output.PlantName,
			Category:      constant.ContextCategoryDiagnosis,
			UserText:      in.Text,
			AssistantText: text,
		},
	}
}

func (o *Orchestrator) dispatchTextTool(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID, in Input, d *decision, prompt string, scratch *store.Session) *Reply {
	topic := strings.TrimSpace(d.Topic)
	if topic == "" {
		topic = strings.TrimSpace(in.Text)
	}
	if topic == "" {
		topic = scratch.LastQuery
	}

	minScore := o.minScore
	entries, err := o.contexts.Query(ctx, uow, contextstore.QueryInput{
		UserId:   userId,
		Text:     topic,
		TopK:     o.topK,
		MinScore: &minScore,
	})
	if err != nil {
		o.logger.Error("agent", "text tool context query failed", map[string]interface{}{
			"error": err.Error(),
		})
		entries = nil
	}

	if len(entries) == 0 {
		return &Reply{
			Text:             constant.AgentInsufficientContextReply,
			ToolUsed:         store.ToolTextDiagnosis,
			PromptTokens:     estimateTokens(prompt),
			CompletionTokens: estimateTokens(constant.AgentInsufficientContextReply),
		}
	}

	summaries := make([]string, len(entries))
	for i, hit := range entries {
		summaries[i] = fmt.Sprintf("- [Relevance: %.2f] %s", hit.Score, hit.Entry.Summary)
	}
	synthPrompt := fmt.Sprintf(constant.AgentTextSynthesisPrompt, topic, strings.Join(summaries, "\n"))

	text, err := o.llm.Generate(ctx, synthPrompt, llm.WithTemperature(0.6))
	if err != nil {
		o.logger.Error("agent", "text tool synthesis failed", map[string]interface{}{
			"error": err.Error(),
		})
		text = constant.AgentErrorReply
	}

	reply := &Reply{
		Text:             text,
		ToolUsed:         store.ToolTextDiagnosis,
		PromptTokens:     estimateTokens(prompt) + estimateTokens(synthPrompt),
		CompletionTokens: estimateTokens(text),
	}
	if text != constant.AgentErrorReply && strings.TrimSpace(in.Text) != "" {
		reply.Summary = &SummaryCandidate{
			SubjectId:     entries[0].Entry.SubjectId,
			Category:      constant.ContextCategoryConversation,
			UserText:      in.Text,
			AssistantText: text,
		}
	}
	return reply
}

func (o *Orchestrator) fallbackReply(prompt string, in Input) *Reply {
	return &Reply{
		Text:             constant.AgentFallbackReply,
		ToolUsed:         store.ToolNone,
		PromptTokens:     estimateTokens(prompt),
		CompletionTokens: estimateTokens(constant.AgentFallbackReply),
	}
}

// saveState appends both turn messages and refreshes the in-memory scratch.
// Failures here never undo the computed reply.
func (o *Orchestrator) saveState(ctx context.Context, uow unitofwork.UnitOfWork, sessionId uuid.UUID, in Input, reply *Reply, scratch *store.Session) {
	now := time.Now()
	userText := in.Text
	if userText == "" {
		userText = "[image]"
	}
	userMsg := &entity.ChatMessage{
		Id:            uuid.New(),
		Chat:          userText,
		Role:          constant.RoleUser,
		ImageRef:      in.ImageRef,
		ChatSessionId: sessionId,
		CreatedAt:     now,
	}
	if err := uow.ChatMessageRepository().Create(ctx, userMsg); err != nil {
		o.logger.Error("agent", "failed to persist user message", map[string]interface{}{
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
	}

	assistantMsg := &entity.ChatMessage{
		Id:            uuid.New(),
		Chat:          reply.Text,
		Role:          constant.RoleAssistant,
		ChatSessionId: sessionId,
		CreatedAt:     now.Add(1 * time.Second),
	}
	if err := uow.ChatMessageRepository().Create(ctx, assistantMsg); err != nil {
		o.logger.Error("agent", "failed to persist assistant message", map[string]interface{}{
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
	}

	reply.UserMessage = userMsg
	reply.AssistantMessage = assistantMsg

	if strings.TrimSpace(in.Text) != "" {
		scratch.LastQuery = in.Text
	}
	if reply.Diagnosis != nil {
		scratch.LastPlant = reply.Diagnosis.PlantName
	}
	scratch.LastTool = reply.ToolUsed
	o.sessions.Save(scratch)
}

func formatDiagnosisReply(res *diagnosis.Result) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("I took a look at your %s. Condition: %s.\n\n", res.PlantName, res.Condition))
	sb.WriteString(res.DetailDiagnosis)
	sb.WriteString("\n\nHere's what I recommend:\n")
	for _, step := range res.ActionPlan {
		sb.WriteString(fmt.Sprintf("%d. %s\n", step.StepId, step.Instruction))
	}
	return sb.String()
}

// estimateTokens approximates token usage at 4 characters per token.
// Providers that report usage metadata are preferred, but the routing
// provider interface only exposes text.
func estimateTokens(s string) int {
	if s == "" {
		return 0
	}
	return (len(s) + 3) / 4
}
