package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"ai-plantcare-be/internal/constant"
	"ai-plantcare-be/internal/dto"
	"ai-plantcare-be/internal/entity"
	"ai-plantcare-be/internal/pkg/logger"
	"ai-plantcare-be/internal/repository/memory"
	"ai-plantcare-be/internal/repository/specification"
	"ai-plantcare-be/internal/repository/unitofwork"
	"ai-plantcare-be/pkg/agent"

	"github.com/google/uuid"
)

const sessionTitleMaxLen = 60

// IChatbotService defines the chatbot service interface
type IChatbotService interface {
	CreateSession(ctx context.Context, userId uuid.UUID) (*dto.CreateSessionResponse, error)
	GetAllSessions(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllSessionsResponse, error)
	GetChatHistory(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error)
	SendChat(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (*dto.SendChatResponse, error)
	DeleteSession(ctx context.Context, userId uuid.UUID, request *dto.DeleteSessionRequest) error
}

type chatbotService struct {
	uowFactory       unitofwork.Factory
	orchestrator     *agent.Orchestrator
	sessionRepo      *memory.SessionRepository
	usageService     IUsageService
	publisherService IPublisherService
	logger           logger.ILogger
	llmLogger        *log.Logger
}

func NewChatbotService(
	uowFactory unitofwork.Factory,
	orchestrator *agent.Orchestrator,
	sessionRepo *memory.SessionRepository,
	usageService IUsageService,
	publisherService IPublisherService,
	appLogger logger.ILogger,
) IChatbotService {
	return &chatbotService{
		uowFactory:       uowFactory,
		orchestrator:     orchestrator,
		sessionRepo:      sessionRepo,
		usageService:     usageService,
		publisherService: publisherService,
		logger:           appLogger,
		llmLogger:        initLLMLogger(),
	}
}

func initLLMLogger() *log.Logger {
	logPath := filepath.Join(".", "logs", "llm_agent.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		log.Printf("Failed to create logs directory: %v", err)
	}
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return log.New(os.Stdout, "[LLM-AGENT] ", log.LstdFlags)
	}
	return log.New(file, "", log.LstdFlags)
}

// CreateSession creates a new chat session with the assistant greeting.
func (cs *chatbotService) CreateSession(ctx context.Context, userId uuid.UUID) (*dto.CreateSessionResponse, error) {
	uow := cs.uowFactory(ctx)
	now := time.Now()

	chatSession := entity.ChatSession{
		Id:        uuid.New(),
		UserId:    userId,
		Title:     "Unnamed session",
		CreatedAt: now,
	}

	greeting := entity.ChatMessage{
		Id:            uuid.New(),
		Chat:          "Hi! Send me a photo of your plant or ask me anything about plant care.",
		Role:          constant.RoleAssistant,
		ChatSessionId: chatSession.Id,
		CreatedAt:     now,
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.ChatSessionRepository().Create(ctx, &chatSession); err != nil {
		return nil, err
	}
	if err := uow.ChatMessageRepository().Create(ctx, &greeting); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	return &dto.CreateSessionResponse{Id: chatSession.Id}, nil
}

// GetAllSessions retrieves all chat sessions for the user.
func (cs *chatbotService) GetAllSessions(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllSessionsResponse, error) {
	uow := cs.uowFactory(ctx)

	chatSessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.ByUserID{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	response := make([]*dto.GetAllSessionsResponse, 0, len(chatSessions))
	for _, s := range chatSessions {
		response = append(response, &dto.GetAllSessionsResponse{
			Id:        s.Id,
			Title:     s.Title,
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.UpdatedAt,
		})
	}

	return response, nil
}

// GetChatHistory retrieves chat history for a session the user owns.
func (cs *chatbotService) GetChatHistory(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error) {
	uow := cs.uowFactory(ctx)

	sess, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.ByUserID{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("session not found or access denied")
	}

	chatMessages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	resp := make([]*dto.GetChatHistoryResponse, 0, len(chatMessages))
	for _, msg := range chatMessages {
		resp = append(resp, &dto.GetChatHistoryResponse{
			Id:        msg.Id,
			Role:      msg.Role,
			Chat:      msg.Chat,
			ImageRef:  msg.ImageRef,
			CreatedAt: msg.CreatedAt,
		})
	}

	return resp, nil
}

// SendChat runs one agent turn and returns both persisted messages.
func (cs *chatbotService) SendChat(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	if err := cs.usageService.CheckDailyLimit(ctx, userId); err != nil {
		return nil, err
	}

	uow := cs.uowFactory(ctx)

	chatSession, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: request.ChatSessionId},
		specification.ByUserID{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if chatSession == nil {
		return nil, fmt.Errorf("session not found or access denied")
	}

	existingCount, err := uow.ChatMessageRepository().Count(ctx,
		specification.ByChatSessionID{ChatSessionID: request.ChatSessionId},
	)
	if err != nil {
		return nil, err
	}
	// Only the greeting exists, so this is the first real exchange.
	updateSessionTitle := existingCount <= 1

	cs.llmLogger.Printf("[TURN] session=%s user=%s image=%t", request.ChatSessionId, userId, len(request.Image) > 0)

	reply, err := cs.orchestrator.HandleTurn(ctx, uow, userId, request.ChatSessionId, agent.Input{
		Text:      request.Chat,
		Image:     request.Image,
		ImageMIME: request.ImageMIME,
		ImageRef:  request.ImageRef,
	})
	if err != nil {
		return nil, err
	}

	if updateSessionTitle && request.Chat != "" {
		cs.updateSessionTitle(ctx, uow, chatSession, request.Chat)
	}

	if err := uow.ChatSessionRepository().AddTokenUsage(ctx, chatSession.Id, reply.PromptTokens, reply.CompletionTokens); err != nil {
		cs.logger.Warn("ChatbotService", "failed to record token usage", map[string]interface{}{
			"session_id": chatSession.Id,
			"error":      err.Error(),
		})
	}

	if err := cs.usageService.Increment(ctx, userId); err != nil {
		cs.logger.Warn("ChatbotService", "failed to increment daily usage", map[string]interface{}{
			"user_id": userId,
			"error":   err.Error(),
		})
	}

	cs.publishSummaryJob(ctx, userId, reply)

	return cs.buildSendChatResponse(chatSession, reply), nil
}

func (cs *chatbotService) updateSessionTitle(ctx context.Context, uow unitofwork.UnitOfWork, chatSession *entity.ChatSession, firstMessage string) {
	title := firstMessage
	if len(title) > sessionTitleMaxLen {
		title = title[:sessionTitleMaxLen]
	}
	now := time.Now()
	chatSession.Title = title
	chatSession.UpdatedAt = &now
	if err := uow.ChatSessionRepository().Update(ctx, chatSession); err != nil {
		cs.logger.Warn("ChatbotService", "failed to update session title", map[string]interface{}{
			"session_id": chatSession.Id,
			"error":      err.Error(),
		})
	}
}

// publishSummaryJob hands the turn to the background summarizer. Losing a
// summary loses long-term memory for one turn, never the reply itself.
func (cs *chatbotService) publishSummaryJob(ctx context.Context, userId uuid.UUID, reply *agent.Reply) {
	if reply.Summary == nil {
		return
	}

	var sourceTurnId *uuid.UUID
	if reply.AssistantMessage != nil {
		sourceTurnId = &reply.AssistantMessage.Id
	}

	payload, err := json.Marshal(dto.SummarizeContextMessage{
		UserId:        userId,
		SubjectId:     reply.Summary.SubjectId,
		Category:      reply.Summary.Category,
		UserText:      reply.Summary.UserText,
		AssistantText: reply.Summary.AssistantText,
		SourceTurnId:  sourceTurnId,
	})
	if err != nil {
		cs.logger.Error("ChatbotService", "failed to marshal summary job", map[string]interface{}{"error": err.Error()})
		return
	}

	if err := cs.publisherService.Publish(ctx, payload); err != nil {
		cs.logger.Error("ChatbotService", "failed to publish summary job", map[string]interface{}{"error": err.Error()})
	}
}

func (cs *chatbotService) buildSendChatResponse(chatSession *entity.ChatSession, reply *agent.Reply) *dto.SendChatResponse {
	resp := &dto.SendChatResponse{
		ChatSessionId:    chatSession.Id,
		ChatSessionTitle: chatSession.Title,
		ToolUsed:         reply.ToolUsed,
	}

	if reply.UserMessage != nil {
		resp.Sent = &dto.SendChatResponseChat{
			Id:        reply.UserMessage.Id,
			Chat:      reply.UserMessage.Chat,
			Role:      reply.UserMessage.Role,
			CreatedAt: reply.UserMessage.CreatedAt,
		}
	}
	if reply.AssistantMessage != nil {
		resp.Reply = &dto.SendChatResponseChat{
			Id:        reply.AssistantMessage.Id,
			Chat:      reply.AssistantMessage.Chat,
			Role:      reply.AssistantMessage.Role,
			CreatedAt: reply.AssistantMessage.CreatedAt,
		}
	}

	if reply.Diagnosis != nil {
		steps := make([]dto.ActionStepDTO, len(reply.Diagnosis.ActionPlan))
		for i, step := range reply.Diagnosis.ActionPlan {
			steps[i] = dto.ActionStepDTO{Id: step.StepId, Action: step.Instruction}
		}
		resp.Diagnosis = &dto.DiagnosisResponse{
			PlantName:       reply.Diagnosis.PlantName,
			Condition:       reply.Diagnosis.Condition,
			DetailDiagnosis: reply.Diagnosis.DetailDiagnosis,
			ActionPlan:      steps,
		}
	}

	return resp
}

// DeleteSession removes a chat session and its messages.
func (cs *chatbotService) DeleteSession(ctx context.Context, userId uuid.UUID, request *dto.DeleteSessionRequest) error {
	uow := cs.uowFactory(ctx)

	sess, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: request.ChatSessionId},
		specification.ByUserID{UserID: userId},
	)
	if err != nil {
		return err
	}
	if sess == nil {
		return fmt.Errorf("session not found or access denied")
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ChatSessionRepository().Delete(ctx, request.ChatSessionId); err != nil {
		return err
	}
	if err := uow.ChatMessageRepository().DeleteByChatSessionId(ctx, request.ChatSessionId); err != nil {
		return err
	}

	cs.sessionRepo.Delete(request.ChatSessionId.String())

	return uow.Commit()
}
