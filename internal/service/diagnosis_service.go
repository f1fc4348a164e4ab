package service

import (
	"context"
	"encoding/json"
	"time"

	"ai-plantcare-be/internal/constant"
	"ai-plantcare-be/internal/dto"
	"ai-plantcare-be/internal/pkg/logger"
	"ai-plantcare-be/pkg/diagnosis"
	"ai-plantcare-be/pkg/events"
	pkgNats "ai-plantcare-be/pkg/nats"

	"github.com/google/uuid"
)

// DiagnosisError is the user-facing failure of a diagnosis run. The handler
// turns it into the error payload; it never ships alongside a result.
type DiagnosisError struct {
	Kind    string
	Message string
}

func (e *DiagnosisError) Error() string {
	return e.Message
}

type IDiagnosisService interface {
	Diagnose(ctx context.Context, userId uuid.UUID, request *dto.DiagnoseRequest) (*dto.DiagnosisResponse, error)
}

type diagnosisService struct {
	pipeline         *diagnosis.Pipeline
	usageService     IUsageService
	publisherService IPublisherService
	eventPublisher   *pkgNats.Publisher
	logger           logger.ILogger
}

func NewDiagnosisService(
	pipeline *diagnosis.Pipeline,
	usageService IUsageService,
	publisherService IPublisherService,
	eventPublisher *pkgNats.Publisher,
	appLogger logger.ILogger,
) IDiagnosisService {
	return &diagnosisService{
		pipeline:         pipeline,
		usageService:     usageService,
		publisherService: publisherService,
		eventPublisher:   eventPublisher,
		logger:           appLogger,
	}
}

// Diagnose runs the pipeline for one uploaded photo. Failure and success are
// mutually exclusive: a failed run returns a DiagnosisError and no result.
func (ds *diagnosisService) Diagnose(ctx context.Context, userId uuid.UUID, request *dto.DiagnoseRequest) (*dto.DiagnosisResponse, error) {
	if err := ds.usageService.CheckDailyLimit(ctx, userId); err != nil {
		return nil, err
	}

	state := ds.pipeline.Diagnose(ctx, diagnosis.Request{
		Image:    request.Image,
		MIMEType: request.ImageMIME,
		Notes:    request.Notes,
	})

	if err := ds.usageService.Increment(ctx, userId); err != nil {
		ds.logger.Warn("DiagnosisService", "failed to increment daily usage", map[string]interface{}{
			"user_id": userId,
			"error":   err.Error(),
		})
	}

	if state.Failed() {
		ds.publishEvent(ctx, events.DiagnosisFailedEvent{
			UserId:      userId.String(),
			Reason:      string(state.Err.Kind),
			UserMessage: state.Err.Message,
			OccurredAt:  time.Now(),
		})
		return nil, &DiagnosisError{Kind: string(state.Err.Kind), Message: state.Err.Message}
	}

	result := state.Output

	ds.publishEvent(ctx, events.DiagnosisCompletedEvent{
		UserId:     userId.String(),
		PlantName:  result.PlantName,
		Condition:  result.Condition,
		OccurredAt: time.Now(),
	})
	ds.publishSummaryJob(ctx, userId, request.Notes, result)

	steps := make([]dto.ActionStepDTO, len(result.ActionPlan))
	for i, step := range result.ActionPlan {
		steps[i] = dto.ActionStepDTO{Id: step.StepId, Action: step.Instruction}
	}

	return &dto.DiagnosisResponse{
		PlantName:       result.PlantName,
		Condition:       result.Condition,
		DetailDiagnosis: result.DetailDiagnosis,
		ActionPlan:      steps,
	}, nil
}

// publishEvent pushes to the event bus; the bus being down never fails the
// diagnosis itself.
func (ds *diagnosisService) publishEvent(ctx context.Context, event events.Event) {
	if ds.eventPublisher == nil {
		return
	}
	if err := ds.eventPublisher.Publish(ctx, event); err != nil {
		ds.logger.Warn("DiagnosisService", "failed to publish event", map[string]interface{}{
			"event": event.EventType(),
			"error": err.Error(),
		})
	}
}

func (ds *diagnosisService) publishSummaryJob(ctx context.Context, userId uuid.UUID, notes string, result *diagnosis.Result) {
	payload, err := json.Marshal(dto.SummarizeContextMessage{
		UserId:        userId,
		SubjectId:     result.PlantName,
		Category:      constant.ContextCategoryDiagnosis,
		UserText:      notes,
		AssistantText: result.PlantName + " diagnosed with " + result.Condition + ". " + result.DetailDiagnosis,
	})
	if err != nil {
		ds.logger.Error("DiagnosisService", "failed to marshal summary job", map[string]interface{}{"error": err.Error()})
		return
	}
	if err := ds.publisherService.Publish(ctx, payload); err != nil {
		ds.logger.Error("DiagnosisService", "failed to publish summary job", map[string]interface{}{"error": err.Error()})
	}
}
