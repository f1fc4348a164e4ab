package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"ai-plantcare-be/internal/constant"
	"ai-plantcare-be/internal/dto"
	"ai-plantcare-be/internal/repository/unitofwork"
	"ai-plantcare-be/pkg/contextstore"
	"ai-plantcare-be/pkg/llm"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService is the background summarization worker: it condenses one
// chat exchange into a single fact and appends it to the context store.
type consumerService struct {
	pubSub      *gochannel.GoChannel
	topicName   string
	uowFactory  unitofwork.Factory
	llmProvider llm.LLMProvider
	contexts    *contextstore.Store
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.Factory,
	llmProvider llm.LLMProvider,
	contexts *contextstore.Store,
) IConsumerService {
	return &consumerService{
		pubSub:      pubSub,
		topicName:   topicName,
		uowFactory:  uowFactory,
		llmProvider: llmProvider,
		contexts:    contexts,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.SummarizeContextMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal summary job: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	log.Printf("[INFO] Summarizing turn for user %s (category: %s)", payload.UserId, payload.Category)

	summary, err := cs.summarize(ctx, payload)
	if err != nil {
		log.Printf("[ERROR] Failed to summarize turn for user %s: %v", payload.UserId, err)
		msg.Nack() // Retriable: provider hiccups resolve on redelivery
		return
	}

	uow := cs.uowFactory(ctx)
	_, err = cs.contexts.Upsert(ctx, uow, contextstore.UpsertInput{
		UserId:       payload.UserId,
		SubjectId:    payload.SubjectId,
		Category:     payload.Category,
		Summary:      summary,
		SourceTurnId: payload.SourceTurnId,
	})
	if err != nil {
		log.Printf("[ERROR] Failed to store context entry for user %s: %v", payload.UserId, err)
		msg.Nack()
		return
	}

	log.Printf("[SUCCESS] Context entry stored for user %s (subject: %s)", payload.UserId, payload.SubjectId)
	msg.Ack()
}

// summarize condenses the exchange with the LLM. Diagnosis turns already
// carry a factual assistant text, so those are stored as-is.
func (cs *consumerService) summarize(ctx context.Context, payload dto.SummarizeContextMessage) (string, error) {
	if payload.Category == constant.ContextCategoryDiagnosis {
		return payload.AssistantText, nil
	}

	prompt := fmt.Sprintf(constant.SummarizeTurnPrompt, payload.UserText, payload.AssistantText)
	summary, err := cs.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.2))
	if err != nil {
		return "", err
	}
	return summary, nil
}
