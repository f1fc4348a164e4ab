package dto

import "github.com/google/uuid"

// SummarizeContextMessage is the async job payload handed to the context
// summarization worker after a completed turn or diagnosis.
type SummarizeContextMessage struct {
	UserId        uuid.UUID  `json:"user_id"`
	SubjectId     string     `json:"subject_id"`
	Category      string     `json:"category"`
	UserText      string     `json:"user_text"`
	AssistantText string     `json:"assistant_text"`
	SourceTurnId  *uuid.UUID `json:"source_turn_id,omitempty"`
}
