package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateSessionResponse struct {
	Id uuid.UUID `json:"id"`
}

type GetAllSessionsResponse struct {
	Id        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

type GetChatHistoryResponse struct {
	Id        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Chat      string    `json:"chat"`
	ImageRef  *string   `json:"image_ref,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SendChatRequest is parsed from a multipart form so a turn can carry an
// image alongside the text. Either Chat or the image part must be present.
type SendChatRequest struct {
	ChatSessionId uuid.UUID `json:"chat_session_id" form:"chat_session_id" validate:"required"`
	Chat          string    `json:"chat" form:"chat"`
	Image         []byte    `json:"-"`
	ImageMIME     string    `json:"-"`
	ImageRef      *string   `json:"-"`
}

type SendChatResponseChat struct {
	Id        uuid.UUID `json:"id"`
	Chat      string    `json:"chat"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type SendChatResponse struct {
	ChatSessionId    uuid.UUID             `json:"chat_session_id"`
	ChatSessionTitle string                `json:"title"`
	Sent             *SendChatResponseChat `json:"sent"`
	Reply            *SendChatResponseChat `json:"reply"`
	ToolUsed         string                `json:"tool_used"` // "NONE" | "IMAGE_DIAGNOSIS" | "TEXT_DIAGNOSIS"
	Diagnosis        *DiagnosisResponse    `json:"diagnosis,omitempty"`
}

type DeleteSessionRequest struct {
	ChatSessionId uuid.UUID `json:"chat_session_id"`
}
