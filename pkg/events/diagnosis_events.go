package events

import "time"

const (
	TypeDiagnosisCompleted = "DIAGNOSIS_COMPLETED"
	TypeDiagnosisFailed    = "DIAGNOSIS_FAILED"
)

// DiagnosisCompletedEvent is published after the diagnosis pipeline produced
// a formatted result for a user.
type DiagnosisCompletedEvent struct {
	UserId     string
	PlantName  string
	Condition  string
	OccurredAt time.Time
}

func (e DiagnosisCompletedEvent) EventType() string {
	return TypeDiagnosisCompleted
}

func (e DiagnosisCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":    e.UserId,
		"plant_name": e.PlantName,
		"condition":  e.Condition,
		"timestamp":  e.OccurredAt.UTC().Format(time.RFC3339),
	}
}

func (e DiagnosisCompletedEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// DiagnosisFailedEvent is published when the pipeline exits through its
// error path. UserMessage is safe to show to the end user.
type DiagnosisFailedEvent struct {
	UserId      string
	Reason      string
	UserMessage string
	OccurredAt  time.Time
}

func (e DiagnosisFailedEvent) EventType() string {
	return TypeDiagnosisFailed
}

func (e DiagnosisFailedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserId,
		"reason":    e.Reason,
		"message":   e.UserMessage,
		"timestamp": e.OccurredAt.UTC().Format(time.RFC3339),
	}
}

func (e DiagnosisFailedEvent) Timestamp() time.Time {
	return e.OccurredAt
}
