package store

// Session represents the active chat session scratch state in memory.
// It is a cache over the persisted session, never the source of truth.
type Session struct {
	ID     string `json:"id"` // ChatSessionID
	UserID string `json:"user_id"`

	// Last plant the conversation settled on, used as the retrieval subject
	// when the user keeps talking about "it".
	LastPlant string `json:"last_plant"`

	// Metadata for last interaction
	LastQuery string `json:"last_query"`
	LastTool  string `json:"last_tool"` // ToolNone | ToolImageDiagnosis | ToolTextDiagnosis
}

const (
	ToolNone           = "NONE"
	ToolImageDiagnosis = "IMAGE_DIAGNOSIS"
	ToolTextDiagnosis  = "TEXT_DIAGNOSIS"
)
