package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"ai-plantcare-be/internal/constant"
)

// decision is the strict contract the routing model must honor. Anything
// outside this shape is a contract violation and triggers the re-prompt.
type decision struct {
	Action string `json:"action"`
	Reply  string `json:"reply,omitempty"`
	Topic  string `json:"topic,omitempty"`
}

// parseDecision decodes the model output, tolerating markdown fences.
func parseDecision(raw string) (*decision, error) {
	cleaned := strings.TrimSpace(raw)
	if idx := strings.Index(cleaned, "```json"); idx >= 0 {
		cleaned = cleaned[idx+len("```json"):]
		if end := strings.Index(cleaned, "```"); end >= 0 {
			cleaned = cleaned[:end]
		}
	} else if idx := strings.Index(cleaned, "```"); idx >= 0 {
		cleaned = cleaned[idx+len("```"):]
		if end := strings.Index(cleaned, "```"); end >= 0 {
			cleaned = cleaned[:end]
		}
	}
	cleaned = strings.TrimSpace(cleaned)

	var d decision
	if err := json.Unmarshal([]byte(cleaned), &d); err != nil {
		return nil, fmt.Errorf("decision is not valid JSON: %w", err)
	}
	return &d, nil
}

// validateDecision enforces the dispatch guards: the image tool needs an
// attached image, the text tool is only for image-less turns, a direct
// reply needs text.
func validateDecision(d *decision, hasImage bool) error {
	switch d.Action {
	case constant.DecisionReply:
		if strings.TrimSpace(d.Reply) == "" {
			return fmt.Errorf(`action "reply" requires a non-empty reply`)
		}
		return nil
	case constant.DecisionImageDiagnosis:
		if !hasImage {
			return fmt.Errorf(`action "image_diagnosis" selected but no image is attached to this turn`)
		}
		return nil
	case constant.DecisionTextDiagnosis:
		if hasImage {
			return fmt.Errorf(`action "text_diagnosis" selected but the turn has an attached image`)
		}
		return nil
	default:
		return fmt.Errorf("unknown action %q", d.Action)
	}
}
