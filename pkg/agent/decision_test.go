package agent

import (
	"testing"

	"ai-plantcare-be/internal/constant"
)

func TestParseDecision(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantAction string
		wantErr    bool
	}{
		{
			name:       "plain json",
			raw:        `{"action": "reply", "reply": "Water it less."}`,
			wantAction: constant.DecisionReply,
		},
		{
			name:       "json fenced",
			raw:        "```json\n{\"action\": \"image_diagnosis\"}\n```",
			wantAction: constant.DecisionImageDiagnosis,
		},
		{
			name:       "generic fence with chatter",
			raw:        "Here is my decision:\n```\n{\"action\": \"text_diagnosis\", \"topic\": \"basil watering\"}\n```",
			wantAction: constant.DecisionTextDiagnosis,
		},
		{name: "prose only", raw: "I think we should run a diagnosis.", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := parseDecision(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d.Action != tt.wantAction {
				t.Errorf("action = %q, want %q", d.Action, tt.wantAction)
			}
		})
	}
}

func TestValidateDecision(t *testing.T) {
	tests := []struct {
		name     string
		decision decision
		hasImage bool
		wantErr  bool
	}{
		{
			name:     "reply with text",
			decision: decision{Action: constant.DecisionReply, Reply: "Hello"},
		},
		{
			name:     "reply without text",
			decision: decision{Action: constant.DecisionReply},
			wantErr:  true,
		},
		{
			name:     "image tool with image",
			decision: decision{Action: constant.DecisionImageDiagnosis},
			hasImage: true,
		},
		{
			name:     "image tool without image",
			decision: decision{Action: constant.DecisionImageDiagnosis},
			wantErr:  true,
		},
		{
			name:     "text tool without image",
			decision: decision{Action: constant.DecisionTextDiagnosis, Topic: "ficus"},
		},
		{
			name:     "text tool with image",
			decision: decision{Action: constant.DecisionTextDiagnosis},
			hasImage: true,
			wantErr:  true,
		},
		{
			name:     "unknown action",
			decision: decision{Action: "make_coffee"},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateDecision(&tt.decision, tt.hasImage)
			if tt.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
