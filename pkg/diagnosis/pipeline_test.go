package diagnosis

import (
	"context"
	"testing"

	"ai-plantcare-be/internal/constant"
	"ai-plantcare-be/pkg/llm"
	"ai-plantcare-be/pkg/vision"
)

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

// fakeVision answers scripted responses in call order.
type fakeVision struct {
	responses []string
	errs      []error
	calls     int
}

func (f *fakeVision) Analyze(ctx context.Context, prompt string, img vision.Image, opts ...llm.Option) (string, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "", nil
}

type fakeLLM struct {
	response string
	err      error
	calls    int
}

func (f *fakeLLM) Chat(ctx context.Context, messages []llm.Message, opts ...llm.Option) (string, error) {
	f.calls++
	return f.response, f.err
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	f.calls++
	return f.response, f.err
}

var testImage = Request{Image: []byte("jpegbytes"), MIMEType: "image/jpeg"}

func TestDiagnoseSuccess(t *testing.T) {
	v := &fakeVision{responses: []string{
		constant.VerdictValidPlant,
		"Basil",
		"CONDITION: Overwatered\nDIAGNOSIS: Yellowing lower leaves and soggy soil indicate overwatering.",
	}}
	l := &fakeLLM{response: `[{"id": 1, "action": "Let the soil dry out"}, {"id": 2, "action": "Repot with fresh soil"}]`}

	p := NewPipeline(v, l, nopLogger{})
	state := p.Diagnose(context.Background(), Request{Image: testImage.Image, MIMEType: testImage.MIMEType, Notes: "leaves turning yellow"})

	if state.Err != nil {
		t.Fatalf("unexpected error: %+v", state.Err)
	}
	if state.Output == nil {
		t.Fatal("expected output")
	}
	if state.Output.PlantName != "Basil" {
		t.Errorf("PlantName = %q, want %q", state.Output.PlantName, "Basil")
	}
	if state.Output.Condition != "Overwatered" {
		t.Errorf("Condition = %q, want %q", state.Output.Condition, "Overwatered")
	}
	if len(state.Output.ActionPlan) != 2 {
		t.Fatalf("ActionPlan length = %d, want 2", len(state.Output.ActionPlan))
	}
	if state.Output.ActionPlan[0].StepId != 1 || state.Output.ActionPlan[1].StepId != 2 {
		t.Errorf("steps not numbered contiguously: %+v", state.Output.ActionPlan)
	}
}

func TestDiagnoseInvalidImageSkipsDownstream(t *testing.T) {
	tests := []struct {
		name    string
		verdict string
		wantMsg string
	}{
		{"not a plant", constant.VerdictInvalidNotPlant, constant.ValidationErrorMessages[constant.VerdictInvalidNotPlant]},
		{"illegal plant", constant.VerdictInvalidIllegalPlant, constant.ValidationErrorMessages[constant.VerdictInvalidIllegalPlant]},
		{"unclear", constant.VerdictInvalidUnclear, constant.ValidationErrorMessages[constant.VerdictInvalidUnclear]},
		{"unexpected verdict", "SOMETHING_ELSE", constant.ValidationErrorFallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &fakeVision{responses: []string{tt.verdict}}
			l := &fakeLLM{}

			p := NewPipeline(v, l, nopLogger{})
			state := p.Diagnose(context.Background(), testImage)

			if state.Output != nil {
				t.Error("failed run must not carry output")
			}
			if state.Err == nil {
				t.Fatal("expected error exit")
			}
			if state.Err.Kind != ErrNotAPlant {
				t.Errorf("Kind = %q, want %q", state.Err.Kind, ErrNotAPlant)
			}
			if state.Err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", state.Err.Message, tt.wantMsg)
			}
			if v.calls != 1 {
				t.Errorf("vision calls = %d, validation failure must stop the chain", v.calls)
			}
			if l.calls != 0 {
				t.Errorf("llm calls = %d, plan stage must not run", l.calls)
			}
		})
	}
}

func TestDiagnoseEmptyImage(t *testing.T) {
	v := &fakeVision{}
	p := NewPipeline(v, &fakeLLM{}, nopLogger{})

	state := p.Diagnose(context.Background(), Request{})

	if state.Err == nil || state.Err.Kind != ErrNotAPlant {
		t.Fatalf("expected not-a-plant exit, got %+v", state.Err)
	}
	if v.calls != 0 {
		t.Error("no provider call expected for an empty image")
	}
}

func TestDiagnoseIllegalPlantAtIdentify(t *testing.T) {
	v := &fakeVision{responses: []string{
		constant.VerdictValidPlant,
		constant.IllegalPlantToken,
	}}

	p := NewPipeline(v, &fakeLLM{}, nopLogger{})
	state := p.Diagnose(context.Background(), testImage)

	if state.Output != nil {
		t.Error("failed run must not carry output")
	}
	if state.Err == nil || state.Err.Message != constant.IllegalPlantMessage {
		t.Fatalf("expected illegal plant message, got %+v", state.Err)
	}
	if v.calls != 2 {
		t.Errorf("vision calls = %d, analyze must not run", v.calls)
	}
}

func TestDiagnoseUnknownSpeciesContinues(t *testing.T) {
	v := &fakeVision{responses: []string{
		constant.VerdictValidPlant,
		constant.UnknownPlantSpecies,
		"CONDITION: Healthy\nDIAGNOSIS: No visible issues.",
	}}
	l := &fakeLLM{response: `[{"id": 1, "action": "Keep doing what you're doing"}]`}

	p := NewPipeline(v, l, nopLogger{})
	state := p.Diagnose(context.Background(), testImage)

	if state.Err != nil {
		t.Fatalf("unexpected error: %+v", state.Err)
	}
	if state.Output.PlantName != constant.UnknownPlantSpecies {
		t.Errorf("PlantName = %q", state.Output.PlantName)
	}
	if !state.Species.LowConfidence {
		t.Error("unknown species should be flagged low confidence")
	}
}

func TestDiagnoseTransientErrorRetries(t *testing.T) {
	transient := llm.NewProviderError("gemini", llm.KindTransient, "rate limited", nil)
	v := &fakeVision{
		errs: []error{transient, nil, nil, nil},
		responses: []string{
			"", // consumed by the failed first attempt
			constant.VerdictValidPlant,
			"Basil",
			"CONDITION: Healthy\nDIAGNOSIS: Looks fine.",
		},
	}
	l := &fakeLLM{response: `[{"id": 1, "action": "Water weekly"}]`}

	p := NewPipeline(v, l, nopLogger{}, WithMaxRetries(2))
	state := p.Diagnose(context.Background(), testImage)

	if state.Err != nil {
		t.Fatalf("transient failure should have been retried: %+v", state.Err)
	}
	if v.calls != 4 {
		t.Errorf("vision calls = %d, want 4 (1 failed + 3 stages)", v.calls)
	}
}

func TestDiagnosePolicyErrorDoesNotRetry(t *testing.T) {
	policy := llm.NewProviderError("gemini", llm.KindPolicy, "blocked by safety filter", nil)
	v := &fakeVision{errs: []error{policy}}

	p := NewPipeline(v, &fakeLLM{}, nopLogger{}, WithMaxRetries(3))
	state := p.Diagnose(context.Background(), testImage)

	if state.Err == nil || state.Err.Kind != ErrProviderPolicy {
		t.Fatalf("expected policy exit, got %+v", state.Err)
	}
	if v.calls != 1 {
		t.Errorf("vision calls = %d, policy errors must not be retried", v.calls)
	}
}

func TestDiagnoseMalformedPlanFallsBack(t *testing.T) {
	v := &fakeVision{responses: []string{
		constant.VerdictValidPlant,
		"Monstera Deliciosa",
		"CONDITION: Pest Infestation\nDIAGNOSIS: Spider mites on leaf undersides.",
	}}
	l := &fakeLLM{response: "Sure! Here are some steps you can take..."}

	p := NewPipeline(v, l, nopLogger{})
	state := p.Diagnose(context.Background(), testImage)

	if state.Err != nil {
		t.Fatalf("unexpected error: %+v", state.Err)
	}
	if len(state.Output.ActionPlan) != 3 {
		t.Fatalf("expected the 3-step fallback plan, got %d steps", len(state.Output.ActionPlan))
	}
}

func TestParseAnalysis(t *testing.T) {
	tests := []struct {
		name          string
		text          string
		wantCondition string
		wantDetail    string
	}{
		{
			name:          "structured",
			text:          "CONDITION: Overwatered\nDIAGNOSIS: Soil stays wet.",
			wantCondition: "Overwatered",
			wantDetail:    "Soil stays wet.",
		},
		{
			name:          "unstructured degrades to full text",
			text:          "The plant looks stressed.",
			wantCondition: "Unknown",
			wantDetail:    "The plant looks stressed.",
		},
		{
			name:          "extra whitespace",
			text:          "  CONDITION:   Healthy  \n  DIAGNOSIS:  All good. ",
			wantCondition: "Healthy",
			wantDetail:    "All good.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			condition, detail := parseAnalysis(tt.text)
			if condition != tt.wantCondition {
				t.Errorf("condition = %q, want %q", condition, tt.wantCondition)
			}
			if detail != tt.wantDetail {
				t.Errorf("detail = %q, want %q", detail, tt.wantDetail)
			}
		})
	}
}

func TestParseActionPlan(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantSteps int
		wantErr   bool
	}{
		{
			name:      "plain array",
			raw:       `[{"id": 1, "action": "Water"}, {"id": 2, "action": "Prune"}]`,
			wantSteps: 2,
		},
		{
			name:      "json fenced",
			raw:       "```json\n[{\"id\": 1, \"action\": \"Water\"}]\n```",
			wantSteps: 1,
		},
		{
			name:      "generic fence",
			raw:       "```\n[{\"id\": 5, \"action\": \"Water\"}]\n```",
			wantSteps: 1,
		},
		{
			name:      "out of order ids get renumbered",
			raw:       `[{"id": 9, "action": "First"}, {"id": 3, "action": "Second"}]`,
			wantSteps: 2,
		},
		{name: "not json", raw: "do some watering", wantErr: true},
		{name: "empty array", raw: "[]", wantErr: true},
		{name: "blank instruction", raw: `[{"id": 1, "action": "  "}]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			steps, err := parseActionPlan(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(steps) != tt.wantSteps {
				t.Fatalf("steps = %d, want %d", len(steps), tt.wantSteps)
			}
			for i, step := range steps {
				if step.StepId != i+1 {
					t.Errorf("step %d has id %d, ids must be contiguous from 1", i, step.StepId)
				}
			}
		})
	}
}
