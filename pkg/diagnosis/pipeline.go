package diagnosis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ai-plantcare-be/internal/constant"
	"ai-plantcare-be/internal/pkg/logger"
	"ai-plantcare-be/pkg/llm"
	"ai-plantcare-be/pkg/vision"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultMaxRetries      = 2
	defaultCallTimeout     = 60 * time.Second
	defaultConfidenceFloor = 0.5

	identifiedConfidence = 0.8
	unknownConfidence    = 0.2
)

// Pipeline runs the staged plant diagnosis:
// validate -> identify -> analyze -> plan -> format, with an error exit
// reachable from every stage. Formatting only runs after all upstream
// stages succeeded, so a failed run never carries partial output.
type Pipeline struct {
	vision          vision.VisionProvider
	llm             llm.LLMProvider
	logger          logger.ILogger
	maxRetries      uint64
	callTimeout     time.Duration
	confidenceFloor float64
}

type PipelineOption func(*Pipeline)

func WithMaxRetries(n uint64) PipelineOption {
	return func(p *Pipeline) {
		p.maxRetries = n
	}
}

func WithCallTimeout(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		p.callTimeout = d
	}
}

func WithConfidenceFloor(f float64) PipelineOption {
	return func(p *Pipeline) {
		p.confidenceFloor = f
	}
}

func NewPipeline(visionProvider vision.VisionProvider, llmProvider llm.LLMProvider, log logger.ILogger, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		vision:          visionProvider,
		llm:             llmProvider,
		logger:          log,
		maxRetries:      defaultMaxRetries,
		callTimeout:     defaultCallTimeout,
		confidenceFloor: defaultConfidenceFloor,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Diagnose runs the full chain for one request. The returned state is
// terminal: exactly one of Output or Err is set.
func (p *Pipeline) Diagnose(ctx context.Context, req Request) *State {
	state := &State{}

	if len(req.Image) == 0 {
		return p.errorExit(state, ErrNotAPlant, "No image data provided")
	}

	img := vision.Image{Data: req.Image, MIMEType: req.MIMEType}

	if p.validate(ctx, state, img); state.Failed() {
		return state
	}
	if p.identify(ctx, state, img); state.Failed() {
		return state
	}
	if p.analyze(ctx, state, img); state.Failed() {
		return state
	}
	if p.plan(ctx, state, req.Notes); state.Failed() {
		return state
	}

	p.format(state)
	return state
}

func (p *Pipeline) validate(ctx context.Context, state *State, img vision.Image) {
	verdict, err := p.callVision(ctx, constant.DiagnosisValidationPrompt, img)
	if err != nil {
		p.providerExit(state, "validate", err)
		return
	}

	verdict = strings.TrimSpace(verdict)
	if verdict == constant.VerdictValidPlant {
		state.Validation = &ValidationResult{Valid: true}
		return
	}

	reason, ok := constant.ValidationErrorMessages[verdict]
	if !ok {
		reason = constant.ValidationErrorFallback
	}
	state.Validation = &ValidationResult{Valid: false, Reason: reason}
	p.errorExit(state, ErrNotAPlant, reason)
}

func (p *Pipeline) identify(ctx context.Context, state *State, img vision.Image) {
	name, err := p.callVision(ctx, constant.DiagnosisIdentificationPrompt, img)
	if err != nil {
		p.providerExit(state, "identify", err)
		return
	}

	name = strings.Trim(strings.TrimSpace(name), `"`)
	if name == constant.IllegalPlantToken {
		p.errorExit(state, ErrNotAPlant, constant.IllegalPlantMessage)
		return
	}

	confidence := identifiedConfidence
	if name == "" || name == constant.UnknownPlantSpecies {
		name = constant.UnknownPlantSpecies
		confidence = unknownConfidence
	}

	state.Species = &Species{
		Name:          name,
		Confidence:    confidence,
		LowConfidence: confidence < p.confidenceFloor,
	}
	if state.Species.LowConfidence {
		p.logger.Warn("diagnosis", "species identified with low confidence", map[string]interface{}{
			"plant_name": name,
			"confidence": confidence,
		})
	}
}

func (p *Pipeline) analyze(ctx context.Context, state *State, img vision.Image) {
	prompt := fmt.Sprintf(constant.DiagnosisAnalysisPrompt, state.Species.Name)
	analysis, err := p.callVision(ctx, prompt, img)
	if err != nil {
		p.providerExit(state, "analyze", err)
		return
	}

	condition, detail := parseAnalysis(analysis)
	state.Condition = &Condition{Label: condition, Detail: detail}
}

func (p *Pipeline) plan(ctx context.Context, state *State, notes string) {
	notesLine := ""
	if strings.TrimSpace(notes) != "" {
		notesLine = "User notes: " + notes + "\n"
	}
	prompt := fmt.Sprintf(constant.DiagnosisActionPlanPrompt,
		state.Species.Name, state.Condition.Label, state.Condition.Detail, notesLine)

	var raw string
	err := p.withRetry(ctx, func(callCtx context.Context) error {
		var callErr error
		raw, callErr = p.llm.Generate(callCtx, prompt, llm.WithTemperature(0.4))
		return callErr
	})
	if err != nil {
		p.providerExit(state, "plan", err)
		return
	}

	steps, parseErr := parseActionPlan(raw)
	if parseErr != nil {
		p.logger.Warn("diagnosis", "action plan parse failed, using fallback plan", map[string]interface{}{
			"error": parseErr.Error(),
		})
		steps = fallbackPlan()
	}
	state.ActionPlan = steps
}

func (p *Pipeline) format(state *State) {
	state.Output = &Result{
		PlantName:       state.Species.Name,
		Condition:       state.Condition.Label,
		DetailDiagnosis: state.Condition.Detail,
		ActionPlan:      state.ActionPlan,
	}
}

func (p *Pipeline) callVision(ctx context.Context, prompt string, img vision.Image) (string, error) {
	var out string
	err := p.withRetry(ctx, func(callCtx context.Context) error {
		var callErr error
		out, callErr = p.vision.Analyze(callCtx, prompt, img)
		return callErr
	})
	return out, err
}

// withRetry retries transient provider failures with exponential backoff.
// Terminal failures (policy rejections, malformed input) short-circuit.
func (p *Pipeline) withRetry(ctx context.Context, operation func(context.Context) error) error {
	attempt := func() error {
		callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
		defer cancel()

		err := operation(callCtx)
		if err == nil {
			return nil
		}
		if !llm.IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), p.maxRetries),
		ctx,
	)
	return backoff.Retry(attempt, policy)
}

func (p *Pipeline) errorExit(state *State, kind ErrorKind, message string) *State {
	state.Err = &StageError{Kind: kind, Message: message}
	state.Output = nil
	return state
}

func (p *Pipeline) providerExit(state *State, stage string, err error) {
	kind := ErrProviderError
	message := "The diagnosis service is temporarily unavailable. Please try again."
	if llm.IsPolicy(err) {
		kind = ErrProviderPolicy
		message = "The image could not be processed. Please upload a different photo of your plant."
	}

	p.logger.Error("diagnosis", "stage failed", map[string]interface{}{
		"stage": stage,
		"error": err.Error(),
	})
	p.errorExit(state, kind, message)
}

// parseAnalysis extracts the CONDITION and DIAGNOSIS lines from the
// analyzer response. Unstructured responses degrade to the full text.
func parseAnalysis(text string) (condition, detail string) {
	condition = "Unknown"
	detail = strings.TrimSpace(text)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, constant.ConditionLinePrefix) {
			condition = strings.TrimSpace(strings.TrimPrefix(line, constant.ConditionLinePrefix))
		} else if strings.HasPrefix(line, constant.DiagnosisLinePrefix) {
			detail = strings.TrimSpace(strings.TrimPrefix(line, constant.DiagnosisLinePrefix))
		}
	}
	return condition, detail
}

// parseActionPlan decodes the model's JSON array, tolerating markdown fences,
// and renumbers the steps so ids are always contiguous from 1.
func parseActionPlan(raw string) ([]Step, error) {
	cleaned := stripMarkdownFences(raw)

	var steps []Step
	if err := json.Unmarshal([]byte(cleaned), &steps); err != nil {
		return nil, fmt.Errorf("decode action plan: %w", err)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("action plan is empty")
	}

	for i := range steps {
		if strings.TrimSpace(steps[i].Instruction) == "" {
			return nil, fmt.Errorf("action plan step %d has no instruction", i)
		}
		steps[i].StepId = i + 1
	}
	return steps, nil
}

func stripMarkdownFences(raw string) string {
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
	return strings.TrimSpace(cleaned)
}

func fallbackPlan() []Step {
	return []Step{
		{StepId: 1, Instruction: "Follow general care guidelines for the diagnosed condition"},
		{StepId: 2, Instruction: "Monitor plant closely for changes"},
		{StepId: 3, Instruction: "Adjust care routine based on plant response"},
	}
}
