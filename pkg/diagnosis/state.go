package diagnosis

// Request is one diagnosis invocation: a single image plus optional user notes.
// Immutable once created.
type Request struct {
	Image    []byte
	MIMEType string
	Notes    string
}

// ValidationResult is the outcome of the validate stage.
type ValidationResult struct {
	Valid  bool
	Reason string
}

// Species is the outcome of the identify stage. Low confidence is reported,
// not fatal.
type Species struct {
	Name          string
	Confidence    float64
	LowConfidence bool
}

// Condition is the outcome of the analyze stage.
type Condition struct {
	Label  string
	Detail string
}

// Step is one action plan item. Numbering is 1-based and contiguous.
type Step struct {
	StepId      int    `json:"id"`
	Instruction string `json:"action"`
}

// Result is the formatted output of a successful run.
type Result struct {
	PlantName       string `json:"plant_name"`
	Condition       string `json:"condition"`
	DetailDiagnosis string `json:"detail_diagnosis"`
	ActionPlan      []Step `json:"action_plan"`
}

type ErrorKind string

const (
	ErrNotAPlant      ErrorKind = "not_a_plant"
	ErrProviderError  ErrorKind = "provider_error"
	ErrProviderPolicy ErrorKind = "provider_policy"
)

// StageError is the error-exit payload. Message is safe to show to the user.
type StageError struct {
	Kind    ErrorKind
	Message string
}

// State is threaded through the pipeline stages, each stage filling in its
// own field. Exactly one of Output or Err is non-nil when Diagnose returns.
type State struct {
	Validation *ValidationResult
	Species    *Species
	Condition  *Condition
	ActionPlan []Step
	Output     *Result
	Err        *StageError
}

// Failed reports whether the pipeline exited through the error path.
func (s *State) Failed() bool {
	return s.Err != nil
}
