package dto

// DiagnoseRequest is parsed from a multipart form: the plant photo plus
// optional free-text notes from the user.
type DiagnoseRequest struct {
	Image     []byte `json:"-"`
	ImageMIME string `json:"-"`
	Notes     string `json:"notes" form:"notes"`
}

type ActionStepDTO struct {
	Id     int    `json:"id"`
	Action string `json:"action"`
}

// DiagnosisResponse is the successful diagnosis payload. A failed run never
// produces one of these; it produces a DiagnosisErrorResponse instead.
type DiagnosisResponse struct {
	PlantName       string          `json:"plant_name"`
	Condition       string          `json:"condition"`
	DetailDiagnosis string          `json:"detail_diagnosis"`
	ActionPlan      []ActionStepDTO `json:"action_plan"`
}

type DiagnosisErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
