package constant

// Verdict tokens the validator model must answer with.
const (
	VerdictValidPlant           = "VALID_PLANT"
	VerdictInvalidNotPlant      = "INVALID_NOT_PLANT"
	VerdictInvalidIllegalPlant  = "INVALID_ILLEGAL_PLANT"
	VerdictInvalidInappropriate = "INVALID_INAPPROPRIATE"
	VerdictInvalidUnclear       = "INVALID_UNCLEAR"

	IllegalPlantToken   = "ILLEGAL_PLANT_DETECTED"
	UnknownPlantSpecies = "Unknown Plant Species"
)

// User-facing messages for each failed validation verdict.
var ValidationErrorMessages = map[string]string{
	VerdictInvalidNotPlant:      "Image does not contain a plant or contains artificial/fake plants",
	VerdictInvalidIllegalPlant:  "Cannot provide assistance for illegal or controlled substance plants",
	VerdictInvalidInappropriate: "Inappropriate content detected",
	VerdictInvalidUnclear:       "Image is too unclear for analysis",
}

const ValidationErrorFallback = "Invalid image - please upload a clear photo of a legal plant"

const IllegalPlantMessage = "Cannot provide assistance for illegal or controlled substance plants"

const DiagnosisValidationPrompt = `You are a plant image validator with expertise in botany and plant identification. Analyze the image carefully to determine if it contains a valid plant for diagnosis.

Respond with ONLY one of these exact responses:
- "VALID_PLANT" if the image contains a real, living plant that is legal and appropriate for care assistance
- "INVALID_NOT_PLANT" if the image doesn't contain a plant or contains artificial/fake plants
- "INVALID_ILLEGAL_PLANT" if the image contains illegal or controlled substance plants (cannabis, poppy, coca, etc.)
- "INVALID_INAPPROPRIATE" if the image contains inappropriate, harmful, or unrelated content
- "INVALID_UNCLEAR" if the image is too blurry/unclear to properly identify

Validation Rules:
ACCEPT: Houseplants, garden plants, vegetables, herbs (basil, mint, oregano), fruit trees, ornamental plants, flowers, succulents, trees, shrubs
REJECT: Cannabis/marijuana, opium poppy, coca plants, any controlled substance plants
REJECT: Artificial/fake plants, drawings, paintings, toys, non-plant objects
REJECT: Images that are blurry, dark, or unclear
REJECT: Inappropriate, harmful, or completely unrelated content

Be thorough in your analysis. Many legitimate plants may have similar leaf shapes, so focus on the complete plant characteristics and context.

Is this a valid plant image?`

const DiagnosisIdentificationPrompt = `You are a professional botanist specializing in plant identification for care assistance.
Analyze the provided plant image and identify the species.

IMPORTANT: If you identify any illegal or controlled substance plants (cannabis, marijuana, opium poppy, coca, etc.),
respond with "ILLEGAL_PLANT_DETECTED" instead of the plant name.

For legal plants, respond with ONLY the common name. Examples:
- "Monstera Deliciosa"
- "Snake Plant"
- "Peace Lily"
- "Fiddle Leaf Fig"
- "Apple Tree"
- "Basil"
- "Tomato Plant"

If you cannot identify the specific species, provide the closest genus or family name.
If completely uncertain, respond with "Unknown Plant Species".

Please identify this plant species.`

// DiagnosisAnalysisPrompt expects the plant name via fmt.Sprintf.
const DiagnosisAnalysisPrompt = `You are a plant pathologist analyzing the health of a %s.
Examine the image for signs of disease, pests, nutrient deficiencies, or other health issues.

Provide your analysis in exactly this format:
CONDITION: [One word/short phrase: "Healthy", "Overwatered", "Underwatered", "Pest Infestation", "Nutrient Deficiency", "Disease", etc.]
DIAGNOSIS: [2-3 detailed sentences explaining what you observe, the likely cause, and severity]

Focus on visible symptoms like leaf discoloration, wilting, spots, pests, or growth abnormalities.
If the plant appears healthy, state "Healthy" and describe positive signs.`

const (
	ConditionLinePrefix = "CONDITION:"
	DiagnosisLinePrefix = "DIAGNOSIS:"
)

// DiagnosisActionPlanPrompt expects plant name, condition, diagnosis detail
// and optional user notes via fmt.Sprintf.
const DiagnosisActionPlanPrompt = `You are a plant care specialist. Based on the diagnosis of a %s with condition "%s",
provide a specific action plan.

Create 3-5 actionable steps to address the plant's needs. Format as a JSON array:
[
  {"id": 1, "action": "Specific action step 1"},
  {"id": 2, "action": "Specific action step 2"},
  ...
]

Make actions specific, practical, and immediately actionable. Include timeframes when relevant.
Examples: "Water thoroughly until drainage occurs", "Move to bright, indirect light", "Apply neem oil spray every 3 days"

Diagnosis context: %s
%s
Respond with the JSON array only.`
