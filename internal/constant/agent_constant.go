package constant

// Chat roles persisted in chat_messages.role.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Context entry categories.
const (
	ContextCategoryDiagnosis    = "diagnosis"
	ContextCategoryConversation = "conversation"
)

// Decision actions the orchestrator accepts from the model.
const (
	DecisionReply          = "reply"
	DecisionImageDiagnosis = "image_diagnosis"
	DecisionTextDiagnosis  = "text_diagnosis"
)

// AgentSystemPrompt frames the assistant persona for every turn.
const AgentSystemPrompt = `You are a helpful plant care assistant. You help users keep their plants alive:
identifying species, diagnosing problems from photos or descriptions, and giving
practical, actionable care advice. Always review any retrieved context from
previous conversations before answering, and reference it when the user asks a
follow-up about a plant discussed before.`

// AgentDecisionPrompt asks the model to pick exactly one action as strict JSON.
// Expects: context block, conversation history block, image availability line,
// latest user message.
const AgentDecisionPrompt = `You are the routing brain of a plant care assistant. Decide how to handle the user's latest message.

%s
Conversation so far:
%s
%s
Latest user message: %s

You must choose EXACTLY ONE action:
- "reply": answer directly from the conversation and the retrieved context above.
- "image_diagnosis": run a full visual diagnosis. ONLY allowed when the user attached an image this turn.
- "text_diagnosis": look up the user's plant history for advice. ONLY allowed when NO image is attached this turn.

Rules:
- If the retrieved context already answers the question, prefer "reply" and build on it.
- Never pick "image_diagnosis" without an attached image.
- Never pick "text_diagnosis" when an image is attached.
- Never pick more than one action.

Respond with ONLY a JSON object, no markdown fences, in this exact shape:
{"action": "reply" | "image_diagnosis" | "text_diagnosis", "reply": "<your direct answer, required when action is reply>", "topic": "<search topic, required when action is text_diagnosis>"}`

// AgentConstraintReminder is appended for the single re-prompt after an
// invalid tool decision.
const AgentConstraintReminder = `Your previous decision was invalid: %s
Remember the rules: "image_diagnosis" requires an attached image, "text_diagnosis" is only for turns without an image, and the response must be a single JSON object with an "action" field. Decide again.`

// AgentFallbackReply is used when the model violates the decision contract twice.
const AgentFallbackReply = "I apologize, but I'm having trouble working out how to help with that right now. Could you rephrase your question, or attach a clear photo of your plant if you'd like a diagnosis?"

// AgentInsufficientContextReply is used when the text tool finds nothing relevant.
const AgentInsufficientContextReply = "I don't have enough history about your plants to answer that confidently. Could you share a photo of the plant, or tell me more about its species and symptoms?"

// AgentErrorReply is the degraded answer after provider retries are exhausted.
const AgentErrorReply = "I apologize, but I encountered an error processing your message. Please try again."

// AgentTextSynthesisPrompt turns aggregated context matches into advice.
// Expects: topic, newline-joined context summaries.
const AgentTextSynthesisPrompt = `You are a plant care assistant. The user asked about: %s

Relevant notes from their plant history:
%s

Using ONLY this history plus general plant care knowledge, write a concise, friendly answer.
Reference the specific plants from the history where relevant. If the history mentions a
previous diagnosis, build on it rather than starting over.`

// SummarizeTurnPrompt condenses one exchange into a single stored fact.
// Expects: user message, assistant reply.
const SummarizeTurnPrompt = `Summarize the following plant care exchange in 1-2 sentences for long-term memory.
Capture plant names, conditions, diagnoses and stated user preferences. Write in third person.

User: %s
Assistant: %s

Summary:`
