package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names.
const (
	// PromptAnswerHybrid is the system prompt for answers grounded in evidence.
	// It has no placeholders; the context travels in the user message.
	PromptAnswerHybrid = "answer_hybrid"

	// PromptAnswerGeneral is the system prompt for answers without evidence.
	PromptAnswerGeneral = "answer_general"

	// PromptFollowups asks for follow-up questions.
	// The template expects a %d placeholder for the number of questions.
	PromptFollowups = "followups"
)

// PromptStoreAware is an optional interface for services that can use custom prompts.
type PromptStoreAware interface {
	// SetPromptStore sets the prompt store for loading customisable prompts.
	// If not set, the service uses its built-in defaults.
	SetPromptStore(store PromptStore)
}
