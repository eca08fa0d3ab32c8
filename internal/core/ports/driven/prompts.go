package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not overridden, implementations return the default.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names used throughout the application.
const (
	// PromptContextAnswer wraps retrieved material and the user question.
	// The template expects two %s placeholders: the context, then the question.
	PromptContextAnswer = "context_answer"
)
