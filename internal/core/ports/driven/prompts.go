package driven

// PromptStore provides access to documentation prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the template for name. Unknown names return an error.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names. Each template is a system preamble without
// format placeholders.
const (
	// PromptReference asks for API reference documentation.
	PromptReference = "reference"

	// PromptTutorial asks for a usage walkthrough.
	PromptTutorial = "tutorial"

	// PromptOverview asks for a high-level summary of the file's role.
	PromptOverview = "overview"
)
