package domain

import "time"

// DocKind is the style of documentation requested.
type DocKind string

// Documentation kinds.
const (
	DocReference DocKind = "reference"
	DocTutorial  DocKind = "tutorial"
	DocOverview  DocKind = "overview"
)

// IsValid returns true if the kind is recognised.
func (k DocKind) IsValid() bool {
	switch k {
	case DocReference, DocTutorial, DocOverview:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (k DocKind) String() string {
	return string(k)
}

// AllDocKinds returns every supported documentation kind.
func AllDocKinds() []DocKind {
	return []DocKind{DocReference, DocTutorial, DocOverview}
}

// DocOptions are the caller flags of a documentation request.
type DocOptions struct {
	IncludeTests        bool
	IncludeDependencies bool
}

// DocumentationRequest is one generated document. Records are append-only:
// regenerating creates a new record and readers select the newest.
type DocumentationRequest struct {
	ID        string
	ProjectID string
	FilePath  string
	Kind      DocKind

	// Target narrows the document to one symbol. Empty documents the file.
	Target  string
	Options DocOptions

	Content          string
	PromptTokens     int
	CompletionTokens int

	// ContextChunkIDs are weak references to the chunks used as context.
	ContextChunkIDs []string

	Model string

	// TargetTruncated is set when the target file was cut to fit the prompt.
	TargetTruncated bool

	CreatedAt time.Time
}
