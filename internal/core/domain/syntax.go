package domain

// NodeKind is the coarse syntactic role of a top-level declaration.
type NodeKind string

// Node kinds produced by parsers.
const (
	NodeFunction NodeKind = "function"
	NodeClass    NodeKind = "class"
	NodeImport   NodeKind = "import"
)

// SyntaxNode is a declaration found by a language parser.
// Lines are 1-based and inclusive. StartLine includes contiguous leading
// decorators, annotations and doc comments.
type SyntaxNode struct {
	Kind      NodeKind
	Name      string
	StartLine int
	EndLine   int

	// Children holds methods for class nodes.
	Children []SyntaxNode
}

// SyntaxTree is the top-level declaration list of one file, ordered by StartLine.
type SyntaxTree struct {
	Language string
	Nodes    []SyntaxNode
}
