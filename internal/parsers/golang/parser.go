// Package golang parses Go source with the standard library parser.
package golang

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"

	"github.com/custodia-labs/codexai/internal/core/domain"
	"github.com/custodia-labs/codexai/internal/core/ports/driven"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// Language is the tag this parser registers under.
const Language = "go"

// Parser reports functions, methods, type declarations and import blocks.
// Doc comments are part of the declaration they document.
type Parser struct{}

// New creates a Go parser.
func New() *Parser {
	return &Parser{}
}

// Language returns the language tag.
func (p *Parser) Language() string {
	return Language
}

// Parse returns the declaration tree of a Go file.
func (p *Parser) Parse(content string) (*domain.SyntaxTree, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "", content, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrParseFailure, err)
	}

	line := func(pos token.Pos) int { return fset.Position(pos).Line }
	tree := &domain.SyntaxTree{Language: Language}

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			start := d.Pos()
			if d.Doc != nil {
				start = d.Doc.Pos()
			}
			tree.Nodes = append(tree.Nodes, domain.SyntaxNode{
				Kind:      domain.NodeFunction,
				Name:      funcName(d),
				StartLine: line(start),
				EndLine:   line(d.End()),
			})

		case *ast.GenDecl:
			switch d.Tok {
			case token.IMPORT:
				tree.Nodes = append(tree.Nodes, domain.SyntaxNode{
					Kind:      domain.NodeImport,
					StartLine: line(d.Pos()),
					EndLine:   line(d.End()),
				})
			case token.TYPE:
				tree.Nodes = append(tree.Nodes, typeNodes(d, line)...)
			}
		}
	}
	return tree, nil
}

// typeNodes emits one class node per type spec. An ungrouped declaration
// spans the whole GenDecl including its doc comment.
func typeNodes(d *ast.GenDecl, line func(token.Pos) int) []domain.SyntaxNode {
	if !d.Lparen.IsValid() && len(d.Specs) == 1 {
		spec := d.Specs[0].(*ast.TypeSpec)
		start := d.Pos()
		if d.Doc != nil {
			start = d.Doc.Pos()
		}
		return []domain.SyntaxNode{{
			Kind:      domain.NodeClass,
			Name:      spec.Name.Name,
			StartLine: line(start),
			EndLine:   line(d.End()),
		}}
	}

	nodes := make([]domain.SyntaxNode, 0, len(d.Specs))
	for _, s := range d.Specs {
		spec := s.(*ast.TypeSpec)
		start := spec.Pos()
		if spec.Doc != nil {
			start = spec.Doc.Pos()
		}
		nodes = append(nodes, domain.SyntaxNode{
			Kind:      domain.NodeClass,
			Name:      spec.Name.Name,
			StartLine: line(start),
			EndLine:   line(spec.End()),
		})
	}
	return nodes
}

func funcName(d *ast.FuncDecl) string {
	if d.Recv == nil || len(d.Recv.List) == 0 {
		return d.Name.Name
	}
	return receiverType(d.Recv.List[0].Type) + "." + d.Name.Name
}

func receiverType(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverType(t.X)
	case *ast.IndexExpr:
		return receiverType(t.X)
	case *ast.IndexListExpr:
		return receiverType(t.X)
	case *ast.Ident:
		return t.Name
	default:
		return "?"
	}
}
