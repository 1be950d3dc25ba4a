// Package brace parses C-family languages by brace structure and
// declaration header patterns.
package brace

import (
	"regexp"
	"sort"
	"strings"

	"github.com/custodia-labs/codexai/internal/core/domain"
	"github.com/custodia-labs/codexai/internal/core/ports/driven"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// config captures the lexical differences between supported languages.
type config struct {
	// hashComments treats '#' as a line comment (PHP).
	hashComments bool

	// charLiterals only opens a quote for short 'x' literals (Rust lifetimes).
	charLiterals bool

	// backticks enables multi-line `...` strings.
	backticks bool
}

var languages = map[string]config{
	"javascript": {backticks: true},
	"typescript": {backticks: true},
	"java":       {},
	"csharp":     {},
	"c":          {},
	"cpp":        {},
	"rust":       {charLiterals: true},
	"kotlin":     {},
	"swift":      {},
	"php":        {hashComments: true},
	"scala":      {backticks: true},
}

// Languages returns every language tag the brace parser supports, sorted.
func Languages() []string {
	out := make([]string, 0, len(languages))
	for lang := range languages {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// Parser finds declarations in one C-family language.
type Parser struct {
	language string
	cfg      config
}

// New creates a parser for language. Unknown languages get the default
// C lexical rules.
func New(language string) *Parser {
	return &Parser{language: language, cfg: languages[language]}
}

// Language returns the language tag.
func (p *Parser) Language() string {
	return p.language
}

var (
	controlPattern = regexp.MustCompile(
		`^(?:if|else|for|foreach|while|do|switch|catch|try|finally|return|with|synchronized|lock|using|match|loop|when|guard|defer)\b`)

	modifierPattern = regexp.MustCompile(
		`^(?:(?:export|default|public|private|protected|internal|static|abstract|final|sealed|partial|data|open|override|async|declare|inline|virtual|extern|unsafe|pub(?:\([^)]*\))?)\s+)*`)

	typePattern      = regexp.MustCompile(`^(?:class|interface|trait|object|record|protocol|extension|enum\s+class|enum|struct|union)\s+([A-Za-z_$][\w$]*)`)
	implPattern      = regexp.MustCompile(`^impl\b(?:\s*<[^{]*?>)?\s+(?:[\w:<>, &']+?\s+for\s+)?([A-Za-z_]\w*)`)
	namespacePattern = regexp.MustCompile(`^(?:(?:namespace|module|mod|package)\b|extern\s+"C")`)
	importHeader     = regexp.MustCompile(`^(?:import\b|export\s*\{|export\s+\*|use\s)`)

	jsFuncPattern   = regexp.MustCompile(`\bfunction\b\s*\*?\s*([A-Za-z_$][\w$]*)\s*\(`)
	keywordFunc     = regexp.MustCompile(`\b(?:fn|fun|func|def)\s+(?:<[^>]*>\s*)?(?:[\w.]+\.)?([A-Za-z_]\w*)`)
	arrowPattern    = regexp.MustCompile(`^(?:export\s+)?(?:default\s+)?(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*(?::[^=]+)?=\s*(?:async\s+)?(?:function\b|(?:\([^)]*\)|[A-Za-z_$][\w$]*)\s*(?::\s*[^=]+)?=>)`)
	callableHeading = regexp.MustCompile(
		`([A-Za-z_~$][\w~$]*(?:::~?[A-Za-z_][\w]*)*)\s*\([^()]*(?:\([^()]*\)[^()]*)*\)(?:\s*(?:const|noexcept|override|final|mutable|throws\s+[\w.,\s]+|:\s*[^{;]+|->\s*[^{;]+|where\s+[^{;]+))*\s*$`)

	importLine = regexp.MustCompile(
		`^(?:import\s|export\s+\*\s+from|#include\b|#import\b|using\s+(?:static\s+)?[\w.]+\s*;|use\s+[\w:\\{}, *]+;|require(?:_once)?\b|(?:const|let|var)\s+.*=\s*require\()`)

	notNames = map[string]bool{
		"if": true, "for": true, "while": true, "switch": true, "catch": true, "return": true,
		"function": true, "new": true, "sizeof": true, "typeof": true, "foreach": true, "using": true,
		"lock": true, "synchronized": true, "else": true, "do": true, "try": true,
	}
)

type declKind int

const (
	declNone declKind = iota
	declFunction
	declClass
	declNamespace
	declImport
)

// Parse returns the declaration tree.
func (p *Parser) Parse(content string) (*domain.SyntaxTree, error) {
	res, err := scan(content, p.cfg)
	if err != nil {
		return nil, err
	}

	nodes := p.declarations(res, 0, -1, len(res.lines), false)
	nodes = append(nodes, singleLineImports(res, nodes)...)
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].StartLine < nodes[j].StartLine })

	return &domain.SyntaxTree{Language: p.language, Nodes: nodes}, nil
}

// declarations classifies the blocks at depth strictly inside lines (lo, hi).
func (p *Parser) declarations(res *scanResult, depth, lo, hi int, inClass bool) []domain.SyntaxNode {
	var nodes []domain.SyntaxNode
	prevEnd := lo + 1

	for _, b := range res.blocks {
		if b.depth != depth || b.open <= lo || b.close >= hi || b.open < prevEnd {
			continue
		}

		hStart := headerStart(res.lines, b.open, prevEnd)
		kind, name := classify(headerText(res.lines, hStart, b.open))

		switch kind {
		case declNone:
			continue
		case declNamespace:
			if !inClass {
				nodes = append(nodes, p.declarations(res, depth+1, b.open, b.close, false)...)
			}
			prevEnd = b.close + 1
			continue
		}
		if inClass && kind != declFunction {
			prevEnd = b.close + 1
			continue
		}

		node := domain.SyntaxNode{
			Name:      name,
			StartLine: leadingStart(res.lines, hStart, prevEnd) + 1,
			EndLine:   b.close + 1,
		}
		switch kind {
		case declFunction:
			node.Kind = domain.NodeFunction
		case declClass:
			node.Kind = domain.NodeClass
			node.Children = p.declarations(res, depth+1, b.open, b.close, true)
		case declImport:
			node.Kind = domain.NodeImport
			node.Name = ""
		}
		nodes = append(nodes, node)
		prevEnd = b.close + 1
	}
	return nodes
}

// classify decides what a declaration header introduces.
func classify(header string) (declKind, string) {
	h := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(header), "}"))
	if h == "" || controlPattern.MatchString(h) {
		return declNone, ""
	}
	if importHeader.MatchString(h) {
		return declImport, ""
	}
	if namespacePattern.MatchString(h) {
		return declNamespace, ""
	}

	bare := strings.TrimPrefix(h, modifierPattern.FindString(h))
	if m := implPattern.FindStringSubmatch(bare); m != nil {
		return declClass, m[1]
	}
	if m := typePattern.FindStringSubmatch(bare); m != nil {
		// "struct node *make(void)" returns a struct; it is not one.
		isCType := strings.HasPrefix(bare, "struct") || strings.HasPrefix(bare, "union") || strings.HasPrefix(bare, "enum")
		if !isCType || !strings.HasSuffix(h, ")") {
			return declClass, m[1]
		}
	}

	if m := arrowPattern.FindStringSubmatch(h); m != nil {
		return declFunction, m[1]
	}
	if m := jsFuncPattern.FindStringSubmatch(h); m != nil {
		return declFunction, m[1]
	}
	if m := keywordFunc.FindStringSubmatch(h); m != nil {
		return declFunction, m[1]
	}
	if m := callableHeading.FindStringSubmatch(h); m != nil {
		name := m[1]
		base := name
		if i := strings.LastIndex(name, "::"); i >= 0 {
			base = name[i+2:]
		}
		if !notNames[base] {
			return declFunction, name
		}
	}
	return declNone, ""
}

// headerText joins the header lines, cutting the open line at its first '{'.
func headerText(lines []string, start, open int) string {
	parts := make([]string, 0, open-start+1)
	for i := start; i < open; i++ {
		parts = append(parts, strings.TrimSpace(lines[i]))
	}
	last := lines[open]
	if i := strings.IndexByte(last, '{'); i >= 0 {
		last = last[:i]
	}
	parts = append(parts, strings.TrimSpace(last))
	return strings.Join(parts, " ")
}

// headerStart walks up from the line holding '{' over the lines that belong
// to the same statement (multi-line parameter lists, template prefixes).
func headerStart(lines []string, open, floor int) int {
	k := open
	for k-1 >= floor {
		prev := strings.TrimSpace(lines[k-1])
		if prev == "" || isBoundary(prev) || isLeading(prev) {
			break
		}
		k--
	}
	return k
}

// leadingStart extends a declaration upward over contiguous annotations,
// attributes and comments.
func leadingStart(lines []string, start, floor int) int {
	k := start
	for k-1 >= floor {
		prev := strings.TrimSpace(lines[k-1])
		if prev == "" || !isLeading(prev) {
			break
		}
		k--
	}
	return k
}

func isBoundary(s string) bool {
	return strings.HasSuffix(s, ";") || strings.HasSuffix(s, "}") || strings.HasSuffix(s, "{")
}

func isLeading(s string) bool {
	switch {
	case strings.HasPrefix(s, "@"), strings.HasPrefix(s, "#["):
		return true
	case strings.HasPrefix(s, "//"), strings.HasPrefix(s, "/*"), strings.HasPrefix(s, "*"):
		return true
	case strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]"):
		return true
	}
	return false
}

// singleLineImports finds import statements at the top level that are not
// part of any declaration.
func singleLineImports(res *scanResult, nodes []domain.SyntaxNode) []domain.SyntaxNode {
	covered := make([]bool, len(res.lines))
	for _, n := range nodes {
		for i := n.StartLine - 1; i < n.EndLine && i < len(covered); i++ {
			covered[i] = true
		}
	}

	var out []domain.SyntaxNode
	for i, text := range res.lines {
		if covered[i] || res.depthAt[i] != 0 {
			continue
		}
		if importLine.MatchString(strings.TrimSpace(text)) {
			out = append(out, domain.SyntaxNode{Kind: domain.NodeImport, StartLine: i + 1, EndLine: i + 1})
		}
	}
	return out
}
