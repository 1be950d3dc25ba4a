// Package python provides an indentation-based declaration parser for Python.
package python

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/custodia-labs/codexai/internal/core/domain"
	"github.com/custodia-labs/codexai/internal/core/ports/driven"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// Language is the tag this parser registers under.
const Language = "python"

var (
	defPattern    = regexp.MustCompile(`^(?:async\s+)?def\s+([A-Za-z_]\w*)`)
	classPattern  = regexp.MustCompile(`^class\s+([A-Za-z_]\w*)`)
	importPattern = regexp.MustCompile(`^(?:import|from)\s+\S`)
)

// Parser finds top-level functions, classes with their methods, and imports.
type Parser struct{}

// New creates a Python parser.
func New() *Parser {
	return &Parser{}
}

// Language returns the language tag.
func (p *Parser) Language() string {
	return Language
}

// line is one physical line with its scan results.
type line struct {
	text   string
	indent int
	// blank is true for empty and comment-only lines.
	blank bool
	// cont is true when the line continues a logical line started above
	// (open bracket, triple-quoted string or backslash).
	cont bool
}

// Parse returns the declaration tree. Unbalanced brackets and unterminated
// strings are reported as domain.ErrParseFailure.
func (p *Parser) Parse(content string) (*domain.SyntaxTree, error) {
	lines, err := scan(content)
	if err != nil {
		return nil, err
	}

	tree := &domain.SyntaxTree{Language: Language}
	decoStart := 0
	for i := 0; i < len(lines); i++ {
		l := lines[i]
		if l.cont {
			continue
		}
		if l.blank {
			if strings.TrimSpace(l.text) == "" {
				decoStart = 0
			}
			continue
		}
		if l.indent != 0 {
			continue
		}

		code := strings.TrimSpace(l.text)
		num := i + 1
		switch {
		case strings.HasPrefix(code, "@"):
			if decoStart == 0 {
				decoStart = num
			}
			continue

		case defPattern.MatchString(code):
			name := defPattern.FindStringSubmatch(code)[1]
			end := blockEnd(lines, i, 0, len(lines))
			tree.Nodes = append(tree.Nodes, domain.SyntaxNode{
				Kind:      domain.NodeFunction,
				Name:      name,
				StartLine: firstLine(decoStart, num),
				EndLine:   end,
			})
			i = end - 1

		case classPattern.MatchString(code):
			name := classPattern.FindStringSubmatch(code)[1]
			end := blockEnd(lines, i, 0, len(lines))
			tree.Nodes = append(tree.Nodes, domain.SyntaxNode{
				Kind:      domain.NodeClass,
				Name:      name,
				StartLine: firstLine(decoStart, num),
				EndLine:   end,
				Children:  methods(lines, i, end),
			})
			i = end - 1

		case importPattern.MatchString(code):
			tree.Nodes = append(tree.Nodes, domain.SyntaxNode{
				Kind:      domain.NodeImport,
				StartLine: num,
				EndLine:   logicalEnd(lines, i),
			})
		}
		decoStart = 0
	}
	return tree, nil
}

// methods finds the defs directly inside the class whose header is at index
// header and whose last line is end (1-based).
func methods(lines []line, header, end int) []domain.SyntaxNode {
	bodyIndent := -1
	var out []domain.SyntaxNode
	decoStart := 0
	for i := logicalEnd(lines, header); i < end; i++ {
		l := lines[i]
		if l.cont {
			continue
		}
		if l.blank {
			if strings.TrimSpace(l.text) == "" {
				decoStart = 0
			}
			continue
		}
		if bodyIndent < 0 {
			bodyIndent = l.indent
		}
		if l.indent != bodyIndent {
			continue
		}

		code := strings.TrimSpace(l.text)
		num := i + 1
		if strings.HasPrefix(code, "@") {
			if decoStart == 0 {
				decoStart = num
			}
			continue
		}
		if m := defPattern.FindStringSubmatch(code); m != nil {
			mEnd := blockEnd(lines, i, bodyIndent, end)
			out = append(out, domain.SyntaxNode{
				Kind:      domain.NodeFunction,
				Name:      m[1],
				StartLine: firstLine(decoStart, num),
				EndLine:   mEnd,
			})
			i = mEnd - 1
		}
		decoStart = 0
	}
	return out
}

// blockEnd returns the 1-based last line of the block opened at index start,
// where indent is the header's indentation. Trailing blank and comment lines
// are not part of the block. limit bounds the search (1-based, inclusive).
func blockEnd(lines []line, start, indent, limit int) int {
	end := logicalEnd(lines, start)
	for i := end; i < limit; i++ {
		l := lines[i]
		if l.cont {
			continue
		}
		if l.blank {
			continue
		}
		if l.indent <= indent {
			break
		}
		end = logicalEnd(lines, i)
		i = end - 1
	}
	return end
}

// logicalEnd returns the 1-based last physical line of the logical line at index i.
func logicalEnd(lines []line, i int) int {
	j := i + 1
	for j < len(lines) && lines[j].cont {
		j++
	}
	return j
}

func firstLine(decoStart, num int) int {
	if decoStart > 0 {
		return decoStart
	}
	return num
}

// scan splits content into lines and tracks strings, comments and brackets
// across them.
func scan(content string) ([]line, error) {
	raw := strings.Split(content, "\n")
	if len(raw) > 0 && raw[len(raw)-1] == "" {
		raw = raw[:len(raw)-1]
	}

	lines := make([]line, len(raw))
	depth := 0
	quote := ""
	backslash := false

	for n, text := range raw {
		text = strings.TrimSuffix(text, "\r")
		trimmed := strings.TrimSpace(text)
		lines[n] = line{
			text:   text,
			indent: indentOf(text),
			cont:   depth > 0 || quote != "" || backslash,
		}
		if quote == "" && (trimmed == "" || strings.HasPrefix(trimmed, "#")) {
			lines[n].blank = true
		}

		for i := 0; i < len(text); i++ {
			c := text[i]
			if quote != "" {
				switch {
				case c == '\\':
					i++
				case strings.HasPrefix(text[i:], quote):
					i += len(quote) - 1
					quote = ""
				}
				continue
			}
			switch c {
			case '#':
				i = len(text)
			case '"', '\'':
				triple := strings.Repeat(string(c), 3)
				if strings.HasPrefix(text[i:], triple) {
					quote = triple
					i += 2
				} else {
					quote = string(c)
				}
			case '(', '[', '{':
				depth++
			case ')', ']', '}':
				depth--
				if depth < 0 {
					return nil, fmt.Errorf("%w: unbalanced %q on line %d", domain.ErrParseFailure, c, n+1)
				}
			}
		}

		backslash = strings.HasSuffix(text, "\\") && !lines[n].blank
		if len(quote) == 1 {
			if !backslash {
				return nil, fmt.Errorf("%w: unterminated string on line %d", domain.ErrParseFailure, n+1)
			}
		}
	}

	if quote != "" {
		return nil, fmt.Errorf("%w: unterminated string at end of file", domain.ErrParseFailure)
	}
	if depth != 0 {
		return nil, fmt.Errorf("%w: unclosed bracket at end of file", domain.ErrParseFailure)
	}
	return lines, nil
}

func indentOf(text string) int {
	n := 0
	for _, r := range text {
		switch r {
		case ' ':
			n++
		case '\t':
			n += 8 - n%8
		default:
			return n
		}
	}
	return n
}
