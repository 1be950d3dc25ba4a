package brace

import (
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/codexai/internal/core/domain"
)

// block is one balanced {...} pair. Lines are 0-based.
type block struct {
	open  int
	close int
	depth int
}

// scanResult is the brace structure of a file.
type scanResult struct {
	lines   []string
	blocks  []block
	depthAt []int
}

// scan walks content once, skipping comments and string literals, and
// records every brace block. Unbalanced braces, unterminated comments and
// unterminated strings are parse failures.
func scan(content string, cfg config) (*scanResult, error) {
	lines := strings.Split(content, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i := range lines {
		lines[i] = strings.TrimSuffix(lines[i], "\r")
	}

	res := &scanResult{lines: lines, depthAt: make([]int, len(lines))}
	var stack []int
	inComment := false
	var quote byte

	for n, text := range lines {
		res.depthAt[n] = len(stack)
		for i := 0; i < len(text); i++ {
			c := text[i]
			next := byte(0)
			if i+1 < len(text) {
				next = text[i+1]
			}

			if inComment {
				if c == '*' && next == '/' {
					inComment = false
					i++
				}
				continue
			}
			if quote != 0 {
				switch c {
				case '\\':
					i++
				case quote:
					quote = 0
				}
				continue
			}

			switch {
			case c == '/' && next == '/':
				i = len(text)
			case c == '/' && next == '*':
				inComment = true
				i++
			case c == '#' && cfg.hashComments:
				i = len(text)
			case c == '"':
				quote = c
			case c == '`' && cfg.backticks:
				quote = c
			case c == '\'':
				if !cfg.charLiterals || isCharLiteral(text[i:]) {
					quote = c
				}
			case c == '{':
				stack = append(stack, n)
			case c == '}':
				if len(stack) == 0 {
					return nil, fmt.Errorf("%w: unexpected '}' on line %d", domain.ErrParseFailure, n+1)
				}
				open := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				res.blocks = append(res.blocks, block{open: open, close: n, depth: len(stack)})
			}
		}

		if (quote == '"' || quote == '\'') && !strings.HasSuffix(text, "\\") {
			return nil, fmt.Errorf("%w: unterminated string on line %d", domain.ErrParseFailure, n+1)
		}
	}

	switch {
	case inComment:
		return nil, fmt.Errorf("%w: unterminated comment", domain.ErrParseFailure)
	case quote != 0:
		return nil, fmt.Errorf("%w: unterminated string at end of file", domain.ErrParseFailure)
	case len(stack) > 0:
		return nil, fmt.Errorf("%w: unclosed '{' opened on line %d", domain.ErrParseFailure, stack[len(stack)-1]+1)
	}

	sort.Slice(res.blocks, func(i, j int) bool {
		if res.blocks[i].open != res.blocks[j].open {
			return res.blocks[i].open < res.blocks[j].open
		}
		return res.blocks[i].depth < res.blocks[j].depth
	})
	return res, nil
}

// isCharLiteral reports whether s starts a character literal such as 'a' or
// '\n', as opposed to a Rust lifetime like 'a.
func isCharLiteral(s string) bool {
	if len(s) >= 3 && s[1] != '\\' && s[2] == '\'' {
		return true
	}
	if len(s) >= 2 && s[1] == '\\' {
		end := strings.IndexByte(s[2:], '\'')
		return end >= 0 && end <= 8
	}
	// Multi-byte rune.
	if len(s) >= 2 && s[1] >= 0x80 {
		end := strings.IndexByte(s[1:], '\'')
		return end > 0 && end <= 4
	}
	return false
}
