package chunker

import (
	"sort"
	"strings"

	"github.com/custodia-labs/codexai/internal/core/domain"
)

// structural claims lines for functions and classes and marks import lines.
// Nodes overlapping lines that are already claimed are skipped; their lines
// are left to the line splitter.
func structural(f *file, nodes []domain.SyntaxNode, claimed, imports []bool) []span {
	var spans []span
	for _, node := range nodes {
		start, end, ok := clamp(node.StartLine, node.EndLine, len(f.lines))
		if !ok {
			continue
		}

		switch node.Kind {
		case domain.NodeImport:
			for i := start; i <= end; i++ {
				imports[i] = true
			}
		case domain.NodeFunction:
			if anyClaimed(claimed, start, end) {
				continue
			}
			claim(claimed, start, end)
			spans = append(spans, span{start: start, end: end, kind: domain.KindFunction, symbol: node.Name})
		case domain.NodeClass:
			if anyClaimed(claimed, start, end) {
				continue
			}
			claim(claimed, start, end)
			spans = append(spans, classSpans(f, node, start, end)...)
		}
	}
	return spans
}

// classSpans emits one chunk for a class without methods. Otherwise each
// method becomes a function chunk and the lines between them form class
// segments; trivial segments are folded into the neighbouring method.
func classSpans(f *file, node domain.SyntaxNode, start, end int) []span {
	children := make([]domain.SyntaxNode, len(node.Children))
	copy(children, node.Children)
	sort.SliceStable(children, func(i, j int) bool {
		return children[i].StartLine < children[j].StartLine
	})

	var methods []span
	last := start - 1
	for _, child := range children {
		if child.Kind != domain.NodeFunction {
			continue
		}
		s, e, ok := clamp(child.StartLine, child.EndLine, len(f.lines))
		if !ok || s <= last || s < start || e > end {
			continue
		}
		methods = append(methods, span{
			start:  s,
			end:    e,
			kind:   domain.KindFunction,
			symbol: qualify(node.Name, child.Name),
		})
		last = e
	}

	if len(methods) == 0 {
		return []span{{start: start, end: end, kind: domain.KindClass, symbol: node.Name}}
	}

	header := headerEnd(f, node.Name, start, methods[0].start)

	var out []span
	for i := 0; i <= len(methods); i++ {
		lo, hi := start, end
		if i > 0 {
			lo = methods[i-1].end + 1
		}
		if i < len(methods) {
			hi = methods[i].start - 1
		}
		if lo > hi {
			continue
		}

		if trivialSegment(f, lo, hi, header) {
			if i > 0 {
				methods[i-1].end = hi
			} else {
				methods[i].start = lo
			}
			continue
		}
		out = append(out, span{start: lo, end: hi, kind: domain.KindClass, symbol: node.Name})
	}
	return append(out, methods...)
}

// headerEnd returns the line that names the class, so decorators and the
// declaration line itself count as header.
func headerEnd(f *file, name string, start, limit int) int {
	if name == "" {
		return start
	}
	for i := start; i < limit; i++ {
		if strings.Contains(f.lines[i], name) {
			return i
		}
	}
	return start
}

func trivialSegment(f *file, lo, hi, header int) bool {
	for i := lo; i <= hi; i++ {
		if i <= header {
			continue
		}
		if !trivialLine(f.lines[i]) {
			return false
		}
	}
	return true
}

func trivialLine(line string) bool {
	t := strings.TrimSpace(line)
	switch {
	case t == "", t == "pass", t == "...":
		return true
	case strings.HasPrefix(t, "#"), strings.HasPrefix(t, "//"),
		strings.HasPrefix(t, "/*"), strings.HasPrefix(t, "*/"), strings.HasPrefix(t, "* "), t == "*":
		return true
	case strings.Trim(t, "{}()[];,") == "":
		return true
	}
	return false
}

func qualify(class, method string) string {
	if class == "" {
		return method
	}
	return class + "." + method
}

// clamp converts a 1-based inclusive range to 0-based indexes within n lines.
func clamp(startLine, endLine, n int) (int, int, bool) {
	start, end := startLine-1, endLine-1
	if start < 0 {
		start = 0
	}
	if end > n-1 {
		end = n - 1
	}
	return start, end, start <= end
}

func anyClaimed(claimed []bool, start, end int) bool {
	for i := start; i <= end; i++ {
		if claimed[i] {
			return true
		}
	}
	return false
}

func claim(claimed []bool, start, end int) {
	for i := start; i <= end; i++ {
		claimed[i] = true
	}
}
