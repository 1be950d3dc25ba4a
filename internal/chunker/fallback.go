package chunker

import "github.com/custodia-labs/codexai/internal/core/domain"

// fallback splits every unclaimed run of lines. When a tree exists, a run
// is first cut where it switches between import and other statements so
// each chunk carries a single kind.
func (c *Chunker) fallback(f *file, claimed, imports []bool, parsed bool) []span {
	var spans []span
	n := len(f.lines)
	for i := 0; i < n; {
		if claimed[i] {
			i++
			continue
		}
		j := i
		for j+1 < n && !claimed[j+1] {
			j++
		}
		for _, seg := range segments(f, i, j, imports, parsed) {
			spans = append(spans, c.split(f, seg.start, seg.end, seg.kind)...)
		}
		i = j + 1
	}
	return spans
}

// segments trims blank edges from the run [lo, hi] and groups the rest by kind.
func segments(f *file, lo, hi int, imports []bool, parsed bool) []span {
	for lo <= hi && f.blank(lo) {
		lo++
	}
	for hi >= lo && f.blank(hi) {
		hi--
	}
	if lo > hi {
		return nil
	}
	if !parsed {
		return []span{{start: lo, end: hi, kind: domain.KindFallback}}
	}

	var out []span
	start, lastNonBlank := lo, lo
	current := imports[lo]
	for k := lo + 1; k <= hi; k++ {
		if f.blank(k) {
			continue
		}
		if imports[k] != current {
			out = append(out, span{start: start, end: lastNonBlank, kind: segmentKind(current)})
			start, current = k, imports[k]
		}
		lastNonBlank = k
	}
	return append(out, span{start: start, end: hi, kind: segmentKind(current)})
}

func segmentKind(isImport bool) domain.ChunkKind {
	if isImport {
		return domain.KindImport
	}
	return domain.KindModule
}

// split accumulates lines until the next one would exceed the budget. At
// least one new line is always taken. Trailing lines worth no more than the
// overlap budget are repeated at the head of the next chunk.
func (c *Chunker) split(f *file, lo, hi int, kind domain.ChunkKind) []span {
	var out []span
	start, carry := lo, 0
	for {
		end := start + carry
		sum := 0
		for k := start; k <= end; k++ {
			sum += f.tokens[k]
		}
		for end < hi && sum+f.tokens[end+1] <= c.chunkTokens {
			end++
			sum += f.tokens[end]
		}

		out = append(out, span{start: start, end: end, kind: kind, overlap: carry})
		if end >= hi {
			return out
		}

		overlap, acc := 0, 0
		for k := end; k > start && acc+f.tokens[k] <= c.overlapTokens; k-- {
			acc += f.tokens[k]
			overlap++
		}
		start, carry = end-overlap+1, overlap
	}
}
