// Package chunker splits source files into syntactically bounded chunks.
//
// Functions, methods and classes found by a language parser become
// structural chunks that are never split. Every other line falls through
// to a token-budgeted line splitter that carries a small overlap between
// consecutive chunks of the same run.
package chunker

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/codexai/internal/core/domain"
	"github.com/custodia-labs/codexai/internal/core/ports/driven"
)

// DefaultChunkTokens is the fallback chunk budget.
const DefaultChunkTokens = 500

// DefaultOverlapTokens is the overlap carried between fallback chunks.
const DefaultOverlapTokens = 50

// Input is one source file to chunk.
type Input struct {
	ProjectID string
	Path      string
	Language  string
	Content   string
}

// Result holds the chunks of one file.
type Result struct {
	Chunks []domain.Chunk

	// Parsed reports whether a parser produced a syntax tree.
	Parsed bool

	// ParseErr is set when a parser exists but rejected the content.
	// The file is still chunked, by the line splitter alone.
	ParseErr error
}

// Chunker turns file content into chunks.
type Chunker struct {
	chunkTokens   int
	overlapTokens int
	parsers       driven.ParserRegistry
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkTokens sets the fallback chunk budget.
func WithChunkTokens(tokens int) Option {
	return func(c *Chunker) {
		if tokens > 0 {
			c.chunkTokens = tokens
		}
	}
}

// WithOverlapTokens sets the overlap between consecutive fallback chunks.
func WithOverlapTokens(tokens int) Option {
	return func(c *Chunker) {
		if tokens >= 0 {
			c.overlapTokens = tokens
		}
	}
}

// WithParsers sets the registry used to find a parser per language.
// Without one every file is split by lines.
func WithParsers(r driven.ParserRegistry) Option {
	return func(c *Chunker) {
		c.parsers = r
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkTokens:   DefaultChunkTokens,
		overlapTokens: DefaultOverlapTokens,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Overlap must leave room for new lines.
	if c.overlapTokens >= c.chunkTokens {
		c.overlapTokens = c.chunkTokens / 10
	}

	return c
}

// ChunkTokens returns the configured fallback budget.
func (c *Chunker) ChunkTokens() int {
	return c.chunkTokens
}

// span is a 0-based inclusive line range awaiting materialisation.
type span struct {
	start, end int
	kind       domain.ChunkKind
	symbol     string
	overlap    int
}

// Chunk splits one file. It never fails: binary or empty content yields
// no chunks, and parse errors degrade to line splitting.
func (c *Chunker) Chunk(in Input) Result {
	var res Result
	if in.Content == "" || isBinary(in.Content) {
		return res
	}

	f := newFile(in.Content)

	var tree *domain.SyntaxTree
	if c.parsers != nil {
		if p, ok := c.parsers.Get(in.Language); ok {
			t, err := p.Parse(in.Content)
			if err != nil {
				res.ParseErr = err
			} else {
				tree = t
				res.Parsed = true
			}
		}
	}

	claimed := make([]bool, len(f.lines))
	imports := make([]bool, len(f.lines))

	var spans []span
	if tree != nil {
		spans = structural(f, tree.Nodes, claimed, imports)
	}
	spans = append(spans, c.fallback(f, claimed, imports, tree != nil)...)

	sort.Slice(spans, func(i, j int) bool {
		return spans[i].start < spans[j].start
	})

	for _, s := range spans {
		ch := f.chunk(in, s)
		if strings.TrimSpace(ch.Content) == "" {
			continue
		}
		res.Chunks = append(res.Chunks, ch)
	}
	return res
}

func isBinary(content string) bool {
	return strings.IndexByte(content, 0) >= 0 || !utf8.ValidString(content)
}

// ==================== Source lines ====================

type file struct {
	content string
	lines   []string // each line keeps its trailing newline
	offsets []int    // offsets[i] is the byte offset of lines[i]; offsets[len] == len(content)
	tokens  []int
}

func newFile(content string) *file {
	f := &file{content: content}
	pos := 0
	for pos < len(content) {
		next := strings.IndexByte(content[pos:], '\n')
		end := len(content)
		if next >= 0 {
			end = pos + next + 1
		}
		f.lines = append(f.lines, content[pos:end])
		f.offsets = append(f.offsets, pos)
		f.tokens = append(f.tokens, domain.EstimateTokens(content[pos:end]))
		pos = end
	}
	f.offsets = append(f.offsets, len(content))
	return f
}

func (f *file) blank(i int) bool {
	return strings.TrimSpace(f.lines[i]) == ""
}

func (f *file) chunk(in Input, s span) domain.Chunk {
	startByte, endByte := f.offsets[s.start], f.offsets[s.end+1]
	text := f.content[startByte:endByte]
	return domain.Chunk{
		ID:         domain.ChunkID(in.ProjectID, in.Path, s.start+1, s.end+1),
		ProjectID:  in.ProjectID,
		FilePath:   in.Path,
		Language:   in.Language,
		Kind:       s.kind,
		Symbol:     s.symbol,
		StartLine:  s.start + 1,
		EndLine:    s.end + 1,
		StartByte:  startByte,
		EndByte:    endByte,
		Overlap:    s.overlap,
		Content:    text,
		TokenCount: domain.EstimateTokens(text),
	}
}

// Ensure Chunker implements the port.
var _ driven.Chunker = (*Chunker)(nil)

// ChunkFile chunks a stored source file. The error is the parse failure,
// if any; chunks are returned either way.
func (c *Chunker) ChunkFile(sf *domain.SourceFile) ([]domain.Chunk, error) {
	res := c.Chunk(Input{
		ProjectID: sf.ProjectID,
		Path:      sf.Path,
		Language:  sf.Language,
		Content:   sf.Content,
	})
	return res.Chunks, res.ParseErr
}
