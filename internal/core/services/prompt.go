package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/codexai/internal/core/domain"
	"github.com/custodia-labs/codexai/internal/core/ports/driven"
)

const truncatedMarker = "[truncated]"

// Prompt is an assembled generation input.
type Prompt struct {
	System string
	User   string

	// Tokens is the estimate for System and User together.
	Tokens int

	// ContextIDs lists the chunks that made it into the prompt, in order.
	ContextIDs []string

	// TargetTruncated is set when the target file was cut to its allowance.
	TargetTruncated bool
}

// PromptInput is everything the builder needs for one request.
type PromptInput struct {
	File    *domain.SourceFile
	Context []domain.ScoredChunk
	Kind    domain.DocKind
	Options domain.DocOptions
	Target  string

	// Budget is the context budget the retriever worked with.
	Budget int
}

// PromptBuilder assembles bounded prompts from a target file and its context.
type PromptBuilder struct {
	prompts  driven.PromptStore
	settings domain.PromptSettings
}

// NewPromptBuilder creates a builder. Zero allowances take the defaults.
func NewPromptBuilder(prompts driven.PromptStore, settings domain.PromptSettings) *PromptBuilder {
	defaults := domain.DefaultAppSettings().Prompt
	if settings.TargetAllowance <= 0 {
		settings.TargetAllowance = defaults.TargetAllowance
	}
	if settings.InstructionAllowance <= 0 {
		settings.InstructionAllowance = defaults.InstructionAllowance
	}
	return &PromptBuilder{prompts: prompts, settings: settings}
}

// Build assembles the prompt. The total never exceeds the context budget
// plus the target and instruction allowances: the target is cut from the
// end at a line boundary, and trailing context chunks are dropped.
func (b *PromptBuilder) Build(in PromptInput) (*Prompt, error) {
	if !in.Kind.IsValid() {
		return nil, fmt.Errorf("%w: documentation kind %q", domain.ErrInvalidInput, in.Kind)
	}

	system, err := b.system(in)
	if err != nil {
		return nil, err
	}

	heading := fmt.Sprintf("## File: %s (%s)\n\n", in.File.Path, in.File.Language)
	notice := truncatedMarker + " The file continues beyond this point.\n"
	framing := domain.EstimateTokens(heading) + domain.EstimateTokens(notice) + fenceTokens(in.File.Language)
	content, truncated := truncateLines(in.File.Content, max(b.settings.TargetAllowance-framing, 0))

	var user strings.Builder
	user.WriteString(heading)
	writeFence(&user, in.File.Language, content)
	if truncated {
		user.WriteString(notice)
	}

	limit := in.Budget + b.settings.TargetAllowance + b.settings.InstructionAllowance
	used := domain.EstimateTokens(system) + domain.EstimateTokens(user.String())

	var ids []string
	if len(in.Context) > 0 {
		header := "\n## Related code from the project\n\n"
		used += domain.EstimateTokens(header)
		var section strings.Builder
		section.WriteString(header)

		for _, sc := range in.Context {
			block := contextBlock(sc.Chunk)
			t := domain.EstimateTokens(block)
			if used+t > limit {
				break
			}
			section.WriteString(block)
			used += t
			ids = append(ids, sc.Chunk.ID)
		}
		if len(ids) > 0 {
			user.WriteString(section.String())
		}
	}

	userText := user.String()
	return &Prompt{
		System:          system,
		User:            userText,
		Tokens:          domain.EstimateTokens(system) + domain.EstimateTokens(userText),
		ContextIDs:      ids,
		TargetTruncated: truncated,
	}, nil
}

func (b *PromptBuilder) system(in PromptInput) (string, error) {
	preamble, err := b.prompts.Load(string(in.Kind))
	if err != nil {
		return "", fmt.Errorf("load %s prompt: %w", in.Kind, err)
	}

	var s strings.Builder
	s.WriteString(strings.TrimSpace(preamble))
	s.WriteString("\n")
	if in.Target != "" {
		fmt.Fprintf(&s, "\nFocus on `%s`; mention the rest of the file only where it explains this symbol.\n", in.Target)
	}
	if in.Options.IncludeTests {
		s.WriteString("\nInclude a section with example tests for the documented code.\n")
	}
	if in.Options.IncludeDependencies {
		s.WriteString("\nDescribe the file's dependencies and how the related code is used.\n")
	}
	s.WriteString("\nAnswer in Markdown.\n")

	text, _ := domain.TruncateToTokens(s.String(), b.settings.InstructionAllowance)
	return text, nil
}

// contextBlock renders one labelled context chunk.
func contextBlock(c domain.Chunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### %s: %s (lines %d-%d)\n\n", c.FilePath, c.Label(), c.StartLine, c.EndLine)
	writeFence(&b, c.Language, c.Content)
	b.WriteString("\n")
	return b.String()
}

func writeFence(b *strings.Builder, language, content string) {
	b.WriteString("```" + language + "\n")
	b.WriteString(content)
	if !strings.HasSuffix(content, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("```\n")
}

func fenceTokens(language string) int {
	return domain.EstimateTokens("```"+language+"\n\n```\n")
}

// truncateLines cuts content to at most limit tokens, backing off to the
// last complete line when the cut lands mid-line.
func truncateLines(content string, limit int) (string, bool) {
	cut, truncated := domain.TruncateToTokens(content, limit)
	if !truncated {
		return content, false
	}
	if i := strings.LastIndexByte(cut, '\n'); i >= 0 {
		cut = cut[:i+1]
	}
	return cut, true
}
