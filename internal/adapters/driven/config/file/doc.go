// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data under ~/.codexai.
//
// Adapters:
//   - ConfigStore: TOML configuration (config.toml)
//   - PromptStore: editable documentation preambles (prompts/*.md)
package file
