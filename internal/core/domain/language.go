package domain

import (
	"path"
	"strings"
)

// LanguageText is reported for files with no recognised extension.
const LanguageText = "text"

var extensionLanguages = map[string]string{
	".py":    "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".java":  "java",
	".c":     "c",
	".cpp":   "cpp",
	".h":     "c",
	".hpp":   "cpp",
	".cs":    "csharp",
	".go":    "go",
	".rs":    "rust",
	".rb":    "ruby",
	".php":   "php",
	".swift": "swift",
	".kt":    "kotlin",
	".scala": "scala",
	".r":     "r",
	".sh":    "shell",
	".bash":  "shell",
	".sql":   "sql",
	".html":  "html",
	".css":   "css",
	".scss":  "scss",
	".vue":   "vue",
	".md":    "markdown",
}

// DetectLanguage returns the language of a file. A non-empty hint wins,
// otherwise the extension decides and unknown extensions map to LanguageText.
func DetectLanguage(filePath, hint string) string {
	if h := strings.TrimSpace(strings.ToLower(hint)); h != "" {
		return h
	}
	if lang, ok := extensionLanguages[strings.ToLower(path.Ext(filePath))]; ok {
		return lang
	}
	return LanguageText
}

// IsSourceFile reports whether the path has an extension ingestion understands.
func IsSourceFile(filePath string) bool {
	_, ok := extensionLanguages[strings.ToLower(path.Ext(filePath))]
	return ok
}
