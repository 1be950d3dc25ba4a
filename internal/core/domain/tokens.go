package domain

import "unicode/utf8"

// CharsPerToken is the fixed ratio used for every token estimate.
const CharsPerToken = 4

// EstimateTokens approximates the model token count of s as one token per
// CharsPerToken runes, rounded up. The same estimate is used for chunking,
// retrieval budgets and prompt assembly so budgets never drift.
func EstimateTokens(s string) int {
	n := utf8.RuneCountInString(s)
	return (n + CharsPerToken - 1) / CharsPerToken
}

// TruncateToTokens cuts s from the end so that EstimateTokens(result) <= limit.
// It reports whether anything was removed.
func TruncateToTokens(s string, limit int) (string, bool) {
	if limit <= 0 {
		return "", s != ""
	}
	maxRunes := limit * CharsPerToken
	if utf8.RuneCountInString(s) <= maxRunes {
		return s, false
	}
	i := 0
	for pos := range s {
		if i == maxRunes {
			return s[:pos], true
		}
		i++
	}
	return s, false
}
