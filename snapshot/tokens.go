package snapshot

import "unicode/utf8"

// EstimateTokens provides a fast token count estimate without importing a
// real tokenizer.
//
// Heuristic: utf8 rune count / 3. English text averages ~4 chars/token and
// CJK ~1.5, so dividing by 3 is a slightly conservative middle ground.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	est := n / 3
	if est < 1 {
		return 1
	}
	return est
}
