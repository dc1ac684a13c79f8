package framework

import (
	"math"
)

// EstimateTokens performs a cheap heuristic conversion from characters to
// tokens. Prompts here mix prose and source, so the denser code ratio is used
// once the text looks like code.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	if looksLikeCode(text) {
		return estimateCodeTokens(text)
	}
	return estimateTextTokens(text)
}

func estimateTextTokens(text string) int {
	if text == "" {
		return 0
	}
	return maxInt(1, int(math.Ceil(float64(len(text))/4.0)))
}

func estimateCodeTokens(code string) int {
	if code == "" {
		return 0
	}
	return maxInt(1, int(math.Ceil(float64(len(code))/2.5)))
}

func looksLikeCode(text string) bool {
	symbols := 0
	for _, r := range text {
		switch r {
		case '{', '}', '(', ')', ';', '=', '[', ']', '<', '>':
			symbols++
		}
	}
	return symbols*20 > len(text)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
