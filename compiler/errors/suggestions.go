package errors

import (
	"fmt"
	"strings"
)

// suggestFix generates fix suggestions for syntax errors
func suggestFix(err CompilerError) *FixSuggestion {
	switch err.Code {
	case ErrUnterminatedString:
		return &FixSuggestion{
			Description: "Close the string literal with the quote character it was opened with",
			Confidence:  0.9,
		}
	case ErrExpectedParen:
		return &FixSuggestion{
			Description: "Add the missing closing parenthesis",
			NewCode:     ")",
			Confidence:  0.8,
		}
	case ErrExpectedBracket:
		return &FixSuggestion{
			Description: "Close the predicate with ']'",
			NewCode:     "]",
			Confidence:  0.8,
		}
	case ErrInvalidCharacter:
		if strings.Contains(err.Message, "'!'") {
			return &FixSuggestion{
				Description: "Use '!=' for inequality or not(...) for negation",
				OldCode:     "!",
				NewCode:     "!=",
				Confidence:  0.6,
			}
		}
	}
	return nil
}

// SuggestName returns a suggestion naming the closest candidate to name, or
// nil when nothing is close enough
func SuggestName(name string, candidates []string) *FixSuggestion {
	best := ""
	bestDistance := len(name)/2 + 1
	for _, candidate := range candidates {
		if d := levenshtein(name, candidate); d < bestDistance {
			best, bestDistance = candidate, d
		}
	}
	if best == "" {
		return nil
	}
	return &FixSuggestion{
		Description: fmt.Sprintf("Did you mean '%s'?", best),
		OldCode:     name,
		NewCode:     best,
		Confidence:  1 - float64(bestDistance)/float64(len(name)+1),
	}
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
