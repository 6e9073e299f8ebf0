package agent

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var exerciseKeywords = []string{"exercício", "desafio"}

// IsExercise reports whether a reply looks like a practice exercise: it
// contains "exercício" or "desafio", ignoring case. This is a keyword
// match, not a classifier.
func IsExercise(text string) bool {
	// A Caser is stateful and must not be shared between goroutines.
	fold := cases.Fold()
	normalized := norm.NFC.String(fold.String(norm.NFC.String(text)))
	for _, kw := range exerciseKeywords {
		if strings.Contains(normalized, kw) {
			return true
		}
	}
	return false
}
