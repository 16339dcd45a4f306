package resolution

import (
	"strings"
	"unicode"
)

// Normalize case-folds a name, turns punctuation into spaces and collapses whitespace.
// Names made only of symbols keep their symbols, case-folded and trimmed.
func Normalize(name string) string {
	if norm := alnumFold(name); norm != "" {
		return norm
	}
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

func alnumFold(name string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, name)
	return strings.Join(strings.Fields(mapped), " ")
}

// Similarity scores two normalized names: 1 for an exact match, Jaccard token overlap otherwise.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	inter := 0
	for t := range ta {
		if _, ok := tb[t]; ok {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	return float64(inter) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, f := range strings.Fields(s) {
		out[f] = struct{}{}
	}
	return out
}
