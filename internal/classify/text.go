package classify

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize folds text to NFKC lower case and replaces every run of
// non letter/digit runes with a single space. A space is also inserted where
// ASCII letters or digits meet other scripts, so "AI기반" becomes "ai 기반".
func Normalize(text string) string {
	text = strings.ToLower(norm.NFKC.String(text))

	var b strings.Builder
	b.Grow(len(text))

	pendingSpace := false
	prevASCII, prevSet := false, false
	for _, r := range text {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			pendingSpace = b.Len() > 0
			continue
		}

		ascii := r < unicode.MaxASCII
		if prevSet && ascii != prevASCII {
			pendingSpace = true
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(r)
		prevASCII, prevSet = ascii, true
	}
	return b.String()
}

// Compact is Normalize without separators. Used for marker matching where
// spacing and brackets vary between announcements.
func Compact(text string) string {
	return strings.ReplaceAll(Normalize(text), " ", "")
}

// Terms normalizes a list of free-form terms and drops empty and repeated ones.
func Terms(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	terms := make([]string, 0, len(values))
	for _, v := range values {
		term := Normalize(v)
		if term == "" {
			continue
		}
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		terms = append(terms, term)
	}
	return terms
}

// ContainsTerm reports whether term occurs in text. ASCII terms must match
// whole words, so "ai" is not found in "email". Other terms match as
// substrings of the compacted text.
func ContainsTerm(text, term string) bool {
	term = Normalize(term)
	if term == "" {
		return false
	}
	normalized := Normalize(text)
	if isASCII(term) {
		return strings.Contains(" "+normalized+" ", " "+term+" ")
	}
	return strings.Contains(strings.ReplaceAll(normalized, " ", ""), strings.ReplaceAll(term, " ", ""))
}

// TermsOverlap reports whether two terms name the same thing, allowing one to
// extend the other, e.g. "벤처기업" and "벤처기업인증".
func TermsOverlap(a, b string) bool {
	a, b = Compact(a), Compact(b)
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	if len([]rune(a)) < 2 || len([]rune(b)) < 2 || isASCII(a) || isASCII(b) {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= unicode.MaxASCII {
			return false
		}
	}
	return true
}
