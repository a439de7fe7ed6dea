package library

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ToTurkishUpper upper-cases s with Turkish rules, so "i" becomes "İ" and
// "ı" becomes "I". Publisher names are stored in this form.
func ToTurkishUpper(s string) string {
	// Casers are stateful, so each call gets its own.
	return cases.Upper(language.Turkish).String(s)
}

// CapitalizeWords lower-cases s and upper-cases the first letter of every
// whitespace-separated word, both with Turkish rules: "İSMAİL" becomes
// "İsmail" and "ışık" becomes "Işık".
func CapitalizeWords(s string) string {
	lower := cases.Lower(language.Turkish).String(s)
	upper := cases.Upper(language.Turkish)

	var b strings.Builder
	b.Grow(len(lower))
	atStart := true
	for _, r := range lower {
		switch {
		case unicode.IsSpace(r):
			atStart = true
			b.WriteRune(r)
		case atStart:
			b.WriteString(upper.String(string(r)))
			atStart = false
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatBookTitle capitalizes every word except a "ve" that is neither the
// first nor the last word.
func FormatBookTitle(title string) string {
	words := strings.Split(cases.Lower(language.Turkish).String(title), " ")
	for i, w := range words {
		if w != "ve" || i == 0 || i == len(words)-1 {
			words[i] = CapitalizeWords(w)
		}
	}
	return strings.Join(words, " ")
}

// SplitAuthorLabel splits a free-text author label into name and surname.
// The last word is the surname; a single word has none.
func SplitAuthorLabel(label string) (string, *string) {
	words := strings.Fields(label)
	switch len(words) {
	case 0:
		return "", nil
	case 1:
		return words[0], nil
	}
	surname := words[len(words)-1]
	return strings.Join(words[:len(words)-1], " "), &surname
}

// normalizeLabel trims and collapses inner whitespace.
func normalizeLabel(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

