package entities

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SearchKey folds s for case-insensitive matching of Turkish labels.
// Whitespace is collapsed, and dotted and dotless i fold together so
// "ŞULE YILMAZ", "şule yılmaz" and "Şule Yilmaz" share one key.
func SearchKey(s string) string {
	// Casers carry state and are not safe to share between goroutines.
	lower := cases.Lower(language.Turkish).String(strings.Join(strings.Fields(s), " "))
	return strings.ReplaceAll(lower, "ı", "i")
}
