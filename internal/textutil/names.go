package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FoldName normalizes a person name for comparison: trimmed, internal
// whitespace collapsed and Unicode case-folded. Casers keep state, so each
// call builds its own.
func FoldName(name string) string {
	return cases.Fold().String(strings.Join(strings.Fields(name), " "))
}

// SameName reports whether two names refer to the same person ignoring case
// and spacing differences.
func SameName(a, b string) bool {
	fa := FoldName(a)
	return fa != "" && fa == FoldName(b)
}

// TitleLabel converts a free-form role label ("adult female") into display
// form ("Adult Female").
func TitleLabel(label string) string {
	label = strings.Join(strings.Fields(label), " ")
	if label == "" {
		return ""
	}
	return cases.Title(language.English).String(label)
}
