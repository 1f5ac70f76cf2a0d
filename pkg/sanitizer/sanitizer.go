package sanitizer

import (
	"regexp"
	"strings"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var reControlChars = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)

func trimAndLower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func stripControl(s string) string {
	return reControlChars.ReplaceAllString(s, "")
}

// NormalizeEmail lowercases and trims so uniqueness is case insensitive.
func NormalizeEmail(email string) string {
	return Pipeline{stripControl, trimAndLower}.Apply(email)
}

// NormalizeSearchText prepares free text for a case insensitive containment match.
func NormalizeSearchText(text string) string {
	return Pipeline{stripControl, TrimAndNormalize}.Apply(text)
}

func NormalizeComment(text string) string {
	return Pipeline{stripControl, NormalizeDescription}.Apply(text)
}
