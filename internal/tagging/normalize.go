// Package tagging implements the booru-style tag subsystem: name
// normalization, alias resolution and the search expression parser.
//
// Tags are stored in normalized snake_case form ("science_fiction") and
// rendered back to display form ("Science Fiction") on the way out.
package tagging

import (
	"regexp"
	"strings"
)

// displayExceptions maps whole normalized names (or single words) that
// should not be plainly title-cased: acronyms and stylized proper nouns.
var displayExceptions = map[string]string{
	"lgbtq":      "LGBTQ+",
	"ai":         "AI",
	"ml":         "ML",
	"scifi":      "Sci-Fi",
	"ya":         "YA",
	"isbn":       "ISBN",
	"ui":         "UI",
	"ux":         "UX",
	"api":        "API",
	"pdf":        "PDF",
	"epub":       "EPUB",
	"mobi":       "MOBI",
	"html":       "HTML",
	"css":        "CSS",
	"javascript": "JavaScript",
	"python":     "Python",
}

var (
	invalidCharsRe  = regexp.MustCompile(`[^a-z0-9_]`)
	underscoreRunRe = regexp.MustCompile(`_+`)
	alphanumRe      = regexp.MustCompile(`[a-z0-9]`)
)

// Normalize converts a free-text tag name to its snake_case storage form.
// It is total over all inputs and idempotent; empty input yields "".
//
//	Normalize("Science Fiction") == "science_fiction"
//	Normalize("Action/Adventure") == "action_adventure"
//	Normalize("sci-fi") == "sci_fi"
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	s := strings.ToLower(raw)
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, " ", "_")
	s = invalidCharsRe.ReplaceAllString(s, "")
	s = underscoreRunRe.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")

	return s
}

// Denormalize produces a human-readable display name for a normalized tag.
// A non-empty customDisplay wins outright. Otherwise the whole name is
// checked against the exceptions table, then each underscore-separated word
// is title-cased (with per-word exception substitution) and joined with
// spaces.
func Denormalize(normalized, customDisplay string) string {
	if customDisplay != "" {
		return customDisplay
	}

	if display, ok := displayExceptions[normalized]; ok {
		return display
	}

	words := strings.Split(normalized, "_")
	for i, word := range words {
		if display, ok := displayExceptions[word]; ok {
			words[i] = display
			continue
		}
		words[i] = capitalize(word)
	}

	return strings.Join(words, " ")
}

// IsValid reports whether a raw name survives normalization as a usable tag:
// at least two characters long and containing at least one letter or digit.
// Used to reject garbage tag candidates during metadata import.
func IsValid(raw string) bool {
	if raw == "" {
		return false
	}

	normalized := Normalize(raw)
	if len(normalized) < 2 {
		return false
	}

	return alphanumRe.MatchString(normalized)
}

func capitalize(word string) string {
	if word == "" {
		return word
	}
	return strings.ToUpper(word[:1]) + word[1:]
}
