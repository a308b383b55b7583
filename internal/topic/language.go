package topic

import (
	"strings"

	"git.home.luguber.info/inful/doctopics/internal/foundation/normalization"
)

// SourceLanguage identifies the source language variant of a topic.
type SourceLanguage string

const (
	LanguageSwift   SourceLanguage = "swift"
	LanguageOCC     SourceLanguage = "occ"
	LanguageData    SourceLanguage = "data"
	LanguageUnknown SourceLanguage = "unknown"
)

var languageNormalizer = normalization.NewNormalizer(map[string]SourceLanguage{
	"swift":       LanguageSwift,
	"occ":         LanguageOCC,
	"objc":        LanguageOCC,
	"objective-c": LanguageOCC,
	"c":           LanguageOCC,
	"data":        LanguageData,
}, LanguageUnknown)

// ParseSourceLanguage maps interface language identifiers such as "swift",
// "objective-c" or "occ" onto a SourceLanguage.
func ParseSourceLanguage(s string) SourceLanguage {
	return languageNormalizer.Normalize(s)
}

// LanguageSet is an ordered set of source languages.
type LanguageSet []SourceLanguage

// Contains reports whether lang is in the set.
func (s LanguageSet) Contains(lang SourceLanguage) bool {
	for _, l := range s {
		if l == lang {
			return true
		}
	}
	return false
}

// Intersects reports whether s and other share any language. An empty set
// matches every language.
func (s LanguageSet) Intersects(other LanguageSet) bool {
	if len(s) == 0 || len(other) == 0 {
		return true
	}
	for _, l := range other {
		if s.Contains(l) {
			return true
		}
	}
	return false
}

// Add returns s with lang appended when missing.
func (s LanguageSet) Add(lang SourceLanguage) LanguageSet {
	if s.Contains(lang) {
		return s
	}
	return append(s, lang)
}

func (s LanguageSet) String() string {
	parts := make([]string, len(s))
	for i, l := range s {
		parts[i] = string(l)
	}
	return strings.Join(parts, ",")
}
