package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// CorrectionKind classifies a correction.
type CorrectionKind string

const (
	KindGrammar     CorrectionKind = "GRAMMAR"
	KindVocabulary  CorrectionKind = "VOCABULARY"
	KindSpelling    CorrectionKind = "SPELLING"
	KindPunctuation CorrectionKind = "PUNCTUATION"
)

// ParseCorrectionKind maps a case-insensitive label onto a CorrectionKind.
func ParseCorrectionKind(s string) (CorrectionKind, bool) {
	switch k := CorrectionKind(strings.ToUpper(strings.TrimSpace(s))); k {
	case KindGrammar, KindVocabulary, KindSpelling, KindPunctuation:
		return k, true
	}
	return "", false
}

// Correction is a single fix applied to the learner's message.
type Correction struct {
	Original    string         `json:"original"`
	Corrected   string         `json:"corrected"`
	Explanation []string       `json:"explanation"`
	Kind        CorrectionKind `json:"error_type"`
}

// NewCorrection builds a Correction. The explanation must be exactly
// [category, detail].
func NewCorrection(original, corrected string, explanation []string, kind CorrectionKind) (Correction, error) {
	if strings.TrimSpace(original) == "" {
		return Correction{}, errors.New("domain: correction original must not be empty")
	}
	if strings.TrimSpace(corrected) == "" {
		return Correction{}, errors.New("domain: correction corrected must not be empty")
	}
	if len(explanation) != 2 {
		return Correction{}, fmt.Errorf("domain: explanation must have exactly 2 elements, got %d", len(explanation))
	}
	if _, ok := ParseCorrectionKind(string(kind)); !ok {
		return Correction{}, fmt.Errorf("domain: unknown correction kind %q", kind)
	}
	return Correction{
		Original:    original,
		Corrected:   corrected,
		Explanation: []string{explanation[0], explanation[1]},
		Kind:        kind,
	}, nil
}

// StructuredReply is the assembled answer to a learner message.
// PrimaryExplanation and FollowUpPrompt are never empty.
type StructuredReply struct {
	PrimaryExplanation string
	FollowUpPrompt     string
	Corrections        []Correction
	TokensUsed         int
}

// Opening is the tutor's conversation starter.
type Opening struct {
	Message    string
	TokensUsed int
}

// Completion is the raw result of one model invocation. UsageMetadata is
// opaque JSON owned by the model integration.
type Completion struct {
	Content       string
	UsageMetadata json.RawMessage
}
