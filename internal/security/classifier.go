package security

import (
	"fmt"
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize covers roughly 100 concurrent sessions with 20 recent turns
// each.
const DefaultCacheSize = 2048

// injectionPattern is the contractual baseline: it requires the operative
// phrasing around a keyword, so a learner asking how to translate "ignore"
// does not match.
var injectionPattern = regexp.MustCompile(unicodeClasses(`(?i)(?:` +
	// instruction override
	`\b(?:ignore|forget|disregard)\s+(?:all\s+)?(?:the\s+)?(?:previous\s+)?(?:above\s+)?(?:instructions?|prompts?|context|rules?)` +
	// system probing
	`|\b(?:reveal|show|print|display|tell)\s+(?:me\s+)?(?:your\s+)?(?:system\s+)?(?:prompts?|instructions?|configurations?|rules?)` +
	// role manipulation
	`|\b(?:you\s+are\s+now|act\s+as|pretend\s+to\s+be)\s+(?:a\s+|an\s+)?(?:different\s+)?(?:translator|assistant|ai|chatbot|chatgpt)` +
	// jailbreak tokens
	`|\b(?:jailbreak|dan\s+mode|developer\s+mode)\b` +
	// bypass / override
	`|\b(?:bypass|override)\s+(?:all\s+)?(?:your\s+)?(?:the\s+)?(?:restrictions?|rules?|guidelines?)` +
	// delimiter injection
	`|---+\s*(?:END|BEGIN|SYSTEM|INSTRUCTION|USER\s+INPUT)` +
	// markup tag injection
	`|</\w+>\s*<(?:system|instruction|override|admin)` +
	`)`))

// unicodeClasses widens the ASCII-only RE2 \s and \w to Unicode separators
// and letters, so NBSP or ideographic spaces cannot split a phrase.
func unicodeClasses(pattern string) string {
	return strings.NewReplacer(
		`\s`, `[\s\p{Z}\x{85}]`,
		`\w`, `[\p{L}\p{M}\p{N}_]`,
	).Replace(pattern)
}

// Classifier flags probable prompt-injection attempts. Results are memoized
// per exact input in a bounded LRU cache; eviction only costs a recomputation.
// A Classifier is safe for concurrent use.
type Classifier struct {
	cache *lru.Cache[string, bool]
}

// NewClassifier returns a Classifier whose memo cache holds at most size entries.
func NewClassifier(size int) (*Classifier, error) {
	cache, err := lru.New[string, bool](size)
	if err != nil {
		return nil, fmt.Errorf("security: create classifier cache: %w", err)
	}
	return &Classifier{cache: cache}, nil
}

// IsInjection reports whether text matches any injection pattern family.
// Empty and whitespace-only text is never an injection.
func (c *Classifier) IsInjection(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	if hit, ok := c.cache.Get(text); ok {
		return hit
	}
	hit := injectionPattern.MatchString(text)
	c.cache.Add(text, hit)
	return hit
}

var shared = mustClassifier(DefaultCacheSize)

func mustClassifier(size int) *Classifier {
	c, err := NewClassifier(size)
	if err != nil {
		panic(err)
	}
	return c
}

// IsInjection classifies text with the process-wide classifier.
func IsInjection(text string) bool { return shared.IsInjection(text) }
