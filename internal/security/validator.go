package security

import (
	"errors"

	"go.uber.org/zap"

	"tutor-agent/internal/domain"
)

// ErrInjectionDetected matches every *InjectionError via errors.Is.
var ErrInjectionDetected = errors.New("security: prompt injection detected")

// InjectionError reports a rejected piece of learner text. Content is the
// sanitized offending text; Field names the request field when known.
type InjectionError struct {
	Field   string
	Content string
}

func (e *InjectionError) Error() string {
	if e.Field == "" {
		return ErrInjectionDetected.Error()
	}
	return ErrInjectionDetected.Error() + " in " + e.Field
}

func (e *InjectionError) Is(target error) bool { return target == ErrInjectionDetected }

// ValidatedInput is learner text that passed sanitization and injection
// screening. Only this package can construct one.
type ValidatedInput struct {
	text string
}

func (v ValidatedInput) String() string { return v.text }

// Audit carries the request attributes logged with every rejection.
type Audit struct {
	SessionID string
	Language  domain.Language
	Level     domain.Level
}

const (
	FieldMessage = "message"
	FieldContext = "context_messages"
)

// Validator applies Sanitize and a Classifier to request fields.
type Validator struct {
	classifier *Classifier
	log        *zap.Logger
}

// NewValidator builds a Validator. A nil classifier selects the process-wide one.
func NewValidator(c *Classifier, log *zap.Logger) (*Validator, error) {
	if log == nil {
		return nil, errors.New("security: logger must not be nil")
	}
	if c == nil {
		c = shared
	}
	return &Validator{classifier: c, log: log}, nil
}

// ValidateField sanitizes text and rejects it when it looks like an injection.
func (v *Validator) ValidateField(text string) (ValidatedInput, error) {
	cleaned := Sanitize(text)
	if v.classifier.IsInjection(cleaned) {
		return ValidatedInput{}, &InjectionError{Content: cleaned}
	}
	return ValidatedInput{text: cleaned}, nil
}

// ValidateContext screens every entry carrying content. Entries without
// content are passed through unchecked. The first violation aborts.
func (v *Validator) ValidateContext(turns []domain.RawTurn) ([]domain.RawTurn, error) {
	if len(turns) == 0 {
		return nil, nil
	}
	out := make([]domain.RawTurn, 0, len(turns))
	for _, t := range turns {
		if t.Content == "" {
			out = append(out, t)
			continue
		}
		in, err := v.ValidateField(t.Content)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.RawTurn{Type: t.Type, Content: in.String()})
	}
	return out, nil
}

// ValidateMessage is ValidateField for the learner's message with rejection logging.
func (v *Validator) ValidateMessage(a Audit, text string) (ValidatedInput, error) {
	in, err := v.ValidateField(text)
	if err != nil {
		return ValidatedInput{}, v.reject(a, FieldMessage, err)
	}
	return in, nil
}

// ValidateHistory is ValidateContext for context_messages with rejection logging.
func (v *Validator) ValidateHistory(a Audit, turns []domain.RawTurn) ([]domain.RawTurn, error) {
	out, err := v.ValidateContext(turns)
	if err != nil {
		return nil, v.reject(a, FieldContext, err)
	}
	return out, nil
}

func (v *Validator) reject(a Audit, field string, err error) error {
	var ie *InjectionError
	if !errors.As(err, &ie) {
		return err
	}
	tagged := &InjectionError{Field: field, Content: ie.Content}
	v.log.Warn("Prompt injection blocked",
		zap.String("session_id", a.SessionID),
		zap.String("language", string(a.Language)),
		zap.String("level", string(a.Level)),
		zap.String("field", field),
		zap.String("message_preview", tagged.Content),
	)
	return tagged
}
