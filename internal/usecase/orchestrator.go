package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"tutor-agent/internal/domain"
	"tutor-agent/internal/prompt"
	"tutor-agent/internal/security"
)

// Renderer renders a named prompt template.
type Renderer interface {
	Render(name string, vars any) (string, error)
}

// LLMClient performs a single model call. Implementations must honour ctx
// cancellation.
type LLMClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (domain.Completion, error)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// ExchangeRequest is a screened learner message with its curated context.
type ExchangeRequest struct {
	Message   security.ValidatedInput
	Language  domain.Language
	Level     domain.Level
	SessionID string
	Context   []domain.Turn
}

// OpeningRequest asks for a conversation starter.
type OpeningRequest struct {
	Language  domain.Language
	Level     domain.Level
	SessionID string
	Context   []domain.Turn
}

// Orchestrator renders prompts, invokes the model once and assembles the
// reply. Any failure is reported as a single MODEL_PROCESSING_FAILED error;
// there are no retries and no partial results.
type Orchestrator struct {
	renderer Renderer
	llm      LLMClient
}

func NewOrchestrator(r Renderer, llm LLMClient) (*Orchestrator, error) {
	if r == nil {
		return nil, errors.New("usecase: renderer must not be nil")
	}
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	return &Orchestrator{renderer: r, llm: llm}, nil
}

// ProcessExchange corrects the learner message and proposes the next phrase.
func (o *Orchestrator) ProcessExchange(ctx context.Context, req ExchangeRequest) (domain.StructuredReply, error) {
	vars := prompt.Vars{
		Language: req.Language,
		Level:    req.Level,
		Message:  req.Message.String(),
		Context:  req.Context,
	}
	completion, reason, err := o.invoke(ctx, prompt.Tutoring, vars)
	if err != nil {
		return domain.StructuredReply{}, newError(ErrorModelProcessing, reason, fmt.Errorf("LLM processing failed: %w", err))
	}

	parsed := parseReply(completion.Content)
	return domain.StructuredReply{
		PrimaryExplanation: parsed.Explanation,
		FollowUpPrompt:     parsed.FollowUp,
		Corrections:        parsed.Corrections,
		TokensUsed:         ExtractTokens(completion.UsageMetadata),
	}, nil
}

// GenerateOpening produces the tutor's first message for a session.
func (o *Orchestrator) GenerateOpening(ctx context.Context, req OpeningRequest) (domain.Opening, error) {
	vars := prompt.Vars{
		Language: req.Language,
		Level:    req.Level,
		Context:  req.Context,
	}
	completion, reason, err := o.invoke(ctx, prompt.Start, vars)
	if err != nil {
		return domain.Opening{}, newError(ErrorModelProcessing, reason, fmt.Errorf("start message generation failed: %w", err))
	}

	message := strings.TrimSpace(completion.Content)
	if message == "" {
		return domain.Opening{}, newError(ErrorModelProcessing, "empty_reply", errors.New("start message generation failed: model returned empty content"))
	}
	return domain.Opening{
		Message:    message,
		TokensUsed: ExtractTokens(completion.UsageMetadata),
	}, nil
}

// invoke renders the system prompt and the named user prompt, then calls the
// model. The returned reason names the failing stage.
func (o *Orchestrator) invoke(ctx context.Context, userTemplate string, vars prompt.Vars) (domain.Completion, string, error) {
	system, err := o.renderer.Render(prompt.System, vars)
	if err != nil {
		return domain.Completion{}, renderReason(err), err
	}
	user, err := o.renderer.Render(userTemplate, vars)
	if err != nil {
		return domain.Completion{}, renderReason(err), err
	}

	completion, err := o.llm.Complete(ctx, system, user)
	if err != nil {
		return domain.Completion{}, invokeReason(err), err
	}
	return completion, "", nil
}

func renderReason(err error) string {
	if errors.Is(err, prompt.ErrTemplateNotFound) {
		return "template_not_found"
	}
	return "render_error"
}

func invokeReason(err error) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "openai_canceled"
	}
	if status, ok := upstreamStatusCode(err); ok && status == http.StatusTooManyRequests {
		return "openai_rate_limited"
	}
	return "openai_error"
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}
