package usecase

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"tutor-agent/internal/domain"
	"tutor-agent/internal/history"
	"tutor-agent/internal/security"
)

const (
	defaultChatContext  = 20
	defaultStartContext = 10

	operationChat  = "chat"
	operationStart = "start"
)

// UsageLedger records token usage and rejected input per session.
type UsageLedger interface {
	RecordUsage(ctx context.Context, sessionID, operation string, tokens int) error
	RecordRejection(ctx context.Context, sessionID, field, content string) error
}

type ChatInput struct {
	Message   string
	Language  domain.Language
	Level     domain.Level
	SessionID string
	Context   []domain.RawTurn
}

type ChatOutput struct {
	Reply     domain.StructuredReply
	SessionID string
}

type StartInput struct {
	Language  domain.Language
	Level     domain.Level
	SessionID string
	Context   []domain.RawTurn
}

type StartOutput struct {
	Opening   domain.Opening
	SessionID string
}

// TutorService runs the request pipeline: screen input, curate history,
// call the model, record usage.
type TutorService struct {
	validator    *security.Validator
	orchestrator *Orchestrator
	ledger       UsageLedger
	log          *zap.Logger

	chatContext  int
	startContext int
}

func NewTutorService(v *security.Validator, o *Orchestrator, ledger UsageLedger, log *zap.Logger, chatContext, startContext int) (*TutorService, error) {
	if v == nil {
		return nil, errors.New("usecase: validator must not be nil")
	}
	if o == nil {
		return nil, errors.New("usecase: orchestrator must not be nil")
	}
	if ledger == nil {
		return nil, errors.New("usecase: usage ledger must not be nil")
	}
	if log == nil {
		return nil, errors.New("usecase: logger must not be nil")
	}
	if chatContext <= 0 {
		chatContext = defaultChatContext
	}
	if startContext <= 0 {
		startContext = defaultStartContext
	}
	return &TutorService{
		validator:    v,
		orchestrator: o,
		ledger:       ledger,
		log:          log,
		chatContext:  chatContext,
		startContext: startContext,
	}, nil
}

// Chat corrects one learner message.
func (s *TutorService) Chat(ctx context.Context, in ChatInput) (ChatOutput, error) {
	if strings.TrimSpace(in.Message) == "" {
		return ChatOutput{}, newError(ErrorInvalidInput, "empty_message", nil)
	}
	audit := security.Audit{SessionID: in.SessionID, Language: in.Language, Level: in.Level}

	message, err := s.validator.ValidateMessage(audit, strings.TrimSpace(in.Message))
	if err != nil {
		return ChatOutput{}, s.rejected(ctx, in.SessionID, err)
	}
	turns, err := s.validator.ValidateHistory(audit, in.Context)
	if err != nil {
		return ChatOutput{}, s.rejected(ctx, in.SessionID, err)
	}

	reply, err := s.orchestrator.ProcessExchange(ctx, ExchangeRequest{
		Message:   message,
		Language:  in.Language,
		Level:     in.Level,
		SessionID: in.SessionID,
		Context:   history.Curate(turns, s.chatContext),
	})
	if err != nil {
		s.log.Error("model processing failed",
			zap.String("session_id", in.SessionID),
			zap.String("operation", operationChat),
			zap.Error(err),
		)
		return ChatOutput{}, err
	}

	s.recordUsage(ctx, in.SessionID, operationChat, reply.TokensUsed)
	return ChatOutput{Reply: reply, SessionID: in.SessionID}, nil
}

// Start generates the opening message of a session.
func (s *TutorService) Start(ctx context.Context, in StartInput) (StartOutput, error) {
	audit := security.Audit{SessionID: in.SessionID, Language: in.Language, Level: in.Level}

	turns, err := s.validator.ValidateHistory(audit, in.Context)
	if err != nil {
		return StartOutput{}, s.rejected(ctx, in.SessionID, err)
	}

	opening, err := s.orchestrator.GenerateOpening(ctx, OpeningRequest{
		Language:  in.Language,
		Level:     in.Level,
		SessionID: in.SessionID,
		Context:   history.Curate(turns, s.startContext),
	})
	if err != nil {
		s.log.Error("model processing failed",
			zap.String("session_id", in.SessionID),
			zap.String("operation", operationStart),
			zap.Error(err),
		)
		return StartOutput{}, err
	}

	s.recordUsage(ctx, in.SessionID, operationStart, opening.TokensUsed)
	return StartOutput{Opening: opening, SessionID: in.SessionID}, nil
}

func (s *TutorService) rejected(ctx context.Context, sessionID string, err error) error {
	var ie *security.InjectionError
	if !errors.As(err, &ie) {
		return newError(ErrorInternal, "validation_error", err)
	}
	if lerr := s.ledger.RecordRejection(ctx, sessionID, ie.Field, ie.Content); lerr != nil {
		s.log.Warn("failed to record rejection", zap.String("session_id", sessionID), zap.Error(lerr))
	}
	return newError(ErrorInjectionDetected, ie.Field, err)
}

// recordUsage is best effort: the learner already has a reply.
func (s *TutorService) recordUsage(ctx context.Context, sessionID, operation string, tokens int) {
	if err := s.ledger.RecordUsage(ctx, sessionID, operation, tokens); err != nil {
		s.log.Warn("failed to record usage",
			zap.String("session_id", sessionID),
			zap.String("operation", operation),
			zap.Error(err),
		)
	}
}
