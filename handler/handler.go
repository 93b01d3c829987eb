// Package handler exposes the tutor over an API Gateway proxy integration.
package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"tutor-agent/internal/domain"
	"tutor-agent/internal/history"
	"tutor-agent/internal/usecase"
)

const (
	correlationHeader = "X-Correlation-Id"
	apiPrefix         = "/api/v1"
	version           = "0.1.0"

	maxMessageChars = 500
	maxContextChars = 500

	defaultMaxRequestBytes = 1024 * 1024
	defaultMaxContextTurns = 100

	codeNotFound         = "NOT_FOUND"
	codeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	codePayloadTooLarge  = "PAYLOAD_TOO_LARGE"
)

// Tutor is the use case surface the handler drives.
type Tutor interface {
	Chat(ctx context.Context, in usecase.ChatInput) (usecase.ChatOutput, error)
	Start(ctx context.Context, in usecase.StartInput) (usecase.StartOutput, error)
}

type chatRequest struct {
	Message         string          `json:"message" validate:"required"`
	Language        string          `json:"language" validate:"required"`
	Level           string          `json:"level" validate:"required,oneof=A1 A2 B1 B2 C1 C2"`
	SessionID       string          `json:"session_id" validate:"required,uuid"`
	ContextMessages json.RawMessage `json:"context_messages"`
}

type startRequest struct {
	Language        string          `json:"language" validate:"required"`
	Level           string          `json:"level" validate:"required,oneof=A1 A2 B1 B2 C1 C2"`
	SessionID       string          `json:"session_id" validate:"required,uuid"`
	ContextMessages json.RawMessage `json:"context_messages"`
}

type chatResponse struct {
	AIResponse  string              `json:"ai_response"`
	NextPhrase  string              `json:"next_phrase"`
	Corrections []domain.Correction `json:"corrections"`
	SessionID   string              `json:"session_id"`
	TokensUsed  int                 `json:"tokens_used"`
}

type startResponse struct {
	Message    string `json:"message"`
	SessionID  string `json:"session_id"`
	TokensUsed int    `json:"tokens_used"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
	Version   string `json:"version"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Detail    string `json:"detail"`
	Timestamp int64  `json:"timestamp"`
}

type Handler struct {
	svc      Tutor
	log      *zap.Logger
	validate *validator.Validate
	now      func() time.Time

	languages       []domain.Language
	maxRequestBytes int
	maxContextTurns int
}

type Option func(*Handler)

// WithSupportedLanguages restricts the languages accepted by /chat and /start.
func WithSupportedLanguages(langs []domain.Language) Option {
	return func(h *Handler) {
		if len(langs) > 0 {
			h.languages = append([]domain.Language(nil), langs...)
		}
	}
}

func WithMaxRequestBytes(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxRequestBytes = n
		}
	}
}

func WithMaxContextTurns(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxContextTurns = n
		}
	}
}

func NewHandler(svc Tutor, log *zap.Logger, opts ...Option) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("handler: tutor service must not be nil")
	}
	if log == nil {
		return nil, errors.New("handler: logger must not be nil")
	}
	h := &Handler{
		svc:             svc,
		log:             log,
		validate:        validator.New(),
		now:             time.Now,
		languages:       append([]domain.Language(nil), domain.Languages...),
		maxRequestBytes: defaultMaxRequestBytes,
		maxContextTurns: defaultMaxContextTurns,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Handle routes one API Gateway proxy event.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := headerValue(event.Headers, correlationHeader)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	resp := h.route(ctx, event)
	if resp.Headers == nil {
		resp.Headers = map[string]string{}
	}
	resp.Headers["Content-Type"] = "application/json"
	resp.Headers[correlationHeader] = correlationID

	h.log.Info("request handled",
		zap.String("method", event.HTTPMethod),
		zap.String("path", event.Path),
		zap.Int("status", resp.StatusCode),
		zap.String("correlation_id", correlationID),
	)
	return resp, nil
}

func (h *Handler) route(ctx context.Context, event events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	method := strings.ToUpper(event.HTTPMethod)
	switch normalizePath(event.Path) {
	case "/chat":
		if method != http.MethodPost {
			return h.errorJSON(http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
		return h.chat(ctx, event)
	case "/start":
		if method != http.MethodPost {
			return h.errorJSON(http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
		return h.start(ctx, event)
	case "/languages":
		if method != http.MethodGet {
			return h.errorJSON(http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
		return h.respond(http.StatusOK, h.languages)
	case "/health":
		if method != http.MethodGet {
			return h.errorJSON(http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
		return h.respond(http.StatusOK, healthResponse{
			Status:    "healthy",
			Message:   "Multilingual AI Tutor is running",
			Timestamp: h.now().Unix(),
			Version:   version,
		})
	default:
		return h.errorJSON(http.StatusNotFound, codeNotFound, "route not found")
	}
}

func (h *Handler) chat(ctx context.Context, event events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	var req chatRequest
	if resp, ok := h.decode(event, &req); !ok {
		return resp
	}
	req.Message = strings.TrimSpace(req.Message)
	if err := h.validate.Struct(req); err != nil {
		return h.invalid(err.Error())
	}
	if utf8.RuneCountInString(req.Message) > maxMessageChars {
		return h.invalid("message exceeds 500 characters")
	}
	lang, resp, ok := h.language(req.Language)
	if !ok {
		return resp
	}
	turns, resp, ok := h.contextTurns(req.ContextMessages)
	if !ok {
		return resp
	}

	out, err := h.svc.Chat(ctx, usecase.ChatInput{
		Message:   req.Message,
		Language:  lang,
		Level:     domain.Level(req.Level),
		SessionID: req.SessionID,
		Context:   turns,
	})
	if err != nil {
		return h.fromError(err)
	}
	corrections := out.Reply.Corrections
	if corrections == nil {
		corrections = []domain.Correction{}
	}
	return h.respond(http.StatusOK, chatResponse{
		AIResponse:  out.Reply.PrimaryExplanation,
		NextPhrase:  out.Reply.FollowUpPrompt,
		Corrections: corrections,
		SessionID:   out.SessionID,
		TokensUsed:  out.Reply.TokensUsed,
	})
}

func (h *Handler) start(ctx context.Context, event events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	var req startRequest
	if resp, ok := h.decode(event, &req); !ok {
		return resp
	}
	if err := h.validate.Struct(req); err != nil {
		return h.invalid(err.Error())
	}
	lang, resp, ok := h.language(req.Language)
	if !ok {
		return resp
	}
	turns, resp, ok := h.contextTurns(req.ContextMessages)
	if !ok {
		return resp
	}

	out, err := h.svc.Start(ctx, usecase.StartInput{
		Language:  lang,
		Level:     domain.Level(req.Level),
		SessionID: req.SessionID,
		Context:   turns,
	})
	if err != nil {
		return h.fromError(err)
	}
	return h.respond(http.StatusOK, startResponse{
		Message:    out.Opening.Message,
		SessionID:  out.SessionID,
		TokensUsed: out.Opening.TokensUsed,
	})
}

// decode enforces the body size limit and unmarshals the JSON body into v.
func (h *Handler) decode(event events.APIGatewayProxyRequest, v any) (events.APIGatewayProxyResponse, bool) {
	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			return h.invalid("body is not valid base64"), false
		}
		body = decoded
	}
	if len(body) > h.maxRequestBytes {
		return h.errorJSON(http.StatusRequestEntityTooLarge, codePayloadTooLarge, "Request too large"), false
	}
	if err := json.Unmarshal(body, v); err != nil {
		return h.invalid("invalid JSON body"), false
	}
	return events.APIGatewayProxyResponse{}, true
}

func (h *Handler) language(name string) (domain.Language, events.APIGatewayProxyResponse, bool) {
	lang := domain.Language(strings.ToLower(strings.TrimSpace(name)))
	if !slices.Contains(h.languages, lang) {
		return "", h.invalid("unsupported language: " + name), false
	}
	return lang, events.APIGatewayProxyResponse{}, true
}

func (h *Handler) contextTurns(raw json.RawMessage) ([]domain.RawTurn, events.APIGatewayProxyResponse, bool) {
	turns := history.Decode(raw)
	if len(turns) > h.maxContextTurns {
		return nil, h.invalid("too many context messages"), false
	}
	for _, t := range turns {
		if utf8.RuneCountInString(t.Content) > maxContextChars {
			return nil, h.invalid("context message exceeds 500 characters"), false
		}
	}
	return turns, events.APIGatewayProxyResponse{}, true
}

func (h *Handler) fromError(err error) events.APIGatewayProxyResponse {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		h.log.Error("unexpected service error", zap.Error(err))
		return h.errorJSON(http.StatusInternalServerError, string(usecase.ErrorInternal), "internal error")
	}
	switch ucErr.Code {
	case usecase.ErrorInvalidInput:
		return h.errorJSON(http.StatusBadRequest, string(ucErr.Code), ucErr.Reason)
	case usecase.ErrorInjectionDetected:
		return h.errorJSON(http.StatusBadRequest, string(ucErr.Code), "Prompt injection detected")
	case usecase.ErrorModelProcessing:
		return h.errorJSON(http.StatusServiceUnavailable, string(ucErr.Code), "AI service temporarily unavailable")
	default:
		return h.errorJSON(http.StatusInternalServerError, string(usecase.ErrorInternal), "internal error")
	}
}

func (h *Handler) invalid(detail string) events.APIGatewayProxyResponse {
	return h.errorJSON(http.StatusBadRequest, string(usecase.ErrorInvalidInput), detail)
}

func (h *Handler) errorJSON(status int, code, detail string) events.APIGatewayProxyResponse {
	return h.respond(status, errorResponse{Error: code, Detail: detail, Timestamp: h.now().Unix()})
}

func (h *Handler) respond(status int, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		h.log.Error("failed to encode response", zap.Error(err))
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Body:       `{"error":"INTERNAL_ERROR","detail":"internal error"}`,
		}
	}
	return events.APIGatewayProxyResponse{StatusCode: status, Body: string(body)}
}

func normalizePath(path string) string {
	path = strings.TrimSuffix(strings.TrimSpace(path), "/")
	return strings.TrimPrefix(path, apiPrefix)
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
