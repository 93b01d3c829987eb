package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"go.uber.org/zap"

	"tutor-agent/handler"
	"tutor-agent/internal/config"
	"tutor-agent/internal/integrations/openai"
	"tutor-agent/internal/integrations/paramstore"
	"tutor-agent/internal/logger"
	"tutor-agent/internal/prompt"
	"tutor-agent/internal/repository"
	"tutor-agent/internal/security"
	"tutor-agent/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load(os.Getenv)
	if err != nil {
		logger.New("INFO").Fatal("invalid configuration", zap.Error(err))
	}
	log := logger.New(cfg.LogLevel).With(zap.String("environment", cfg.Environment))
	defer func() { _ = log.Sync() }()

	// ---- AWS SDK config ----
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.Fatal("failed to load AWS config", zap.Error(err))
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		log.Fatal("failed to create SSM client", zap.Error(err))
	}
	ledger, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.LedgerTable)
	if err != nil {
		log.Fatal("failed to create ledger client", zap.Error(err))
	}

	llmOpts := []openai.Option{
		openai.WithModel(cfg.OpenAIModel),
		openai.WithMaxTokens(cfg.OpenAIMaxTokens),
		openai.WithTemperature(cfg.OpenAITemperature),
	}
	if cfg.OpenAIBaseURL != "" {
		llmOpts = append(llmOpts, openai.WithBaseURL(cfg.OpenAIBaseURL))
	}
	llm, err := openai.NewClient(ssmClient, cfg.ParamPrefix, llmOpts...)
	if err != nil {
		log.Fatal("failed to create OpenAI client", zap.Error(err))
	}

	// ---- Pipeline ----
	templates, err := prompt.NewEngine(nil, prompt.System, prompt.Tutoring, prompt.Start)
	if err != nil {
		log.Fatal("failed to load prompt templates", zap.Error(err))
	}
	validator, err := security.NewValidator(nil, log)
	if err != nil {
		log.Fatal("failed to create input validator", zap.Error(err))
	}
	orchestrator, err := usecase.NewOrchestrator(templates, llm)
	if err != nil {
		log.Fatal("failed to create orchestrator", zap.Error(err))
	}
	tutor, err := usecase.NewTutorService(validator, orchestrator, ledger, log, cfg.ChatContextTurns, cfg.StartContextTurns)
	if err != nil {
		log.Fatal("failed to create tutor service", zap.Error(err))
	}

	// ---- Handler ----
	h, err := handler.NewHandler(tutor, log,
		handler.WithSupportedLanguages(cfg.SupportedLanguages),
		handler.WithMaxRequestBytes(cfg.MaxRequestBytes()),
		handler.WithMaxContextTurns(cfg.MaxContextTurns),
	)
	if err != nil {
		log.Fatal("failed to create handler", zap.Error(err))
	}

	log.Info("tutor agent ready",
		zap.String("model", cfg.OpenAIModel),
		zap.Int("chat_context_turns", cfg.ChatContextTurns),
		zap.Int("start_context_turns", cfg.StartContextTurns),
	)
	lambda.Start(h.Handle)
}
