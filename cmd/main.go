package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"clamp-agent/handler"
	"clamp-agent/internal/agent"
	"clamp-agent/internal/integrations/anthropic"
	"clamp-agent/internal/integrations/paramstore"
	"clamp-agent/internal/repository"
	"clamp-agent/internal/sequence"
	"clamp-agent/internal/tools"
	"clamp-agent/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(os.Getenv("LOG_LEVEL"))}))
	slog.SetDefault(logger)

	dataTable := mustEnv("DATA_TABLE")
	paramPrefix := mustEnv("PARAM_PREFIX")
	model := envString("ANTHROPIC_MODEL", "claude-sonnet-4-5")
	maxTokens := envInt("ANTHROPIC_MAX_TOKENS", 1024)
	maxMessages := envInt("MAX_MESSAGES", usecase.DefaultMaxMessages)
	maxIterations := envInt("MAX_TOOL_ITERATIONS", agent.DefaultIterationCap)
	maxMessageLen := envInt("MAX_MESSAGE_LENGTH", usecase.DefaultMaxMessageLength)
	padding := envInt("NUMBER_PADDING", sequence.DefaultPadding)
	timeout := time.Duration(envInt("REQUEST_TIMEOUT_SECONDS", 25)) * time.Second

	loc, err := time.LoadLocation(envString("TENANT_TIMEZONE", "UTC"))
	if err != nil {
		slog.Error("invalid TENANT_TIMEZONE", "err", err)
		os.Exit(1)
	}

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}
	dynamoClient := awsdynamodb.NewFromConfig(cfg)
	store, err := repository.New(dynamoClient, dataTable)
	if err != nil {
		slog.Error("failed to create tenant store", "err", err)
		os.Exit(1)
	}
	numbers, err := sequence.New(dynamoClient, dataTable, sequence.WithDefaultPadding(padding))
	if err != nil {
		slog.Error("failed to create sequence generator", "err", err)
		os.Exit(1)
	}
	completer, err := anthropic.NewClient(ssmClient, paramPrefix,
		anthropic.WithModel(model),
		anthropic.WithMaxTokens(maxTokens),
	)
	if err != nil {
		slog.Error("failed to create Anthropic client", "err", err)
		os.Exit(1)
	}

	// ---- Agent ----
	dispatcher, err := tools.NewDispatcher(store, numbers,
		tools.WithLocation(loc),
		tools.WithLogger(logger),
	)
	if err != nil {
		slog.Error("failed to create tool dispatcher", "err", err)
		os.Exit(1)
	}
	orchestrator, err := agent.New(completer, dispatcher,
		agent.WithIterationCap(maxIterations),
		agent.WithLocation(loc),
		agent.WithLogger(logger),
	)
	if err != nil {
		slog.Error("failed to create orchestrator", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	clampService, err := usecase.NewClampService(orchestrator, logger, maxMessages, maxMessageLen)
	if err != nil {
		slog.Error("failed to create clamp service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(clampService, handler.WithLogger(logger), handler.WithTimeout(timeout))
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func logLevel(v string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(v))); err != nil {
		return slog.LevelInfo
	}
	return level
}
