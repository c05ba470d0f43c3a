// Package bootstrap wires configuration, adapters and services together.
package bootstrap

import (
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"triage_server/adapter/in/worker"
	"triage_server/adapter/out/persistence"
	"triage_server/adapter/out/provider"
	"triage_server/adapter/out/realtime"
	"triage_server/config"
	"triage_server/core/agent/llm"
	"triage_server/core/agent/rag"
	"triage_server/core/port/out"
	"triage_server/core/service/issue"
	"triage_server/core/service/reply"
	"triage_server/infra/database"
)

// Dependencies holds every shared collaborator. DB and Redis stay nil when
// the matching URL is not configured; the module then falls back to
// in-memory behavior.
type Dependencies struct {
	Log zerolog.Logger

	DB    *pgxpool.Pool
	Redis *redis.Client

	Issues    *issue.Repository
	LLMClient *llm.Client
	Retriever out.SnippetSearcher
	Indexer   out.SnippetIndexer
	Drafter   *reply.Drafter
	Sessions  *provider.FileSessionProvider
	SeenStore out.SeenStore
	EventHub  *realtime.EventHub
	Worker    *worker.PollWorker
}

// NewDependencies builds the full dependency graph. The returned cleanup
// closes the backing stores.
func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	log := NewLogger(cfg)

	issues, err := issue.Load(cfg.DatasetPath, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load issue dataset: %w", err)
	}

	llmClient := llm.NewClientWithConfig(llm.ClientConfig{
		APIKey:      cfg.OpenAIAPIKey,
		Model:       cfg.LLMModel,
		MaxTokens:   cfg.LLMMaxTokens,
		Temperature: cfg.LLMTemperature,
	})

	deps := &Dependencies{
		Log:       log,
		Issues:    issues,
		LLMClient: llmClient,
	}

	// Knowledge base is optional; without it replies draft from the issue
	// record alone.
	if cfg.DatabaseURL != "" {
		db, err := database.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		deps.DB = db
		retriever := rag.NewRetriever(rag.NewVectorStore(db), rag.NewEmbedder(llmClient), log)
		deps.Retriever = retriever
		deps.Indexer = retriever
		log.Info().Msg("knowledge base retriever configured")
	} else {
		log.Info().Msg("DATABASE_URL not set, snippet retrieval disabled")
	}

	// Seen store: Redis when configured, otherwise per-run memory.
	if cfg.RedisURL != "" {
		rdb, err := database.NewRedis(cfg.RedisURL)
		if err != nil {
			cleanupPartial(deps)
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		deps.Redis = rdb
		deps.SeenStore = persistence.NewRedisSeenStore(rdb)
		log.Info().Msg("redis seen store configured")
	} else {
		deps.SeenStore = persistence.NewMemorySeenStore()
		log.Info().Msg("REDIS_URL not set, using in-memory seen store")
	}

	deps.Drafter = reply.NewDrafter(llmClient, time.Duration(cfg.LLMTimeoutSec)*time.Second, log)
	deps.Sessions = provider.NewFileSessionProvider(cfg.CredentialsDir, log)
	deps.EventHub = realtime.NewEventHub(log)

	deps.Worker = worker.NewPollWorker(worker.Deps{
		Sessions: deps.Sessions,
		Seen:     deps.SeenStore,
		Issues:   deps.Issues,
		Snippets: deps.Retriever,
		Drafter:  deps.Drafter,
		Sink:     deps.EventHub,
	}, log)

	cleanup := func() {
		deps.Worker.Stop()
		cleanupPartial(deps)
	}

	return deps, cleanup, nil
}

func cleanupPartial(deps *Dependencies) {
	if deps.DB != nil {
		deps.DB.Close()
	}
	if deps.Redis != nil {
		deps.Redis.Close()
	}
}

// NewLogger builds the process logger: console output in development, JSON
// in production.
func NewLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDevelopment() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Str("service", "triage").Logger().
			Level(zerolog.DebugLevel)
	}
	return zerolog.New(os.Stdout).
		With().Timestamp().Str("service", "triage").Logger().
		Level(zerolog.InfoLevel)
}
