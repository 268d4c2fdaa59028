// Package app wires configuration, storage and services into the object
// graph shared by the server and the admin CLI.
package app

import (
	"context"
	"fmt"
	"time"

	"concierge/internal/config"
	"concierge/internal/logger"
	"concierge/internal/model"
	"concierge/internal/repository"
	"concierge/internal/service"

	"github.com/redis/go-redis/v9"
)

// App holds the long-lived components of a process
type App struct {
	Config     *config.Config
	Log        logger.Logger
	Vocabulary config.Vocabulary

	Repo  *repository.PostgresRepository
	Redis *redis.Client
	LLM   *service.OpenAIClient

	Intent  *service.IntentExtractor
	Chat    *service.ChatService
	Search  *service.SearchService
	Indexer *service.EmbeddingIndexer
}

// New connects to the catalogue (and Redis when configured) and builds all services.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	vocab, err := config.LoadVocabulary(cfg.VocabularyFile)
	if err != nil {
		return nil, err
	}

	repo, err := repository.NewPostgresRepository(
		cfg.GetPostgreSQLDSN(),
		cfg.PostgreSQL.MaxConnections,
		cfg.PostgreSQL.MaxIdleConnections,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Connected to PostgreSQL", map[string]interface{}{"database": cfg.PostgreSQL.Database})

	a := &App{Config: cfg, Log: log, Vocabulary: vocab, Repo: repo}
	a.LLM = service.NewOpenAIClient(&cfg.OpenAI, log.WithFields(map[string]interface{}{"component": "openai"}))

	// The retriever's embedder stays a nil interface when the model is disabled.
	var queryEmbedder service.Embedder
	if a.LLM.IsEnabled() {
		queryEmbedder = a.LLM
		log.Info("OpenAI client initialized", map[string]interface{}{
			"apiBase":        cfg.OpenAI.APIBase,
			"chatModel":      cfg.OpenAI.ChatModel,
			"embeddingModel": cfg.OpenAI.EmbeddingModel,
		})
		if cfg.Redis.Enabled() {
			a.Redis = connectRedis(ctx, cfg.Redis, log)
			queryEmbedder = service.NewCachedEmbedder(a.LLM, a.Redis, cfg.OpenAI.EmbeddingModel, cfg.Redis.EmbeddingTTL,
				log.WithFields(map[string]interface{}{"component": "embedding_cache"}))
		}
	} else {
		log.Warn("OpenAI is disabled, chat answers use the fallback responder and vector search is off", nil)
	}

	retriever := service.NewCandidateRetriever(repo, queryEmbedder, service.RetrieverConfig{
		Status:            cfg.Catalog.Status,
		LexicalLimit:      cfg.Catalog.LexicalLimit,
		VectorLimit:       cfg.Catalog.VectorLimit,
		MaxLimit:          cfg.Catalog.MaxLimit,
		LexicalMinResults: cfg.Catalog.LexicalMinResults,
	}, log.WithFields(map[string]interface{}{"component": "retriever"}))

	a.Intent = service.NewIntentExtractor(vocab)
	a.Chat = service.NewChatService(
		a.Intent,
		retriever,
		service.NewContextBuilder(vocab, cfg.Catalog.SiteBaseURL, cfg.Chat.ToolsEnabled),
		service.NewResponseGenerator(a.LLM, service.GeneratorConfig{
			HistoryWindow: cfg.Chat.HistoryWindow,
			Temperature:   cfg.Chat.Temperature,
			MaxTokens:     cfg.Chat.MaxTokens,
		}, log.WithFields(map[string]interface{}{"component": "generator"})),
		service.NewFallbackResponder(vocab),
		service.NewLogLeadSink(log.WithFields(map[string]interface{}{"component": "leads"})),
		service.ChatServiceConfig{
			RetrievalMode:     model.RetrievalMethod(cfg.Catalog.RetrievalMode),
			RetrievalTimeout:  cfg.Catalog.RetrievalTimeout,
			GenerationTimeout: cfg.Chat.GenerationTimeout,
			ToolsEnabled:      cfg.Chat.ToolsEnabled,
		},
		log.WithFields(map[string]interface{}{"component": "chat"}),
	)
	a.Search = service.NewSearchService(retriever)
	a.Indexer = service.NewEmbeddingIndexer(repo, a.LLM, service.IndexerConfig{
		Dimensions:     cfg.OpenAI.EmbeddingDimensions,
		Concurrency:    cfg.Embedding.Concurrency,
		RatePerSecond:  cfg.Embedding.RatePerSecond,
		AmenityCap:     cfg.Embedding.AmenityCap,
		M:              cfg.VectorIndex.M,
		EfConstruction: cfg.VectorIndex.EfConstruction,
	}, log.WithFields(map[string]interface{}{"component": "indexer"}))

	return a, nil
}

// connectRedis returns a client even when the first ping fails; the cache
// bypasses Redis errors per call.
func connectRedis(ctx context.Context, cfg config.RedisConfig, log logger.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.WithError(err).Warn("Redis unreachable, query embeddings will not be cached until it recovers",
			map[string]interface{}{"addr": cfg.Address})
	} else {
		log.Info("Connected to Redis", map[string]interface{}{"addr": cfg.Address})
	}
	return client
}

// Close releases connections
func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.Repo != nil {
		_ = a.Repo.Close()
	}
}
