package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/KaanK026/Harvia/internal/adapter/identity"
	"github.com/KaanK026/Harvia/internal/adapter/llm"
	"github.com/KaanK026/Harvia/internal/adapter/objectstore"
	"github.com/KaanK026/Harvia/internal/adapter/predictor"
	"github.com/KaanK026/Harvia/internal/adapter/profile"
	"github.com/KaanK026/Harvia/internal/config"
	"github.com/KaanK026/Harvia/internal/logger"
	"github.com/KaanK026/Harvia/internal/policy"
	"github.com/KaanK026/Harvia/internal/rag"
	"github.com/KaanK026/Harvia/internal/repository"
	"github.com/KaanK026/Harvia/internal/service"
	handler "github.com/KaanK026/Harvia/internal/transport/http"
	"github.com/KaanK026/Harvia/internal/transport/http/middleware"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "harvia: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine; the environment is authoritative.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting harvia",
		zap.Int("port", cfg.HTTPPort),
		zap.String("llm_provider", cfg.LLMProvider),
		zap.String("index_backend", cfg.IndexBackend),
		zap.String("auth_mode", cfg.AuthMode),
	)

	// Initialize store
	db, err := repository.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer db.Close()

	// Document database, shared by profiles and the vector index
	var mongoDB *mongo.Database
	if cfg.MongoURI != "" {
		client, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return fmt.Errorf("connect mongo: %w", err)
		}
		defer func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(disconnectCtx)
		}()
		mongoDB = client.Database(cfg.MongoDatabase)
	}

	// Initialize LLM client and embedder
	embedProvider := cfg.EmbeddingProvider
	if cfg.IsMock() {
		embedProvider = llm.ProviderMock
	}
	embedBaseURL := cfg.EmbeddingBaseURL
	if embedBaseURL == "" && embedProvider == cfg.LLMProvider {
		embedBaseURL = cfg.LLMBaseURL
	}
	llmClient, err := llm.NewLLMClient(llm.Options{
		Provider:       cfg.LLMProvider,
		BaseURL:        cfg.LLMBaseURL,
		APIKey:         cfg.LLMAPIKey,
		EmbeddingModel: cfg.EmbeddingModel,
		Timeout:        cfg.LLMTimeout,
	}, log)
	if err != nil {
		return fmt.Errorf("initialize llm client: %w", err)
	}
	embedder, err := llm.NewEmbedder(llm.Options{
		Provider:       embedProvider,
		BaseURL:        embedBaseURL,
		APIKey:         cfg.LLMAPIKey,
		EmbeddingModel: cfg.EmbeddingModel,
		Timeout:        cfg.LLMTimeout,
	}, log)
	if err != nil {
		return fmt.Errorf("initialize embedder: %w", err)
	}

	// Initialize retrieval index and query engine
	var index rag.Index = rag.NewMemoryIndex()
	if cfg.IndexBackend == config.IndexMongo {
		index = rag.NewMongoIndex(mongoDB.Collection(cfg.ChunkCollection), cfg.VectorIndexName)
	}
	engine := rag.NewEngine(llmClient, embedder, index, rag.EngineConfig{
		ChatModel:    cfg.ChatModel,
		Temperature:  cfg.Temperature,
		MaxTokens:    cfg.MaxTokens,
		RetrievalK:   cfg.RetrievalK,
		HistoryTurns: cfg.HistoryTurns,
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
	}, log)

	// Optional collaborators
	deps := service.Deps{Store: db, Engine: engine}
	if mongoDB != nil {
		deps.Profiles = profile.NewMongoStore(mongoDB.Collection(cfg.ProfileCollection))
	}
	switch cfg.ModelProvider {
	case config.ModelBaseline:
		deps.Model = predictor.BaselineModel{}
	case config.ModelRemote:
		deps.Model = predictor.NewRemoteModel(cfg.ModelURL, cfg.ModelTimeout)
	default:
		log.Warn("recommendation model disabled", zap.String("model_provider", cfg.ModelProvider))
	}
	if cfg.StorageBucket != "" {
		gcs, err := objectstore.NewGCSStore(ctx, cfg.StorageBucket, cfg.CredentialsFile)
		if err != nil {
			return fmt.Errorf("initialize object storage: %w", err)
		}
		defer gcs.Close()
		deps.Images = gcs
	} else {
		log.Warn("STORAGE_BUCKET not set, session images kept in memory")
		deps.Images = objectstore.NewMemoryStore()
	}

	// Initialize authentication
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		return fmt.Errorf("initialize policy engine: %w", err)
	}
	auth := middleware.AuthConfig{Policy: policyEngine, AnonymousUID: "anonymous", Log: log}
	switch cfg.AuthMode {
	case config.AuthFirebase:
		auth.Verifier = identity.NewFirebaseVerifier(cfg.FirebaseProjectID, "")
	case config.AuthHMAC:
		auth.Verifier = identity.NewHMACVerifier(cfg.AuthJWTSecret, "")
	default:
		log.Warn("authentication disabled")
	}

	svc := service.New(deps, cfg, log)
	server := handler.NewServer(svc, cfg, auth, log)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := engine.Load(gctx, cfg.CorpusDir); err != nil {
			// The server keeps answering 503 for chat until restarted.
			log.Error("failed to load corpus", zap.Error(err))
		}
		return nil
	})

	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		log.Info("http server listening", zap.String("addr", addr))
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("harvia stopped")
	return nil
}
