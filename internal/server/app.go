// Package server initializes and runs the application server. It wires the
// identity store, per-user data regions, the index engine and the HTTP
// surface, and handles graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	openaief "github.com/amikos-tech/chroma-go/pkg/embeddings/openai"

	"github.com/dmitrijs2005/tubequery/internal/logging"
	"github.com/dmitrijs2005/tubequery/internal/server/ai"
	"github.com/dmitrijs2005/tubequery/internal/server/config"
	"github.com/dmitrijs2005/tubequery/internal/server/db"
	"github.com/dmitrijs2005/tubequery/internal/server/documents"
	"github.com/dmitrijs2005/tubequery/internal/server/httpapi"
	"github.com/dmitrijs2005/tubequery/internal/server/index"
	"github.com/dmitrijs2005/tubequery/internal/server/namespace"
	"github.com/dmitrijs2005/tubequery/internal/server/query"
	"github.com/dmitrijs2005/tubequery/internal/server/rag"
	"github.com/dmitrijs2005/tubequery/internal/server/summary"
	"github.com/dmitrijs2005/tubequery/internal/server/transcript"
	"github.com/dmitrijs2005/tubequery/internal/server/users"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	repos      db.RepositoryManager
	httpServer *httpapi.Server
}

func NewApp(cfg *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	repos, err := db.NewPostgresRepositoryManager(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	allocator := namespace.NewAllocator(cfg.DataRoot, cfg.StorageRoot)
	locker := namespace.NewLocker()

	engine, err := newEngine(cfg)
	if err != nil {
		return nil, fmt.Errorf("engine init error: %w", err)
	}

	aiClient := ai.NewClient(cfg.AIBaseURL, os.Getenv(cfg.AIKeyEnv))
	chat := ai.NewChat(aiClient, cfg.ChatModel)

	userService := users.NewService(repos.Users(), allocator, cfg)
	docService := documents.NewService(allocator, locker, engine, logger)
	builder := index.NewBuilder(allocator, locker, engine, docService, logger)
	gateway := query.NewGateway(allocator, locker, engine, chat, cfg.TopK, cfg.MinRelevance, logger)
	summarizer := summary.NewSummarizer(chat, cfg.SummaryWindow)
	fetcher := transcript.NewYouTubeFetcher()

	httpServer := httpapi.NewServer(
		cfg.EndpointAddrHTTP, logger,
		userService, docService, builder, gateway, summarizer, fetcher,
		cfg.SecretKey, cfg.CORSOrigin,
	)

	return &App{config: cfg, logger: logger, repos: repos, httpServer: httpServer}, nil
}

// newEngine selects the index engine. "local" embeds through the OpenAI
// compatible API and stores vectors inside the index region; "chroma" keeps
// the vectors in a Chroma collection per index generation.
func newEngine(cfg *config.Config) (rag.Engine, error) {
	switch cfg.Engine {
	case "local":
		client := ai.NewClient(cfg.AIBaseURL, os.Getenv(cfg.AIKeyEnv))
		embedder := ai.NewEmbedder(client, cfg.EmbeddingModel)
		return rag.NewLocalEngine(embedder, rag.NewChunker(0, 0), cfg.EmbeddingModel), nil
	case "chroma":
		client, err := chroma.NewHTTPClient(chroma.WithBaseURL(cfg.ChromaBaseURL))
		if err != nil {
			return nil, fmt.Errorf("chroma client error: %w", err)
		}
		ef, err := openaief.NewOpenAIEmbeddingFunction(
			os.Getenv(cfg.AIKeyEnv),
			openaief.WithModel(openaief.EmbeddingModel(cfg.EmbeddingModel)))
		if err != nil {
			return nil, fmt.Errorf("embedding function error: %w", err)
		}
		return rag.NewChromaEngine(client, ef, rag.NewChunker(0, 0)), nil
	default:
		return nil, fmt.Errorf("unknown engine: %s", cfg.Engine)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.httpServer.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.repos.Close(); err != nil {
		app.logger.Error(ctx, err.Error())
	}
}
