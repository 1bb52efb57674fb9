// Package app wires configuration, storage, and the Genkit providers into
// the components the commands use. Construction is explicit: New builds the
// shared infrastructure once and hands out sessions and ingestors on demand.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/askdoc/askdoc/db"
	"github.com/askdoc/askdoc/internal/config"
	"github.com/askdoc/askdoc/internal/ingest"
	"github.com/askdoc/askdoc/internal/knowledge"
	"github.com/askdoc/askdoc/internal/llm"
	"github.com/askdoc/askdoc/internal/retrieval"
	"github.com/askdoc/askdoc/internal/session"
)

// App holds the shared infrastructure of one process.
type App struct {
	Config   *config.Config
	Pool     *pgxpool.Pool
	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	Store    *knowledge.Store
	Logger   *slog.Logger
}

// New builds the application: runs migrations, opens the connection pool,
// and initializes the Genkit providers. The returned cleanup function
// releases the pool and must be called on shutdown.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, nil, fmt.Errorf("migrating database: %w", err)
	}

	pool, err := newPool(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		pool.Close()
		logger.Debug("connection pool closed")
	}

	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	embedder := googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)

	app := &App{
		Config:   cfg,
		Pool:     pool,
		Genkit:   g,
		Embedder: embedder,
		Store:    knowledge.NewStore(pool, logger),
		Logger:   logger,
	}
	return app, cleanup, nil
}

func newPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing pool configuration: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
	}

	return pool, nil
}

// NewSession creates a session controller with the configured retrieval
// parameters. Each call returns an independent session with its own history.
func (a *App) NewSession() (*session.Controller, error) {
	completer, err := llm.New(a.Genkit, a.Config.FullModelName(), a.Logger)
	if err != nil {
		return nil, err
	}

	engine := retrieval.New(a.Embedder, a.Store, a.Logger)

	return session.New(session.Config{
		Retriever: engine,
		Completer: completer,
		Params: session.Params{
			Threshold: a.Config.SimilarityThreshold,
			MaxDocs:   a.Config.MaxContextDocs,
		},
		ContextBudget: a.Config.ContextBudget,
		Logger:        a.Logger,
	})
}

// NewIngestor creates an ingestor with the configured chunking parameters.
func (a *App) NewIngestor() (*ingest.Ingestor, error) {
	return ingest.New(ingest.Config{
		Store:        a.Store,
		Embedder:     a.Embedder,
		ChunkSize:    a.Config.ChunkSize,
		ChunkOverlap: a.Config.ChunkOverlap,
		Logger:       a.Logger,
	})
}
