// Package main implements the edgerag helpdesk API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/WessleyAI/edgerag-helpdesk/engine/domain"
	"github.com/WessleyAI/edgerag-helpdesk/engine/ingest"
	"github.com/WessleyAI/edgerag-helpdesk/engine/rag"
	"github.com/WessleyAI/edgerag-helpdesk/engine/semantic"
	"github.com/WessleyAI/edgerag-helpdesk/pkg/ollama"
	"github.com/WessleyAI/edgerag-helpdesk/pkg/resilience"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := newAPIMetrics()

	// --- Connect to Qdrant ---
	vectorStore, err := semantic.New(cfg.QdrantURL, cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer vectorStore.Close()

	if err := vectorStore.EnsureCollection(ctx, cfg.EmbedDims); err != nil {
		return fmt.Errorf("qdrant ensure collection: %w", err)
	}

	// --- Model host (embeddings + chat) ---
	breaker := resilience.NewBreaker(resilience.BreakerOpts{
		Name:          "ollama",
		FailThreshold: cfg.BreakerFailures,
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			m.breakerChanged(name, from, to)
		},
	})
	model := ollama.New(ollama.Config{
		BaseURL:    cfg.OllamaURL,
		EmbedModel: cfg.EmbedModel,
		ChatModel:  cfg.ChatModel,
		GatewayID:  cfg.GatewayID,
		Breaker:    breaker,
	})

	// --- Pipelines ---
	ingestSvc := ingest.New(ingest.Deps{
		Embedder: model,
		Store:    vectorStore,
		Options:  ingest.Options{DefaultTenant: cfg.DefaultTenant, MaxChars: domain.DefaultMaxChars},
		Logger:   logger,
	})
	ragSvc := rag.New(model, vectorStore, model, rag.Options{
		DefaultTenant:   cfg.DefaultTenant,
		TopK:            cfg.TopK,
		MaxContextChars: cfg.MaxContextChars,
		SystemPrompt:    rag.DefaultSystemPrompt,
	}, logger)

	// --- Async ingestion (optional) ---
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL, nats.Name("edgerag-api"))
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Drain()

		if _, err := ingest.StartConsumer(nc, &meteredIngester{next: ingestSvc, m: m, route: "ingest_async"}, logger); err != nil {
			return fmt.Errorf("start ingest consumer: %w", err)
		}
		logger.Info("ingest consumer started", "subject", ingest.SubjectIngest)
	}

	// --- Build HTTP server ---
	s := &server{
		cfg:     cfg,
		ingest:  &meteredIngester{next: ingestSvc, m: m, route: "ingest"},
		chat:    &meteredAsker{next: ragSvc, m: m},
		metrics: m,
		log:     logger,
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port, "collection", cfg.Collection, "gateway", cfg.GatewayID)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
