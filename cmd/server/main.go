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
	"github.com/sirupsen/logrus"

	"github.com/partsignal/replenish-core/internal/auth"
	"github.com/partsignal/replenish-core/internal/config"
	"github.com/partsignal/replenish-core/internal/demand"
	"github.com/partsignal/replenish-core/internal/events"
	"github.com/partsignal/replenish-core/internal/narrative"
	"github.com/partsignal/replenish-core/internal/recommend"
	"github.com/partsignal/replenish-core/internal/reorder"
	"github.com/partsignal/replenish-core/internal/repository"
	"github.com/partsignal/replenish-core/internal/supplier"
)

const (
	defaultPort   = "8085"
	defaultDBPath = "./data/replenish.db"
)

func main() {
	// Best effort; the environment wins when both are set.
	_ = godotenv.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetLevel(logrus.InfoLevel)

	port := os.Getenv("REPLENISH_PORT")
	if port == "" {
		port = defaultPort
	}

	dbPath := os.Getenv("REPLENISH_DB_PATH")
	if dbPath == "" {
		dbPath = defaultDBPath
	}

	dbType := repository.DatabaseType(os.Getenv("REPLENISH_DB_BACKEND"))
	if dbType == "" {
		dbType = repository.DatabaseTypeBadger
	}

	cfg := config.Default()
	if path := os.Getenv("REPLENISH_CONFIG_PATH"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			logger.WithError(err).Fatal("failed to load config file")
		}
		cfg = loaded
	}
	cfg.Narrative.APIKey = os.Getenv("REPLENISH_NARRATIVE_API_KEY")

	repo, err := repository.NewRepository(dbPath, dbType)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize repository")
	}
	defer repo.Close()

	var explainer narrative.Explainer
	if cfg.Narrative.APIKey != "" {
		explainer = narrative.NewCompletionExplainer(cfg.Narrative, logger)
		logger.Info("narrative reasoning backed by completion API")
	} else {
		logger.Info("no narrative API key set, using deterministic reasoning")
	}

	bus := events.NewBus(logger)
	bus.Subscribe(func(_ context.Context, event events.RecommendationCreated) {
		logger.WithFields(logrus.Fields{
			"recommendation_id": event.RecommendationID,
			"part_number":       event.PartNumber,
			"urgency":           event.Urgency,
		}).Info("recommendation created")
	})

	engine := recommend.NewEngine(
		repo,
		demand.NewAnalyzer(cfg.Demand, logger),
		reorder.NewCalculator(cfg.Reorder, logger),
		supplier.NewEvaluator(cfg.Supplier, logger),
		recommend.NewSynthesizer(cfg.Urgency, cfg.Reorder, cfg.Narrative, explainer, logger),
		bus,
		cfg.Batch,
		logger,
	)

	var handler http.Handler = newHandler(engine, repo, logger)
	if raw := os.Getenv("REPLENISH_API_TOKENS"); raw != "" {
		middleware := auth.NewMiddleware(logger, auth.ParseTokenRegistry(raw),
			auth.WithAllowUnauthenticated("/healthz"))
		handler = middleware.Wrap(handler)
		logger.Info("bearer token authentication enabled")
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.WithField("port", port).Info("starting replenishment decision server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("http server failed")
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.WithField("signal", sig).Info("received shutdown signal")
	case <-ctx.Done():
		logger.Info("context cancelled")
	}

	logger.Info("shutting down replenishment decision server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}
