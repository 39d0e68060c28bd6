package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/robomaint/triage/internal/config"
	"github.com/robomaint/triage/internal/httpapi"
	"github.com/robomaint/triage/internal/normalize"
	"github.com/robomaint/triage/internal/oracle"
	"github.com/robomaint/triage/internal/pipeline"
	"github.com/robomaint/triage/internal/similarity"
	"github.com/robomaint/triage/internal/store"
	"github.com/robomaint/triage/internal/triage"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	addrFlag := flag.String("addr", "", "listen address (overrides config)")
	dbFlag := flag.String("db", "", "path to SQLite database file (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *addrFlag != "" {
		cfg.ListenAddr = *addrFlag
	}
	if *dbFlag != "" {
		cfg.DBPath = *dbFlag
	}

	logger := newLogger(cfg.LogLevel)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("create data dir %s: %v", cfg.DataDir, err)
	}

	var repo store.Repository
	if cfg.DBPath != "" {
		ss, err := store.NewSQLite(cfg.DBPath)
		if err != nil {
			log.Fatalf("failed to initialize sqlite store (%s): %v", cfg.DBPath, err)
		}
		defer ss.Close()
		repo = ss
		logger.WithField("path", cfg.DBPath).Info("using sqlite store")
	} else {
		repo = store.NewMemory()
		logger.Info("using in-memory store")
	}

	var gen oracle.TextGenerator
	if g, err := oracle.NewAnthropicGeneratorFromEnv(cfg.OracleModel); err != nil {
		logger.WithError(err).Warn("analysis model unavailable, heuristic scoring only")
	} else {
		gen = g
	}
	client := oracle.NewClient(gen, cfg.OracleCacheSize, logger)

	normalizer := normalize.New(normalize.Config{VibrationForceScale: cfg.VibrationForceScale})
	engine := similarity.New(cfg.SimilarityThreshold, cfg.SimilarityLimit)
	scorer := triage.NewScorer(client, logger)
	pipe := pipeline.New(normalizer, repo, engine, scorer, logger)

	handler := httpapi.NewServer(httpapi.Deps{
		Repo:          repo,
		Pipeline:      pipe,
		Similar:       engine,
		Scorer:        scorer,
		Oracle:        client,
		DataDir:       cfg.DataDir,
		QualityTarget: cfg.QualityTarget,
		Log:           logger,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.WithField("addr", cfg.ListenAddr).Info("triage server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

func newLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}
