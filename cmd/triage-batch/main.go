// triage-batch processes a directory of telemetry files in one shot and
// prints per-record reports. Useful for offline runs without the server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/robomaint/triage/internal/config"
	"github.com/robomaint/triage/internal/model"
	"github.com/robomaint/triage/internal/normalize"
	"github.com/robomaint/triage/internal/oracle"
	"github.com/robomaint/triage/internal/pipeline"
	"github.com/robomaint/triage/internal/quality"
	"github.com/robomaint/triage/internal/similarity"
	"github.com/robomaint/triage/internal/store"
	"github.com/robomaint/triage/internal/triage"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	dataDir := flag.String("data", "", "directory of input files (overrides config)")
	skipModel := flag.Bool("skip-ai", false, "score heuristically, skip the analysis model")
	reports := flag.Bool("reports", false, "print a markdown report per record")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}

	var gen oracle.TextGenerator
	if !*skipModel {
		if g, err := oracle.NewAnthropicGeneratorFromEnv(cfg.OracleModel); err != nil {
			logger.WithError(err).Warn("analysis model unavailable, heuristic scoring only")
		} else {
			gen = g
		}
	}
	client := oracle.NewClient(gen, cfg.OracleCacheSize, logger)

	repo := store.NewMemory()
	normalizer := normalize.New(normalize.Config{VibrationForceScale: cfg.VibrationForceScale})
	engine := similarity.New(cfg.SimilarityThreshold, cfg.SimilarityLimit)
	scorer := triage.NewScorer(client, logger)
	pipe := pipeline.New(normalizer, repo, engine, scorer, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	results, err := pipe.ProcessDirectory(cfg.DataDir)
	if err != nil {
		log.Fatal(err)
	}
	for _, fr := range results {
		if fr.Status == "success" {
			fmt.Printf("%-40s %4d events\n", fr.Filename, fr.Events)
		} else {
			fmt.Printf("%-40s FAILED: %s\n", fr.Filename, fr.Error)
		}
	}

	scored, err := pipe.ScoreAll(ctx, *skipModel)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("\nscored %d records\n", scored)

	all := repo.All()
	flat := make([]model.Record, len(all))
	for i, rec := range all {
		flat[i] = *rec
	}
	q := quality.Assess(flat, cfg.QualityTarget)
	d := quality.Deduplication(flat)
	fmt.Printf("quality: %.1f%% overall (%d/%d valid), target met: %v\n",
		q.OverallScore, q.ValidRecords, q.TotalRecords, q.MeetsTarget)
	fmt.Printf("dedup: %d groups over %d records, %.1f%% duplication\n",
		d.UniqueGroups, d.TotalRecords, d.DuplicationRate)

	if *reports {
		for _, rec := range all {
			fmt.Println("\n---")
			fmt.Print(triage.BuildReportMarkdown(rec))
		}
	}
}
