package main

import (
	"context"
	"flag"
	"log"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"lattice-site/config"
	"lattice-site/models"
	"lattice-site/providers"
	"lattice-site/providers/arxiv"
	"lattice-site/providers/inspire"
	"lattice-site/services"
	"lattice-site/storage"
)

// One-shot harvest run, for cron-outside-the-server setups and backfills.
func main() {
	startYear := flag.Int("start-year", 0, "override SUMMARY_START_YEAR for this run")
	topN := flag.Int("top-n", 0, "override TOP_N for this run")
	noInspire := flag.Bool("no-inspire", false, "skip INSPIRE enrichment")
	flag.Parse()

	log.Println("Starting harvest run...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config load error: %v", err)
	}
	if *startYear > 0 {
		cfg.SummaryStartYear = *startYear
	}
	if *topN > 0 {
		cfg.TopN = *topN
	}
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	db.AutoMigrate(&models.Paper{}, &models.InspireLookup{})

	harvest := services.NewHarvestService(cfg, db, nil, logging,
		[]providers.Provider{arxiv.NewFetcher(cfg, logging)},
		inspire.NewFetcher(cfg, logging))
	if *noInspire {
		harvest.Inspire = nil
	}
	if cfg.S3Enabled {
		client, err := storage.NewS3Client(cfg)
		if err != nil {
			log.Fatalf("S3 client creation failed: %v", err)
		}
		harvest.S3Client = client
	}

	count, err := harvest.Run(context.Background())
	if err != nil {
		log.Fatalf("Harvest failed: %v", err)
	}
	log.Printf("Harvest complete: %d new publications", count)
}
