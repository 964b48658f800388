package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every runtime parameter, loaded from environment variables.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort string `envconfig:"HTTP_PORT" default:"8080"`

	// Directory the static site (and static/data snapshots) is served from.
	StaticDir string `envconfig:"STATIC_DIR" default:"public"`
	// Optional URL prefix the site is mounted under (e.g. "/lattice").
	BasePath string `envconfig:"BASE_PATH" default:""`
	// Base URL the year loader resolves feed paths against.
	SiteBaseURL string `envconfig:"SITE_BASE_URL" default:"http://localhost:8080"`

	ArxivBaseURL   string `envconfig:"ARXIV_BASE_URL" default:"https://export.arxiv.org/api/query"`
	InspireBaseURL string `envconfig:"INSPIRE_BASE_URL" default:"https://inspirehep.net/api/literature"`

	// Harvest politeness and sizing.
	HarvestCron       string  `envconfig:"HARVEST_CRON" default:"0 3 * * *"`
	PerAuthorMax      int     `envconfig:"PER_AUTHOR_MAX" default:"1000"`
	AuthorDelaySec    float64 `envconfig:"AUTHOR_DELAY_SEC" default:"0.3"`
	InspireBatchSize  int     `envconfig:"INSPIRE_BATCH_SIZE" default:"20"`
	InspireBatchDelay float64 `envconfig:"INSPIRE_BATCH_DELAY_SEC" default:"1.0"`
	TopN              int     `envconfig:"TOP_N" default:"5"`

	// Publication summary aggregation.
	SummaryStartYear int `envconfig:"SUMMARY_START_YEAR" default:"2001"`
	SummaryDelayMs   int `envconfig:"SUMMARY_DELAY_MS" default:"50"`
	LiveFeedLimit    int `envconfig:"LIVE_FEED_LIMIT" default:"200"`

	// Carousel presenter.
	CarouselIntervalSec int `envconfig:"CAROUSEL_INTERVAL_SEC" default:"6"`
	CaptionWordBudget   int `envconfig:"CAPTION_WORD_BUDGET" default:"100"`

	APISecretKey string `envconfig:"API_SECRET_KEY"`

	// Optional S3 mirror for the JSON snapshot files.
	S3Enabled bool   `envconfig:"S3_ENABLED" default:"false"`
	S3Key     string `envconfig:"S3_KEY"`
	S3Secret  string `envconfig:"S3_SECRET"`
	S3URL     string `envconfig:"S3_URL"`
	S3Region  string `envconfig:"S3_REGION"`
	S3Bucket  string `envconfig:"S3_BUCKET"`
}

// DSN returns the data source name for the PostgreSQL connection.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// Load reads the configuration from the environment (and .env, if present).
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
