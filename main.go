package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"lattice-site/config"
	"lattice-site/feeds"
	"lattice-site/models"
	"lattice-site/providers"
	"lattice-site/providers/arxiv"
	"lattice-site/providers/inspire"
	"lattice-site/services"
	"lattice-site/storage"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var newPublicationsCounter prometheus.Counter

func init() {
	newPublicationsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "new_publications_harvested_total",
			Help: "Total number of new publications added by harvest runs.",
		},
	)
	prometheus.MustRegister(newPublicationsCounter)
}

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to publications database.")

	logging.Info("Running database auto-migration...")
	db.AutoMigrate(&models.Paper{}, &models.InspireLookup{})

	// Providers and enrichment
	enabledProviders := []providers.Provider{arxiv.NewFetcher(cfg, logging)}
	inspireFetcher := inspire.NewFetcher(cfg, logging)

	harvestService := services.NewHarvestService(cfg, db, nil, logging, enabledProviders, inspireFetcher)
	if cfg.S3Enabled {
		client, err := storage.NewS3Client(cfg)
		if err != nil {
			logging.Fatal("S3 client creation failed", zap.Error(err))
		}
		harvestService.S3Client = client
	}

	// Year summary pipeline
	feedClient := feeds.NewClient(cfg.SiteBaseURL, cfg.BasePath, nil, logging)
	yearLoader := services.NewYearLoader(feedClient, cfg.LiveFeedLimit, logging)
	aggregator := services.NewAggregator(yearLoader, cfg.SummaryStartYear,
		time.Duration(cfg.SummaryDelayMs)*time.Millisecond, logging)

	// Carousel
	carousel := services.NewCarousel(cfg.BasePath,
		time.Duration(cfg.CarouselIntervalSec)*time.Second, cfg.CaptionWordBudget, logging)
	figures := services.LoadFigureFiles(
		filepath.Join(cfg.StaticDir, "static", "data", "figures.json"),
		filepath.Join(cfg.StaticDir, "static", "data", "doe-science.json"),
	)
	if len(figures) == 0 {
		logging.Warn("No figures loaded; carousel enters error state")
		carousel.Fail()
	} else {
		carousel.SetItems(figures)
	}
	carousel.Start(context.Background())

	feedCache := gocache.New(time.Minute, 5*time.Minute)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	setupPublicationRoutes(router, db, cfg, feedCache, logging)
	setupSummaryRoutes(router, aggregator, yearLoader)
	setupCarouselRoutes(router, carousel)
	setupSiteDataRoutes(router, cfg, logging)
	setupHarvestRoutes(router, harvestService, aggregator, cfg)
	setupStaticSite(router, cfg)

	// Scheduled harvest plus summary refresh
	cronScheduler := cron.New()
	cronScheduler.AddFunc(cfg.HarvestCron, func() {
		logging.Info("Running scheduled harvest job...")
		count, err := harvestService.Run(context.Background())
		if err != nil {
			logging.Error("Harvest job failed", zap.Error(err))
		} else {
			logging.Info("Harvest job completed", zap.Int("new_publications", count))
			newPublicationsCounter.Add(float64(count))
		}
		aggregator.Run(context.Background())
	})
	cronScheduler.Start()

	// Initial summary pass once the listener is up.
	go func() {
		time.Sleep(2 * time.Second)
		aggregator.Run(context.Background())
	}()

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

func setupPublicationRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, feedCache *gocache.Cache, log *zap.Logger) {
	rg := router.Group("/api/publications")

	// Live feed in the snapshot envelope shape, served from the harvest store.
	rg.GET("", func(c *gin.Context) {
		year := time.Now().UTC().Year()
		if v := c.Query("year"); v != "" {
			y, err := strconv.Atoi(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
				return
			}
			year = y
		}
		limit := cfg.LiveFeedLimit
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
				return
			}
			if n < limit {
				limit = n
			}
		}

		cacheKey := "publications:" + strconv.Itoa(year) + ":" + strconv.Itoa(limit)
		if cached, ok := feedCache.Get(cacheKey); ok {
			c.JSON(http.StatusOK, cached)
			return
		}

		var papers []models.Paper
		if err := db.Where("year = ?", year).Order("published desc").Limit(limit).Find(&papers).Error; err != nil {
			log.Error("Database query for publications failed", zap.Int("year", year), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}

		feed := models.Feed{
			Generated:    time.Now().UTC().Format(time.RFC3339),
			Count:        len(papers),
			Publications: make([]models.Publication, 0, len(papers)),
		}
		for i := range papers {
			feed.Publications = append(feed.Publications, papers[i].Record())
		}

		feedCache.Set(cacheKey, feed, gocache.DefaultExpiration)
		c.JSON(http.StatusOK, feed)
	})
}

func setupSummaryRoutes(router *gin.Engine, aggregator *services.Aggregator, loader *services.YearLoader) {
	rg := router.Group("/api/summary")

	rg.GET("", func(c *gin.Context) {
		c.JSON(http.StatusOK, aggregator.Snapshot())
	})

	rg.GET("/:year", func(c *gin.Context) {
		year, err := strconv.Atoi(c.Param("year"))
		if err != nil || year < 1900 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
			return
		}
		c.JSON(http.StatusOK, loader.Load(c.Request.Context(), year))
	})
}

func setupCarouselRoutes(router *gin.Engine, carousel *services.Carousel) {
	rg := router.Group("/api/carousel")

	rg.GET("", func(c *gin.Context) {
		c.JSON(http.StatusOK, carousel.View())
	})

	rg.POST("/jump/:position", func(c *gin.Context) {
		position, err := strconv.Atoi(c.Param("position"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid position"})
			return
		}
		if err := carousel.Jump(position); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, carousel.View())
	})

	// The page reports an image load failure so the slide advances to its
	// next candidate path.
	rg.POST("/image-error/:position", func(c *gin.Context) {
		position, err := strconv.Atoi(c.Param("position"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid position"})
			return
		}
		carousel.ReportImageError(position)
		c.JSON(http.StatusOK, carousel.View())
	})
}

func setupSiteDataRoutes(router *gin.Engine, cfg *config.Config, log *zap.Logger) {
	dataDir := filepath.Join(cfg.StaticDir, "static", "data")
	rg := router.Group("/api")

	rg.GET("/members", func(c *gin.Context) {
		members, err := services.LoadMembers(filepath.Join(dataDir, "members.json"))
		if err != nil {
			log.Warn("members document unavailable", zap.Error(err))
			c.JSON(http.StatusOK, []models.Member{})
			return
		}
		c.JSON(http.StatusOK, members)
	})

	rg.GET("/committees", func(c *gin.Context) {
		var committees models.Committees
		serveJSONFile(c, log, filepath.Join(dataDir, "committees.json"), &committees)
	})

	rg.GET("/meetings/all-hands", func(c *gin.Context) {
		var meetings models.AllHandsMeetings
		serveJSONFile(c, log, filepath.Join(dataDir, "all-hands.json"), &meetings)
	})

	rg.GET("/meetings/lattice-conferences", func(c *gin.Context) {
		var conferences models.LatticeConferences
		serveJSONFile(c, log, filepath.Join(dataDir, "lattice-conf.json"), &conferences)
	})

	rg.GET("/figures", func(c *gin.Context) {
		figures := services.LoadFigureFiles(
			filepath.Join(dataDir, "figures.json"),
			filepath.Join(dataDir, "doe-science.json"),
		)
		c.JSON(http.StatusOK, figures)
	})
}

// serveJSONFile renders a static data document, degrading to an empty body
// of the expected shape when the file is missing or malformed.
func serveJSONFile(c *gin.Context, log *zap.Logger, path string, v any) {
	data, err := os.ReadFile(path)
	if err == nil {
		err = json.Unmarshal(data, v)
	}
	if err != nil {
		log.Warn("static data document unavailable", zap.String("path", path), zap.Error(err))
	}
	c.JSON(http.StatusOK, v)
}

func setupHarvestRoutes(router *gin.Engine, harvest *services.HarvestService, aggregator *services.Aggregator, cfg *config.Config) {
	rg := router.Group("/api/harvest")
	rg.Use(apiKeyAuthMiddleware(cfg))

	rg.POST("", func(c *gin.Context) {
		go func() {
			count, err := harvest.Run(context.Background())
			if err != nil {
				harvest.Logger.Error("Async harvest failed", zap.Error(err))
			} else {
				newPublicationsCounter.Add(float64(count))
				harvest.Logger.Info("Async harvest completed", zap.Int("new_publications", count))
			}
			aggregator.Run(context.Background())
		}()
		c.JSON(http.StatusAccepted, gin.H{"message": "Harvest triggered."})
	})
}

func setupStaticSite(router *gin.Engine, cfg *config.Config) {
	router.Static("/static", filepath.Join(cfg.StaticDir, "static"))

	index := filepath.Join(cfg.StaticDir, "index.html")
	router.NoRoute(func(c *gin.Context) {
		if _, err := os.Stat(index); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		// Single-page app: unknown paths fall through to the index.
		c.File(index)
	})
}
