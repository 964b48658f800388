package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lattice-site/config"
	"lattice-site/models"
	"lattice-site/providers"
	"lattice-site/providers/inspire"
	"lattice-site/storage"
)

// HarvestService orchestrates the full publication refresh: member-name
// searches against the enabled providers, INSPIRE enrichment, Postgres
// persistence and the JSON snapshot files the site serves.
type HarvestService struct {
	Config    *config.Config
	DB        *gorm.DB
	S3Client  *s3.Client // nil when mirroring is disabled
	Logger    *zap.Logger
	Providers []providers.Provider
	Inspire   *inspire.Fetcher
}

// NewHarvestService creates a harvest service.
func NewHarvestService(cfg *config.Config, db *gorm.DB, s3Client *s3.Client, logger *zap.Logger, provs []providers.Provider, insp *inspire.Fetcher) *HarvestService {
	return &HarvestService{
		Config:    cfg,
		DB:        db,
		S3Client:  s3Client,
		Logger:    logger,
		Providers: provs,
		Inspire:   insp,
	}
}

// Run executes one harvest pass over every member and rewrites all snapshots
// for the configured year range. It returns the number of publications not
// previously stored.
func (h *HarvestService) Run(ctx context.Context) (int, error) {
	members, err := LoadMembers(h.membersPath())
	if err != nil {
		h.Logger.Error("could not load members", zap.Error(err))
		return 0, err
	}
	names := MemberNames(members)
	h.Logger.Info("starting harvest", zap.Int("members", len(names)))

	buckets, err := h.collect(ctx, names)
	if err != nil {
		return 0, err
	}

	if err := h.enrich(ctx, buckets); err != nil {
		// Enrichment failure degrades to unenriched records; the snapshots
		// are still written.
		h.Logger.Warn("inspire enrichment incomplete", zap.Error(err))
	}

	newCount, err := h.persist(buckets)
	if err != nil {
		return newCount, err
	}

	if err := h.writeSnapshots(buckets); err != nil {
		return newCount, err
	}

	h.Logger.Info("harvest complete", zap.Int("new_publications", newCount))
	return newCount, nil
}

func (h *HarvestService) membersPath() string {
	return filepath.Join(h.Config.StaticDir, "static", "data", "members.json")
}

func (h *HarvestService) snapshotDir() string {
	return filepath.Join(h.Config.StaticDir, "static", "data")
}

// collect queries every provider for every member name, keeps hep-lat
// entries, deduplicates by arXiv id and buckets by publication year.
// A failing author query is logged and skipped, never fatal.
func (h *HarvestService) collect(ctx context.Context, names []string) (map[int][]models.Publication, error) {
	seen := make(map[string]struct{})
	buckets := make(map[int][]models.Publication)
	currentYear := time.Now().UTC().Year()

	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log := h.Logger.With(zap.String("author", name))
		for _, provider := range h.Providers {
			recs, err := provider.SearchAuthor(ctx, name, h.Config.PerAuthorMax)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return nil, err
				}
				log.Error("author query failed", zap.String("provider", provider.Name()), zap.Error(err))
				continue
			}
			added := 0
			for _, rec := range recs {
				if rec.ID == "" || !hasHepLat(rec.Categories) {
					continue
				}
				if _, dup := seen[rec.ID]; dup {
					continue
				}
				seen[rec.ID] = struct{}{}
				year := publicationYear(rec.Published, currentYear)
				buckets[year] = append(buckets[year], rec)
				added++
			}
			log.Debug("author query done",
				zap.String("provider", provider.Name()),
				zap.Int("found", len(recs)), zap.Int("added", added))
		}
		if (i+1)%25 == 0 {
			h.Logger.Info("harvest progress", zap.Int("authors_done", i+1), zap.Int("total", len(names)))
		}
	}
	return buckets, nil
}

func hasHepLat(categories []string) bool {
	for _, c := range categories {
		if strings.Contains(strings.ToLower(c), "hep-lat") {
			return true
		}
	}
	return false
}

// publicationYear reads the year from an Atom timestamp prefix; unparsable
// dates fall back to the current year.
func publicationYear(published string, fallback int) int {
	if len(published) >= 4 {
		if y, err := strconv.Atoi(published[:4]); err == nil {
			return y
		}
	}
	return fallback
}

// enrich attaches INSPIRE metadata to every bucketed record, going through
// the Postgres lookup cache and batch-querying only uncached ids. Misses
// are cached as empty so they are not re-queried every run.
func (h *HarvestService) enrich(ctx context.Context, buckets map[int][]models.Publication) error {
	if h.Inspire == nil {
		return nil
	}
	var allIDs []string
	for _, recs := range buckets {
		for _, rec := range recs {
			allIDs = append(allIDs, inspire.NormalizeArxivID(rec.ID))
		}
	}
	if len(allIDs) == 0 {
		return nil
	}

	cache := make(map[string]*models.InspireInfo, len(allIDs))
	var cached []models.InspireLookup
	if err := h.DB.Where("arxiv_id IN ?", allIDs).Find(&cached).Error; err != nil {
		return err
	}
	for i := range cached {
		l := &cached[i]
		if !l.Hit() {
			cache[l.ArxivID] = nil
			continue
		}
		var info models.InspireInfo
		if err := json.Unmarshal(l.Info, &info); err == nil {
			cache[l.ArxivID] = &info
		} else {
			cache[l.ArxivID] = nil
		}
	}

	var missing []string
	seen := make(map[string]struct{}, len(allIDs))
	for _, id := range allIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := cache[id]; !ok {
			missing = append(missing, id)
		}
	}
	h.Logger.Info("inspire enrichment",
		zap.Int("records", len(allIDs)), zap.Int("uncached", len(missing)))

	batchSize := h.Config.InspireBatchSize
	if batchSize < 1 {
		batchSize = 20
	}
	var lastErr error
	for start := 0; start < len(missing); start += batchSize {
		end := start + batchSize
		if end > len(missing) {
			end = len(missing)
		}
		batch := missing[start:end]
		mapping, err := h.Inspire.LookupBatch(ctx, batch)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			h.Logger.Warn("inspire batch failed", zap.Int("offset", start), zap.Error(err))
			lastErr = err
			continue
		}
		for _, id := range batch {
			info := mapping[id]
			cache[id] = info
			if err := h.storeLookup(id, info); err != nil {
				h.Logger.Warn("could not cache inspire lookup", zap.String("arxiv_id", id), zap.Error(err))
			}
		}
	}

	for year, recs := range buckets {
		for i := range recs {
			if info := cache[inspire.NormalizeArxivID(recs[i].ID)]; info != nil {
				recs[i].Inspire = info
			}
		}
		buckets[year] = recs
	}
	return lastErr
}

func (h *HarvestService) storeLookup(arxivID string, info *models.InspireInfo) error {
	row := models.InspireLookup{ArxivID: arxivID, Info: []byte("{}")}
	if info != nil {
		data, err := json.Marshal(info)
		if err != nil {
			return err
		}
		row.Info = data
	}
	return h.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "arxiv_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"info", "updated_at"}),
	}).Create(&row).Error
}

// persist upserts every harvested record, counting those not seen before.
func (h *HarvestService) persist(buckets map[int][]models.Publication) (int, error) {
	newCount := 0
	for year, recs := range buckets {
		for i := range recs {
			rec := &recs[i]
			paper, err := models.NewPaper(rec, year)
			if err != nil {
				h.Logger.Warn("unstorable record", zap.String("arxiv_id", rec.ID), zap.Error(err))
				continue
			}
			var existing models.Paper
			err = h.DB.Where("arxiv_id = ?", paper.ArxivID).First(&existing).Error
			isNew := errors.Is(err, gorm.ErrRecordNotFound)
			if err != nil && !isNew {
				return newCount, err
			}
			if err := h.DB.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "arxiv_id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"title", "summary", "authors", "categories", "pdf", "link",
					"published", "year", "journal_ref", "inspire", "updated_at",
				}),
			}).Create(paper).Error; err != nil {
				return newCount, err
			}
			if isNew {
				newCount++
			}
		}
	}
	return newCount, nil
}

// writeSnapshots rewrites publications-<year>.json for every year from the
// configured start through the current year, plus the top-N overall file.
func (h *HarvestService) writeSnapshots(buckets map[int][]models.Publication) error {
	if err := os.MkdirAll(h.snapshotDir(), 0o755); err != nil {
		return err
	}
	generated := time.Now().UTC().Format(time.RFC3339)
	currentYear := time.Now().UTC().Year()

	var all []models.Publication
	for year := currentYear; year >= h.Config.SummaryStartYear; year-- {
		recs := buckets[year]
		sort.Slice(recs, func(i, j int) bool { return recs[i].Published > recs[j].Published })
		feed := models.Feed{Generated: generated, Count: len(recs), Publications: recs}
		if recs == nil {
			feed.Publications = []models.Publication{}
		}
		name := fmt.Sprintf("publications-%d.json", year)
		if err := h.writeSnapshot(name, &feed); err != nil {
			return err
		}
		all = append(all, recs...)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Published > all[j].Published })
	topN := h.Config.TopN
	if topN > len(all) {
		topN = len(all)
	}
	top := models.Feed{Generated: generated, Count: len(all), Publications: all[:topN]}
	return h.writeSnapshot("publications.json", &top)
}

func (h *HarvestService) writeSnapshot(name string, feed *models.Feed) error {
	data, err := json.MarshalIndent(feed, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(h.snapshotDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	h.Logger.Info("wrote snapshot", zap.String("file", name), zap.Int("count", feed.Count))

	if h.S3Client != nil && h.Config.S3Enabled {
		key := "static/data/" + name
		if _, err := storage.UploadSnapshot(h.S3Client, h.Config.S3Bucket, key, data, h.Config); err != nil {
			// Mirroring is best effort; the local snapshot is authoritative.
			h.Logger.Warn("snapshot mirror failed", zap.String("key", key), zap.Error(err))
		}
	}
	return nil
}
