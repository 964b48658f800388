package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"lattice-site/feeds"
	"lattice-site/models"
)

// Source tags describe where a year's records came from.
const (
	SourceAPI    = "api"    // live feed, current year only
	SourceStatic = "static" // per-year archive snapshot
	SourceNone   = "none"   // fetch attempted, resource absent
	SourceError  = "error"  // transport failure on the archive path
)

// YearResult is a classified year summary plus load metadata.
type YearResult struct {
	models.YearSummary
	Generated string `json:"generated,omitempty"`
	Source    string `json:"source"`
}

// YearLoader produces the summary for a single year, preferring the live
// feed for the current year and falling back to the static archive.
// Exactly one fallback hop, no retries.
type YearLoader struct {
	feeds *feeds.Client
	limit int
	log   *zap.Logger
	now   func() time.Time
}

// NewYearLoader creates a loader. limit caps the live-feed request size.
func NewYearLoader(client *feeds.Client, limit int, logger *zap.Logger) *YearLoader {
	return &YearLoader{feeds: client, limit: limit, log: logger, now: time.Now}
}

// Load fetches and classifies one year. It never returns an error; failures
// degrade to an empty summary with the matching source tag.
func (l *YearLoader) Load(ctx context.Context, year int) YearResult {
	if year == l.now().UTC().Year() {
		var feed models.Feed
		found, err := l.feeds.GetJSON(ctx, fmt.Sprintf("api/publications?year=%d&limit=%d", year, l.limit), &feed)
		if err == nil && found {
			return l.result(year, &feed, SourceAPI)
		}
		l.log.Warn("live feed unavailable, falling back to archive",
			zap.Int("year", year), zap.Error(err))
	}

	var feed models.Feed
	found, err := l.feeds.GetJSON(ctx, fmt.Sprintf("static/data/publications-%d.json", year), &feed)
	switch {
	case err != nil:
		l.log.Warn("archive fetch failed", zap.Int("year", year), zap.Error(err))
		return l.empty(year, SourceError)
	case !found:
		return l.empty(year, SourceNone)
	}
	return l.result(year, &feed, SourceStatic)
}

func (l *YearLoader) result(year int, feed *models.Feed, source string) YearResult {
	generated := feed.Generated
	if generated == "" {
		generated = l.now().UTC().Format(time.RFC3339)
	}
	return YearResult{
		YearSummary: Classify(year, feed.Publications),
		Generated:   generated,
		Source:      source,
	}
}

func (l *YearLoader) empty(year int, source string) YearResult {
	return YearResult{YearSummary: EmptySummary(year), Source: source}
}
