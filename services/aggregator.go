package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Aggregator walks the year range current..startYear descending, loading one
// summary per year strictly sequentially with a pacing delay between
// requests. Grand totals are computed over whatever years have resolved so
// far, so a snapshot taken mid-run is valid but partial.
type Aggregator struct {
	loader    *YearLoader
	startYear int
	limiter   *rate.Limiter
	log       *zap.Logger
	now       func() time.Time

	mu      sync.Mutex
	years   map[int]YearResult
	running bool
	lastRun time.Time
}

// NewAggregator creates an aggregator pacing one year load per delay.
func NewAggregator(loader *YearLoader, startYear int, delay time.Duration, logger *zap.Logger) *Aggregator {
	if delay <= 0 {
		delay = 50 * time.Millisecond
	}
	return &Aggregator{
		loader:    loader,
		startYear: startYear,
		limiter:   rate.NewLimiter(rate.Every(delay), 1),
		log:       logger,
		now:       time.Now,
		years:     make(map[int]YearResult),
	}
}

// Run performs one full descending pass. A year's failure leaves that year's
// summary empty and does not halt the walk. Context cancellation stops the
// walk and suppresses further state writes; it does not abort a request
// already in flight. Concurrent calls are coalesced into the running pass.
func (a *Aggregator) Run(ctx context.Context) {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return
	}
	a.running = true
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.running = false
		a.lastRun = a.now().UTC()
		a.mu.Unlock()
	}()

	current := a.now().UTC().Year()
	a.log.Info("starting publication summary pass",
		zap.Int("from", current), zap.Int("to", a.startYear))

	for year := current; year >= a.startYear; year-- {
		if err := a.limiter.Wait(ctx); err != nil {
			a.log.Info("summary pass canceled", zap.Int("year", year))
			return
		}
		res := a.loader.Load(ctx, year)
		select {
		case <-ctx.Done():
			return
		default:
		}
		a.mu.Lock()
		a.years[year] = res
		a.mu.Unlock()
	}
	a.log.Info("publication summary pass complete")
}

// SummarySnapshot is the aggregate view exposed over the API.
type SummarySnapshot struct {
	Years             map[int]YearResult `json:"years"`
	TotalPublications int                `json:"total_publications"`
	TotalCitations    int                `json:"total_citations"`
	Running           bool               `json:"running"`
	LastRun           string             `json:"last_run,omitempty"`
}

// Snapshot returns a copy of the currently resolved years and their totals.
func (a *Aggregator) Snapshot() SummarySnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := SummarySnapshot{
		Years:   make(map[int]YearResult, len(a.years)),
		Running: a.running,
	}
	if !a.lastRun.IsZero() {
		snap.LastRun = a.lastRun.Format(time.RFC3339)
	}
	for year, res := range a.years {
		snap.Years[year] = res
		snap.TotalPublications += res.Total
		snap.TotalCitations += res.Citations
	}
	return snap
}
