package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func feedBody(count, citationsEach int) string {
	pubs := ""
	for i := 0; i < count; i++ {
		if i > 0 {
			pubs += ","
		}
		pubs += fmt.Sprintf(`{"title": "paper %d", "citation_count": %d}`, i, citationsEach)
	}
	return fmt.Sprintf(`{"count": %d, "publications": [%s]}`, count, pubs)
}

func newTestAggregator(t *testing.T, startYear int) *Aggregator {
	t.Helper()
	loader := newTestLoader(t, 2026)
	agg := NewAggregator(loader, startYear, time.Millisecond, zap.NewNop())
	agg.now = loader.now
	return agg
}

func TestRunWalksAllYearsDescending(t *testing.T) {
	agg := newTestAggregator(t, 2023)
	httpmock.RegisterResponder("GET", loaderBase+"/api/publications?year=2026&limit=200",
		httpmock.NewStringResponder(200, feedBody(3, 2)))
	for year := 2023; year <= 2025; year++ {
		httpmock.RegisterResponder("GET",
			fmt.Sprintf("%s/static/data/publications-%d.json", loaderBase, year),
			httpmock.NewStringResponder(200, feedBody(1, 5)))
	}

	agg.Run(context.Background())

	snap := agg.Snapshot()
	require.Len(t, snap.Years, 4)
	assert.Equal(t, 6, snap.TotalPublications)
	assert.Equal(t, 21, snap.TotalCitations)
	assert.Equal(t, SourceAPI, snap.Years[2026].Source)
	assert.Equal(t, SourceStatic, snap.Years[2024].Source)
	assert.False(t, snap.Running)
	assert.NotEmpty(t, snap.LastRun)
}

func TestRunFailedYearDoesNotHaltWalk(t *testing.T) {
	agg := newTestAggregator(t, 2024)
	httpmock.RegisterResponder("GET", loaderBase+"/api/publications?year=2026&limit=200",
		httpmock.NewStringResponder(200, feedBody(2, 1)))
	// 2025 has no responder: transport failure, year stays empty.
	httpmock.RegisterResponder("GET", loaderBase+"/static/data/publications-2024.json",
		httpmock.NewStringResponder(200, feedBody(4, 3)))

	agg.Run(context.Background())

	snap := agg.Snapshot()
	require.Len(t, snap.Years, 3)
	assert.Equal(t, SourceError, snap.Years[2025].Source)
	assert.Equal(t, 0, snap.Years[2025].Total)
	assert.Equal(t, 6, snap.TotalPublications)
	assert.Equal(t, 14, snap.TotalCitations)
}

func TestRunCanceledContextStopsWalk(t *testing.T) {
	agg := newTestAggregator(t, 2000)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	agg.Run(ctx)

	snap := agg.Snapshot()
	assert.Empty(t, snap.Years)
}

func TestConcurrentRunsCoalesce(t *testing.T) {
	agg := newTestAggregator(t, 2025)
	httpmock.RegisterResponder("GET", loaderBase+"/api/publications?year=2026&limit=200",
		httpmock.NewStringResponder(200, feedBody(1, 0)))
	httpmock.RegisterResponder("GET", loaderBase+"/static/data/publications-2025.json",
		httpmock.NewStringResponder(200, feedBody(1, 0)))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			agg.Run(context.Background())
		}()
	}
	wg.Wait()

	// At most one pass ran to completion alongside any coalesced no-ops; the
	// calls per endpoint cannot exceed the number of full passes possible.
	info := httpmock.GetCallCountInfo()
	total := 0
	for _, n := range info {
		total += n
	}
	assert.LessOrEqual(t, total, 8)

	snap := agg.Snapshot()
	assert.Len(t, snap.Years, 2)
	assert.Equal(t, 2, snap.TotalPublications)
}
