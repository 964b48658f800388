package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lattice-site/feeds"
)

const loaderBase = "https://collab.example.org"

func newTestLoader(t *testing.T, nowYear int) *YearLoader {
	t.Helper()
	hc := &http.Client{}
	httpmock.ActivateNonDefault(hc)
	t.Cleanup(httpmock.DeactivateAndReset)

	client := feeds.NewClient(loaderBase, "", hc, zap.NewNop())
	loader := NewYearLoader(client, 200, zap.NewNop())
	loader.now = func() time.Time {
		return time.Date(nowYear, time.May, 1, 12, 0, 0, 0, time.UTC)
	}
	return loader
}

func TestLoadCurrentYearPrefersLiveFeed(t *testing.T) {
	loader := newTestLoader(t, 2026)
	httpmock.RegisterResponder("GET", loaderBase+"/api/publications?year=2026&limit=200",
		httpmock.NewStringResponder(200, `{
			"generated": "2026-05-01T00:00:00Z",
			"count": 1,
			"publications": [
				{"title": "Glueball spectrum", "journal_ref": "Phys. Rev. Lett. 136, 011901", "citation_count": 4}
			]
		}`))

	res := loader.Load(context.Background(), 2026)

	assert.Equal(t, SourceAPI, res.Source)
	assert.Equal(t, "2026-05-01T00:00:00Z", res.Generated)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, 4, res.Citations)
	assert.Equal(t, 1, res.Buckets["PRL"])

	info := httpmock.GetCallCountInfo()
	assert.Zero(t, info["GET "+loaderBase+"/static/data/publications-2026.json"],
		"archive must not be touched when the live feed answers")
}

func TestLoadCurrentYearFallsBackToArchive(t *testing.T) {
	loader := newTestLoader(t, 2026)
	httpmock.RegisterResponder("GET", loaderBase+"/api/publications?year=2026&limit=200",
		httpmock.NewStringResponder(503, "down"))
	httpmock.RegisterResponder("GET", loaderBase+"/static/data/publications-2026.json",
		httpmock.NewStringResponder(200, `{"count": 2, "publications": [{}, {}]}`))

	res := loader.Load(context.Background(), 2026)

	assert.Equal(t, SourceStatic, res.Source)
	assert.Equal(t, 2, res.Total)
	assert.NotEmpty(t, res.Generated, "missing generated stamp is filled in")
}

func TestLoadPastYearSkipsLiveFeed(t *testing.T) {
	loader := newTestLoader(t, 2026)
	httpmock.RegisterResponder("GET", loaderBase+"/static/data/publications-2019.json",
		httpmock.NewStringResponder(200, `{"generated": "2020-01-02T03:04:05Z", "count": 0, "publications": []}`))

	res := loader.Load(context.Background(), 2019)

	assert.Equal(t, SourceStatic, res.Source)
	assert.Equal(t, 0, res.Total)

	info := httpmock.GetCallCountInfo()
	for key := range info {
		assert.NotContains(t, key, "/api/publications",
			"past years must never query the live feed")
	}
}

func TestLoadMissingArchiveIsNone(t *testing.T) {
	loader := newTestLoader(t, 2026)
	httpmock.RegisterResponder("GET", loaderBase+"/static/data/publications-2003.json",
		httpmock.NewStringResponder(404, "not found"))

	res := loader.Load(context.Background(), 2003)

	assert.Equal(t, SourceNone, res.Source)
	assert.Equal(t, 0, res.Total)
	require.NotNil(t, res.Buckets)
	assert.Equal(t, 0, res.Buckets["PRD"])
}

func TestLoadTransportFailureIsError(t *testing.T) {
	loader := newTestLoader(t, 2026)
	// No responder registered for the archive path.

	res := loader.Load(context.Background(), 2010)

	assert.Equal(t, SourceError, res.Source)
	assert.Equal(t, 0, res.Total)
}
