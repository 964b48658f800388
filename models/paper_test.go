package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaperRoundTrip(t *testing.T) {
	count := 14
	rec := Publication{
		ID:         "2401.01234",
		Title:      "Topological susceptibility at the physical point",
		Summary:    "We compute it.",
		Authors:    []string{"A. Lattice", "B. Gauge"},
		PDF:        "http://arxiv.org/pdf/2401.01234v1",
		Link:       "http://arxiv.org/abs/2401.01234v1",
		Published:  "2024-01-05T00:00:00Z",
		Categories: []string{"hep-lat"},
		JournalRef: "Phys. Rev. D 109, 054501",
		Inspire: &InspireInfo{
			DOI:           "10.1103/PhysRevD.109.054501",
			JournalRef:    "Phys.Rev.D, vol. 109, artid 054501, 2024",
			CitationCount: &count,
		},
	}

	paper, err := NewPaper(&rec, 2024)
	require.NoError(t, err)
	assert.Equal(t, "2401.01234", paper.ArxivID)
	assert.Equal(t, 2024, paper.Year)

	back := paper.Record()
	assert.Equal(t, rec.ID, back.ID)
	assert.Equal(t, rec.Authors, back.Authors)
	assert.Equal(t, rec.Categories, back.Categories)
	require.NotNil(t, back.Inspire)
	assert.Equal(t, rec.Inspire.DOI, back.Inspire.DOI)
	require.NotNil(t, back.Inspire.CitationCount)
	assert.Equal(t, 14, *back.Inspire.CitationCount)
}

func TestPaperRecordToleratesMalformedColumns(t *testing.T) {
	p := Paper{
		ArxivID: "2401.99999",
		Title:   "Broken row",
		Authors: []byte(`{not json`),
		Inspire: []byte(`[1, 2]`),
	}
	rec := p.Record()
	assert.Equal(t, "2401.99999", rec.ID)
	assert.Nil(t, rec.Authors)
	assert.Nil(t, rec.Inspire)
}

func TestInspireLookupHit(t *testing.T) {
	assert.False(t, (&InspireLookup{}).Hit())
	assert.False(t, (&InspireLookup{Info: []byte("{}")}).Hit())
	assert.False(t, (&InspireLookup{Info: []byte("null")}).Hit())
	assert.True(t, (&InspireLookup{Info: []byte(`{"doi":"10.1103/x"}`)}).Hit())
}
