package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Paper is a harvested publication as stored in Postgres. The JSON-shaped
// columns keep the wire record reconstructible without loss.
type Paper struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ArxivID    string         `json:"arxiv_id" gorm:"column:arxiv_id;uniqueIndex;not null"`
	Title      string         `json:"title" gorm:"type:text"`
	Summary    string         `json:"summary,omitempty" gorm:"type:text"`
	Authors    datatypes.JSON `json:"authors,omitempty" gorm:"type:jsonb"`
	Categories datatypes.JSON `json:"categories,omitempty" gorm:"type:jsonb"`
	PDF        string         `json:"pdf,omitempty"`
	Link       string         `json:"link,omitempty"`
	Published  string         `json:"published,omitempty"`
	Year       int            `json:"year" gorm:"index"`
	JournalRef string         `json:"journal_ref,omitempty"`
	Inspire    datatypes.JSON `json:"inspire,omitempty" gorm:"type:jsonb"`
}

// TableName names the table explicitly.
func (Paper) TableName() string {
	return "publications"
}

// NewPaper converts a wire record into its storable form.
func NewPaper(rec *Publication, year int) (*Paper, error) {
	p := &Paper{
		ArxivID:    rec.ID,
		Title:      rec.Title,
		Summary:    rec.Summary,
		PDF:        rec.PDF,
		Link:       rec.Link,
		Published:  rec.Published,
		Year:       year,
		JournalRef: rec.JournalRef,
	}
	var err error
	if len(rec.Authors) > 0 {
		if p.Authors, err = json.Marshal(rec.Authors); err != nil {
			return nil, err
		}
	}
	if len(rec.Categories) > 0 {
		if p.Categories, err = json.Marshal(rec.Categories); err != nil {
			return nil, err
		}
	}
	if rec.Inspire != nil {
		if p.Inspire, err = json.Marshal(rec.Inspire); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Record reconstructs the wire-shape publication. Malformed JSON columns
// degrade to empty fields rather than failing the whole row.
func (p *Paper) Record() Publication {
	rec := Publication{
		ID:         p.ArxivID,
		Title:      p.Title,
		Summary:    p.Summary,
		PDF:        p.PDF,
		Link:       p.Link,
		Published:  p.Published,
		JournalRef: p.JournalRef,
	}
	if len(p.Authors) > 0 {
		_ = json.Unmarshal(p.Authors, &rec.Authors)
	}
	if len(p.Categories) > 0 {
		_ = json.Unmarshal(p.Categories, &rec.Categories)
	}
	if len(p.Inspire) > 0 {
		var info InspireInfo
		if err := json.Unmarshal(p.Inspire, &info); err == nil {
			rec.Inspire = &info
		}
	}
	return rec
}

// InspireLookup caches one INSPIRE enrichment result per arXiv id.
// Misses are stored with empty Info so they are not re-queried every run.
type InspireLookup struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ArxivID string         `json:"arxiv_id" gorm:"column:arxiv_id;uniqueIndex;not null"`
	Info    datatypes.JSON `json:"info,omitempty" gorm:"type:jsonb"`
}

// TableName names the table explicitly.
func (InspireLookup) TableName() string {
	return "inspire_lookups"
}

// Hit reports whether the cached lookup carries actual enrichment data.
func (l *InspireLookup) Hit() bool {
	return len(l.Info) > 0 && string(l.Info) != "{}" && string(l.Info) != "null"
}
