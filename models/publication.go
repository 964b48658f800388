package models

import "encoding/json"

// Publication is a single bibliographic record as it appears in the
// publications.json snapshots and the live feed.
type Publication struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Summary    string   `json:"summary,omitempty"`
	Authors    []string `json:"authors,omitempty"`
	PDF        string   `json:"pdf,omitempty"`
	Link       string   `json:"link,omitempty"`
	Published  string   `json:"published,omitempty"`
	Categories []string `json:"categories,omitempty"`
	JournalRef string   `json:"journal_ref,omitempty"`

	// Citation counts appear under several shapes depending on which
	// harvester version produced the record; either field may hold a JSON
	// number or a numeric string, so both are kept raw and interpreted by
	// the classifier.
	CitationCount json.RawMessage `json:"citation_count,omitempty"`
	Citations     json.RawMessage `json:"citations,omitempty"`

	Inspire *InspireInfo `json:"inspire,omitempty"`
}

// InspireInfo carries the INSPIRE-HEP enrichment attached to a record.
type InspireInfo struct {
	ControlNumber   json.RawMessage   `json:"control_number,omitempty"`
	InspireURL      string            `json:"inspire_url,omitempty"`
	DOI             string            `json:"doi,omitempty"`
	JournalRef      string            `json:"journal_ref,omitempty"`
	CitationCount   *int              `json:"citation_count,omitempty"`
	PublicationInfo []PublicationInfo `json:"publication_info,omitempty"`
	Metrics         *InspireMetrics   `json:"metrics,omitempty"`
}

// InspireMetrics is the nested metrics block some INSPIRE records expose.
type InspireMetrics struct {
	CitationCount *int `json:"citation_count,omitempty"`
}

// PublicationInfo describes one journal appearance of a record.
type PublicationInfo struct {
	JournalTitle  string `json:"journal_title,omitempty"`
	JournalVolume string `json:"journal_volume,omitempty"`
	JournalIssue  string `json:"journal_issue,omitempty"`
	PageStart     string `json:"page_start,omitempty"`
	PageEnd       string `json:"page_end,omitempty"`
	ArtID         string `json:"artid,omitempty"`
	Year          int    `json:"year,omitempty"`
}

// Feed is the envelope shared by every publications snapshot and the live feed.
type Feed struct {
	Generated    string        `json:"generated"`
	Count        int           `json:"count"`
	Publications []Publication `json:"publications"`
}
