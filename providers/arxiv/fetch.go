package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"lattice-site/config"
	"lattice-site/models"
)

// Fetcher queries the arXiv Atom API for one author at a time, rate-limited
// so harvest runs stay polite to the archive.
type Fetcher struct {
	Config  *config.Config
	Logger  *zap.Logger
	client  *http.Client
	limiter *rate.Limiter
}

// NewFetcher creates an arXiv fetcher with the configured pacing delay.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	delay := time.Duration(cfg.AuthorDelaySec * float64(time.Second))
	if delay <= 0 {
		delay = 300 * time.Millisecond
	}
	return &Fetcher{
		Config:  cfg,
		Logger:  logger,
		client:  &http.Client{Timeout: 120 * time.Second},
		limiter: rate.NewLimiter(rate.Every(delay), 1),
	}
}

// Name returns the provider name.
func (f *Fetcher) Name() string {
	return "arxiv"
}

// SearchAuthor fetches the author's hep-lat submissions, newest first.
func (f *Fetcher) SearchAuthor(ctx context.Context, name string, max int) ([]models.Publication, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("search_query", fmt.Sprintf(`au:"%s" AND cat:hep-lat`, name))
	params.Set("start", "0")
	params.Set("max_results", strconv.Itoa(max))
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")
	searchURL := f.Config.ArxivBaseURL + "?" + params.Encode()
	f.Logger.Debug("querying arXiv", zap.String("author", name), zap.String("url", searchURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv query failed: status %d", resp.StatusCode)
	}

	var feed atomFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("arxiv response is not valid Atom: %w", err)
	}

	pubs := make([]models.Publication, 0, len(feed.Entries))
	for i := range feed.Entries {
		pubs = append(pubs, entryToPublication(&feed.Entries[i]))
	}
	return pubs, nil
}

// entryToPublication maps one Atom entry onto the wire record shape.
func entryToPublication(e *atomEntry) models.Publication {
	rawID := strings.TrimSpace(e.ID)
	arxivID := rawID
	if i := strings.Index(rawID, "/abs/"); i >= 0 {
		arxivID = rawID[i+len("/abs/"):]
	}

	var authors []string
	for _, a := range e.Authors {
		if a.Name != "" {
			authors = append(authors, a.Name)
		}
	}

	var cats []string
	for _, c := range e.Categories {
		if c.Term != "" {
			cats = append(cats, c.Term)
		}
	}
	if e.PrimaryCategory != nil && e.PrimaryCategory.Term != "" && !contains(cats, e.PrimaryCategory.Term) {
		cats = append(cats, e.PrimaryCategory.Term)
	}

	var pdf, link string
	for _, l := range e.Links {
		if l.Title == "pdf" || l.Type == "application/pdf" || strings.HasSuffix(l.Href, ".pdf") {
			pdf = l.Href
		}
		if l.Rel == "alternate" && l.Href != "" {
			link = l.Href
		}
	}
	if link == "" {
		link = rawID
	}

	return models.Publication{
		ID:         arxivID,
		Title:      strings.TrimSpace(e.Title),
		Summary:    strings.TrimSpace(e.Summary),
		Authors:    authors,
		PDF:        pdf,
		Link:       link,
		Published:  strings.TrimSpace(e.Published),
		Categories: cats,
	}
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
