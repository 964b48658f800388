package inspire

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"lattice-site/config"
	"lattice-site/models"
)

var versionSuffix = regexp.MustCompile(`v\d+$`)

// NormalizeArxivID strips a trailing version suffix (2101.01234v2 -> 2101.01234).
func NormalizeArxivID(id string) string {
	return versionSuffix.ReplaceAllString(id, "")
}

// Fetcher enriches harvested records with INSPIRE-HEP metadata using batched
// lookups, paced with the configured inter-batch delay.
type Fetcher struct {
	Config  *config.Config
	Logger  *zap.Logger
	client  *http.Client
	limiter *rate.Limiter
}

// NewFetcher creates an INSPIRE fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	delay := time.Duration(cfg.InspireBatchDelay * float64(time.Second))
	if delay <= 0 {
		delay = time.Second
	}
	return &Fetcher{
		Config:  cfg,
		Logger:  logger,
		client:  &http.Client{Timeout: 60 * time.Second},
		limiter: rate.NewLimiter(rate.Every(delay), 1),
	}
}

// LookupBatch queries INSPIRE for a batch of normalized arXiv ids and maps
// each matched id to its extracted enrichment. Misses are simply absent.
func (f *Fetcher) LookupBatch(ctx context.Context, arxivIDs []string) (map[string]*models.InspireInfo, error) {
	if len(arxivIDs) == 0 {
		return map[string]*models.InspireInfo{}, nil
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	terms := make([]string, len(arxivIDs))
	for i, id := range arxivIDs {
		terms[i] = "arxiv:" + id
	}
	size := len(arxivIDs)
	if size < 100 {
		size = 100
	}
	params := url.Values{}
	params.Set("q", strings.Join(terms, " OR "))
	params.Set("size", strconv.Itoa(size))
	params.Set("format", "json")
	queryURL := f.Config.InspireBaseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inspire query failed: status %d", resp.StatusCode)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("inspire response is not valid JSON: %w", err)
	}

	mapping := make(map[string]*models.InspireInfo, len(sr.Hits.Hits))
	for i := range sr.Hits.Hits {
		h := &sr.Hits.Hits[i]
		arxivID := arxivIDFromMetadata(h.Metadata)
		if arxivID == "" {
			continue
		}
		mapping[NormalizeArxivID(arxivID)] = infoFromHit(h)
	}
	f.Logger.Debug("inspire batch resolved",
		zap.Int("requested", len(arxivIDs)), zap.Int("hits", len(mapping)))
	return mapping, nil
}

// arxivIDFromMetadata finds the arXiv id of a hit; the index stores it under
// arxiv_eprints or, failing that, in the generic ids list.
func arxivIDFromMetadata(meta map[string]any) string {
	for _, key := range []string{"arxiv_eprints", "preprint_eprints", "arxiv"} {
		list, ok := meta[key].([]any)
		if !ok || len(list) == 0 {
			continue
		}
		switch first := list[0].(type) {
		case map[string]any:
			if v, ok := first["value"].(string); ok && v != "" {
				return v
			}
		case string:
			if first != "" {
				return first
			}
		}
	}
	if ids, ok := meta["ids"].([]any); ok {
		for _, item := range ids {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			schema, _ := m["schema"].(string)
			if strings.Contains(strings.ToLower(schema), "arxiv") {
				if v, ok := m["value"].(string); ok {
					return v
				}
			}
		}
	}
	return ""
}

// infoFromHit extracts the enrichment fields we keep from one search hit.
func infoFromHit(h *hit) *models.InspireInfo {
	meta := h.Metadata
	info := &models.InspireInfo{}

	if len(h.ID) > 0 {
		info.ControlNumber = h.ID
		var idStr string
		if err := json.Unmarshal(h.ID, &idStr); err == nil && idStr != "" {
			info.InspireURL = "https://inspirehep.net/literature/" + idStr
		}
	} else if cn, ok := meta["control_number"]; ok {
		if raw, err := json.Marshal(cn); err == nil {
			info.ControlNumber = raw
		}
	}

	if dois, ok := meta["dois"].([]any); ok {
		for _, d := range dois {
			if m, ok := d.(map[string]any); ok {
				if v, ok := m["value"].(string); ok && v != "" {
					info.DOI = v
					break
				}
			}
		}
	}

	info.PublicationInfo = publicationInfo(meta)

	if ref := stringField(meta, "journal_reference", "journal_ref"); ref != "" {
		info.JournalRef = ref
	} else if len(info.PublicationInfo) > 0 {
		info.JournalRef = formatJournalRef(&info.PublicationInfo[0])
	}

	if count, ok := citationCount(meta); ok {
		info.CitationCount = &count
	}

	return info
}

func publicationInfo(meta map[string]any) []models.PublicationInfo {
	list, ok := meta["publication_info"].([]any)
	if !ok {
		return nil
	}
	var out []models.PublicationInfo
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok || len(m) == 0 {
			continue
		}
		pi := models.PublicationInfo{
			JournalTitle:  asString(m["journal_title"]),
			JournalVolume: asString(m["journal_volume"]),
			JournalIssue:  asString(m["journal_issue"]),
			PageStart:     asString(m["page_start"]),
			PageEnd:       asString(m["page_end"]),
			ArtID:         asString(m["artid"]),
		}
		if y, ok := asInt(m["year"]); ok {
			pi.Year = y
		}
		out = append(out, pi)
	}
	return out
}

// formatJournalRef composes a best-effort reference string from the first
// publication_info block when the index supplies no journal_ref of its own.
func formatJournalRef(pi *models.PublicationInfo) string {
	var parts []string
	if pi.JournalTitle != "" {
		parts = append(parts, pi.JournalTitle)
	}
	if pi.JournalVolume != "" {
		parts = append(parts, "vol. "+pi.JournalVolume)
	}
	if pi.ArtID != "" {
		parts = append(parts, "artid "+pi.ArtID)
	}
	if pi.PageStart != "" {
		parts = append(parts, "p. "+pi.PageStart)
	}
	if pi.Year != 0 {
		parts = append(parts, strconv.Itoa(pi.Year))
	}
	return strings.Join(parts, ", ")
}

// citationCount scans the metadata for a citation count. The index exposes
// it under several keys and shapes; checked in order: the direct field, the
// known alternates (int or first int subfield of a dict), then any key whose
// name mentions citations.
func citationCount(meta map[string]any) (int, bool) {
	if n, ok := asInt(meta["citation_count"]); ok {
		return n, true
	}
	for _, key := range []string{"citations", "citation", "cited_by"} {
		v, present := meta[key]
		if !present {
			continue
		}
		if n, ok := asInt(v); ok {
			return n, true
		}
		if m, ok := v.(map[string]any); ok {
			if n, ok := firstInt(m); ok {
				return n, true
			}
		}
	}
	for k, v := range meta {
		kl := strings.ToLower(k)
		if !strings.Contains(kl, "citation") && !strings.Contains(kl, "cited") {
			continue
		}
		if n, ok := asInt(v); ok {
			return n, true
		}
		if m, ok := v.(map[string]any); ok {
			if n, ok := firstInt(m); ok {
				return n, true
			}
		}
	}
	return 0, false
}

func firstInt(m map[string]any) (int, bool) {
	for _, v := range m {
		if n, ok := asInt(v); ok {
			return n, true
		}
	}
	return 0, false
}

// asInt accepts the integral shapes a decoded JSON document can carry.
func asInt(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		if t == float64(int(t)) {
			return int(t), true
		}
		return 0, false
	case int:
		return t, true
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int(n), true
		}
		return 0, false
	default:
		return 0, false
	}
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

func stringField(meta map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := meta[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
