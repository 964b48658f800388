package services

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"lattice-site/models"
)

// journalBuckets maps each named journal bucket to the pattern a record's
// journal reference or title must contain. Buckets are not mutually
// exclusive; a record may count toward several.
var journalBuckets = []struct {
	Name    string
	pattern *regexp.Regexp
}{
	{"PRL", regexp.MustCompile(`(?i)phys\.?\s*rev\.?\s*lett|physical review letters`)},
	{"PRC", regexp.MustCompile(`(?i)phys\.?\s*rev\.?\s*c\b|physical review c\b`)},
	{"PRD", regexp.MustCompile(`(?i)phys\.?\s*rev\.?\s*d\b|physical review d\b`)},
	{"PRX", regexp.MustCompile(`(?i)phys\.?\s*rev\.?\s*x\b|physical review x\b`)},
	{"NPB", regexp.MustCompile(`(?i)nucl\.?\s*phys\.?\s*b|nuclear physics b`)},
	{"PLB", regexp.MustCompile(`(?i)phys\.?\s*lett\.?\s*b|physics letters b`)},
	{"EPJ", regexp.MustCompile(`(?i)eur\.?\s*phys\.?\s*j|european physical journal`)},
	{"JPG", regexp.MustCompile(`(?i)j\.?\s*phys\.?\s*g\b|journal of physics g\b`)},
	{"Science", regexp.MustCompile(`(?i)\bscience\b`)},
	{"Nature", regexp.MustCompile(`(?i)\bnature\b`)},
	{"PoS", regexp.MustCompile(`(?i)\bpos\b|proceedings of science`)},
}

// citationAccessor extracts a citation count from one of the shapes the
// harvested records are known to carry.
type citationAccessor func(*models.Publication) (int, bool)

// citationAccessors is evaluated in order; the first present value wins.
// Most specific shape first: the nested metrics block, then the nested
// inspire count, then the top-level numeric fields, then numeric strings.
var citationAccessors = []citationAccessor{
	func(p *models.Publication) (int, bool) {
		if p.Inspire != nil && p.Inspire.Metrics != nil && p.Inspire.Metrics.CitationCount != nil {
			return *p.Inspire.Metrics.CitationCount, true
		}
		return 0, false
	},
	func(p *models.Publication) (int, bool) {
		if p.Inspire != nil && p.Inspire.CitationCount != nil {
			return *p.Inspire.CitationCount, true
		}
		return 0, false
	},
	func(p *models.Publication) (int, bool) { return rawNumber(p.CitationCount) },
	func(p *models.Publication) (int, bool) { return rawNumber(p.Citations) },
	func(p *models.Publication) (int, bool) {
		if n, ok := rawNumericString(p.CitationCount); ok {
			return n, true
		}
		return rawNumericString(p.Citations)
	},
}

func rawNumber(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	return int(f), true
}

func rawNumericString(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return n, true
}

// CitationCount resolves the citation value of a single record; absent or
// unparsable values contribute zero.
func CitationCount(p *models.Publication) int {
	for _, accessor := range citationAccessors {
		if n, ok := accessor(p); ok {
			return n
		}
	}
	return 0
}

// EmptySummary returns an all-zero summary with every bucket present.
func EmptySummary(year int) models.YearSummary {
	s := models.YearSummary{Year: year, Buckets: make(map[string]int, len(journalBuckets))}
	for _, b := range journalBuckets {
		s.Buckets[b.Name] = 0
	}
	return s
}

// Classify tallies a record collection into a year summary. It never fails:
// nil or malformed input yields the all-zero summary.
func Classify(year int, pubs []models.Publication) models.YearSummary {
	s := EmptySummary(year)
	for i := range pubs {
		p := &pubs[i]
		text := journalText(p)
		for _, b := range journalBuckets {
			if b.pattern.MatchString(text) {
				s.Buckets[b.Name]++
			}
		}
		s.Citations += CitationCount(p)
	}
	s.Total = len(pubs)
	return s
}

// journalText combines the preferred journal reference with the title;
// the nested inspire reference wins over the top-level one.
func journalText(p *models.Publication) string {
	ref := p.JournalRef
	if p.Inspire != nil && p.Inspire.JournalRef != "" {
		ref = p.Inspire.JournalRef
	}
	return ref + " " + p.Title
}
