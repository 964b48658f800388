package models

// YearSummary tallies one year's publication records into journal buckets.
// It is derived data, recomputed on every load and never persisted.
type YearSummary struct {
	Year      int            `json:"year"`
	Total     int            `json:"total"`
	Citations int            `json:"citations"`
	Buckets   map[string]int `json:"buckets"`
}
