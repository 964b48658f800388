package services

import (
	"encoding/json"
	"os"
	"sort"

	"lattice-site/models"
)

// DecodeFigures accepts either a flat figure list or an object whose values
// are figure lists, and flattens the latter in stable key order.
func DecodeFigures(data []byte) ([]models.FigureItem, error) {
	var flat []models.FigureItem
	if err := json.Unmarshal(data, &flat); err == nil {
		return flat, nil
	}

	var keyed map[string][]models.FigureItem
	if err := json.Unmarshal(data, &keyed); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(keyed))
	for k := range keyed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var out []models.FigureItem
	for _, k := range keys {
		out = append(out, keyed[k]...)
	}
	return out, nil
}

// LoadFigureFiles reads and flattens every readable figure file. Missing or
// malformed files are skipped; the carousel treats an empty result as a load
// failure.
func LoadFigureFiles(paths ...string) []models.FigureItem {
	var out []models.FigureItem
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		items, err := DecodeFigures(data)
		if err != nil {
			continue
		}
		out = append(out, items...)
	}
	return out
}
