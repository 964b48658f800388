package inspire

import "encoding/json"

// searchResponse is the envelope of an INSPIRE literature search.
type searchResponse struct {
	Hits struct {
		Hits []hit `json:"hits"`
	} `json:"hits"`
}

// hit keeps metadata loosely typed: the index exposes citation counts and
// identifiers under several shapes and the extractor scans for them.
type hit struct {
	ID       json.RawMessage `json:"id"`
	Metadata map[string]any  `json:"metadata"`
}
