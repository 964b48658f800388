package models

// FigureItem is one entry of the rotating figure display, loaded from
// figures.json or doe-science.json.
type FigureItem struct {
	ID      string `json:"id,omitempty"`
	Link    string `json:"link,omitempty"`
	Title   string `json:"title,omitempty"`
	Image   string `json:"image"`
	Caption string `json:"caption,omitempty"`
	Excerpt string `json:"excerpt,omitempty"`
}
