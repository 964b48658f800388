package models

// Meeting is one entry of the meetings archive.
type Meeting struct {
	Title    string `json:"title"`
	Href     string `json:"href,omitempty"`
	Location string `json:"location,omitempty"`
}

// AllHandsMeetings mirrors the all-hands.json document.
type AllHandsMeetings struct {
	AllHands []Meeting `json:"all_hands"`
}

// LatticeConferences mirrors the lattice-conf.json document.
type LatticeConferences struct {
	LatticeConferences []Meeting `json:"lattice_conferences"`
}
