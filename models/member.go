package models

// Member is one collaboration member as listed in members.json.
type Member struct {
	Name        string `json:"name"`
	Institution string `json:"institution,omitempty"`
}

// CommitteeMember is one row of a governance committee listing.
type CommitteeMember struct {
	Role string `json:"role"`
	Name string `json:"name"`
}

// Committees mirrors the committees.json document.
type Committees struct {
	ExecutiveCommittee         []CommitteeMember `json:"executive_committee"`
	ScientificProgramCommittee []CommitteeMember `json:"scientific_program_committee"`
}
