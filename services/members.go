package services

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"lattice-site/models"
)

// DecodeMembers accepts the member document shapes that have been in
// circulation: a flat person list, an institution -> names object, or a
// list of {institution, people} blocks. The result is always a flat list.
func DecodeMembers(data []byte) ([]models.Member, error) {
	var flat []models.Member
	if err := json.Unmarshal(data, &flat); err == nil && (len(flat) == 0 || flat[0].Name != "") {
		return flat, nil
	}

	var keyed map[string][]string
	if err := json.Unmarshal(data, &keyed); err == nil {
		insts := make([]string, 0, len(keyed))
		for inst := range keyed {
			insts = append(insts, inst)
		}
		sort.Strings(insts)
		var out []models.Member
		for _, inst := range insts {
			for _, name := range keyed[inst] {
				out = append(out, models.Member{Name: name, Institution: inst})
			}
		}
		return out, nil
	}

	var grouped []struct {
		Institution string   `json:"institution"`
		People      []string `json:"people"`
	}
	if err := json.Unmarshal(data, &grouped); err == nil && len(grouped) > 0 {
		var out []models.Member
		for _, g := range grouped {
			for _, name := range g.People {
				out = append(out, models.Member{Name: name, Institution: g.Institution})
			}
		}
		return out, nil
	}

	return nil, fmt.Errorf("unrecognized members document shape")
}

// LoadMembers reads and decodes the members file.
func LoadMembers(path string) ([]models.Member, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeMembers(data)
}

// MemberNames returns the distinct member names in first-seen order.
func MemberNames(members []models.Member) []string {
	seen := make(map[string]struct{}, len(members))
	var names []string
	for _, m := range members {
		if m.Name == "" {
			continue
		}
		if _, dup := seen[m.Name]; dup {
			continue
		}
		seen[m.Name] = struct{}{}
		names = append(names, m.Name)
	}
	return names
}
