package roster

import (
	"sort"
	"strings"

	"sulamboard/internal/model"
)

// Targets is the submission-time shape of a selection: whole organizations
// fully covered, "org:group" entries for fully covered groups in partially
// covered organizations, and the explicit id list, which is always sent and
// stays authoritative if membership drifts later.
type Targets struct {
	Organizations []string `json:"organizations"`
	Groups        []string `json:"groups"`
	UserIDs       []string `json:"user_ids"`
}

// DeriveTargets computes targets from the roster and the current selection.
// An organization fully inside the selection suppresses its own group
// entries; the Not Assigned sentinel never becomes a group target. Empty
// organizations and groups are skipped, consistent with the unchecked
// rendering of empty nodes.
func DeriveTargets(r model.Roster, s *Selection) Targets {
	t := Targets{
		Organizations: []string{},
		Groups:        []string{},
		UserIDs:       s.IDs(),
	}

	full := map[string]bool{}
	for org := range r {
		if s.OrgChecked(org) {
			full[org] = true
			t.Organizations = append(t.Organizations, org)
		}
	}
	sort.Strings(t.Organizations)

	tree := BuildTree(r, "")
	for _, org := range tree.Orgs() {
		if full[org] {
			continue
		}
		for _, grp := range tree.Groups(org) {
			if grp == NotAssigned {
				continue
			}
			if s.GroupChecked(org, grp) {
				t.Groups = append(t.Groups, org+":"+grp)
			}
		}
	}
	return t
}

// SplitGroupTarget splits an "org:group" target entry. Group names may
// themselves contain colons, so the split happens at the first one only.
func SplitGroupTarget(entry string) (org, grp string, ok bool) {
	parts := strings.SplitN(entry, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
