// Package roster builds the organization → group → person membership tree
// and owns the selection state behind the leaderboard editor and the export
// picker.
package roster

import (
	"sort"
	"strconv"
	"strings"

	"sulamboard/internal/model"
)

// NotAssigned is the sentinel group for people with no group in an
// organization.
const NotAssigned = "Not Assigned"

// Tree is the derived org → group → members view. It is rebuilt whenever the
// roster or the search term changes and never mutated in place.
type Tree map[string]map[string][]model.Person

// BuildTree distributes every person under each of their groups, or under
// the Not Assigned sentinel when they have none, then narrows the result by
// the search term. A matching organization keeps all its groups; a matching
// group keeps all its members; otherwise only members whose name matches
// survive. Filtering never touches selection state.
func BuildTree(r model.Roster, filter string) Tree {
	out := Tree{}
	for org, people := range r {
		for _, p := range people {
			groups := p.Groups(org)
			if len(groups) == 0 {
				out.insert(org, NotAssigned, p)
				continue
			}
			for _, grp := range groups {
				out.insert(org, grp, p)
			}
		}
	}

	term := strings.ToLower(strings.TrimSpace(filter))
	if term == "" {
		return out
	}

	filtered := Tree{}
	for org, groups := range out {
		orgMatch := strings.Contains(strings.ToLower(org), term)
		kept := map[string][]model.Person{}
		for grp, people := range groups {
			if orgMatch {
				kept[grp] = people
				continue
			}
			if strings.Contains(strings.ToLower(grp), term) {
				kept[grp] = people
				continue
			}
			var matches []model.Person
			for _, p := range people {
				if strings.Contains(strings.ToLower(p.FullName), term) {
					matches = append(matches, p)
				}
			}
			if len(matches) > 0 {
				kept[grp] = matches
			}
		}
		if orgMatch || len(kept) > 0 {
			filtered[org] = kept
		}
	}
	return filtered
}

func (t Tree) insert(org, grp string, p model.Person) {
	if t[org] == nil {
		t[org] = map[string][]model.Person{}
	}
	t[org][grp] = append(t[org][grp], p)
}

// Orgs returns the tree's organization names in display order.
func (t Tree) Orgs() []string {
	orgs := make([]string, 0, len(t))
	for org := range t {
		orgs = append(orgs, org)
	}
	sort.Strings(orgs)
	return orgs
}

// Groups returns an organization's group names in display order: numeric-
// aware comparison so "Class 2" sorts before "Class 10", with Not Assigned
// always last.
func (t Tree) Groups(org string) []string {
	groups := make([]string, 0, len(t[org]))
	for grp := range t[org] {
		groups = append(groups, grp)
	}
	sort.Slice(groups, func(i, j int) bool {
		return CompareGroupNames(groups[i], groups[j]) < 0
	})
	return groups
}

// CompareGroupNames orders group names for display. Leading digits compare
// numerically before falling back to lexicographic order; the Not Assigned
// sentinel sorts after everything.
func CompareGroupNames(a, b string) int {
	if a == b {
		return 0
	}
	if a == NotAssigned {
		return 1
	}
	if b == NotAssigned {
		return -1
	}
	na, aok := leadingNumber(a)
	nb, bok := leadingNumber(b)
	switch {
	case aok && bok && na != nb:
		if na < nb {
			return -1
		}
		return 1
	case aok && !bok:
		return -1
	case !aok && bok:
		return 1
	}
	return strings.Compare(a, b)
}

func leadingNumber(s string) (int, bool) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0, false
	}
	return n, true
}

// FlattenOrg returns every member id for an organization, straight from the
// roster so bulk toggles act on the full set regardless of any active search.
func FlattenOrg(r model.Roster, org string) []string {
	people := r[org]
	ids := make([]string, 0, len(people))
	for _, p := range people {
		ids = append(ids, p.ID.String())
	}
	return ids
}

// FlattenGroup returns the ids of an organization's members belonging to the
// group, or, for the Not Assigned sentinel, those with no group there. Like
// FlattenOrg it reads the roster, not the filtered tree.
func FlattenGroup(r model.Roster, org, grp string) []string {
	var ids []string
	for _, p := range r[org] {
		groups := p.Groups(org)
		if grp == NotAssigned {
			if len(groups) == 0 {
				ids = append(ids, p.ID.String())
			}
			continue
		}
		for _, g := range groups {
			if g == grp {
				ids = append(ids, p.ID.String())
				break
			}
		}
	}
	return ids
}
