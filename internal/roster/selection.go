package roster

import (
	"sort"

	"sulamboard/internal/model"
)

// Selection owns the three per-screen membership structures: the selected
// target ids, the presence flags, and the independent extra-viewer set. Each
// editor or export screen gets its own instance with exclusive mutation
// rights; the roster itself is read-only here.
type Selection struct {
	roster   model.Roster
	selected map[string]struct{}
	presence map[string]bool
	viewable map[string]struct{}
}

// NewSelection creates an empty selection over a roster (create mode).
func NewSelection(r model.Roster) *Selection {
	return &Selection{
		roster:   r,
		selected: map[string]struct{}{},
		presence: map[string]bool{},
		viewable: map[string]struct{}{},
	}
}

// NewSelectionFromState rebuilds a selection from its serialized parts, as
// round-tripped through an API client between toggle operations.
func NewSelectionFromState(r model.Roster, selected []string, presence map[string]bool, viewable []string) *Selection {
	s := NewSelection(r)
	for k, v := range presence {
		if id := model.NormalizeID(k); id != "" {
			s.presence[id] = v
		}
	}
	for _, id := range selected {
		if id = model.NormalizeID(id); id != "" {
			s.add(id)
		}
	}
	for _, id := range viewable {
		if id = model.NormalizeID(id); id != "" {
			s.viewable[id] = struct{}{}
		}
	}
	return s
}

// Hydrate reconstructs selection state from a stored record (edit mode): the
// union of the explicit id list, every stored target organization flattened,
// and every stored "org:group" entry flattened. Presence keys and viewable
// ids pass through the id normalizer so representation never breaks set
// membership. When the stored id list is empty the presence keys seed the
// selection instead.
func (s *Selection) Hydrate(lb *model.Leaderboard) {
	for k, v := range lb.UserPresence {
		if id := model.NormalizeID(k); id != "" {
			s.presence[id] = v
		}
	}
	for _, id := range lb.ViewableUserIDs {
		if id != "" {
			s.viewable[id.String()] = struct{}{}
		}
	}

	if len(lb.TargetUserIDs) > 0 {
		for _, id := range lb.TargetUserIDs {
			if id != "" {
				s.add(id.String())
			}
		}
	} else {
		for id := range s.presence {
			s.add(id)
		}
	}

	for _, org := range lb.Organizations() {
		for _, id := range FlattenOrg(s.roster, org) {
			s.add(id)
		}
	}
	for _, entry := range lb.TargetGroups {
		org, grp, ok := SplitGroupTarget(entry)
		if !ok {
			continue
		}
		for _, id := range FlattenGroup(s.roster, org, grp) {
			s.add(id)
		}
	}
}

// add inserts an id and defaults its presence flag to true if unset.
func (s *Selection) add(id string) {
	s.selected[id] = struct{}{}
	if _, ok := s.presence[id]; !ok {
		s.presence[id] = true
	}
}

// ToggleUser flips one id in or out of the selection.
func (s *Selection) ToggleUser(id string) {
	if _, ok := s.selected[id]; ok {
		delete(s.selected, id)
		return
	}
	s.add(id)
}

// ToggleGroup applies the all-or-nothing rule to a group: if every member is
// already selected the whole group is removed, otherwise the whole group is
// added. A partial selection therefore always moves toward full selection.
func (s *Selection) ToggleGroup(org, grp string) {
	s.toggleAll(FlattenGroup(s.roster, org, grp))
}

// ToggleOrg applies the all-or-nothing rule to a whole organization.
func (s *Selection) ToggleOrg(org string) {
	s.toggleAll(FlattenOrg(s.roster, org))
}

func (s *Selection) toggleAll(ids []string) {
	if s.allSelected(ids) {
		for _, id := range ids {
			delete(s.selected, id)
		}
		return
	}
	for _, id := range ids {
		s.add(id)
	}
}

func (s *Selection) allSelected(ids []string) bool {
	for _, id := range ids {
		if _, ok := s.selected[id]; !ok {
			return false
		}
	}
	return true
}

// SetAllPresence sets the presence flag for every currently selected id.
// Selection membership is untouched.
func (s *Selection) SetAllPresence(v bool) {
	for id := range s.selected {
		s.presence[id] = v
	}
}

// SetPresence sets one id's presence flag.
func (s *Selection) SetPresence(id string, v bool) {
	s.presence[id] = v
}

// ToggleViewable flips one id in the extra-viewer set, independently of the
// target selection.
func (s *Selection) ToggleViewable(id string) {
	if _, ok := s.viewable[id]; ok {
		delete(s.viewable, id)
		return
	}
	s.viewable[id] = struct{}{}
}

// Has reports whether an id is selected.
func (s *Selection) Has(id string) bool {
	_, ok := s.selected[id]
	return ok
}

// Present reports an id's presence flag. Only meaningful for selected ids.
func (s *Selection) Present(id string) bool { return s.presence[id] }

// IsViewable reports whether an id is in the extra-viewer set.
func (s *Selection) IsViewable(id string) bool {
	_, ok := s.viewable[id]
	return ok
}

// Size returns the number of selected ids.
func (s *Selection) Size() int { return len(s.selected) }

// OrgChecked reports whether the organization renders checked: non-empty and
// fully selected. Empty organizations read unchecked rather than inheriting
// the vacuous-truth of an empty every().
func (s *Selection) OrgChecked(org string) bool {
	ids := FlattenOrg(s.roster, org)
	return len(ids) > 0 && s.allSelected(ids)
}

// GroupChecked is OrgChecked's per-group counterpart.
func (s *Selection) GroupChecked(org, grp string) bool {
	ids := FlattenGroup(s.roster, org, grp)
	return len(ids) > 0 && s.allSelected(ids)
}

// GroupTouched reports whether any member of the group is selected; the
// presence panel lists only touched groups.
func (s *Selection) GroupTouched(org, grp string) bool {
	for _, id := range FlattenGroup(s.roster, org, grp) {
		if s.Has(id) {
			return true
		}
	}
	return false
}

// IDs returns the selected ids in sorted order.
func (s *Selection) IDs() []string {
	return sortedKeys(s.selected)
}

// ViewableIDs returns the extra-viewer ids in sorted order.
func (s *Selection) ViewableIDs() []string {
	return sortedKeys(s.viewable)
}

// Presence returns a copy of the presence map. Stale entries for ids no
// longer selected are carried along unread, matching what the backend
// stores.
func (s *Selection) Presence() map[string]bool {
	out := make(map[string]bool, len(s.presence))
	for k, v := range s.presence {
		out[k] = v
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
