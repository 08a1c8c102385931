package handler

import (
	"encoding/json"
	"net/http"

	"sulamboard/internal/model"
	"sulamboard/internal/roster"
	"sulamboard/internal/service"
	"sulamboard/internal/transport/rest/middleware"
)

// RosterHandler serves the selection tree screens.
type RosterHandler struct {
	lbSvc *service.LeaderboardService
}

// NewRosterHandler creates a new roster handler
func NewRosterHandler(lbSvc *service.LeaderboardService) *RosterHandler {
	return &RosterHandler{lbSvc: lbSvc}
}

// SelectionState is the client's current selection, echoed on every
// stateless tree or toggle request.
type SelectionState struct {
	Filter      string          `json:"filter"`
	SelectedIDs []string        `json:"selected_ids"`
	Presence    map[string]bool `json:"presence"`
	ViewableIDs []string        `json:"viewable_ids"`
}

// SelectionOp is one user action against the tree.
type SelectionOp struct {
	Action string `json:"action"`
	Org    string `json:"org"`
	Group  string `json:"group"`
	UserID string `json:"user_id"`
	Value  bool   `json:"value"`
}

type memberNode struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Selected bool   `json:"selected"`
	Present  bool   `json:"present"`
	Viewable bool   `json:"viewable"`
}

type groupNode struct {
	Name    string       `json:"name"`
	Checked bool         `json:"checked"`
	Members []memberNode `json:"members"`
}

type orgNode struct {
	Name    string      `json:"name"`
	Checked bool        `json:"checked"`
	Groups  []groupNode `json:"groups"`
}

type treeResponse struct {
	Organizations []orgNode       `json:"organizations"`
	SelectedIDs   []string        `json:"selected_ids"`
	Presence      map[string]bool `json:"presence"`
	ViewableIDs   []string        `json:"viewable_ids"`
}

// Tree handles GET and POST /v1/roster/tree. GET renders an unselected
// tree with an optional q filter; POST carries the selection state so
// checkbox flags come back computed.
func (h *RosterHandler) Tree(w http.ResponseWriter, r *http.Request) {
	state := SelectionState{Filter: r.URL.Query().Get("q")}
	if r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(&state); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	ros, sel, err := h.load(r, &state)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, buildTreeResponse(ros, sel, state.Filter))
}

// Apply handles POST /v1/roster/selection: one toggle against the echoed
// state, returning the updated state and re-rendered tree.
func (h *RosterHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var req struct {
		State SelectionState `json:"state"`
		Op    SelectionOp    `json:"op"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ros, sel, err := h.load(r, &req.State)
	if err != nil {
		handleError(w, err)
		return
	}

	switch req.Op.Action {
	case "toggle_user":
		sel.ToggleUser(req.Op.UserID)
	case "toggle_group":
		sel.ToggleGroup(req.Op.Org, req.Op.Group)
	case "toggle_org":
		sel.ToggleOrg(req.Op.Org)
	case "toggle_viewable":
		sel.ToggleViewable(req.Op.UserID)
	case "set_presence":
		sel.SetPresence(req.Op.UserID, req.Op.Value)
	case "set_all_presence":
		sel.SetAllPresence(req.Op.Value)
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
		return
	}

	writeJSON(w, http.StatusOK, buildTreeResponse(ros, sel, req.State.Filter))
}

// Targets handles POST /v1/roster/targets: a preview of the org/group/id
// targets a selection would submit.
func (h *RosterHandler) Targets(w http.ResponseWriter, r *http.Request) {
	var state SelectionState
	if err := json.NewDecoder(r.Body).Decode(&state); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ros, sel, err := h.load(r, &state)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, roster.DeriveTargets(ros, sel))
}

func (h *RosterHandler) load(r *http.Request, state *SelectionState) (model.Roster, *roster.Selection, error) {
	sess := middleware.GetSession(r.Context())
	ros, err := h.lbSvc.Roster(r.Context(), sess.Data.BackendToken)
	if err != nil {
		return nil, nil, err
	}
	sel := roster.NewSelectionFromState(ros, state.SelectedIDs, state.Presence, state.ViewableIDs)
	return ros, sel, nil
}

func buildTreeResponse(ros model.Roster, sel *roster.Selection, filter string) *treeResponse {
	tree := roster.BuildTree(ros, filter)

	resp := &treeResponse{
		Organizations: []orgNode{},
		SelectedIDs:   sel.IDs(),
		Presence:      sel.Presence(),
		ViewableIDs:   sel.ViewableIDs(),
	}
	for _, org := range tree.Orgs() {
		node := orgNode{Name: org, Checked: sel.OrgChecked(org), Groups: []groupNode{}}
		for _, grp := range tree.Groups(org) {
			gnode := groupNode{Name: grp, Checked: sel.GroupChecked(org, grp), Members: []memberNode{}}
			for _, p := range tree[org][grp] {
				id := string(p.ID)
				gnode.Members = append(gnode.Members, memberNode{
					ID:       id,
					FullName: p.FullName,
					Selected: sel.Has(id),
					Present:  sel.Present(id),
					Viewable: sel.IsViewable(id),
				})
			}
			node.Groups = append(node.Groups, gnode)
		}
		resp.Organizations = append(resp.Organizations, node)
	}
	return resp
}
