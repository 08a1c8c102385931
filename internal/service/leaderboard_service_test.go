package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sulamboard/internal/backend"
	"sulamboard/internal/model"
)

func testUser(role string) *model.User {
	return &model.User{
		ID:       "self",
		FullName: "Test Teacher",
		Organizations: map[string]model.OrgMembership{
			"OrgA": {Role: role},
		},
	}
}

// lbBackend fakes the leaderboard endpoints and captures submissions.
type lbBackend struct {
	roster    map[string][]map[string]interface{}
	boards    []map[string]interface{}
	record    map[string]interface{}
	submitted *model.LeaderboardSubmission
	deleted   bool
}

func (b *lbBackend) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/user/list_my_org_users", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(b.roster)
	})
	mux.HandleFunc("/leaderboard/visible", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(b.boards)
	})
	mux.HandleFunc("/leaderboard/get/lb1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(b.record)
	})
	mux.HandleFunc("/leaderboard/create", func(w http.ResponseWriter, r *http.Request) {
		var sub model.LeaderboardSubmission
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
			t.Errorf("decode submission: %v", err)
		}
		b.submitted = &sub
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("/leaderboard/lb1/edit", func(w http.ResponseWriter, r *http.Request) {
		var sub model.LeaderboardSubmission
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
			t.Errorf("decode submission: %v", err)
		}
		b.submitted = &sub
	})
	mux.HandleFunc("/leaderboard/lb1/delete", func(w http.ResponseWriter, r *http.Request) {
		b.deleted = true
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func rosterPayload() map[string][]map[string]interface{} {
	member := func(id, name string, groups ...string) map[string]interface{} {
		return map[string]interface{}{
			"_id": id, "full_name": name,
			"organizations": map[string]interface{}{
				"OrgA": map[string]interface{}{"groups": groups},
			},
		}
	}
	return map[string][]map[string]interface{}{
		"OrgA": {
			member("u1", "Aisha", "G1"),
			member("u2", "Bashir", "G1"),
			member("u3", "Dawud"),
		},
	}
}

func TestOverviewSplitsAndFilters(t *testing.T) {
	bk := &lbBackend{
		roster: rosterPayload(),
		boards: []map[string]interface{}{
			{
				"_id": "lb1", "name": "Running",
				"student_organizations": []string{"OrgA"},
				"start_time":            "2026-08-01T00:00:00Z",
				"end_time":              "2099-01-01T00:00:00Z",
			},
			{
				"_id": "lb2", "name": "Done",
				"student_organizations": []string{"OrgA"},
				"start_time":            "2026-01-01T00:00:00Z",
				"end_time":              "2026-02-01T00:00:00Z",
			},
			{
				"_id": "lb3", "name": "Other org",
				"student_organizations": []string{"OrgB"},
				"start_time":            "2026-08-01T00:00:00Z",
				"end_time":              "2099-01-01T00:00:00Z",
			},
		},
	}
	svc := NewLeaderboardService(backend.New(bk.server(t).URL))

	overview, err := svc.Overview(context.Background(), "tok", testUser("teacher"), "")
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	// Org tabs only include the caller's organizations
	if len(overview.Organizations) != 1 || overview.Organizations[0] != "OrgA" {
		t.Errorf("organizations = %v, want [OrgA]", overview.Organizations)
	}
	if len(overview.Current) != 2 {
		t.Errorf("current = %d boards, want 2", len(overview.Current))
	}
	if len(overview.Archived) != 1 || overview.Archived[0].Name != "Done" {
		t.Errorf("archived = %+v", overview.Archived)
	}

	overview, err = svc.Overview(context.Background(), "tok", testUser("teacher"), "OrgA")
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if len(overview.Current) != 1 || overview.Current[0].Name != "Running" {
		t.Errorf("filtered current = %+v", overview.Current)
	}
}

func TestCreateDerivesTargets(t *testing.T) {
	bk := &lbBackend{roster: rosterPayload()}
	svc := NewLeaderboardService(backend.New(bk.server(t).URL))

	draft := &LeaderboardDraft{
		Name:        "August 31",
		StartTime:   "2026-08-31T09:00",
		EndTime:     "2026-08-31T17:00",
		Timezone:    "UTC",
		SelectedIDs: []string{"u1", "u2"},
		Presence:    map[string]bool{"u1": true, "u2": false},
		ViewableIDs: []string{"u1"},
		Linkable:    true,
	}
	if err := svc.Create(context.Background(), "tok", testUser("teacher"), draft); err != nil {
		t.Fatalf("Create: %v", err)
	}

	sub := bk.submitted
	if sub == nil {
		t.Fatal("nothing submitted")
	}
	if sub.StartTime != "2026-08-31T09:00:00Z" || sub.EndTime != "2026-08-31T17:00:00Z" {
		t.Errorf("times = %s / %s", sub.StartTime, sub.EndTime)
	}
	// u1+u2 cover G1 but not all of OrgA
	if len(sub.TargetOrganizations) != 0 {
		t.Errorf("target orgs = %v, want none", sub.TargetOrganizations)
	}
	if len(sub.TargetGroups) != 1 || sub.TargetGroups[0] != "OrgA:G1" {
		t.Errorf("target groups = %v, want [OrgA:G1]", sub.TargetGroups)
	}
	if len(sub.TargetUserIDs) != 2 {
		t.Errorf("target ids = %v", sub.TargetUserIDs)
	}
	if !sub.UserPresence["u1"] || sub.UserPresence["u2"] {
		t.Errorf("presence = %v", sub.UserPresence)
	}
	if len(sub.ViewableUserIDs) != 1 || sub.ViewableUserIDs[0] != "u1" {
		t.Errorf("viewable = %v", sub.ViewableUserIDs)
	}
	if !sub.Linkable {
		t.Error("linkable flag dropped")
	}
}

func TestCreateValidation(t *testing.T) {
	bk := &lbBackend{roster: rosterPayload()}
	svc := NewLeaderboardService(backend.New(bk.server(t).URL))

	tests := []struct {
		name  string
		draft LeaderboardDraft
	}{
		{"missing name", LeaderboardDraft{StartTime: "2026-08-31T09:00", EndTime: "2026-08-31T17:00"}},
		{"bad start", LeaderboardDraft{Name: "x", StartTime: "nope", EndTime: "2026-08-31T17:00"}},
		{"end before start", LeaderboardDraft{Name: "x", StartTime: "2026-08-31T17:00", EndTime: "2026-08-31T09:00"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Create(context.Background(), "tok", testUser("teacher"), &tt.draft)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
	if bk.submitted != nil {
		t.Error("invalid draft reached the backend")
	}
}

func TestCreateRequiresEditorRole(t *testing.T) {
	bk := &lbBackend{roster: rosterPayload()}
	svc := NewLeaderboardService(backend.New(bk.server(t).URL))

	draft := &LeaderboardDraft{Name: "x", StartTime: "2026-08-31T09:00", EndTime: "2026-08-31T17:00"}
	if err := svc.Create(context.Background(), "tok", testUser("member"), draft); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

func TestUpdateRoleGateChecksTargetOrg(t *testing.T) {
	bk := &lbBackend{
		roster: rosterPayload(),
		record: map[string]interface{}{
			"_id": "lb1", "name": "Test",
			"student_organizations": []string{"OrgB"},
		},
	}
	svc := NewLeaderboardService(backend.New(bk.server(t).URL))

	// Editor in OrgA only, board targets OrgB
	draft := &LeaderboardDraft{Name: "x", StartTime: "2026-08-31T09:00", EndTime: "2026-08-31T17:00"}
	if err := svc.Update(context.Background(), "tok", "lb1", testUser("teacher"), draft); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}

	if err := svc.Delete(context.Background(), "tok", "lb1", testUser("teacher")); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden on delete, got %v", err)
	}
	if bk.deleted {
		t.Error("forbidden delete reached the backend")
	}
}

func TestUpdateAllowedForOrgEditor(t *testing.T) {
	bk := &lbBackend{
		roster: rosterPayload(),
		record: map[string]interface{}{
			"_id": "lb1", "name": "Test",
			"student_organizations": []string{"OrgA"},
		},
	}
	svc := NewLeaderboardService(backend.New(bk.server(t).URL))

	draft := &LeaderboardDraft{Name: "x", StartTime: "2026-08-31T09:00", EndTime: "2026-08-31T17:00"}
	if err := svc.Update(context.Background(), "tok", "lb1", testUser("rabtteacher"), draft); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if bk.submitted == nil {
		t.Error("update never reached the backend")
	}
}

func TestEditorStateFor(t *testing.T) {
	bk := &lbBackend{roster: rosterPayload()}
	svc := NewLeaderboardService(backend.New(bk.server(t).URL))

	lb := &model.Leaderboard{
		ID:                   "lb1",
		Name:                 "Stored",
		Description:          "desc",
		StartTime:            model.Time{Time: time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)},
		EndTime:              model.Time{Time: time.Date(2026, 8, 31, 17, 0, 0, 0, time.UTC)},
		TargetGroups:         []string{"OrgA:G1"},
		ViewableUserIDs:      []model.ID{"u1"},
		UserPresence:         map[string]bool{"u1": false},
		Linkable:             true,
		StudentOrganizations: []string{},
	}

	ros, err := svc.Roster(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Roster: %v", err)
	}
	state := svc.EditorStateFor(ros, lb, time.UTC)

	if state.Name != "Stored" || state.StartTime != "2026-08-31T09:00" {
		t.Errorf("basic fields = %q %q", state.Name, state.StartTime)
	}
	if len(state.SelectedIDs) != 2 {
		t.Errorf("selected = %v, want u1 and u2 from OrgA:G1", state.SelectedIDs)
	}
	if state.Presence["u1"] || !state.Presence["u2"] {
		t.Errorf("presence = %v", state.Presence)
	}
	if len(state.ViewableIDs) != 1 || state.ViewableIDs[0] != "u1" {
		t.Errorf("viewable = %v", state.ViewableIDs)
	}
	if !state.Linkable {
		t.Error("linkable flag dropped")
	}
}

func TestEditorDefaults(t *testing.T) {
	svc := NewLeaderboardService(backend.New("http://unused"))
	now := time.Date(2026, 8, 31, 9, 30, 0, 0, time.UTC)

	state := svc.EditorDefaults(now, time.UTC)
	if state.Name != "August 31" {
		t.Errorf("name = %q", state.Name)
	}
	if state.StartTime != "2026-08-31T09:30" || state.EndTime != "2026-08-31T10:30" {
		t.Errorf("window = %q to %q", state.StartTime, state.EndTime)
	}
}
