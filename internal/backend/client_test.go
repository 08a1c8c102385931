package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/user/login" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"token":"backend-token"}`))
	}))
	defer srv.Close()

	token, err := New(srv.URL).Login(context.Background(), "a@b.c", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token != "backend-token" {
		t.Errorf("got token %q", token)
	}
}

func TestLoginRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"bad credentials"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Login(context.Background(), "a@b.c", "wrong")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

// Transport failure and auth failure must stay distinguishable: only the
// latter clears a session.
func TestUnavailableIsNotUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	_, err := New(srv.URL).GetSelf(context.Background(), "tok")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if errors.Is(err, ErrUnauthorized) {
		t.Fatal("transport failure must not read as auth failure")
	}
}

func TestListOrgUsersDecodesWireShapes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "tok" {
			t.Errorf("token header: %q", got)
		}
		w.Write([]byte(`{
			"OrgA": [
				{"_id": {"$oid": "64a1b2c3d4e5f6a7b8c9d0e1"}, "full_name": "Aisha",
				 "organizations": {"OrgA": {"groups": ["G1"], "role": "member"}}},
				{"_id": "plain-id", "full_name": "Noor"}
			]
		}`))
	}))
	defer srv.Close()

	roster, err := New(srv.URL).ListOrgUsers(context.Background(), "tok")
	if err != nil {
		t.Fatalf("ListOrgUsers: %v", err)
	}
	people := roster["OrgA"]
	if len(people) != 2 {
		t.Fatalf("expected 2 people, got %d", len(people))
	}
	if people[0].ID.String() != "64a1b2c3d4e5f6a7b8c9d0e1" {
		t.Errorf("wrapped id not normalized: %q", people[0].ID)
	}
	if people[1].ID.String() != "plain-id" {
		t.Errorf("plain id mangled: %q", people[1].ID)
	}
	if got := people[0].Groups("OrgA"); len(got) != 1 || got[0] != "G1" {
		t.Errorf("groups: %v", got)
	}
	if got := people[1].Groups("OrgA"); len(got) != 0 {
		t.Errorf("missing membership should read empty, got %v", got)
	}
}

func TestGetLeaderboardWrappedDates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"_id": {"$oid": "64a1b2c3d4e5f6a7b8c9d0e1"},
			"name": "April 19",
			"start_time": {"$date": "2025-04-19T04:33:00Z"},
			"end_time": {"$date": {"$numberLong": "1745123580000"}},
			"user_presence": {"u1": true},
			"linkable": true
		}`))
	}))
	defer srv.Close()

	lb, err := New(srv.URL).GetLeaderboard(context.Background(), "tok", "64a1b2c3d4e5f6a7b8c9d0e1")
	if err != nil {
		t.Fatalf("GetLeaderboard: %v", err)
	}
	if lb.StartTime.IsZero() || lb.EndTime.IsZero() {
		t.Errorf("wrapped dates did not decode: start=%v end=%v", lb.StartTime, lb.EndTime)
	}
	if !lb.Linkable || !lb.UserPresence["u1"] {
		t.Errorf("fields lost: %+v", lb)
	}
}

func TestMalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`"not an object"`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).ListOrgUsers(context.Background(), "tok")
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestDeleteLeaderboard(t *testing.T) {
	var gotPath, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	if err := New(srv.URL).DeleteLeaderboard(context.Background(), "tok", "abc"); err != nil {
		t.Fatalf("DeleteLeaderboard: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/leaderboard/abc/delete" {
		t.Errorf("got %s %s", gotMethod, gotPath)
	}
}
