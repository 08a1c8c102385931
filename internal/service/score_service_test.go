package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"sulamboard/internal/backend"
	"sulamboard/internal/model"
)

type scoreBackend struct {
	mu     sync.Mutex
	meta   map[string]interface{}
	scores []map[string]interface{}
}

func (b *scoreBackend) setScores(scores []map[string]interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scores = scores
}

func (b *scoreBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/leaderboard/get/lb1", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		json.NewEncoder(w).Encode(b.meta)
	})
	mux.HandleFunc("/leaderboard/lb1", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.scores == nil {
			http.Error(w, `{"error":"scores unavailable"}`, http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(b.scores)
	})
	return mux
}

func newScoreService(t *testing.T, bk *scoreBackend) *ScoreService {
	t.Helper()
	srv := httptest.NewServer(bk.handler())
	t.Cleanup(srv.Close)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewScoreService(backend.New(srv.URL), rdb, time.Minute)
}

func scoreRow(id string, total float64) map[string]interface{} {
	return map[string]interface{}{
		"user_id": id, "full_name": "User " + id,
		"OldPoints": total / 2, "NewPoints": total / 2, "TotalPoints": total,
	}
}

func TestFetchRanksAndDirections(t *testing.T) {
	bk := &scoreBackend{
		meta:   map[string]interface{}{"_id": "lb1", "name": "Test"},
		scores: []map[string]interface{}{scoreRow("u1", 1100), scoreRow("u2", 550)},
	}
	svc := newScoreService(t, bk)
	ctx := context.Background()

	snap, err := svc.Fetch(ctx, "tok", "lb1")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(snap.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(snap.Rows))
	}
	if snap.Rows[0].UserID != "u1" || snap.Rows[0].Rank != 1 {
		t.Errorf("expected u1 at rank 1, got %s at %d", snap.Rows[0].UserID, snap.Rows[0].Rank)
	}
	if snap.Rows[0].Direction != MovedNew {
		t.Errorf("first fetch should mark rows new, got %s", snap.Rows[0].Direction)
	}

	bk.setScores([]map[string]interface{}{scoreRow("u1", 1100), scoreRow("u2", 2200)})
	snap, err = svc.Fetch(ctx, "tok", "lb1")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if snap.Rows[0].UserID != "u2" || snap.Rows[0].Direction != MovedUp {
		t.Errorf("expected u2 moved up, got %s %s", snap.Rows[0].UserID, snap.Rows[0].Direction)
	}
	if snap.Rows[1].UserID != "u1" || snap.Rows[1].Direction != MovedDown {
		t.Errorf("expected u1 moved down, got %s %s", snap.Rows[1].UserID, snap.Rows[1].Direction)
	}
}

func TestFetchCachesSnapshot(t *testing.T) {
	bk := &scoreBackend{
		meta:   map[string]interface{}{"_id": "lb1", "name": "Test"},
		scores: []map[string]interface{}{scoreRow("u1", 550)},
	}
	svc := newScoreService(t, bk)
	ctx := context.Background()

	if snap, err := svc.Cached(ctx, "lb1"); err != nil || snap != nil {
		t.Fatalf("expected empty cache, got %v, %v", snap, err)
	}
	if _, err := svc.Fetch(ctx, "tok", "lb1"); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	snap, err := svc.Cached(ctx, "lb1")
	if err != nil {
		t.Fatalf("Cached: %v", err)
	}
	if snap == nil || len(snap.Rows) != 1 || snap.Rows[0].UserID != "u1" {
		t.Fatalf("cached snapshot malformed: %+v", snap)
	}
}

func TestRankTiesBreakByName(t *testing.T) {
	rows := []model.ScoreRow{
		{UserID: "b", FullName: "Bashir", TotalPoints: 100},
		{UserID: "a", FullName: "Aisha", TotalPoints: 100},
	}
	ranked := rankRows(rows, nil)
	if ranked[0].FullName != "Aisha" {
		t.Errorf("expected name tiebreak, got %s first", ranked[0].FullName)
	}
}

func TestComputeStats(t *testing.T) {
	rows := []model.ScoreRow{
		{UserID: "u1", OldPoints: 550, NewPoints: 1100, TotalPoints: 1650},
		{UserID: "u2", OldPoints: 0, NewPoints: 550, TotalPoints: 550},
		{UserID: "u3", OldPoints: 0, NewPoints: 0, TotalPoints: 0},
	}
	lb := &model.Leaderboard{UserPresence: map[string]bool{"u1": true, "u2": true, "u3": false}}

	stats := computeStats(rows, lb)
	if stats.TotalPages != 4 {
		t.Errorf("TotalPages = %v, want 4", stats.TotalPages)
	}
	if stats.QadeemPages != 1 || stats.JadeedPages != 3 {
		t.Errorf("QadeemPages = %v JadeedPages = %v, want 1 and 3", stats.QadeemPages, stats.JadeedPages)
	}
	// Averages divide by presence-map entries, flagged or not
	if stats.PresenceCount != 3 {
		t.Errorf("PresenceCount = %d, want 3", stats.PresenceCount)
	}
	if stats.TotalAvg != 1.3 {
		t.Errorf("TotalAvg = %v, want 1.3", stats.TotalAvg)
	}
	if stats.QadeemAvg != 0.3 || stats.JadeedAvg != 1 {
		t.Errorf("QadeemAvg = %v JadeedAvg = %v, want 0.3 and 1", stats.QadeemAvg, stats.JadeedAvg)
	}
}

func TestComputeStatsNoPresenceMap(t *testing.T) {
	rows := []model.ScoreRow{
		{UserID: "u1", TotalPoints: 550},
		{UserID: "u2", TotalPoints: 550},
	}
	stats := computeStats(rows, &model.Leaderboard{})
	if stats.PresenceCount != 0 {
		t.Errorf("PresenceCount = %d, want 0", stats.PresenceCount)
	}
	if stats.TotalPages != 2 || stats.TotalAvg != 2 {
		t.Errorf("TotalPages = %v TotalAvg = %v, want 2 and 2", stats.TotalPages, stats.TotalAvg)
	}
}

func TestComputeStatsEmpty(t *testing.T) {
	stats := computeStats(nil, &model.Leaderboard{})
	if stats.TotalAvg != 0 || stats.TotalPages != 0 {
		t.Errorf("empty stats should be zero, got %+v", stats)
	}
}
