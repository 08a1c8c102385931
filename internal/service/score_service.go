package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"sulamboard/internal/backend"
	"sulamboard/internal/model"
)

// Rank movement of a row relative to the previous snapshot.
const (
	MovedUp   = "up"
	MovedDown = "down"
	MovedSame = "same"
	MovedNew  = "new"
)

// pointsPerPage converts backend points into memorization pages for the
// stats strip.
const pointsPerPage = 550

// RankedRow is a score row with its computed rank and movement since the
// previous poll.
type RankedRow struct {
	model.ScoreRow
	Rank      int    `json:"rank"`
	Direction string `json:"direction"`
}

// Stats is the aggregate strip above the score table. Page totals are
// points divided by 550; each board also carries its average over the
// presence-map entry count.
type Stats struct {
	QadeemPages   float64 `json:"qadeem_pages"`
	QadeemAvg     float64 `json:"qadeem_avg"`
	JadeedPages   float64 `json:"jadeed_pages"`
	JadeedAvg     float64 `json:"jadeed_avg"`
	TotalPages    float64 `json:"total_pages"`
	TotalAvg      float64 `json:"total_avg"`
	PresenceCount int     `json:"presence_count"`
}

// Snapshot is one complete poll result for a leaderboard: the record, its
// ranked rows, and the aggregate stats. Fetches replace the snapshot
// wholesale; a failed poll leaves the previous one in the cache.
type Snapshot struct {
	Leaderboard *model.Leaderboard `json:"leaderboard"`
	Rows        []RankedRow        `json:"rows"`
	Stats       Stats              `json:"stats"`
	FetchedAt   time.Time          `json:"fetched_at"`
}

// ScoreService fetches leaderboard scores and keeps the latest snapshot per
// board in Redis so rank movement survives process restarts and watchers
// joining mid-poll get data immediately.
type ScoreService struct {
	client *backend.Client
	cache  *redis.Client
	ttl    time.Duration
}

// NewScoreService creates a score service caching snapshots for ttl.
func NewScoreService(client *backend.Client, cache *redis.Client, ttl time.Duration) *ScoreService {
	return &ScoreService{client: client, cache: cache, ttl: ttl}
}

func snapshotKey(id string) string { return "snapshot:" + id }

// Cached returns the last stored snapshot for a leaderboard, or nil when
// none exists.
func (s *ScoreService) Cached(ctx context.Context, id string) (*Snapshot, error) {
	raw, err := s.cache.Get(ctx, snapshotKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Fetch pulls the leaderboard record and its scores, ranks the rows against
// the previous snapshot, and stores the result.
func (s *ScoreService) Fetch(ctx context.Context, token, id string) (*Snapshot, error) {
	var (
		lb   *model.Leaderboard
		rows []model.ScoreRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lb, err = s.client.GetLeaderboard(gctx, token, id)
		return err
	})
	g.Go(func() error {
		var err error
		rows, err = s.client.GetScores(gctx, token, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	prev, err := s.Cached(ctx, id)
	if err != nil {
		log.Printf("snapshot cache read failed for %s: %v", id, err)
		prev = nil
	}

	snap := &Snapshot{
		Leaderboard: lb,
		Rows:        rankRows(rows, previousRanks(prev)),
		Stats:       computeStats(rows, lb),
		FetchedAt:   time.Now(),
	}
	if err := s.store(ctx, id, snap); err != nil {
		log.Printf("snapshot cache write failed for %s: %v", id, err)
	}
	return snap, nil
}

func (s *ScoreService) store(ctx context.Context, id string, snap *Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, snapshotKey(id), raw, s.ttl).Err()
}

func previousRanks(prev *Snapshot) map[model.ID]int {
	if prev == nil {
		return nil
	}
	ranks := make(map[model.ID]int, len(prev.Rows))
	for _, row := range prev.Rows {
		ranks[row.UserID] = row.Rank
	}
	return ranks
}

// rankRows sorts by total points descending (name ascending on ties) and
// marks each row's movement against the previous ranks.
func rankRows(rows []model.ScoreRow, prev map[model.ID]int) []RankedRow {
	sorted := make([]model.ScoreRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].TotalPoints != sorted[j].TotalPoints {
			return sorted[i].TotalPoints > sorted[j].TotalPoints
		}
		return sorted[i].FullName < sorted[j].FullName
	})

	ranked := make([]RankedRow, 0, len(sorted))
	for i, row := range sorted {
		rank := i + 1
		direction := MovedNew
		if old, ok := prev[row.UserID]; ok {
			switch {
			case rank < old:
				direction = MovedUp
			case rank > old:
				direction = MovedDown
			default:
				direction = MovedSame
			}
		}
		ranked = append(ranked, RankedRow{ScoreRow: row, Rank: rank, Direction: direction})
	}
	return ranked
}

// computeStats sums points into pages and averages each board over the
// record's presence-map entry count, never dividing by zero.
func computeStats(rows []model.ScoreRow, lb *model.Leaderboard) Stats {
	var qadeem, jadeed, total float64
	for _, row := range rows {
		qadeem += row.OldPoints
		jadeed += row.NewPoints
		total += row.TotalPoints
	}

	present := 0
	if lb != nil {
		present = len(lb.UserPresence)
	}
	divisor := float64(present)
	if divisor == 0 {
		divisor = 1
	}

	return Stats{
		QadeemPages:   round1(qadeem / pointsPerPage),
		QadeemAvg:     round1(qadeem / divisor / pointsPerPage),
		JadeedPages:   round1(jadeed / pointsPerPage),
		JadeedAvg:     round1(jadeed / divisor / pointsPerPage),
		TotalPages:    round1(total / pointsPerPage),
		TotalAvg:      round1(total / divisor / pointsPerPage),
		PresenceCount: present,
	}
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
