package service

import (
	"context"
	"log"
	"time"
)

// Poller periodically refreshes one leaderboard's snapshot and delivers
// each result to a callback. It fetches once immediately on start, then on
// every tick until its context is cancelled. A failed tick is logged and
// skipped; the previous snapshot stays current.
type Poller struct {
	scores   *ScoreService
	interval time.Duration
}

// NewPoller creates a poller refreshing at the given interval.
func NewPoller(scores *ScoreService, interval time.Duration) *Poller {
	return &Poller{scores: scores, interval: interval}
}

// Run polls until ctx is cancelled. Each successful fetch is passed to
// deliver. Run blocks; callers start it in a goroutine.
func (p *Poller) Run(ctx context.Context, token, id string, deliver func(*Snapshot)) {
	p.poll(ctx, token, id, deliver)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx, token, id, deliver)
		}
	}
}

func (p *Poller) poll(ctx context.Context, token, id string, deliver func(*Snapshot)) {
	snap, err := p.scores.Fetch(ctx, token, id)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("poll failed for leaderboard %s: %v", id, err)
		}
		return
	}
	deliver(snap)
}
