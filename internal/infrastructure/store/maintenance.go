package store

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/clusterintranet/authgate/pkg/constants"
)

// sweepMarker is the persisted "last cleanup" record. Keeping it in the store
// rather than process memory means the schedule survives restarts and is
// shared by every instance pointing at the same backend.
type sweepMarker struct {
	LastRun int64 `json:"last_run"`
}

// Sweeper gates amortized cleanup sweeps: a sweep runs at most once per
// interval across processes, and concurrent in-process triggers collapse to
// one run. Both the rate limiter and the blacklist use this, each with its
// own marker key.
type Sweeper struct {
	records  RecordStore
	marker   string
	interval time.Duration
	group    singleflight.Group
	now      func() time.Time
}

// NewSweeper creates a sweeper with its own marker record named after name.
func NewSweeper(records RecordStore, name string, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = constants.CleanupInterval
	}
	return &Sweeper{
		records:  records,
		marker:   constants.KeyPrefixMarker + name,
		interval: interval,
		now:      time.Now,
	}
}

// MaybeRun invokes sweep if the last recorded run is older than the interval.
// The marker is written before sweeping so overlapping processes skip; losing
// a race costs one delayed sweep, never a doubled one within a process.
func (s *Sweeper) MaybeRun(ctx context.Context, sweep func(ctx context.Context)) {
	s.group.Do(s.marker, func() (interface{}, error) {
		if !s.due(ctx) {
			return nil, nil
		}

		if err := s.records.Put(ctx, s.marker, sweepMarker{LastRun: s.now().Unix()}); err != nil {
			// Marker write failed; skip rather than risk a sweep stampede.
			return nil, nil
		}

		sweep(ctx)
		return nil, nil
	})
}

// LastRun reports when the sweep last ran, zero time if never.
func (s *Sweeper) LastRun(ctx context.Context) time.Time {
	var m sweepMarker
	found, err := s.records.Get(ctx, s.marker, &m)
	if err != nil || !found || m.LastRun == 0 {
		return time.Time{}
	}
	return time.Unix(m.LastRun, 0)
}

func (s *Sweeper) due(ctx context.Context) bool {
	last := s.LastRun(ctx)
	if last.IsZero() {
		return true
	}
	return s.now().Sub(last) >= s.interval
}
