package services

import (
	"context"
	"sync"
	"time"

	"github.com/gojektech/heimdall/v6"

	"github.com/resdex/resdex/internal/client/debounce"
	"github.com/resdex/resdex/internal/common"
	"github.com/resdex/resdex/internal/logging"
	"github.com/resdex/resdex/internal/profile"
)

const (
	resubscribeInitial = 100 * time.Millisecond
	resubscribeMax     = 5 * time.Second
)

// Search filters the live user snapshot. Query changes are debounced; mode
// changes re-filter at once.
type Search struct {
	records   RecordStore
	debouncer *debounce.Debouncer
	backoff   heimdall.Backoff
	limit     int
	logger    logging.Logger

	mu        sync.Mutex
	mode      profile.Mode
	query     string
	snapshot  []profile.UserProfile
	results   profile.Results
	onResults func(profile.Results)

	cancel context.CancelFunc
	done   chan struct{}
}

// NewSearch returns an idle search. onResults, if set, receives every filter
// run's output.
func NewSearch(records RecordStore, delay time.Duration, logger logging.Logger, onResults func(profile.Results)) *Search {
	return &Search{
		records:   records,
		debouncer: debounce.New(delay),
		backoff:   heimdall.NewExponentialBackoff(resubscribeInitial, resubscribeMax, 2, resubscribeInitial/2),
		limit:     common.SnapshotLimit,
		logger:    logger.With("module", "search"),
		onResults: onResults,
	}
}

// Start subscribes to the live snapshot. Each delivered snapshot replaces the
// previous one. Only the first subscription error is returned; later ones
// are retried until ctx is done or Close is called.
func (s *Search) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	updates, err := s.records.WatchUsers(ctx, s.limit)
	if err != nil {
		cancel()
		return err
	}

	s.mu.Lock()
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		s.follow(ctx, updates)
	}()
	return nil
}

// follow consumes updates and resubscribes with backoff whenever the stream
// ends.
func (s *Search) follow(ctx context.Context, updates <-chan []profile.UserProfile) {
	retry := 0
	for {
		for users := range updates {
			s.mu.Lock()
			s.snapshot = users
			s.mu.Unlock()
			retry = 0
		}

		for {
			if ctx.Err() != nil {
				return
			}
			wait := s.backoff.Next(retry)
			retry++
			s.logger.Warn(ctx, "live snapshot stream ended, resubscribing", "retry_in", wait)

			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}

			var err error
			if updates, err = s.records.WatchUsers(ctx, s.limit); err == nil {
				break
			}
			s.logger.Warn(ctx, "resubscribe failed", "error", err)
		}
	}
}

// SetQuery records q immediately and schedules a filter run.
func (s *Search) SetQuery(q string) string {
	s.mu.Lock()
	s.query = q
	s.mu.Unlock()

	s.debouncer.Trigger(s.run)
	return q
}

// SetMode switches mode and re-filters the current query right away.
func (s *Search) SetMode(m profile.Mode) {
	s.mu.Lock()
	s.mode = m
	s.mu.Unlock()

	s.run()
}

func (s *Search) Mode() profile.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *Search) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

func (s *Search) Results() profile.Results {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results
}

// SnapshotLen is the number of records currently held.
func (s *Search) SnapshotLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshot)
}

func (s *Search) run() {
	s.mu.Lock()
	res := profile.Filter(s.mode, s.snapshot, s.query)
	s.results = res
	cb := s.onResults
	s.mu.Unlock()

	if cb != nil {
		cb(res)
	}
}

// Close stops pending filter runs and the subscription.
func (s *Search) Close() {
	s.debouncer.Stop()

	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}
