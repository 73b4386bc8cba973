package assessment

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Autosaver checkpoints a live attempt to the SessionStore on a fixed
// cadence and on demand (visibility loss, disconnect). Saves are
// best-effort: a failed upsert is logged and retried on the next
// trigger, never surfaced to the student or allowed to block input
// handling.
type Autosaver struct {
	attempt  *Attempt
	store    SessionStore
	interval time.Duration
	log      zerolog.Logger
}

// NewAutosaver wires an attempt to its session store.
func NewAutosaver(attempt *Attempt, store SessionStore, interval time.Duration, log zerolog.Logger) *Autosaver {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Autosaver{
		attempt:  attempt,
		store:    store,
		interval: interval,
		log:      log.With().Str("component", "autosaver").Logger(),
	}
}

// Run flushes on the configured interval until ctx is cancelled.
// Call in a goroutine; cancellation is the teardown path when the
// student navigates away or the attempt finishes.
func (s *Autosaver) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.attempt.Submitted() {
				return
			}
			s.Flush(ctx)
		}
	}
}

// Flush upserts the current snapshot. Called by the interval loop and
// directly on visibility-loss / unload signals from the client.
func (s *Autosaver) Flush(ctx context.Context) {
	snap := s.attempt.Snapshot()
	if err := s.store.Upsert(ctx, snap); err != nil {
		s.log.Warn().
			Err(err).
			Str("test_id", snap.TestID.String()).
			Int("student_id", snap.StudentID).
			Msg("Checkpoint save failed, will retry on next trigger")
	}
}
