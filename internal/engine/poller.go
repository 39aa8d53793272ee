package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/sethvargo/go-retry"
)

// errAuthorizationPending is the internal marker for a poll round that came
// back without a guid. Never surfaced to callers.
var errAuthorizationPending = errors.New("session authorization still pending")

// PollForSessionGUID runs the bounded authorization-pending loop: one
// status request per round, a fixed delay between rounds, and a hard cap on
// the number of rounds. A granted session (non-empty guid in the response)
// stops the loop and invokes continuation. Exhausting the budget or a
// transport failure stops the loop without ever invoking continuation.
//
// At most one loop is active per session; a second call while one is
// running returns immediately. The call blocks until the loop terminates.
func (e *engine) PollForSessionGUID(ctx context.Context, continuation func()) {
	if !e.session.BeginPolling() {
		return
	}
	defer e.session.EndPolling()

	log := e.log.With().Str("func", "engine.PollForSessionGUID").Logger()

	// maxRounds attempts total: the initial round plus maxRounds-1 retries.
	backoff := retry.WithMaxRetries(uint64(e.pollMaxRounds-1), retry.NewConstant(e.pollDelay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		round := e.session.IncrementPollCount()

		resp, pollErr := e.adapter.PollSessionGUID(ctx)
		if pollErr != nil {
			// a broken transport ends the loop; only a pending answer
			// earns another round
			log.Debug().Err(pollErr).Int("round", round).Msg("session poll round failed")
			return fmt.Errorf("poll session guid: %w", pollErr)
		}
		if resp.GUID == "" {
			return retry.RetryableError(errAuthorizationPending)
		}

		log.Debug().Int("round", round).Msg("session authorization granted")
		return nil
	})
	if err != nil {
		log.Info().Int("rounds", e.session.PollCount()).Msg("session poll stopped without grant")
		return
	}

	if continuation != nil {
		continuation()
	}
}
