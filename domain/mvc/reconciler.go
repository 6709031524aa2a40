package mvc

import (
	"context"

	"github.com/agora-labs/gatekeeper/domain"
)

// ReconcilerUsecase decides and applies the single correct membership
// action for one (identity, group) pair. Invocations for the same pair
// are serialized; distinct pairs run fully in parallel.
type ReconcilerUsecase interface {
	// Reconcile infers the pair's state fresh from the ledger and the
	// identity store, evaluates the decision table and applies the
	// resulting group admin action. Synchronous: returns once the
	// outcome is applied or the invocation is abandoned.
	//
	// An unknown group or unlinked identity is a no-op, not an error.
	// Transient failures return domain.OutcomeFailed together with the
	// underlying error; no partial membership action is ever taken.
	Reconcile(ctx context.Context, identityID, groupID string) (domain.Outcome, error)
}

// WatcherUsecase bridges the ledger event stream and the periodic sweep
// into Reconcile calls.
type WatcherUsecase interface {
	// Start launches the supervised event subscription and the periodic
	// sweep for every configured group. Returns after launch; workers
	// stop when ctx is canceled.
	Start(ctx context.Context) error

	// SweepGroup re-evaluates every linked identity of the group once,
	// independent of events. Serves as the correctness backstop for
	// events lost during a subscription reconnect window.
	SweepGroup(ctx context.Context, groupID string) error
}
