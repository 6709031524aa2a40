package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/agora-labs/gatekeeper/domain"
	"github.com/agora-labs/gatekeeper/domain/keymutex"
	"github.com/agora-labs/gatekeeper/domain/mvc"
	"github.com/agora-labs/gatekeeper/log"
	"github.com/agora-labs/gatekeeper/tier"
)

// evictionReason is sent to the evicted identity by the group admin.
const evictionReason = "your stake has dropped below the minimum required for this group"

var _ mvc.ReconcilerUsecase = &reconcilerUsecase{}

// reconcilerUsecase applies the membership decision table for one
// (identity, group) pair at a time. All chain state is re-read fresh on
// every invocation, so the engine is idempotent and converges regardless
// of which trigger fired it or in what order events arrived.
type reconcilerUsecase struct {
	groupStore    mvc.GroupStore
	identityStore mvc.IdentityStore
	oracle        mvc.LedgerOracle
	groupAdmin    mvc.GroupAdmin

	locks         *keymutex.KeyMutex
	oracleTimeout time.Duration

	// Pairs for which an unexpired invite is already outstanding. Kept
	// in memory only: losing it on restart means at worst a duplicate
	// invite link, never a wrong membership decision.
	invitesMx      sync.Mutex
	pendingInvites map[string]time.Time

	logger log.Logger
}

// NewReconcilerUsecase creates the reconciliation engine.
func NewReconcilerUsecase(config *domain.ReconcilerConfig, groupStore mvc.GroupStore, identityStore mvc.IdentityStore, oracle mvc.LedgerOracle, groupAdmin mvc.GroupAdmin, logger log.Logger) mvc.ReconcilerUsecase {
	return &reconcilerUsecase{
		groupStore:     groupStore,
		identityStore:  identityStore,
		oracle:         oracle,
		groupAdmin:     groupAdmin,
		locks:          keymutex.New(),
		oracleTimeout:  time.Duration(config.OracleTimeoutSeconds) * time.Second,
		pendingInvites: make(map[string]time.Time),
		logger:         logger,
	}
}

// Reconcile implements mvc.ReconcilerUsecase.
func (r *reconcilerUsecase) Reconcile(ctx context.Context, identityID, groupID string) (domain.Outcome, error) {
	key := pairKey(identityID, groupID)

	r.locks.Lock(key)
	defer r.locks.Unlock(key)

	start := time.Now()

	outcome, err := r.reconcile(ctx, identityID, groupID)

	domain.GatekeeperReconcileTotalCounter.WithLabelValues(string(outcome)).Inc()
	domain.GatekeeperReconcileDurationGauge.Set(float64(time.Since(start).Milliseconds()))

	if err != nil {
		r.logger.Error("reconciliation failed",
			zap.String("identity_id", identityID),
			zap.String("group_id", groupID),
			zap.Error(err))
		return outcome, err
	}

	r.logger.Info("reconciliation completed",
		zap.String("identity_id", identityID),
		zap.String("group_id", groupID),
		zap.String("outcome", string(outcome)),
		zap.Duration("duration", time.Since(start)))

	return outcome, nil
}

func (r *reconcilerUsecase) reconcile(ctx context.Context, identityID, groupID string) (domain.Outcome, error) {
	// An unconfigured group is a legitimate no-op: events can arrive for
	// pools this deployment does not gate.
	if _, err := r.groupStore.GetGroup(ctx, groupID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.OutcomeNoOp, nil
		}
		return domain.OutcomeFailed, err
	}

	link, err := r.identityStore.ResolveIdentity(ctx, identityID, groupID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Nothing is known about this identity here; there is no
			// membership to grant or revoke.
			return domain.OutcomeNoOp, nil
		}
		return domain.OutcomeFailed, err
	}

	// Everything below the oracle reads is decided from this one
	// snapshot. A read failure abandons the invocation before any group
	// admin action so no partial state change can occur.
	oracleCtx := ctx
	if r.oracleTimeout > 0 {
		var cancel context.CancelFunc
		oracleCtx, cancel = context.WithTimeout(ctx, r.oracleTimeout)
		defer cancel()
	}

	snapshot, err := r.oracle.StakeSnapshot(oracleCtx, groupID, link.Address)
	if err != nil {
		return domain.OutcomeFailed, err
	}

	thresholds, err := r.oracle.MinimumStakeThresholds(oracleCtx, groupID)
	if err != nil {
		return domain.OutcomeFailed, err
	}

	isAdmin, err := r.groupAdmin.IsAdmin(ctx, identityID, groupID)
	if err != nil {
		return domain.OutcomeFailed, err
	}

	accessTier := tier.Classify(snapshot.Total, snapshot.Locked, thresholds, isAdmin)

	switch {
	case !accessTier.Eligible() && link.IsMember():
		return r.remove(ctx, identityID, groupID)

	case accessTier.Eligible() && !link.IsMember():
		return r.invite(ctx, identityID, groupID)

	default:
		return domain.OutcomeNoOp, nil
	}
}

// remove evicts the identity from the group and only then drops the
// link. A failed evict leaves the link intact so the next trigger
// retries the whole removal.
func (r *reconcilerUsecase) remove(ctx context.Context, identityID, groupID string) (domain.Outcome, error) {
	if err := r.groupAdmin.Evict(ctx, identityID, groupID, evictionReason); err != nil {
		domain.GatekeeperAdminActionErrorCounter.WithLabelValues("evict").Inc()
		return domain.OutcomeFailed, domain.AdminActionFailedError{Action: "evict", IdentityID: identityID, GroupID: groupID, Err: err}
	}

	if err := r.identityStore.Unlink(ctx, identityID, groupID); err != nil {
		return domain.OutcomeFailed, err
	}

	r.clearPendingInvite(pairKey(identityID, groupID))

	return domain.OutcomeRemoved, nil
}

func (r *reconcilerUsecase) invite(ctx context.Context, identityID, groupID string) (domain.Outcome, error) {
	key := pairKey(identityID, groupID)

	// Repeated triggers while an invite is still valid must not spam
	// the identity with fresh links.
	if r.hasPendingInvite(key) {
		return domain.OutcomeNoOp, nil
	}

	invite, err := r.groupAdmin.IssueInvite(ctx, identityID, groupID)
	if err != nil {
		domain.GatekeeperAdminActionErrorCounter.WithLabelValues("invite").Inc()
		return domain.OutcomeFailed, domain.AdminActionFailedError{Action: "invite", IdentityID: identityID, GroupID: groupID, Err: err}
	}

	r.invitesMx.Lock()
	r.pendingInvites[key] = invite.ExpiresAt
	r.invitesMx.Unlock()

	return domain.OutcomeInviteIssued, nil
}

func (r *reconcilerUsecase) hasPendingInvite(key string) bool {
	r.invitesMx.Lock()
	defer r.invitesMx.Unlock()

	expiresAt, ok := r.pendingInvites[key]
	if !ok {
		return false
	}
	if time.Now().After(expiresAt) {
		delete(r.pendingInvites, key)
		return false
	}

	return true
}

func (r *reconcilerUsecase) clearPendingInvite(key string) {
	r.invitesMx.Lock()
	delete(r.pendingInvites, key)
	r.invitesMx.Unlock()
}

func pairKey(identityID, groupID string) string {
	return identityID + ":" + groupID
}
