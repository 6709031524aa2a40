package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/agora-labs/gatekeeper/domain"
	"github.com/agora-labs/gatekeeper/domain/mvc"
	"github.com/agora-labs/gatekeeper/domain/workerpool"
	"github.com/agora-labs/gatekeeper/log"
)

// groupRescanInterval bounds how long a newly registered group waits
// before its watcher and sweep loop come up.
const groupRescanInterval = time.Minute

var _ mvc.WatcherUsecase = &watcherUsecase{}

// watcherUsecase turns ledger events and a periodic sweep into
// Reconcile calls. Events are triggers only; the sweep is the
// correctness backstop for anything missed while a subscription was
// down.
type watcherUsecase struct {
	config *domain.WatcherConfig

	groupStore    mvc.GroupStore
	identityStore mvc.IdentityStore
	oracle        mvc.LedgerOracle
	reconciler    mvc.ReconcilerUsecase

	watchedMx sync.Mutex
	watched   map[string]struct{}

	logger log.Logger
}

// NewWatcherUsecase creates the watcher.
func NewWatcherUsecase(config *domain.WatcherConfig, groupStore mvc.GroupStore, identityStore mvc.IdentityStore, oracle mvc.LedgerOracle, reconciler mvc.ReconcilerUsecase, logger log.Logger) mvc.WatcherUsecase {
	return &watcherUsecase{
		config:        config,
		groupStore:    groupStore,
		identityStore: identityStore,
		oracle:        oracle,
		reconciler:    reconciler,
		watched:       make(map[string]struct{}),
		logger:        logger,
	}
}

// Start implements mvc.WatcherUsecase.
func (w *watcherUsecase) Start(ctx context.Context) error {
	if err := w.scanGroups(ctx); err != nil {
		return err
	}

	// Groups registered after startup are picked up on the next scan.
	go func() {
		ticker := time.NewTicker(groupRescanInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := w.scanGroups(ctx); err != nil {
					w.logger.Error("group rescan failed", zap.Error(err))
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// scanGroups launches the watch and sweep loops for every group that
// does not have them yet.
func (w *watcherUsecase) scanGroups(ctx context.Context) error {
	groups, err := w.groupStore.ListGroups(ctx)
	if err != nil {
		return err
	}

	w.watchedMx.Lock()
	defer w.watchedMx.Unlock()

	for _, group := range groups {
		if _, ok := w.watched[group.ID]; ok {
			continue
		}
		w.watched[group.ID] = struct{}{}

		w.logger.Info("watching group",
			zap.String("group_id", group.ID),
			zap.Duration("sweep_interval", w.sweepInterval(group)))

		go w.watchGroup(ctx, group.ID)
		go w.sweepLoop(ctx, group)
	}

	return nil
}

// watchGroup keeps one event subscription alive with exponential
// backoff between reconnects. A subscription that stayed up past the
// backoff cap resets the schedule.
func (w *watcherUsecase) watchGroup(ctx context.Context, groupID string) {
	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = time.Duration(w.config.MaxReconnectBackoffSeconds) * time.Second
	bo.MaxElapsedTime = 0

	for {
		connectedAt := time.Now()

		err := w.oracle.SubscribeEvents(ctx, groupID, func(event domain.StakeEvent) {
			w.handleEvent(ctx, event)
		})

		if ctx.Err() != nil {
			return
		}

		if time.Since(connectedAt) > bo.MaxInterval {
			bo.Reset()
		}

		wait := bo.NextBackOff()
		domain.GatekeeperWatcherReconnectCounter.Inc()

		w.logger.Warn("event subscription dropped",
			zap.String("group_id", groupID),
			zap.Duration("retry_in", wait),
			zap.Error(err))

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return
		}
	}
}

// handleEvent maps a ledger event to the linked identity and triggers a
// reconciliation. Events for unlinked addresses are expected and
// ignored: anyone can stake into a watched pool.
func (w *watcherUsecase) handleEvent(ctx context.Context, event domain.StakeEvent) {
	link, err := w.identityStore.ResolveAddress(ctx, event.Address, event.GroupID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return
		}
		w.logger.Error("address resolution failed",
			zap.String("group_id", event.GroupID),
			zap.String("address", event.Address),
			zap.Error(err))
		return
	}

	// Reconcile off the subscription goroutine so a slow chat API never
	// backs up the event stream.
	go func() {
		if _, err := w.reconciler.Reconcile(ctx, link.IdentityID, link.GroupID); err != nil {
			w.logger.Error("event-triggered reconciliation failed",
				zap.String("identity_id", link.IdentityID),
				zap.String("group_id", link.GroupID),
				zap.String("kind", string(event.Kind)),
				zap.Error(err))
		}
	}()
}

func (w *watcherUsecase) sweepLoop(ctx context.Context, group domain.Group) {
	// One sweep right away: it catches up on anything that changed while
	// the service was down.
	if err := w.SweepGroup(ctx, group.ID); err != nil {
		w.logger.Error("startup sweep failed",
			zap.String("group_id", group.ID),
			zap.Error(err))
	}

	ticker := time.NewTicker(w.sweepInterval(group))
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.SweepGroup(ctx, group.ID); err != nil {
				w.logger.Error("periodic sweep failed",
					zap.String("group_id", group.ID),
					zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}

func (w *watcherUsecase) sweepInterval(group domain.Group) time.Duration {
	if group.SweepInterval > 0 {
		return group.SweepInterval
	}

	return time.Duration(w.config.SweepIntervalMinutes) * time.Minute
}

// SweepGroup implements mvc.WatcherUsecase.
func (w *watcherUsecase) SweepGroup(ctx context.Context, groupID string) error {
	start := time.Now()

	identityIDs, err := w.identityStore.ListLinked(ctx, groupID)
	if err != nil {
		return err
	}

	dispatcher := workerpool.NewDispatcher[domain.Outcome](w.config.MaxSweepWorkers)
	go dispatcher.Run(ctx)

	go func() {
		for _, identityID := range identityIDs {
			identityID := identityID
			dispatcher.Submit(workerpool.Job[domain.Outcome]{
				Task: func(ctx context.Context) (domain.Outcome, error) {
					return w.reconciler.Reconcile(ctx, identityID, groupID)
				},
			})
		}
		dispatcher.Close()
	}()

	// Individual failures are logged and do not abort the sweep; the
	// next pass retries them.
	var failed int
	for result := range dispatcher.Results() {
		if result.Err != nil {
			failed++
		}
	}

	domain.GatekeeperSweepDurationGauge.Set(float64(time.Since(start).Milliseconds()))

	w.logger.Info("sweep completed",
		zap.String("group_id", groupID),
		zap.Int("identities", len(identityIDs)),
		zap.Int("failed", failed),
		zap.Duration("duration", time.Since(start)))

	return nil
}
