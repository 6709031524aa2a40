package usecase_test

import (
	"context"
	"errors"
	"math/big"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agora-labs/gatekeeper/domain"
	"github.com/agora-labs/gatekeeper/domain/mocks"
	"github.com/agora-labs/gatekeeper/domain/mvc"
	"github.com/agora-labs/gatekeeper/log"
	"github.com/agora-labs/gatekeeper/watcher/usecase"
)

const (
	testGroupID = "-1001431174128"
	testAddress = "0x3bfc20f0b9afcace800d73d2191166ff16540258"
)

func testWatcherConfig() *domain.WatcherConfig {
	return &domain.WatcherConfig{
		SweepIntervalMinutes:       30,
		MaxSweepWorkers:            4,
		MaxReconnectBackoffSeconds: 2,
	}
}

func singleGroupStore() *mocks.GroupStoreMock {
	return &mocks.GroupStoreMock{
		ListGroupsFunc: func(ctx context.Context) ([]domain.Group, error) {
			return []domain.Group{{ID: testGroupID, Thresholds: []*big.Int{big.NewInt(10)}}}, nil
		},
	}
}

func TestSweepGroup_ReconcilesEveryLinkedIdentity(t *testing.T) {
	linked := []string{"usr-1", "usr-2", "usr-3", "usr-4", "usr-5"}

	identityStore := &mocks.IdentityStoreMock{
		ListLinkedFunc: func(ctx context.Context, groupID string) ([]string, error) {
			require.Equal(t, testGroupID, groupID)
			return linked, nil
		},
	}

	var (
		mx         sync.Mutex
		reconciled []string
	)
	reconciler := &mocks.ReconcilerUsecaseMock{
		ReconcileFunc: func(ctx context.Context, identityID, groupID string) (domain.Outcome, error) {
			mx.Lock()
			reconciled = append(reconciled, identityID)
			mx.Unlock()
			return domain.OutcomeNoOp, nil
		},
	}

	watcher := usecase.NewWatcherUsecase(testWatcherConfig(), singleGroupStore(), identityStore, &mocks.LedgerOracleMock{}, reconciler, &log.NoOpLogger{})

	err := watcher.SweepGroup(context.Background(), testGroupID)
	require.NoError(t, err)

	sort.Strings(reconciled)
	require.Equal(t, linked, reconciled)
}

func TestSweepGroup_ContinuesPastFailures(t *testing.T) {
	linked := []string{"usr-1", "usr-2", "usr-3"}

	identityStore := &mocks.IdentityStoreMock{
		ListLinkedFunc: func(ctx context.Context, groupID string) ([]string, error) {
			return linked, nil
		},
	}

	var attempts sync.Map
	reconciler := &mocks.ReconcilerUsecaseMock{
		ReconcileFunc: func(ctx context.Context, identityID, groupID string) (domain.Outcome, error) {
			attempts.Store(identityID, struct{}{})
			if identityID == "usr-2" {
				return domain.OutcomeFailed, errors.New("chat API 502")
			}
			return domain.OutcomeNoOp, nil
		},
	}

	watcher := usecase.NewWatcherUsecase(testWatcherConfig(), singleGroupStore(), identityStore, &mocks.LedgerOracleMock{}, reconciler, &log.NoOpLogger{})

	err := watcher.SweepGroup(context.Background(), testGroupID)
	require.NoError(t, err)

	for _, identityID := range linked {
		_, ok := attempts.Load(identityID)
		require.True(t, ok, "identity %s was not swept", identityID)
	}
}

func TestWatcher_EventTriggersReconcile(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	oracle := &mocks.LedgerOracleMock{
		SubscribeEventsFunc: func(ctx context.Context, groupID string, handler mvc.StakeEventHandler) error {
			handler(domain.StakeEvent{
				Kind:    domain.StakeEventDeposit,
				GroupID: groupID,
				Address: testAddress,
				Amount:  big.NewInt(500),
			})
			<-ctx.Done()
			return ctx.Err()
		},
	}

	identityStore := &mocks.IdentityStoreMock{
		ResolveAddressFunc: func(ctx context.Context, address, groupID string) (domain.IdentityLink, error) {
			require.Equal(t, testAddress, address)
			return domain.IdentityLink{IdentityID: "usr-1", Address: address, GroupID: groupID}, nil
		},
	}

	reconciled := make(chan string, 1)
	reconciler := &mocks.ReconcilerUsecaseMock{
		ReconcileFunc: func(ctx context.Context, identityID, groupID string) (domain.Outcome, error) {
			reconciled <- identityID
			return domain.OutcomeInviteIssued, nil
		},
	}

	watcher := usecase.NewWatcherUsecase(testWatcherConfig(), singleGroupStore(), identityStore, oracle, reconciler, &log.NoOpLogger{})

	require.NoError(t, watcher.Start(ctx))

	select {
	case identityID := <-reconciled:
		require.Equal(t, "usr-1", identityID)
	case <-time.After(2 * time.Second):
		t.Fatal("expected an event-triggered reconciliation")
	}
}

func TestWatcher_UnlinkedAddressEventIgnored(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	delivered := make(chan struct{})
	oracle := &mocks.LedgerOracleMock{
		SubscribeEventsFunc: func(ctx context.Context, groupID string, handler mvc.StakeEventHandler) error {
			handler(domain.StakeEvent{
				Kind:    domain.StakeEventWithdraw,
				GroupID: groupID,
				Address: testAddress,
				Amount:  big.NewInt(1),
			})
			close(delivered)
			<-ctx.Done()
			return ctx.Err()
		},
	}

	reconciled := make(chan struct{}, 1)
	reconciler := &mocks.ReconcilerUsecaseMock{
		ReconcileFunc: func(ctx context.Context, identityID, groupID string) (domain.Outcome, error) {
			reconciled <- struct{}{}
			return domain.OutcomeNoOp, nil
		},
	}

	// Default identity store mock resolves nothing.
	watcher := usecase.NewWatcherUsecase(testWatcherConfig(), singleGroupStore(), &mocks.IdentityStoreMock{}, oracle, reconciler, &log.NoOpLogger{})

	require.NoError(t, watcher.Start(ctx))

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("event was never delivered")
	}

	select {
	case <-reconciled:
		t.Fatal("reconciliation must not run for an unlinked address")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatcher_ResubscribesAfterDrop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resubscribed := make(chan struct{})
	var calls int
	oracle := &mocks.LedgerOracleMock{
		SubscribeEventsFunc: func(ctx context.Context, groupID string, handler mvc.StakeEventHandler) error {
			calls++
			if calls == 1 {
				return errors.New("websocket closed")
			}
			close(resubscribed)
			<-ctx.Done()
			return ctx.Err()
		},
	}

	watcher := usecase.NewWatcherUsecase(testWatcherConfig(), singleGroupStore(), &mocks.IdentityStoreMock{}, oracle, &mocks.ReconcilerUsecaseMock{}, &log.NoOpLogger{})

	require.NoError(t, watcher.Start(ctx))

	select {
	case <-resubscribed:
	case <-time.After(5 * time.Second):
		t.Fatal("expected a resubscription after the drop")
	}
}
