package usecase_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/agora-labs/gatekeeper/domain"
	"github.com/agora-labs/gatekeeper/domain/mocks"
	"github.com/agora-labs/gatekeeper/domain/mvc"
	ledgerclient "github.com/agora-labs/gatekeeper/ledger/client"
	"github.com/agora-labs/gatekeeper/ledger/usecase"
)

const (
	testGroupID = "-1001431174128"
	testAddress = "0x3bfc20f0b9afcace800d73d2191166ff16540258"
)

var testThresholds = []*big.Int{big.NewInt(1000), big.NewInt(100), big.NewInt(10)}

func newOracle(t *testing.T, client ledgerclient.Client, groupStore *mocks.GroupStoreMock) (mvc.LedgerOracle, *int) {
	t.Helper()

	factoryCalls := 0
	oracle, err := usecase.NewLedgerOracle(groupStore, func(group domain.Group) (ledgerclient.Client, error) {
		factoryCalls++
		return client, nil
	})
	require.NoError(t, err)

	return oracle, &factoryCalls
}

func groupStoreWithGroup() *mocks.GroupStoreMock {
	return &mocks.GroupStoreMock{
		GetGroupFunc: func(ctx context.Context, groupID string) (domain.Group, error) {
			if groupID != testGroupID {
				return domain.Group{}, domain.ErrNotFound
			}
			return domain.Group{ID: testGroupID, Thresholds: testThresholds}, nil
		},
	}
}

func TestActiveTimelocks(t *testing.T) {
	now := time.Now()

	locks := []domain.Timelock{
		{Amount: big.NewInt(100), ExpiresAt: now.Add(time.Hour)},
		{Amount: big.NewInt(50), ExpiresAt: now.Add(-time.Hour)},
		{Amount: big.NewInt(25), ExpiresAt: now.Add(30 * 24 * time.Hour)},
	}

	client := &mocks.LedgerClientMock{
		TimelockFunc: func(ctx context.Context, address common.Address, index int64) (domain.Timelock, error) {
			if index >= int64(len(locks)) {
				return domain.Timelock{}, domain.ErrTimelockOutOfRange
			}
			return locks[index], nil
		},
	}

	oracle, _ := newOracle(t, client, groupStoreWithGroup())

	active, err := oracle.ActiveTimelocks(context.Background(), testGroupID, testAddress)
	require.NoError(t, err)

	// The expired middle entry is filtered out.
	require.Len(t, active, 2)
	require.Equal(t, big.NewInt(100), active[0].Amount)
	require.Equal(t, big.NewInt(25), active[1].Amount)
}

func TestStakeSnapshot(t *testing.T) {
	now := time.Now()

	client := &mocks.LedgerClientMock{
		BalanceOfFunc: func(ctx context.Context, address common.Address) (*big.Int, error) {
			return big.NewInt(1000), nil
		},
		TimelockFunc: func(ctx context.Context, address common.Address, index int64) (domain.Timelock, error) {
			if index > 0 {
				return domain.Timelock{}, domain.ErrTimelockOutOfRange
			}
			return domain.Timelock{Amount: big.NewInt(300), ExpiresAt: now.Add(time.Hour)}, nil
		},
	}

	oracle, _ := newOracle(t, client, groupStoreWithGroup())

	snapshot, err := oracle.StakeSnapshot(context.Background(), testGroupID, testAddress)
	require.NoError(t, err)

	require.Equal(t, big.NewInt(1000), snapshot.Total)
	require.Equal(t, big.NewInt(300), snapshot.Locked)
	require.Equal(t, big.NewInt(700), snapshot.Withdrawable)
	require.Len(t, snapshot.Timelocks, 1)
}

func TestStakeSnapshot_ReadFailure(t *testing.T) {
	client := &mocks.LedgerClientMock{
		BalanceOfFunc: func(ctx context.Context, address common.Address) (*big.Int, error) {
			return nil, errors.New("connection refused")
		},
	}

	oracle, _ := newOracle(t, client, groupStoreWithGroup())

	_, err := oracle.StakeSnapshot(context.Background(), testGroupID, testAddress)
	require.Error(t, err)

	var oracleErr domain.OracleUnavailableError
	require.ErrorAs(t, err, &oracleErr)
	require.Equal(t, testGroupID, oracleErr.GroupID)
}

func TestMinimumStakeThresholds_Cached(t *testing.T) {
	storeReads := 0
	groupStore := &mocks.GroupStoreMock{
		GetGroupFunc: func(ctx context.Context, groupID string) (domain.Group, error) {
			storeReads++
			return domain.Group{ID: testGroupID, Thresholds: testThresholds}, nil
		},
	}

	oracle, _ := newOracle(t, &mocks.LedgerClientMock{}, groupStore)

	for i := 0; i < 3; i++ {
		thresholds, err := oracle.MinimumStakeThresholds(context.Background(), testGroupID)
		require.NoError(t, err)
		require.Equal(t, testThresholds, thresholds)
	}

	require.Equal(t, 1, storeReads)

	oracle.InvalidateThresholds(testGroupID)

	_, err := oracle.MinimumStakeThresholds(context.Background(), testGroupID)
	require.NoError(t, err)
	require.Equal(t, 2, storeReads)
}

func TestClientHandleReuse(t *testing.T) {
	client := &mocks.LedgerClientMock{
		BalanceOfFunc: func(ctx context.Context, address common.Address) (*big.Int, error) {
			return big.NewInt(1), nil
		},
	}

	oracle, factoryCalls := newOracle(t, client, groupStoreWithGroup())

	for i := 0; i < 3; i++ {
		_, err := oracle.BalanceOf(context.Background(), testGroupID, testAddress)
		require.NoError(t, err)
	}
	require.Equal(t, 1, *factoryCalls)

	// Invalidation drops the handle together with the thresholds since
	// the contract addresses may have changed.
	oracle.InvalidateThresholds(testGroupID)

	_, err := oracle.BalanceOf(context.Background(), testGroupID, testAddress)
	require.NoError(t, err)
	require.Equal(t, 2, *factoryCalls)
}

func TestSubscribeEvents_StampsGroupID(t *testing.T) {
	client := &mocks.LedgerClientMock{
		SubscribeStakeEventsFunc: func(ctx context.Context, sink chan<- domain.StakeEvent) error {
			sink <- domain.StakeEvent{
				Kind:    domain.StakeEventDeposit,
				Address: testAddress,
				Amount:  big.NewInt(500),
			}
			<-ctx.Done()
			return ctx.Err()
		},
	}

	oracle, _ := newOracle(t, client, groupStoreWithGroup())

	ctx, cancel := context.WithCancel(context.Background())

	received := make(chan domain.StakeEvent, 1)
	done := make(chan error, 1)
	go func() {
		done <- oracle.SubscribeEvents(ctx, testGroupID, func(event domain.StakeEvent) {
			received <- event
		})
	}()

	select {
	case event := <-received:
		require.Equal(t, testGroupID, event.GroupID)
		require.Equal(t, domain.StakeEventDeposit, event.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a stake event")
	}

	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not stop on cancel")
	}
}

func TestUnknownGroup(t *testing.T) {
	oracle, _ := newOracle(t, &mocks.LedgerClientMock{}, &mocks.GroupStoreMock{})

	_, err := oracle.BalanceOf(context.Background(), "-100999", testAddress)
	require.ErrorIs(t, err, domain.ErrNotFound)
}
