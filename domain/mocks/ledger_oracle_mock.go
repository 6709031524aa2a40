package mocks

import (
	"context"
	"math/big"

	"github.com/agora-labs/gatekeeper/domain"
	"github.com/agora-labs/gatekeeper/domain/mvc"
)

var _ mvc.LedgerOracle = &LedgerOracleMock{}

// LedgerOracleMock is a mock implementation of the LedgerOracle interface
type LedgerOracleMock struct {
	BalanceOfFunc              func(ctx context.Context, groupID, address string) (*big.Int, error)
	ActiveTimelocksFunc        func(ctx context.Context, groupID, address string) ([]domain.Timelock, error)
	StakeSnapshotFunc          func(ctx context.Context, groupID, address string) (domain.StakeSnapshot, error)
	MinimumStakeThresholdsFunc func(ctx context.Context, groupID string) ([]*big.Int, error)
	InvalidateThresholdsFunc   func(groupID string)
	SubscribeEventsFunc        func(ctx context.Context, groupID string, handler mvc.StakeEventHandler) error
	DecimalsFunc               func(ctx context.Context, groupID string) (uint8, error)
	TokenNameFunc              func(ctx context.Context, groupID string) (string, error)
}

func (m *LedgerOracleMock) BalanceOf(ctx context.Context, groupID, address string) (*big.Int, error) {
	if m.BalanceOfFunc != nil {
		return m.BalanceOfFunc(ctx, groupID, address)
	}
	return big.NewInt(0), nil
}

func (m *LedgerOracleMock) ActiveTimelocks(ctx context.Context, groupID, address string) ([]domain.Timelock, error) {
	if m.ActiveTimelocksFunc != nil {
		return m.ActiveTimelocksFunc(ctx, groupID, address)
	}
	return nil, nil
}

func (m *LedgerOracleMock) StakeSnapshot(ctx context.Context, groupID, address string) (domain.StakeSnapshot, error) {
	if m.StakeSnapshotFunc != nil {
		return m.StakeSnapshotFunc(ctx, groupID, address)
	}

	balance, err := m.BalanceOf(ctx, groupID, address)
	if err != nil {
		return domain.StakeSnapshot{}, err
	}

	timelocks, err := m.ActiveTimelocks(ctx, groupID, address)
	if err != nil {
		return domain.StakeSnapshot{}, err
	}

	locked := big.NewInt(0)
	for _, timelock := range timelocks {
		locked = locked.Add(locked, timelock.Amount)
	}

	return domain.StakeSnapshot{
		Total:        balance,
		Locked:       locked,
		Withdrawable: new(big.Int).Sub(balance, locked),
		Timelocks:    timelocks,
	}, nil
}

func (m *LedgerOracleMock) MinimumStakeThresholds(ctx context.Context, groupID string) ([]*big.Int, error) {
	if m.MinimumStakeThresholdsFunc != nil {
		return m.MinimumStakeThresholdsFunc(ctx, groupID)
	}
	return nil, nil
}

func (m *LedgerOracleMock) InvalidateThresholds(groupID string) {
	if m.InvalidateThresholdsFunc != nil {
		m.InvalidateThresholdsFunc(groupID)
	}
}

func (m *LedgerOracleMock) SubscribeEvents(ctx context.Context, groupID string, handler mvc.StakeEventHandler) error {
	if m.SubscribeEventsFunc != nil {
		return m.SubscribeEventsFunc(ctx, groupID, handler)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *LedgerOracleMock) Decimals(ctx context.Context, groupID string) (uint8, error) {
	if m.DecimalsFunc != nil {
		return m.DecimalsFunc(ctx, groupID)
	}
	return 18, nil
}

func (m *LedgerOracleMock) TokenName(ctx context.Context, groupID string) (string, error) {
	if m.TokenNameFunc != nil {
		return m.TokenNameFunc(ctx, groupID)
	}
	return "Agora Token", nil
}
