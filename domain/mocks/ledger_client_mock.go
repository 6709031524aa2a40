package mocks

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/agora-labs/gatekeeper/domain"
	ledgerclient "github.com/agora-labs/gatekeeper/ledger/client"
)

var _ ledgerclient.Client = &LedgerClientMock{}

// LedgerClientMock is a mock implementation of the low-level contract
// client
type LedgerClientMock struct {
	BalanceOfFunc            func(ctx context.Context, address common.Address) (*big.Int, error)
	TimelockFunc             func(ctx context.Context, address common.Address, index int64) (domain.Timelock, error)
	DecimalsFunc             func(ctx context.Context) (uint8, error)
	TokenNameFunc            func(ctx context.Context) (string, error)
	SubscribeStakeEventsFunc func(ctx context.Context, sink chan<- domain.StakeEvent) error
}

func (m *LedgerClientMock) BalanceOf(ctx context.Context, address common.Address) (*big.Int, error) {
	if m.BalanceOfFunc != nil {
		return m.BalanceOfFunc(ctx, address)
	}
	return big.NewInt(0), nil
}

func (m *LedgerClientMock) Timelock(ctx context.Context, address common.Address, index int64) (domain.Timelock, error) {
	if m.TimelockFunc != nil {
		return m.TimelockFunc(ctx, address, index)
	}
	return domain.Timelock{}, domain.ErrTimelockOutOfRange
}

func (m *LedgerClientMock) Decimals(ctx context.Context) (uint8, error) {
	if m.DecimalsFunc != nil {
		return m.DecimalsFunc(ctx)
	}
	return 18, nil
}

func (m *LedgerClientMock) TokenName(ctx context.Context) (string, error) {
	if m.TokenNameFunc != nil {
		return m.TokenNameFunc(ctx)
	}
	return "Agora Token", nil
}

func (m *LedgerClientMock) SubscribeStakeEvents(ctx context.Context, sink chan<- domain.StakeEvent) error {
	if m.SubscribeStakeEventsFunc != nil {
		return m.SubscribeStakeEventsFunc(ctx, sink)
	}
	<-ctx.Done()
	return ctx.Err()
}
