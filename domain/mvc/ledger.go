package mvc

import (
	"context"
	"math/big"

	"github.com/agora-labs/gatekeeper/domain"
)

// StakeEventHandler consumes normalized ledger events. Delivery is
// at-least-once with no ordering guarantee across distinct addresses.
type StakeEventHandler func(event domain.StakeEvent)

// LedgerOracle represents the contract for read-only queries over a
// group's stake and token contracts. All amounts are in the smallest
// token unit.
type LedgerOracle interface {
	// BalanceOf returns the current token balance of the address.
	// Returns domain.OracleUnavailableError on RPC/network failure; the
	// caller decides retry policy.
	BalanceOf(ctx context.Context, groupID, address string) (*big.Int, error)

	// ActiveTimelocks enumerates locked positions of the address,
	// excluding entries whose expiry is in the past at query time. The
	// enumeration probes the ledger by index and treats an out-of-range
	// result as the natural end of the sequence. It may undercount by
	// one entry when racing a concurrent lock mutation on-chain; the
	// next periodic sweep recovers correctness.
	ActiveTimelocks(ctx context.Context, groupID, address string) ([]domain.Timelock, error)

	// StakeSnapshot combines BalanceOf and ActiveTimelocks into one
	// ephemeral view. Never cached.
	StakeSnapshot(ctx context.Context, groupID, address string) (domain.StakeSnapshot, error)

	// MinimumStakeThresholds returns the group's configured tier
	// thresholds in descending order, cached per group for the process
	// lifetime unless invalidated.
	MinimumStakeThresholds(ctx context.Context, groupID string) ([]*big.Int, error)

	// InvalidateThresholds drops the cached thresholds for the group.
	// Called when the group configuration changes.
	InvalidateThresholds(groupID string)

	// SubscribeEvents pushes normalized Deposit/Withdraw events for the
	// group to the handler. Blocks until the subscription drops or ctx
	// is canceled; the caller owns the resubscription policy.
	SubscribeEvents(ctx context.Context, groupID string, handler StakeEventHandler) error

	// Decimals returns the token's decimal count, for presentation
	// boundaries only. The core never converts amounts.
	Decimals(ctx context.Context, groupID string) (uint8, error)

	// TokenName returns the token's display name, for presentation
	// boundaries only.
	TokenName(ctx context.Context, groupID string) (string, error)
}
