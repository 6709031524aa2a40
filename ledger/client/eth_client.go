package ledgerclient

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/agora-labs/gatekeeper/domain"
)

// poolContractABI covers the stake-pool surface the oracle reads. The
// timelocks array has no length accessor; entries are read by index
// until the contract reverts.
const poolContractABI = `[
	{"type":"function","name":"timelocks","stateMutability":"view","inputs":[{"name":"","type":"address"},{"name":"","type":"uint256"}],"outputs":[{"name":"amount","type":"uint256"},{"name":"expires","type":"uint256"}]},
	{"type":"function","name":"lockInterval","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"event","name":"Deposit","inputs":[{"name":"wallet","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}]},
	{"type":"event","name":"Withdraw","inputs":[{"name":"wallet","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}]}
]`

// tokenContractABI covers the minimal ERC-20 read surface.
const tokenContractABI = `[
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]}
]`

// Backend is the subset of the node client the ledger client needs:
// contract reads plus log subscriptions. *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
}

// Client provides low-level reads over one group's pool and token
// contracts. Amounts are in the smallest token unit.
type Client interface {
	// BalanceOf returns the current token balance of the address.
	BalanceOf(ctx context.Context, address common.Address) (*big.Int, error)

	// Timelock reads one locked position by index. Returns
	// domain.ErrTimelockOutOfRange once the index is past the end of
	// the on-chain array.
	Timelock(ctx context.Context, address common.Address, index int64) (domain.Timelock, error)

	// Decimals returns the token's decimal count.
	Decimals(ctx context.Context) (uint8, error)

	// TokenName returns the token's display name.
	TokenName(ctx context.Context) (string, error)

	// SubscribeStakeEvents streams raw Deposit/Withdraw events from the
	// pool contract into sink. Blocks until the subscription drops or
	// ctx is canceled.
	SubscribeStakeEvents(ctx context.Context, sink chan<- domain.StakeEvent) error
}

var _ Client = &ethContractClient{}

type ethContractClient struct {
	backend Backend

	poolAddress  common.Address
	tokenAddress common.Address

	poolABI  abi.ABI
	tokenABI abi.ABI

	poolContract  *bind.BoundContract
	tokenContract *bind.BoundContract
}

// NewClient binds the group's pool and token contracts on the given
// backend. Addresses must already be validated by the group store.
func NewClient(backend Backend, group domain.Group) (Client, error) {
	poolABI, err := abi.JSON(strings.NewReader(poolContractABI))
	if err != nil {
		return nil, err
	}

	tokenABI, err := abi.JSON(strings.NewReader(tokenContractABI))
	if err != nil {
		return nil, err
	}

	poolAddress := common.HexToAddress(group.PoolAddress)
	tokenAddress := common.HexToAddress(group.TokenAddress)

	return &ethContractClient{
		backend:       backend,
		poolAddress:   poolAddress,
		tokenAddress:  tokenAddress,
		poolABI:       poolABI,
		tokenABI:      tokenABI,
		poolContract:  bind.NewBoundContract(poolAddress, poolABI, backend, backend, backend),
		tokenContract: bind.NewBoundContract(tokenAddress, tokenABI, backend, backend, backend),
	}, nil
}

// BalanceOf implements Client.
func (c *ethContractClient) BalanceOf(ctx context.Context, address common.Address) (*big.Int, error) {
	var out []interface{}
	if err := c.tokenContract.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", address); err != nil {
		return nil, err
	}

	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// Timelock implements Client.
func (c *ethContractClient) Timelock(ctx context.Context, address common.Address, index int64) (domain.Timelock, error) {
	var out []interface{}
	err := c.poolContract.Call(&bind.CallOpts{Context: ctx}, &out, "timelocks", address, big.NewInt(index))
	if err != nil {
		// An out-of-bounds array read reverts; that is the natural end
		// of the sequence, not a failure.
		if isRevert(err) {
			return domain.Timelock{}, domain.ErrTimelockOutOfRange
		}
		return domain.Timelock{}, err
	}
	if len(out) < 2 {
		return domain.Timelock{}, domain.ErrTimelockOutOfRange
	}

	amount := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	expires := *abi.ConvertType(out[1], new(*big.Int)).(**big.Int)

	return domain.Timelock{
		Amount:    amount,
		ExpiresAt: time.Unix(expires.Int64(), 0).UTC(),
	}, nil
}

// Decimals implements Client.
func (c *ethContractClient) Decimals(ctx context.Context) (uint8, error) {
	var out []interface{}
	if err := c.tokenContract.Call(&bind.CallOpts{Context: ctx}, &out, "decimals"); err != nil {
		return 0, err
	}

	return *abi.ConvertType(out[0], new(uint8)).(*uint8), nil
}

// TokenName implements Client.
func (c *ethContractClient) TokenName(ctx context.Context) (string, error) {
	var out []interface{}
	if err := c.tokenContract.Call(&bind.CallOpts{Context: ctx}, &out, "name"); err != nil {
		return "", err
	}

	return *abi.ConvertType(out[0], new(string)).(*string), nil
}

// SubscribeStakeEvents implements Client.
func (c *ethContractClient) SubscribeStakeEvents(ctx context.Context, sink chan<- domain.StakeEvent) error {
	depositID := c.poolABI.Events["Deposit"].ID
	withdrawID := c.poolABI.Events["Withdraw"].ID

	query := ethereum.FilterQuery{
		Addresses: []common.Address{c.poolAddress},
		Topics:    [][]common.Hash{{depositID, withdrawID}},
	}

	logs := make(chan types.Log)
	sub, err := c.backend.SubscribeFilterLogs(ctx, query, logs)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	for {
		select {
		case vLog := <-logs:
			event, err := c.parseStakeEvent(vLog, depositID)
			if err != nil {
				// Malformed log from a matching topic filter; skip it,
				// the sweep covers any missed state change.
				continue
			}
			select {
			case sink <- event:
			case <-ctx.Done():
				return ctx.Err()
			}
		case err := <-sub.Err():
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *ethContractClient) parseStakeEvent(vLog types.Log, depositID common.Hash) (domain.StakeEvent, error) {
	kind := domain.StakeEventWithdraw
	name := "Withdraw"
	if vLog.Topics[0] == depositID {
		kind = domain.StakeEventDeposit
		name = "Deposit"
	}

	if len(vLog.Topics) < 2 {
		return domain.StakeEvent{}, domain.ErrNotFound
	}
	wallet := common.HexToAddress(vLog.Topics[1].Hex())

	amount := new(big.Int)
	unpacked, err := c.poolABI.Unpack(name, vLog.Data)
	if err != nil {
		return domain.StakeEvent{}, err
	}
	if len(unpacked) > 0 {
		amount = *abi.ConvertType(unpacked[0], new(*big.Int)).(**big.Int)
	}

	return domain.StakeEvent{
		Kind:    kind,
		Address: strings.ToLower(wallet.Hex()),
		Amount:  amount,
	}, nil
}

// isRevert reports whether a call error is a contract revert rather than
// a transport failure.
func isRevert(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "execution reverted") || strings.Contains(msg, "revert")
}
