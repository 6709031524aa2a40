package usecase

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/agora-labs/gatekeeper/domain"
	"github.com/agora-labs/gatekeeper/domain/mvc"
	ledgerclient "github.com/agora-labs/gatekeeper/ledger/client"
)

// ClientFactory binds a contract client for one group's configured
// addresses.
type ClientFactory func(group domain.Group) (ledgerclient.Client, error)

const (
	// Upper bound on timelock index probing. A position count anywhere
	// near this indicates a contract bug, not a real stake.
	maxTimelockProbes = 1024

	thresholdCacheSize = 256

	eventBufferSize = 64
)

var _ mvc.LedgerOracle = &ledgerOracle{}

// ledgerOracle serves read-only stake queries over per-group contract
// handles. Handles and thresholds are cached per group for the process
// lifetime and invalidated explicitly on group config changes; both
// caches are read-only from the perspective of concurrent
// reconciliations.
type ledgerOracle struct {
	groupStore    mvc.GroupStore
	clientFactory ClientFactory

	clientsMx sync.Mutex
	clients   map[string]ledgerclient.Client

	thresholdCache *lru.Cache[string, []*big.Int]
}

// NewLedgerOracle creates the oracle. The factory is called once per
// group and the resulting handle reused until invalidated.
func NewLedgerOracle(groupStore mvc.GroupStore, clientFactory ClientFactory) (mvc.LedgerOracle, error) {
	thresholdCache, err := lru.New[string, []*big.Int](thresholdCacheSize)
	if err != nil {
		return nil, err
	}

	return &ledgerOracle{
		groupStore:     groupStore,
		clientFactory:  clientFactory,
		clients:        make(map[string]ledgerclient.Client),
		thresholdCache: thresholdCache,
	}, nil
}

// BalanceOf implements mvc.LedgerOracle.
func (o *ledgerOracle) BalanceOf(ctx context.Context, groupID, address string) (*big.Int, error) {
	client, err := o.clientFor(ctx, groupID)
	if err != nil {
		return nil, err
	}

	balance, err := client.BalanceOf(ctx, common.HexToAddress(address))
	if err != nil {
		domain.GatekeeperOracleErrorCounter.Inc()
		return nil, domain.OracleUnavailableError{GroupID: groupID, Address: address, Err: err}
	}

	return balance, nil
}

// ActiveTimelocks implements mvc.LedgerOracle.
func (o *ledgerOracle) ActiveTimelocks(ctx context.Context, groupID, address string) ([]domain.Timelock, error) {
	client, err := o.clientFor(ctx, groupID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	account := common.HexToAddress(address)

	var active []domain.Timelock
	for index := int64(0); index < maxTimelockProbes; index++ {
		timelock, err := client.Timelock(ctx, account, index)
		if err == domain.ErrTimelockOutOfRange {
			break
		}
		if err != nil {
			domain.GatekeeperOracleErrorCounter.Inc()
			return nil, domain.OracleUnavailableError{GroupID: groupID, Address: address, Err: err}
		}

		if timelock.ExpiresAt.After(now) {
			active = append(active, timelock)
		}
	}

	return active, nil
}

// StakeSnapshot implements mvc.LedgerOracle.
func (o *ledgerOracle) StakeSnapshot(ctx context.Context, groupID, address string) (domain.StakeSnapshot, error) {
	balance, err := o.BalanceOf(ctx, groupID, address)
	if err != nil {
		return domain.StakeSnapshot{}, err
	}

	timelocks, err := o.ActiveTimelocks(ctx, groupID, address)
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

// MinimumStakeThresholds implements mvc.LedgerOracle.
func (o *ledgerOracle) MinimumStakeThresholds(ctx context.Context, groupID string) ([]*big.Int, error) {
	if thresholds, ok := o.thresholdCache.Get(groupID); ok {
		return thresholds, nil
	}

	group, err := o.groupStore.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	o.thresholdCache.Add(groupID, group.Thresholds)

	return group.Thresholds, nil
}

// InvalidateThresholds implements mvc.LedgerOracle.
func (o *ledgerOracle) InvalidateThresholds(groupID string) {
	o.thresholdCache.Remove(groupID)

	// The pool/token addresses may have changed together with the
	// thresholds; drop the contract handle as well.
	o.clientsMx.Lock()
	delete(o.clients, groupID)
	o.clientsMx.Unlock()
}

// SubscribeEvents implements mvc.LedgerOracle.
func (o *ledgerOracle) SubscribeEvents(ctx context.Context, groupID string, handler mvc.StakeEventHandler) error {
	client, err := o.clientFor(ctx, groupID)
	if err != nil {
		return err
	}

	sink := make(chan domain.StakeEvent, eventBufferSize)
	errCh := make(chan error, 1)

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		errCh <- client.SubscribeStakeEvents(subCtx, sink)
	}()

	for {
		select {
		case event := <-sink:
			event.GroupID = groupID
			domain.GatekeeperStakeEventsTotalCounter.WithLabelValues(string(event.Kind)).Inc()
			handler(event)
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Decimals implements mvc.LedgerOracle.
func (o *ledgerOracle) Decimals(ctx context.Context, groupID string) (uint8, error) {
	client, err := o.clientFor(ctx, groupID)
	if err != nil {
		return 0, err
	}

	decimals, err := client.Decimals(ctx)
	if err != nil {
		domain.GatekeeperOracleErrorCounter.Inc()
		return 0, domain.OracleUnavailableError{GroupID: groupID, Err: err}
	}

	return decimals, nil
}

// TokenName implements mvc.LedgerOracle.
func (o *ledgerOracle) TokenName(ctx context.Context, groupID string) (string, error) {
	client, err := o.clientFor(ctx, groupID)
	if err != nil {
		return "", err
	}

	name, err := client.TokenName(ctx)
	if err != nil {
		domain.GatekeeperOracleErrorCounter.Inc()
		return "", domain.OracleUnavailableError{GroupID: groupID, Err: err}
	}

	return name, nil
}

func (o *ledgerOracle) clientFor(ctx context.Context, groupID string) (ledgerclient.Client, error) {
	o.clientsMx.Lock()
	defer o.clientsMx.Unlock()

	if client, ok := o.clients[groupID]; ok {
		return client, nil
	}

	group, err := o.groupStore.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	client, err := o.clientFactory(group)
	if err != nil {
		return nil, domain.OracleUnavailableError{GroupID: groupID, Err: err}
	}

	o.clients[groupID] = client

	return client, nil
}
