package domain

import (
	"math/big"
	"time"
)

// Group is a gated chat group bound to one staking pool and one token
// contract on the ledger.
type Group struct {
	// Chat platform group identifier.
	ID string

	// On-chain address of the staking pool contract.
	PoolAddress string

	// On-chain address of the stake token contract.
	TokenAddress string

	// Minimum stake per tier rank, descending. Thresholds[0] guards
	// rank 1, the highest non-admin tier. Amounts are in the smallest
	// token unit.
	Thresholds []*big.Int

	// Per-group sweep interval override. Zero means the service default
	// applies.
	SweepInterval time.Duration
}

// IdentityLink binds a chat identity to an on-chain address within one
// group. The address is stored normalized (lowercase hex).
type IdentityLink struct {
	IdentityID string
	Address    string
	GroupID    string

	CreatedAt time.Time

	// Set once the identity has joined the group through an issued
	// invite. A link without it is an eligible-but-not-yet-member state.
	JoinedAt *time.Time
}

// IsMember reports whether the linked identity currently holds group
// membership.
func (l IdentityLink) IsMember() bool {
	return l.JoinedAt != nil
}

// Timelock is one locked stake position.
type Timelock struct {
	Amount    *big.Int
	ExpiresAt time.Time
}

// StakeSnapshot is an ephemeral view of an address's stake at one point
// in time. Never cached; every reconciliation reads a fresh one.
type StakeSnapshot struct {
	// Total token balance, locked positions included.
	Total *big.Int

	// Sum of active timelock amounts.
	Locked *big.Int

	// Total minus Locked.
	Withdrawable *big.Int

	Timelocks []Timelock
}

// Tier is an access tier rank. Lower rank means higher privilege among
// eligible tiers.
type Tier int

const (
	// TierAdmin is the unconditional rank for group administrators.
	TierAdmin Tier = 0

	// TierIneligible marks a stake below every configured threshold.
	TierIneligible Tier = -1
)

// Eligible reports whether the tier grants group membership.
func (t Tier) Eligible() bool {
	return t != TierIneligible
}

// Outcome is the terminal result of one reconciliation.
type Outcome string

const (
	OutcomeNoOp         Outcome = "no_op"
	OutcomeInviteIssued Outcome = "invite_issued"
	OutcomeRemoved      Outcome = "removed"
	OutcomeFailed       Outcome = "failed"
)

// StakeEventKind discriminates normalized ledger events.
type StakeEventKind string

const (
	StakeEventDeposit  StakeEventKind = "deposit"
	StakeEventWithdraw StakeEventKind = "withdraw"
)

// StakeEvent is a normalized ledger event. Events are triggers only:
// the reconciler re-reads chain state and never trusts the carried
// amount for entitlement decisions.
type StakeEvent struct {
	Kind    StakeEventKind
	GroupID string
	Address string
	Amount  *big.Int
}

// Invite is a single-use, expiring group invite link.
type Invite struct {
	Link      string
	ExpiresAt time.Time
}

// ResponseError represent the response error struct
type ResponseError struct {
	Message string `json:"message"`
}
