package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by store lookups when the requested record
	// does not exist.
	ErrNotFound = errors.New("requested record is not found")

	// ErrTimelockOutOfRange signals the natural end of a timelock
	// sequence when probing by index. It is a termination sentinel, not
	// a failure to propagate.
	ErrTimelockOutOfRange = errors.New("timelock index out of range")
)

// OracleUnavailableError indicates a ledger read failed (network, RPC
// timeout, contract revert on a read call). The reconciliation that
// observed it is abandoned with no state mutation; the periodic sweep
// retries.
type OracleUnavailableError struct {
	GroupID string
	Address string
	Err     error
}

func (e OracleUnavailableError) Error() string {
	return fmt.Sprintf("ledger oracle unavailable for address (%s) in group (%s): %v", e.Address, e.GroupID, e.Err)
}

func (e OracleUnavailableError) Unwrap() error {
	return e.Err
}

// StoreFaultError indicates the local identity/group store failed. It is
// fatal for the current invocation and must be surfaced to the operator
// since durable state may be inconsistent.
type StoreFaultError struct {
	Op  string
	Err error
}

func (e StoreFaultError) Error() string {
	return fmt.Sprintf("identity store fault during (%s): %v", e.Op, e.Err)
}

func (e StoreFaultError) Unwrap() error {
	return e.Err
}

// AdminActionFailedError indicates a group admin evict/invite call
// failed. A failed evict leaves the identity link intact so the next
// sweep retries.
type AdminActionFailedError struct {
	Action     string
	IdentityID string
	GroupID    string
	Err        error
}

func (e AdminActionFailedError) Error() string {
	return fmt.Sprintf("admin action (%s) failed for identity (%s) in group (%s): %v", e.Action, e.IdentityID, e.GroupID, e.Err)
}

func (e AdminActionFailedError) Unwrap() error {
	return e.Err
}

// ThresholdsNotDescendingError is returned when a group is configured
// with tier thresholds that are not strictly decreasing by rank.
type ThresholdsNotDescendingError struct {
	GroupID string
	Rank    int
}

func (e ThresholdsNotDescendingError) Error() string {
	return fmt.Sprintf("group (%s) thresholds must be strictly decreasing, violated at rank (%d)", e.GroupID, e.Rank)
}

// InvalidAddressError is returned when an on-chain address fails
// normalization.
type InvalidAddressError struct {
	Address string
}

func (e InvalidAddressError) Error() string {
	return fmt.Sprintf("invalid on-chain address (%s)", e.Address)
}

// InvalidSignatureError is returned when an identity-link signature does
// not verify against the expected challenge message.
type InvalidSignatureError struct {
	Err error
}

func (e InvalidSignatureError) Error() string {
	return fmt.Sprintf("signature verification failed: %v", e.Err)
}

func (e InvalidSignatureError) Unwrap() error {
	return e.Err
}
