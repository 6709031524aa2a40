package mvc

import (
	"context"

	"github.com/agora-labs/gatekeeper/domain"
)

// IdentityStore represents the contract for the durable identity-link
// and group-configuration store. Lookups return domain.ErrNotFound when
// the record is absent; any other failure is a domain.StoreFaultError
// and is fatal for the current invocation.
type IdentityStore interface {
	// LinkIdentity upserts the link for (identityId, groupId) with
	// last-write-wins semantics. Idempotent. A fresh link starts with no
	// join confirmation.
	LinkIdentity(ctx context.Context, identityID, address, groupID string) error

	// ResolveIdentity returns the link for (identityId, groupId).
	ResolveIdentity(ctx context.Context, identityID, groupID string) (domain.IdentityLink, error)

	// ResolveAddress is the reverse lookup, required because ledger
	// events carry addresses, not identities.
	ResolveAddress(ctx context.Context, address, groupID string) (domain.IdentityLink, error)

	// ConfirmJoin marks the link as a confirmed membership. Called by
	// the inbound join handler once the platform reports the member.
	ConfirmJoin(ctx context.Context, identityID, groupID string) error

	// Unlink removes the link. No-op if absent.
	Unlink(ctx context.Context, identityID, groupID string) error

	// ListLinked returns the identity ids linked to the group, used by
	// the periodic sweep.
	ListLinked(ctx context.Context, groupID string) ([]string, error)
}

// GroupStore represents the contract for the group configuration
// registry.
type GroupStore interface {
	// GetGroup returns the group configuration or domain.ErrNotFound.
	GetGroup(ctx context.Context, groupID string) (domain.Group, error)

	// UpsertGroup creates or replaces the group configuration.
	// Validates that tier thresholds are strictly decreasing.
	UpsertGroup(ctx context.Context, group domain.Group) error

	// ListGroups returns all configured groups.
	ListGroups(ctx context.Context) ([]domain.Group, error)
}
