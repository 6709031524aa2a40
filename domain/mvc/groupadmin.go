package mvc

import (
	"context"

	"github.com/agora-labs/gatekeeper/domain"
)

// GroupAdmin represents the chat platform's membership API. The engine
// performs no retries around these calls; a failed evict leaves the
// identity link intact for the next sweep.
type GroupAdmin interface {
	// IsAdmin reports whether the identity holds the platform admin role
	// in the group. Admins bypass stake requirements and are never
	// evicted.
	IsAdmin(ctx context.Context, identityID, groupID string) (bool, error)

	// Evict removes the identity from the group with an explanatory
	// reason shown to the remaining members.
	Evict(ctx context.Context, identityID, groupID, reason string) error

	// IssueInvite creates a single-use, time-limited invite and delivers
	// it to the identity.
	IssueInvite(ctx context.Context, identityID, groupID string) (domain.Invite, error)
}
