package mocks

import (
	"context"
	"time"

	"github.com/agora-labs/gatekeeper/domain"
	"github.com/agora-labs/gatekeeper/domain/mvc"
)

var _ mvc.GroupAdmin = &GroupAdminMock{}

// GroupAdminMock is a mock implementation of the GroupAdmin interface
type GroupAdminMock struct {
	IsAdminFunc     func(ctx context.Context, identityID, groupID string) (bool, error)
	EvictFunc       func(ctx context.Context, identityID, groupID, reason string) error
	IssueInviteFunc func(ctx context.Context, identityID, groupID string) (domain.Invite, error)
}

func (m *GroupAdminMock) IsAdmin(ctx context.Context, identityID, groupID string) (bool, error) {
	if m.IsAdminFunc != nil {
		return m.IsAdminFunc(ctx, identityID, groupID)
	}
	return false, nil
}

func (m *GroupAdminMock) Evict(ctx context.Context, identityID, groupID, reason string) error {
	if m.EvictFunc != nil {
		return m.EvictFunc(ctx, identityID, groupID, reason)
	}
	return nil
}

func (m *GroupAdminMock) IssueInvite(ctx context.Context, identityID, groupID string) (domain.Invite, error) {
	if m.IssueInviteFunc != nil {
		return m.IssueInviteFunc(ctx, identityID, groupID)
	}
	return domain.Invite{
		Link:      "https://chat.invalid/invite",
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}, nil
}
