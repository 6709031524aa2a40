package mocks

import (
	"context"

	"github.com/agora-labs/gatekeeper/domain"
	"github.com/agora-labs/gatekeeper/domain/mvc"
)

var _ mvc.IdentityStore = &IdentityStoreMock{}

// IdentityStoreMock is a mock implementation of the IdentityStore interface
type IdentityStoreMock struct {
	LinkIdentityFunc    func(ctx context.Context, identityID, address, groupID string) error
	ResolveIdentityFunc func(ctx context.Context, identityID, groupID string) (domain.IdentityLink, error)
	ResolveAddressFunc  func(ctx context.Context, address, groupID string) (domain.IdentityLink, error)
	ConfirmJoinFunc     func(ctx context.Context, identityID, groupID string) error
	UnlinkFunc          func(ctx context.Context, identityID, groupID string) error
	ListLinkedFunc      func(ctx context.Context, groupID string) ([]string, error)
}

func (m *IdentityStoreMock) LinkIdentity(ctx context.Context, identityID, address, groupID string) error {
	if m.LinkIdentityFunc != nil {
		return m.LinkIdentityFunc(ctx, identityID, address, groupID)
	}
	return nil
}

func (m *IdentityStoreMock) ResolveIdentity(ctx context.Context, identityID, groupID string) (domain.IdentityLink, error) {
	if m.ResolveIdentityFunc != nil {
		return m.ResolveIdentityFunc(ctx, identityID, groupID)
	}
	return domain.IdentityLink{}, domain.ErrNotFound
}

func (m *IdentityStoreMock) ResolveAddress(ctx context.Context, address, groupID string) (domain.IdentityLink, error) {
	if m.ResolveAddressFunc != nil {
		return m.ResolveAddressFunc(ctx, address, groupID)
	}
	return domain.IdentityLink{}, domain.ErrNotFound
}

func (m *IdentityStoreMock) ConfirmJoin(ctx context.Context, identityID, groupID string) error {
	if m.ConfirmJoinFunc != nil {
		return m.ConfirmJoinFunc(ctx, identityID, groupID)
	}
	return nil
}

func (m *IdentityStoreMock) Unlink(ctx context.Context, identityID, groupID string) error {
	if m.UnlinkFunc != nil {
		return m.UnlinkFunc(ctx, identityID, groupID)
	}
	return nil
}

func (m *IdentityStoreMock) ListLinked(ctx context.Context, groupID string) ([]string, error) {
	if m.ListLinkedFunc != nil {
		return m.ListLinkedFunc(ctx, groupID)
	}
	return nil, nil
}
