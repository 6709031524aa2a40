package mocks

import (
	"context"

	"github.com/agora-labs/gatekeeper/domain"
	"github.com/agora-labs/gatekeeper/domain/mvc"
)

var _ mvc.GroupStore = &GroupStoreMock{}

// GroupStoreMock is a mock implementation of the GroupStore interface
type GroupStoreMock struct {
	GetGroupFunc    func(ctx context.Context, groupID string) (domain.Group, error)
	UpsertGroupFunc func(ctx context.Context, group domain.Group) error
	ListGroupsFunc  func(ctx context.Context) ([]domain.Group, error)
}

func (m *GroupStoreMock) GetGroup(ctx context.Context, groupID string) (domain.Group, error) {
	if m.GetGroupFunc != nil {
		return m.GetGroupFunc(ctx, groupID)
	}
	return domain.Group{}, domain.ErrNotFound
}

func (m *GroupStoreMock) UpsertGroup(ctx context.Context, group domain.Group) error {
	if m.UpsertGroupFunc != nil {
		return m.UpsertGroupFunc(ctx, group)
	}
	return nil
}

func (m *GroupStoreMock) ListGroups(ctx context.Context) ([]domain.Group, error) {
	if m.ListGroupsFunc != nil {
		return m.ListGroupsFunc(ctx)
	}
	return nil, nil
}
