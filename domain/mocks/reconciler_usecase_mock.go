package mocks

import (
	"context"

	"github.com/agora-labs/gatekeeper/domain"
	"github.com/agora-labs/gatekeeper/domain/mvc"
)

var _ mvc.ReconcilerUsecase = &ReconcilerUsecaseMock{}

// ReconcilerUsecaseMock is a mock implementation of the ReconcilerUsecase interface
type ReconcilerUsecaseMock struct {
	ReconcileFunc func(ctx context.Context, identityID, groupID string) (domain.Outcome, error)
}

func (m *ReconcilerUsecaseMock) Reconcile(ctx context.Context, identityID, groupID string) (domain.Outcome, error) {
	if m.ReconcileFunc != nil {
		return m.ReconcileFunc(ctx, identityID, groupID)
	}
	return domain.OutcomeNoOp, nil
}
