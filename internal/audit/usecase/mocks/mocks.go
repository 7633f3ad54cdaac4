// Package mocks provides mock implementations of the audit use cases for testing.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	auditDomain "github.com/kvhuynh79-oss/sda-management-sub004/internal/audit/domain"
	auditUseCase "github.com/kvhuynh79-oss/sda-management-sub004/internal/audit/usecase"
)

// MockAuditChainUseCase is a mock implementation of AuditChainUseCase for testing.
type MockAuditChainUseCase struct {
	mock.Mock
}

var _ auditUseCase.AuditChainUseCase = (*MockAuditChainUseCase)(nil)

// Append mocks the Append method of AuditChainUseCase.
func (m *MockAuditChainUseCase) Append(
	ctx context.Context,
	input *auditUseCase.AppendInput,
) (*auditDomain.Entry, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auditDomain.Entry), args.Error(1)
}

// Delete mocks the Delete method of AuditChainUseCase.
func (m *MockAuditChainUseCase) Delete(ctx context.Context, organizationID string, id uuid.UUID) error {
	args := m.Called(ctx, organizationID, id)
	return args.Error(0)
}

// BulkDelete mocks the BulkDelete method of AuditChainUseCase.
func (m *MockAuditChainUseCase) BulkDelete(ctx context.Context, organizationID string, ids []uuid.UUID) error {
	args := m.Called(ctx, organizationID, ids)
	return args.Error(0)
}

// List mocks the List method of AuditChainUseCase.
func (m *MockAuditChainUseCase) List(
	ctx context.Context,
	filter auditDomain.ListFilter,
) (*auditDomain.ListResult, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auditDomain.ListResult), args.Error(1)
}

// Stats mocks the Stats method of AuditChainUseCase.
func (m *MockAuditChainUseCase) Stats(
	ctx context.Context,
	organizationID string,
	start, end int64,
) (*auditDomain.Stats, error) {
	args := m.Called(ctx, organizationID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auditDomain.Stats), args.Error(1)
}

// EntityHistory mocks the EntityHistory method of AuditChainUseCase.
func (m *MockAuditChainUseCase) EntityHistory(
	ctx context.Context,
	organizationID, entityType, entityID string,
	limit int,
) ([]*auditDomain.Entry, error) {
	args := m.Called(ctx, organizationID, entityType, entityID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*auditDomain.Entry), args.Error(1)
}

// UserActivity mocks the UserActivity method of AuditChainUseCase.
func (m *MockAuditChainUseCase) UserActivity(
	ctx context.Context,
	organizationID, userID string,
	limit int,
) ([]*auditDomain.Entry, error) {
	args := m.Called(ctx, organizationID, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*auditDomain.Entry), args.Error(1)
}

// MockIntegrityAuditorUseCase is a mock implementation of IntegrityAuditorUseCase for testing.
type MockIntegrityAuditorUseCase struct {
	mock.Mock
}

var _ auditUseCase.IntegrityAuditorUseCase = (*MockIntegrityAuditorUseCase)(nil)

// Verify mocks the Verify method of IntegrityAuditorUseCase.
func (m *MockIntegrityAuditorUseCase) Verify(
	ctx context.Context,
	organizationID string,
	mode auditDomain.VerifyMode,
) (*auditDomain.VerificationReport, error) {
	args := m.Called(ctx, organizationID, mode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auditDomain.VerificationReport), args.Error(1)
}

// VerifyAll mocks the VerifyAll method of IntegrityAuditorUseCase.
func (m *MockIntegrityAuditorUseCase) VerifyAll(
	ctx context.Context,
	mode auditDomain.VerifyMode,
) (*auditDomain.VerificationReport, error) {
	args := m.Called(ctx, mode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auditDomain.VerificationReport), args.Error(1)
}
