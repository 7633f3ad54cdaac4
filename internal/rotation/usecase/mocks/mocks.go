// Package mocks provides mock implementations of the key rotation use case for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	rotationDomain "github.com/kvhuynh79-oss/sda-management-sub004/internal/rotation/domain"
	rotationUseCase "github.com/kvhuynh79-oss/sda-management-sub004/internal/rotation/usecase"
)

// MockKeyRotationUseCase is a mock implementation of KeyRotationUseCase for testing.
type MockKeyRotationUseCase struct {
	mock.Mock
}

var _ rotationUseCase.KeyRotationUseCase = (*MockKeyRotationUseCase)(nil)

// Rotate mocks the Rotate method of KeyRotationUseCase.
func (m *MockKeyRotationUseCase) Rotate(
	ctx context.Context,
	tables ...string,
) (*rotationDomain.RotationResult, error) {
	args := m.Called(ctx, tables)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rotationDomain.RotationResult), args.Error(1)
}

// EncryptExisting mocks the EncryptExisting method of KeyRotationUseCase.
func (m *MockKeyRotationUseCase) EncryptExisting(
	ctx context.Context,
	tables ...string,
) (*rotationDomain.RotationResult, error) {
	args := m.Called(ctx, tables)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rotationDomain.RotationResult), args.Error(1)
}
