// Package usecase implements key rotation over the encrypted record tables: re-encrypting
// stale ciphertext with the current key version and encrypting leftover plaintext.
package usecase

import (
	"context"

	"github.com/google/uuid"

	cryptoDomain "github.com/kvhuynh79-oss/sda-management-sub004/internal/crypto/domain"
	rotationDomain "github.com/kvhuynh79-oss/sda-management-sub004/internal/rotation/domain"
)

// RecordRepository reads and rewrites encrypted columns of the covered tables.
// Implementations must support transaction-aware operations via context propagation.
type RecordRepository interface {
	// ListBatch returns up to limit records with an id greater than afterID, ordered by id.
	ListBatch(
		ctx context.Context,
		table rotationDomain.TableSpec,
		afterID uuid.UUID,
		limit int,
	) ([]*rotationDomain.Record, error)

	// Update rewrites the given columns of each record whose columns still hold
	// RecordUpdate.Expected, and returns the ids of the records that changed since they were read.
	Update(
		ctx context.Context,
		table rotationDomain.TableSpec,
		updates []*rotationDomain.RecordUpdate,
	) ([]uuid.UUID, error)
}

// FieldCipher is the part of the field cipher a rotation run needs.
type FieldCipher interface {
	IsEncrypted(value string) bool
	IsCurrentVersion(value string) bool
	ReencryptToCurrent(ctx context.Context, value string) (string, error)
	Plaintext(ctx context.Context, value string) (string, error)
	EncryptString(ctx context.Context, plaintext string) (string, error)
	CurrentVersion() cryptoDomain.KeyVersion
}

// BlindIndexer computes blind index tokens.
type BlindIndexer interface {
	Index(ctx context.Context, value string) (string, error)
}

// KeyRotationUseCase defines the key rotation jobs. Both accept table names; no names means
// every covered table. A cancelled run returns the partial result together with the error.
type KeyRotationUseCase interface {
	// Rotate re-encrypts every field not written with the current key version and refreshes
	// the blind indexes of the fields it touches.
	Rotate(ctx context.Context, tables ...string) (*rotationDomain.RotationResult, error)

	// EncryptExisting encrypts non-empty plaintext fields with the current key version and
	// fills in missing blind indexes.
	EncryptExisting(ctx context.Context, tables ...string) (*rotationDomain.RotationResult, error)
}
