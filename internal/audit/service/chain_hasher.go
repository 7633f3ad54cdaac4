package service

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"

	auditDomain "github.com/kvhuynh79-oss/sda-management-sub004/internal/audit/domain"
)

type sha256ChainHasher struct{}

// NewChainHasher creates a ChainHasher using SHA-256.
func NewChainHasher() ChainHasher {
	return &sha256ChainHasher{}
}

// canonicalize converts an entry to the byte representation that is hashed.
// Format: id || seq || timestamp || organization_id || previous_hash || user_id ||
// user_email || user_name || action || entity_type || entity_id || entity_name ||
// changes || previous_values || metadata
// Integers are 8-byte big-endian, strings are length-prefixed and diffs use their
// canonical form, so optional fields contribute a zero length rather than disappearing.
func (h *sha256ChainHasher) canonicalize(e *auditDomain.Entry) []byte {
	buf := make([]byte, 0, 512)

	buf = append(buf, e.ID[:]...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(e.SequenceNumber))
	buf = binary.BigEndian.AppendUint64(buf, uint64(e.Timestamp))

	for _, s := range []string{
		e.OrganizationID,
		e.PreviousHash,
		e.Actor.UserID,
		e.Actor.UserEmail,
		e.Actor.UserName,
		string(e.Action),
		e.EntityType,
		e.EntityID,
		e.EntityName,
	} {
		buf = auditDomain.AppendLengthPrefixed(buf, s)
	}

	buf = e.Changes.AppendCanonical(buf)
	buf = e.PreviousValues.AppendCanonical(buf)
	buf = e.Metadata.AppendCanonical(buf)

	return buf
}

func (h *sha256ChainHasher) Hash(e *auditDomain.Entry) string {
	sum := sha256.Sum256(h.canonicalize(e))
	return hex.EncodeToString(sum[:])
}

func (h *sha256ChainHasher) Verify(e *auditDomain.Entry) bool {
	expected := h.Hash(e)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(e.CurrentHash)) == 1
}
