package domain

import (
	"time"

	"github.com/google/uuid"
)

// Actor identifies who performed an action. Fields are copied at write time so the log stays
// readable if the user record later changes.
type Actor struct {
	UserID    string
	UserEmail string
	UserName  string
}

// Entry is one link of an organization's audit chain.
//
// Within an organization sequence numbers run 1, 2, 3... without gaps; each PreviousHash
// equals the prior entry's CurrentHash ("" for sequence 1); CurrentHash is recomputable from
// the stored fields. Once written, only IsIntegrityVerified may change, from false to true.
type Entry struct {
	ID                  uuid.UUID
	OrganizationID      string
	Actor               Actor
	Action              Action
	EntityType          string
	EntityID            string
	EntityName          string
	Changes             Diff
	PreviousValues      Diff
	Metadata            Diff
	Timestamp           int64
	SequenceNumber      int64
	PreviousHash        string
	CurrentHash         string
	IsIntegrityVerified bool
}

// Time returns Timestamp as a UTC time.
func (e *Entry) Time() time.Time {
	return time.UnixMilli(e.Timestamp).UTC()
}

// ChainHead is the position a new entry links to.
type ChainHead struct {
	SequenceNumber int64
	CurrentHash    string
}

// Next returns the sequence number and previous hash for the entry after head. A nil head
// means the organization has no entries yet.
func (h *ChainHead) Next() (int64, string) {
	if h == nil {
		return 1, ""
	}
	return h.SequenceNumber + 1, h.CurrentHash
}
