package domain

import "github.com/google/uuid"

// ViolationKind classifies an integrity violation.
type ViolationKind string

const (
	ViolationSequenceGap  ViolationKind = "sequence_gap"
	ViolationBrokenLink   ViolationKind = "broken_link"
	ViolationHashMismatch ViolationKind = "hash_mismatch"
)

// VerifyMode selects how much of a chain a verification run recomputes.
type VerifyMode string

const (
	// VerifyModeFull recomputes every entry, including entries verified by earlier runs. A
	// verified flag is stored alongside the data it vouches for, so only a full run detects
	// tampering of already-verified entries.
	VerifyModeFull VerifyMode = "full"
	// VerifyModeIncremental trusts entries already marked verified and only checks the rest.
	// Linkage from a trusted entry to the next one is still checked.
	VerifyModeIncremental VerifyMode = "incremental"
)

// ParseVerifyMode parses s. An empty string selects VerifyModeFull.
func ParseVerifyMode(s string) (VerifyMode, error) {
	switch VerifyMode(s) {
	case "", VerifyModeFull:
		return VerifyModeFull, nil
	case VerifyModeIncremental:
		return VerifyModeIncremental, nil
	}
	return "", ErrInvalidVerifyMode
}

// Violation records one integrity problem found while walking a chain. Violations are
// reported, never corrected.
type Violation struct {
	EntryID        uuid.UUID
	OrganizationID string
	SequenceNumber int64
	Kind           ViolationKind
	Issue          string
	Timestamp      int64
}

// VerificationReport summarizes a verification run over one or more chains.
type VerificationReport struct {
	// TotalLogs is the number of entries walked.
	TotalLogs int
	// VerifiedCount is the number of entries marked verified after the run, including entries
	// verified by earlier runs.
	VerifiedCount int
	// NewlyVerified is the number of entries this run marked verified.
	NewlyVerified int
	// Organizations is the number of chains walked.
	Organizations int
	Violations    []Violation
}

// Merge adds other's counters and violations to r.
func (r *VerificationReport) Merge(other *VerificationReport) {
	r.TotalLogs += other.TotalLogs
	r.VerifiedCount += other.VerifiedCount
	r.NewlyVerified += other.NewlyVerified
	r.Organizations += other.Organizations
	r.Violations = append(r.Violations, other.Violations...)
}

// Valid reports whether the run found no violations.
func (r *VerificationReport) Valid() bool {
	return len(r.Violations) == 0
}
