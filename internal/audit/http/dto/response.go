package dto

import (
	"time"

	auditDomain "github.com/kvhuynh79-oss/sda-management-sub004/internal/audit/domain"
)

// AuditLogResponse represents an audit chain entry in API responses.
type AuditLogResponse struct {
	ID                  string            `json:"id"`
	OrganizationID      string            `json:"organization_id"`
	UserID              string            `json:"user_id"`
	UserEmail           string            `json:"user_email"`
	UserName            string            `json:"user_name"`
	Action              string            `json:"action"`
	EntityType          string            `json:"entity_type"`
	EntityID            string            `json:"entity_id,omitempty"`
	EntityName          string            `json:"entity_name,omitempty"`
	Changes             map[string]string `json:"changes,omitempty"`
	PreviousValues      map[string]string `json:"previous_values,omitempty"`
	Metadata            map[string]string `json:"metadata,omitempty"`
	Timestamp           int64             `json:"timestamp"`
	CreatedAt           time.Time         `json:"created_at"`
	SequenceNumber      int64             `json:"sequence_number"`
	PreviousHash        string            `json:"previous_hash"`
	CurrentHash         string            `json:"current_hash"`
	IsIntegrityVerified bool              `json:"is_integrity_verified"`
}

// MapEntryToResponse converts a domain entry to an API response.
func MapEntryToResponse(entry *auditDomain.Entry) AuditLogResponse {
	return AuditLogResponse{
		ID:                  entry.ID.String(),
		OrganizationID:      entry.OrganizationID,
		UserID:              entry.Actor.UserID,
		UserEmail:           entry.Actor.UserEmail,
		UserName:            entry.Actor.UserName,
		Action:              string(entry.Action),
		EntityType:          entry.EntityType,
		EntityID:            entry.EntityID,
		EntityName:          entry.EntityName,
		Changes:             entry.Changes,
		PreviousValues:      entry.PreviousValues,
		Metadata:            entry.Metadata,
		Timestamp:           entry.Timestamp,
		CreatedAt:           entry.Time(),
		SequenceNumber:      entry.SequenceNumber,
		PreviousHash:        entry.PreviousHash,
		CurrentHash:         entry.CurrentHash,
		IsIntegrityVerified: entry.IsIntegrityVerified,
	}
}

// MapEntriesToResponse converts domain entries to API responses, never returning nil.
func MapEntriesToResponse(entries []*auditDomain.Entry) []AuditLogResponse {
	responses := make([]AuditLogResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, MapEntryToResponse(entry))
	}
	return responses
}

// ListAuditLogsResponse represents a page of audit entries in API responses.
type ListAuditLogsResponse struct {
	Data    []AuditLogResponse `json:"data"`
	Total   int                `json:"total"`
	Offset  int                `json:"offset"`
	Limit   int                `json:"limit"`
	HasMore bool               `json:"has_more"`
}

// MapListResultToResponse converts a domain list result to a list API response.
func MapListResultToResponse(result *auditDomain.ListResult, offset, limit int) ListAuditLogsResponse {
	return ListAuditLogsResponse{
		Data:    MapEntriesToResponse(result.Entries),
		Total:   result.TotalCount,
		Offset:  offset,
		Limit:   limit,
		HasMore: result.HasMore,
	}
}

// EntriesResponse wraps an unpaginated list of entries.
type EntriesResponse struct {
	Data []AuditLogResponse `json:"data"`
}

// StatsResponse represents audit statistics in API responses.
type StatsResponse struct {
	TotalLogs    int            `json:"total_logs"`
	ByAction     map[string]int `json:"by_action"`
	ByEntityType map[string]int `json:"by_entity_type"`
	ByUser       map[string]int `json:"by_user"`
}

// MapStatsToResponse converts domain stats to an API response.
func MapStatsToResponse(stats *auditDomain.Stats) StatsResponse {
	return StatsResponse{
		TotalLogs:    stats.TotalLogs,
		ByAction:     nonNilCounts(stats.ByAction),
		ByEntityType: nonNilCounts(stats.ByEntityType),
		ByUser:       nonNilCounts(stats.ByUser),
	}
}

func nonNilCounts(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}

// ViolationResponse represents one integrity violation in API responses.
type ViolationResponse struct {
	EntryID        string `json:"entry_id"`
	OrganizationID string `json:"organization_id"`
	SequenceNumber int64  `json:"sequence_number"`
	Kind           string `json:"kind"`
	Issue          string `json:"issue"`
	Timestamp      int64  `json:"timestamp"`
}

// VerificationReportResponse represents a verification run in API responses.
type VerificationReportResponse struct {
	Valid         bool                `json:"valid"`
	TotalLogs     int                 `json:"total_logs"`
	VerifiedCount int                 `json:"verified_count"`
	NewlyVerified int                 `json:"newly_verified"`
	Violations    []ViolationResponse `json:"violations"`
}

// MapReportToResponse converts a domain verification report to an API response.
func MapReportToResponse(report *auditDomain.VerificationReport) VerificationReportResponse {
	violations := make([]ViolationResponse, 0, len(report.Violations))
	for _, v := range report.Violations {
		violations = append(violations, ViolationResponse{
			EntryID:        v.EntryID.String(),
			OrganizationID: v.OrganizationID,
			SequenceNumber: v.SequenceNumber,
			Kind:           string(v.Kind),
			Issue:          v.Issue,
			Timestamp:      v.Timestamp,
		})
	}

	return VerificationReportResponse{
		Valid:         report.Valid(),
		TotalLogs:     report.TotalLogs,
		VerifiedCount: report.VerifiedCount,
		NewlyVerified: report.NewlyVerified,
		Violations:    violations,
	}
}
