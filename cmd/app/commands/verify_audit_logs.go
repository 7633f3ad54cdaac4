package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	auditDomain "github.com/kvhuynh79-oss/sda-management-sub004/internal/audit/domain"
	auditUseCase "github.com/kvhuynh79-oss/sda-management-sub004/internal/audit/usecase"
)

// maxListedViolations caps the violations printed in text output; JSON output lists all.
const maxListedViolations = 50

// RunVerifyAuditLogs walks the hash chains of one organization, or of every organization
// when organizationID is empty, and reports sequence gaps, broken links and hash mismatches.
//
// mode "full" recomputes every hash; "incremental" skips the recomputation for entries
// already marked verified. Violations are reported, never corrected, and make the command
// exit with an error.
func RunVerifyAuditLogs(
	ctx context.Context,
	integrityAuditorUseCase auditUseCase.IntegrityAuditorUseCase,
	logger *slog.Logger,
	writer io.Writer,
	organizationID string,
	mode string,
	format string,
) error {
	verifyMode, err := auditDomain.ParseVerifyMode(mode)
	if err != nil {
		return fmt.Errorf("invalid mode %q (valid options: full, incremental): %w", mode, err)
	}

	logger.Info("verifying audit log chains",
		slog.String("organization_id", organizationID),
		slog.String("mode", string(verifyMode)),
	)

	var report *auditDomain.VerificationReport
	if organizationID == "" {
		report, err = integrityAuditorUseCase.VerifyAll(ctx, verifyMode)
	} else {
		report, err = integrityAuditorUseCase.Verify(ctx, organizationID, verifyMode)
	}
	if err != nil {
		return fmt.Errorf("failed to verify audit logs: %w", err)
	}

	if format == "json" {
		if err := outputVerifyJSON(writer, report); err != nil {
			return fmt.Errorf("failed to output JSON: %w", err)
		}
	} else {
		outputVerifyText(writer, report, verifyMode)
	}

	logger.Info("verification completed",
		slog.Int("organizations", report.Organizations),
		slog.Int("total_logs", report.TotalLogs),
		slog.Int("verified", report.VerifiedCount),
		slog.Int("newly_verified", report.NewlyVerified),
		slog.Int("violations", len(report.Violations)),
	)

	if !report.Valid() {
		return fmt.Errorf("integrity check failed: %d violation(s)", len(report.Violations))
	}

	return nil
}

// outputVerifyText outputs the verification result in human-readable text format.
func outputVerifyText(writer io.Writer, report *auditDomain.VerificationReport, mode auditDomain.VerifyMode) {
	_, _ = fmt.Fprintf(writer, "Audit Log Chain Verification\n")
	_, _ = fmt.Fprintf(writer, "============================\n\n")
	_, _ = fmt.Fprintf(writer, "Mode:           %s\n", mode)
	_, _ = fmt.Fprintf(writer, "Organizations:  %d\n", report.Organizations)
	_, _ = fmt.Fprintf(writer, "Total Logs:     %d\n", report.TotalLogs)
	_, _ = fmt.Fprintf(writer, "Verified:       %d\n", report.VerifiedCount)
	_, _ = fmt.Fprintf(writer, "Newly Verified: %d\n", report.NewlyVerified)
	_, _ = fmt.Fprintf(writer, "Violations:     %d\n\n", len(report.Violations))

	switch {
	case !report.Valid():
		_, _ = fmt.Fprintf(writer, "WARNING: %d integrity violation(s) found!\n\n", len(report.Violations))
		for i, v := range report.Violations {
			if i == maxListedViolations {
				_, _ = fmt.Fprintf(writer, "  ... %d more (use --format json for the full list)\n",
					len(report.Violations)-maxListedViolations)
				break
			}
			_, _ = fmt.Fprintf(writer, "  - [%s] org=%s seq=%d entry=%s: %s\n",
				v.Kind, v.OrganizationID, v.SequenceNumber, v.EntryID, v.Issue)
		}
		_, _ = fmt.Fprintf(writer, "\nStatus: FAILED\n")
	case report.TotalLogs == 0:
		_, _ = fmt.Fprintf(writer, "Status: No audit logs found\n")
	default:
		_, _ = fmt.Fprintf(writer, "Status: PASSED\n")
	}
}

// outputVerifyJSON outputs the verification result in JSON format for machine consumption.
func outputVerifyJSON(writer io.Writer, report *auditDomain.VerificationReport) error {
	violations := make([]map[string]any, 0, len(report.Violations))
	for _, v := range report.Violations {
		violations = append(violations, map[string]any{
			"entry_id":        v.EntryID.String(),
			"organization_id": v.OrganizationID,
			"sequence_number": v.SequenceNumber,
			"kind":            string(v.Kind),
			"issue":           v.Issue,
			"timestamp":       v.Timestamp,
		})
	}

	return writeJSON(writer, map[string]any{
		"organizations":  report.Organizations,
		"total_logs":     report.TotalLogs,
		"verified_count": report.VerifiedCount,
		"newly_verified": report.NewlyVerified,
		"violations":     violations,
		"passed":         report.Valid(),
	})
}
