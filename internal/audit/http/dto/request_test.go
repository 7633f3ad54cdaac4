package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/kvhuynh79-oss/sda-management-sub004/internal/audit/domain"
)

func TestAppendAuditLogRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     AppendAuditLogRequest
		wantErr string
	}{
		{
			name: "Success_Minimal",
			req:  AppendAuditLogRequest{Action: "create", EntityType: "participant"},
		},
		{
			name: "Success_BeforeAfter",
			req: AppendAuditLogRequest{
				Action:     "update",
				EntityType: "participant",
				Before:     map[string]any{"plan": "core"},
				After:      map[string]any{"plan": "capacity"},
			},
		},
		{
			name:    "Error_MissingAction",
			req:     AppendAuditLogRequest{EntityType: "participant"},
			wantErr: "action",
		},
		{
			name:    "Error_UnknownAction",
			req:     AppendAuditLogRequest{Action: "teleport", EntityType: "participant"},
			wantErr: "must be a known audit action",
		},
		{
			name:    "Error_BlankEntityType",
			req:     AppendAuditLogRequest{Action: "create", EntityType: "   "},
			wantErr: "entity_type",
		},
		{
			name:    "Error_PaddedEntityType",
			req:     AppendAuditLogRequest{Action: "create", EntityType: " participant"},
			wantErr: "must not contain leading or trailing whitespace",
		},
		{
			name:    "Error_ControlCharsInEntityName",
			req:     AppendAuditLogRequest{Action: "create", EntityType: "participant", EntityName: "Jane\x1b[31m"},
			wantErr: "must not contain control characters",
		},
		{
			name: "Error_ChangesAndAfterCombined",
			req: AppendAuditLogRequest{
				Action:     "update",
				EntityType: "participant",
				Changes:    map[string]string{"plan": "capacity"},
				After:      map[string]any{"plan": "capacity"},
			},
			wantErr: "cannot be combined with changes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAppendAuditLogRequest_ToAppendInput(t *testing.T) {
	actor := auditDomain.Actor{UserID: "user-1", UserEmail: "jane@example.com"}

	t.Run("Success_ExplicitChanges", func(t *testing.T) {
		req := AppendAuditLogRequest{
			Action:         "update",
			EntityType:     "owner",
			EntityID:       "own-1",
			Changes:        map[string]string{"bank_account_number": "[encrypted]"},
			PreviousValues: map[string]string{"bank_account_number": "[encrypted]"},
			Metadata:       map[string]string{"ip": "10.0.0.1"},
		}

		input := req.ToAppendInput("org1", actor)
		assert.Equal(t, "org1", input.OrganizationID)
		assert.Equal(t, actor, input.Actor)
		assert.Equal(t, auditDomain.ActionUpdate, input.Action)
		assert.Equal(t, auditDomain.Diff{"bank_account_number": "[encrypted]"}, input.Changes)
		assert.Equal(t, auditDomain.Diff{"ip": "10.0.0.1"}, input.Metadata)
	})

	t.Run("Success_BeforeAfterDiffed", func(t *testing.T) {
		req := AppendAuditLogRequest{
			Action:     "update",
			EntityType: "property",
			Before:     map[string]any{"beds": 3, "name": "Unit 4"},
			After:      map[string]any{"beds": 4, "name": "Unit 4"},
		}

		input := req.ToAppendInput("org1", actor)
		assert.Equal(t, auditDomain.Diff{"beds": "4"}, input.Changes)
		assert.Equal(t, auditDomain.Diff{"beds": "3"}, input.PreviousValues)
	})
}
