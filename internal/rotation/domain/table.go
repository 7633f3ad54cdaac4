// Package domain defines the encrypted record tables covered by key rotation and the
// counters a rotation run reports.
package domain

import (
	"fmt"
	"slices"
)

// TableSpec describes one table holding encrypted fields.
type TableSpec struct {
	Name string

	// Fields are the encrypted columns.
	Fields []string

	// BlindIndexes maps an encrypted column to the column holding its blind index.
	BlindIndexes map[string]string
}

// Columns returns the encrypted columns followed by their blind index columns.
func (t TableSpec) Columns() []string {
	columns := slices.Clone(t.Fields)
	for _, field := range t.Fields {
		if index, ok := t.BlindIndexes[field]; ok {
			columns = append(columns, index)
		}
	}
	return columns
}

var registry = []TableSpec{
	{
		Name: "participants",
		Fields: []string{
			"ndis_number",
			"date_of_birth",
			"emergency_contact_name",
			"emergency_contact_phone",
			"emergency_contact_relation",
		},
		BlindIndexes: map[string]string{"ndis_number": "ndis_number_index"},
	},
	{
		Name:   "incidents",
		Fields: []string{"description", "witness_names", "immediate_action_taken", "follow_up_notes"},
	},
	{
		Name:   "owners",
		Fields: []string{"bank_account_number"},
	},
	{
		Name: "staff_members",
		Fields: []string{
			"date_of_birth",
			"police_check_number",
			"ndis_worker_screening_number",
			"working_with_children_number",
		},
	},
	{
		Name:   "provider_settings",
		Fields: []string{"bank_account_number"},
	},
	{
		Name:   "calendar_connections",
		Fields: []string{"access_token", "refresh_token"},
	},
	{
		Name:   "users",
		Fields: []string{"mfa_secret"},
	},
}

// Tables returns every covered table in processing order.
func Tables() []TableSpec {
	return slices.Clone(registry)
}

// TableNames returns the names of every covered table.
func TableNames() []string {
	names := make([]string, len(registry))
	for i, t := range registry {
		names[i] = t.Name
	}
	return names
}

// LookupTable returns the spec for name.
func LookupTable(name string) (TableSpec, bool) {
	for _, t := range registry {
		if t.Name == name {
			return t, true
		}
	}
	return TableSpec{}, false
}

// ResolveTables returns the specs for names in registry order, or every table when names is
// empty. Duplicates are ignored.
func ResolveTables(names []string) ([]TableSpec, error) {
	if len(names) == 0 {
		return Tables(), nil
	}

	for _, name := range names {
		if _, ok := LookupTable(name); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTable, name)
		}
	}

	var specs []TableSpec
	for _, t := range registry {
		if slices.Contains(names, t.Name) {
			specs = append(specs, t)
		}
	}
	return specs, nil
}
