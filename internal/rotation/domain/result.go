package domain

import "time"

// Mode selects what a run does to each field.
type Mode string

const (
	// ModeRotate re-encrypts ciphertext written with a non-current key version.
	ModeRotate Mode = "rotate"

	// ModeEncryptExisting encrypts plaintext values left over from before encryption.
	ModeEncryptExisting Mode = "encrypt_existing"
)

// TableResult holds the per-table counters of a run. Total is Rotated+Skipped+Failed.
type TableResult struct {
	Table   string `json:"table"`
	Total   int    `json:"total"`
	Rotated int    `json:"rotated"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
}

// RotationResult is the outcome of a run over one or more tables.
type RotationResult struct {
	Mode       Mode          `json:"mode"`
	KeyVersion string        `json:"key_version"`
	Tables     []TableResult `json:"tables"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// Totals sums the counters of every table.
func (r *RotationResult) Totals() TableResult {
	totals := TableResult{Table: "total"}
	for _, t := range r.Tables {
		totals.Total += t.Total
		totals.Rotated += t.Rotated
		totals.Skipped += t.Skipped
		totals.Failed += t.Failed
	}
	return totals
}
