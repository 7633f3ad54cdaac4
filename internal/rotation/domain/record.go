package domain

import "github.com/google/uuid"

// Record is one row of an encrypted table. Fields holds every column of TableSpec.Columns;
// NULL columns are nil.
type Record struct {
	ID     uuid.UUID
	Fields map[string]*string
}

// RecordUpdate holds the columns to rewrite for one record. Expected holds the value each
// rewritten column had when it was read; a missing or nil entry expects NULL. The write only
// applies while every rewritten column still holds its expected value.
type RecordUpdate struct {
	ID       uuid.UUID
	Fields   map[string]*string
	Expected map[string]*string
}

// NewRecordUpdate stages fields for record, taking the expected values from what was read.
func NewRecordUpdate(record *Record, fields map[string]*string) *RecordUpdate {
	expected := make(map[string]*string, len(fields))
	for column := range fields {
		expected[column] = record.Fields[column]
	}
	return &RecordUpdate{ID: record.ID, Fields: fields, Expected: expected}
}
