package domain

// ListFilter selects entries of one organization. Zero-valued fields do not filter.
type ListFilter struct {
	OrganizationID string
	EntityType     string
	EntityID       string
	UserID         string
	Action         Action
	// StartTime and EndTime bound Timestamp (Unix ms, inclusive). Zero means unbounded.
	StartTime int64
	EndTime   int64
	// SearchTerm matches entity name, entity type, user email or user name, case-insensitively.
	SearchTerm string
	Offset     int
	Limit      int
}

// ListResult is a page of entries, newest first.
type ListResult struct {
	Entries    []*Entry
	TotalCount int
	HasMore    bool
}

// Stats counts an organization's entries in a time window.
type Stats struct {
	TotalLogs    int
	ByAction     map[string]int
	ByEntityType map[string]int
	ByUser       map[string]int
}
