package store

// Run identifies one journaled engine session.
type Run struct {
	ID        string
	Name      string
	Config    string // canonical JSON
	CreatedAt string
}

// EventRow is one persisted debug event.
type EventRow struct {
	RunID       string
	Seq         int64
	Kind        string
	Operation   string
	OperationID string
	Pending     int
	Processing  bool
	Reason      string
	Generation  int64
	Message     string
}

// FailureRow is one persisted failure record.
type FailureRow struct {
	RunID       string
	Seq         int64
	Operation   string
	OperationID string
	Kind        string
	Reason      string
	Error       string
}

// ResultRow is one persisted publication.
type ResultRow struct {
	RunID      string
	Generation int64
	Previous   int64
	Size       int
	Script     string // canonical JSON of diff.Script
	Reset      bool
}
