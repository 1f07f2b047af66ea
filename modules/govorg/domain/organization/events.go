package organization

// CreatedEvent is published when a sync or import creates a new record.
type CreatedEvent struct {
	Result *Organization
	Source string
}

// UpdatedEvent is published when a sync or import merges into an existing
// record and at least one field changed.
type UpdatedEvent struct {
	Result          *Organization
	Source          string
	DifferingFields []string
}
