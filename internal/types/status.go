package types

// Status is a type for the row status of a resource in the database.
// This tracks the lifecycle of a record and determines if it should be
// included in queries. It is distinct from the billing state machines
// (ChargeStatus, MandateStatus etc.) which model domain lifecycles.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusDeleted  Status = "deleted"
)
