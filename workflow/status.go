package workflow

// Status is one value of a record kind's status enum.
type Status string

// Kind names a family of workflow records.
type Kind string

// Role is the caller's role.
type Role string

// Roles
const (
	RoleCitizen Role = "citizen"
	RoleOfficer Role = "gs"
	// RoleSystem is used by scheduled jobs.
	RoleSystem Role = "system"
)

// Record kinds
const (
	KindServiceRequest Kind = "service-request"
	KindAppointment    Kind = "appointment"
	KindEmergency      Kind = "emergency"
	KindLegalCase      Kind = "legal-case"
	KindDiscussion     Kind = "discussion"
	KindReply          Kind = "reply"
)

// Statuses across all kinds. Several kinds share a value.
const (
	StatusPending        Status = "pending"
	StatusInReview       Status = "in-review"
	StatusAdditionalInfo Status = "additional-info-required"
	StatusApproved       Status = "approved"
	StatusRejected       Status = "rejected"
	StatusCompleted      Status = "completed"

	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no-show"

	StatusReported     Status = "reported"
	StatusAcknowledged Status = "acknowledged"
	StatusInProgress   Status = "in-progress"
	StatusResolved     Status = "resolved"
	StatusClosed       Status = "closed"

	StatusSubmitted     Status = "submitted"
	StatusUnderReview   Status = "under-review"
	StatusInvestigating Status = "investigating"

	StatusActive  Status = "active"
	StatusHidden  Status = "hidden"
	StatusDeleted Status = "deleted"
)

// Privileged reports whether the role moderates records.
func (r Role) Privileged() bool {
	return r == RoleOfficer || r == RoleSystem
}

// Valid reports whether r is a role a user account can hold.
func (r Role) Valid() bool {
	return r == RoleCitizen || r == RoleOfficer
}
