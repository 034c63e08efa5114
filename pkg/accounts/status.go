package accounts

import "fmt"

// Attribute keys holding console state on identity provider users
const (
	AttrStatus            = "status"
	AttrVerificationToken = "verificationToken"
)

// Status is the approval state of a signed-up user
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ParseStatus validates a stored or requested status value
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusApproved, StatusRejected:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown user status %q", s)
	}
}

func (s Status) String() string {
	return string(s)
}

// Enabled reports whether a user in this status may log in.
// Only approved users are enabled.
func (s Status) Enabled() bool {
	return s == StatusApproved
}

// CanTransition reports whether an admin may move a user from s to next.
// Pending is only an initial state; approved and rejected can be swapped
// and re-applied.
func (s Status) CanTransition(next Status) bool {
	switch next {
	case StatusApproved, StatusRejected:
		return s == StatusPending || s == StatusApproved || s == StatusRejected
	default:
		return false
	}
}
