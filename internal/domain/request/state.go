package request

import "github.com/bloodbank/bloodbank/internal/platform/apperr"

type Status string

const (
	StatusPending   Status = "Pending"
	StatusApproved  Status = "Approved"
	StatusRejected  Status = "Rejected"
	StatusFulfilled Status = "Fulfilled"
	StatusCancelled Status = "Cancelled"
)

// transitions lists every allowed move. States without an entry are terminal.
var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved: {StatusFulfilled, StatusCancelled},
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// ParseReviewStatus accepts the targets a reviewer may set directly.
// Fulfilled is reached only by fulfilling the request with units.
func ParseReviewStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusApproved, StatusRejected, StatusCancelled:
		return st, nil
	case StatusFulfilled:
		return "", apperr.BadRequest("Requests are fulfilled by assigning units, not by status update")
	default:
		return "", apperr.BadRequest("Invalid status provided")
	}
}

type Urgency string

const (
	UrgencyRoutine   Urgency = "Routine"
	UrgencyUrgent    Urgency = "Urgent"
	UrgencyEmergency Urgency = "Emergency"
)

// ParseUrgency defaults an empty value to Routine.
func ParseUrgency(s string) (Urgency, error) {
	switch u := Urgency(s); u {
	case "":
		return UrgencyRoutine, nil
	case UrgencyRoutine, UrgencyUrgent, UrgencyEmergency:
		return u, nil
	default:
		return "", apperr.BadRequest("Invalid urgency: %s", s)
	}
}
