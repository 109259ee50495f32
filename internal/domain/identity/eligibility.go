package identity

import (
	"time"

	"github.com/bloodbank/bloodbank/pkg/datetime"
)

type EligibilityStatus string

const (
	EligibilityUnknown     EligibilityStatus = "Unknown"
	EligibilityEligible    EligibilityStatus = "Eligible"
	EligibilityDeferred    EligibilityStatus = "Deferred"
	EligibilityNeedsReview EligibilityStatus = "Needs Review"
)

// MinDaysBetweenDonations is the whole-blood donation interval.
const MinDaysBetweenDonations = 56

// EligibilityRequest is the body of PUT /api/profile/eligibility.
type EligibilityRequest struct {
	BloodType        string          `json:"bloodType"`
	LastDonationDate *datetime.Time  `json:"lastDonationDate"`
	MedicalHistory   *MedicalHistory `json:"medicalHistory"`
}

// EvaluateEligibility computes a donor's status at now.
//
// A nil history yields Unknown even when a previous screening exists; clients
// must resubmit the questionnaire with every update.
func EvaluateEligibility(history *MedicalHistory, lastDonation *time.Time, now time.Time) EligibilityStatus {
	if history == nil {
		return EligibilityUnknown
	}
	if history.HasChronicIllness || history.RecentTravelToRiskArea || history.RecentSurgery {
		return EligibilityDeferred
	}
	if lastDonation != nil && daysBetween(*lastDonation, now) < MinDaysBetweenDonations {
		return EligibilityDeferred
	}
	return EligibilityEligible
}

// daysBetween is the number of whole days from a to b, rounded toward
// negative infinity.
func daysBetween(a, b time.Time) int {
	d := b.Sub(a)
	days := int(d / (24 * time.Hour))
	if d < 0 && d%(24*time.Hour) != 0 {
		days--
	}
	return days
}
