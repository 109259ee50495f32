package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/bloodbank/bloodbank/internal/domain/blood"
	"github.com/bloodbank/bloodbank/internal/domain/bloodbank"
	"github.com/bloodbank/bloodbank/internal/domain/identity"
	"github.com/bloodbank/bloodbank/internal/platform/apperr"
	"github.com/bloodbank/bloodbank/pkg/datetime"
)

type Status string

const (
	StatusScheduled Status = "Scheduled"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
	StatusNoShow    Status = "No-Show"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusScheduled, StatusCompleted, StatusCancelled, StatusNoShow:
		return st, nil
	}
	return "", apperr.BadRequest("Invalid status provided")
}

// Appointment maps to the appointments table. Donor and BloodBank are
// resolved from the stored ids when read.
type Appointment struct {
	ID              uuid.UUID      `db:"id" json:"_id"`
	DonorID         uuid.UUID      `db:"donor_id" json:"-"`
	BloodBankID     uuid.UUID      `db:"blood_bank_id" json:"-"`
	Donor           *identity.Ref  `json:"donor"`
	BloodBank       *bloodbank.Ref `json:"bloodBank"`
	AppointmentDate time.Time      `db:"appointment_date" json:"appointmentDate"`
	BloodGroup      *blood.Group   `db:"blood_group" json:"bloodGroup"`
	Status          Status         `db:"status" json:"status"`
	Notes           string         `db:"notes" json:"notes"`
	CreatedAt       time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updatedAt"`
}

type BookRequest struct {
	BloodBank       string        `json:"bloodBank"`
	AppointmentDate datetime.Time `json:"appointmentDate"`
	BloodGroup      string        `json:"bloodGroup,omitempty"`
	Notes           string        `json:"notes,omitempty"`
}

type StatusRequest struct {
	Status string `json:"status"`
}

type AppointmentResponse struct {
	Msg         string       `json:"msg"`
	Appointment *Appointment `json:"appointment"`
}
