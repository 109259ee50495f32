package request

import (
	"time"

	"github.com/google/uuid"

	"github.com/bloodbank/bloodbank/internal/domain/blood"
	"github.com/bloodbank/bloodbank/internal/domain/identity"
)

// UnitRef is the populated form of an assigned unit.
type UnitRef struct {
	ID            uuid.UUID       `json:"_id"`
	UnitID        string          `json:"unitId,omitempty"`
	BloodGroup    blood.Group     `json:"bloodGroup,omitempty"`
	ComponentType blood.Component `json:"componentType,omitempty"`
}

// Request maps to the blood_requests table. Hospital, Doctor and
// AssignedUnits are filled from the stored ids when read.
type Request struct {
	ID              uuid.UUID       `db:"id" json:"_id"`
	RequestID       string          `db:"request_id" json:"requestId"`
	HospitalID      *uuid.UUID      `db:"hospital_id" json:"-"`
	DoctorID        *uuid.UUID      `db:"doctor_id" json:"-"`
	Hospital        *identity.Ref   `json:"hospital"`
	Doctor          *identity.Ref   `json:"doctor"`
	BloodGroup      blood.Group     `db:"blood_group" json:"bloodGroup"`
	ComponentType   blood.Component `db:"component_type" json:"componentType"`
	Quantity        int             `db:"quantity" json:"quantity"`
	Urgency         Urgency         `db:"urgency" json:"urgency"`
	Notes           string          `db:"notes" json:"notes"`
	Status          Status          `db:"status" json:"status"`
	RequestDate     time.Time       `db:"request_date" json:"requestDate"`
	FulfillmentDate *time.Time      `db:"fulfillment_date" json:"fulfillmentDate"`
	AssignedUnitIDs []uuid.UUID     `db:"assigned_units" json:"-"`
	AssignedUnits   []UnitRef       `json:"assignedUnits"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updatedAt"`
}

// OwnedBy reports whether the request was raised by or for userID.
func (r *Request) OwnedBy(userID uuid.UUID) bool {
	return (r.HospitalID != nil && *r.HospitalID == userID) ||
		(r.DoctorID != nil && *r.DoctorID == userID)
}

// Filter narrows List. Nil fields match everything.
type Filter struct {
	HospitalID *uuid.UUID
	DoctorID   *uuid.UUID
}

type CreateRequest struct {
	BloodGroup    string `json:"bloodGroup"`
	ComponentType string `json:"componentType"`
	Quantity      int    `json:"quantity"`
	Urgency       string `json:"urgency,omitempty"`
	Notes         string `json:"notes,omitempty"`
	DoctorID      string `json:"doctorId,omitempty"`
}

type StatusRequest struct {
	Status string `json:"status"`
}

type FulfillRequest struct {
	AssignedUnitIDs []string `json:"assignedUnitIds"`
}

type RequestResponse struct {
	Msg     string   `json:"msg"`
	Request *Request `json:"request"`
}
