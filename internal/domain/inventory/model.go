package inventory

import (
	"time"

	"github.com/google/uuid"

	"github.com/bloodbank/bloodbank/internal/domain/blood"
	"github.com/bloodbank/bloodbank/internal/platform/apperr"
	"github.com/bloodbank/bloodbank/pkg/datetime"
)

type Status string

const (
	StatusAvailable Status = "Available"
	StatusReserved  Status = "Reserved"
	StatusUsed      Status = "Used"
	StatusDiscarded Status = "Discarded"
	StatusExpired   Status = "Expired"
)

var statuses = []Status{StatusAvailable, StatusReserved, StatusUsed, StatusDiscarded, StatusExpired}

func Statuses() []Status {
	out := make([]Status, len(statuses))
	copy(out, statuses)
	return out
}

func (s Status) Valid() bool {
	for _, v := range statuses {
		if s == v {
			return true
		}
	}
	return false
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", apperr.BadRequest("Invalid status provided")
	}
	return st, nil
}

// BankRef is the bank view attached to a unit.
type BankRef struct {
	ID   uuid.UUID `json:"_id"`
	Name string    `json:"name,omitempty"`
}

// DonorRef is the donor view attached to a unit.
type DonorRef struct {
	ID        uuid.UUID `json:"_id"`
	FirstName string    `json:"firstName,omitempty"`
	LastName  string    `json:"lastName,omitempty"`
	Email     string    `json:"email,omitempty"`
}

// Unit maps to the blood_units table with the bank and donor joined in.
type Unit struct {
	ID             uuid.UUID       `db:"id" json:"_id"`
	UnitID         string          `db:"unit_id" json:"unitId"`
	BloodGroup     blood.Group     `db:"blood_group" json:"bloodGroup"`
	ComponentType  blood.Component `db:"component_type" json:"componentType"`
	CollectionDate time.Time       `db:"collection_date" json:"collectionDate"`
	ExpiryDate     time.Time       `db:"expiry_date" json:"expiryDate"`
	Status         Status          `db:"status" json:"status"`
	BloodBank      BankRef         `json:"bloodBank"`
	Donor          *DonorRef       `json:"donor"`
	Recipient      *uuid.UUID      `db:"recipient_id" json:"recipient"`
	Request        *uuid.UUID      `db:"request_id" json:"request"`
	CreatedAt      time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updatedAt"`
}

// Expired reports whether the unit is past its expiry date at now.
func (u *Unit) Expired(now time.Time) bool {
	return !now.Before(u.ExpiryDate)
}

// Filter narrows ListUnits. Zero fields match everything.
type Filter struct {
	Status     Status
	BloodGroup blood.Group
}

// GroupCount is one row of the availability summary.
type GroupCount struct {
	BloodGroup blood.Group `json:"bloodGroup"`
	Count      int         `json:"count"`
}

type AddRequest struct {
	UnitID         string        `json:"unitId"`
	BloodGroup     string        `json:"bloodGroup"`
	ComponentType  string        `json:"componentType"`
	CollectionDate datetime.Time `json:"collectionDate"`
	ExpiryDate     datetime.Time `json:"expiryDate"`
	BloodBankID    string        `json:"bloodBankId"`
	DonorID        string        `json:"donorId,omitempty"`
}

type UpdateRequest struct {
	Status    string `json:"status,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	Request   string `json:"request,omitempty"`
}

// UnitPatch lists the columns an update writes. Nil fields keep the stored
// value, so a concurrent claim on other columns is never overwritten.
type UnitPatch struct {
	Status    *Status
	Recipient *uuid.UUID
	Request   *uuid.UUID
}

func (p UnitPatch) Empty() bool {
	return p.Status == nil && p.Recipient == nil && p.Request == nil
}

type UnitResponse struct {
	Msg       string `json:"msg"`
	BloodUnit *Unit  `json:"bloodUnit"`
}
