package identity

import (
	"time"

	"github.com/google/uuid"

	"github.com/bloodbank/bloodbank/internal/domain/blood"
	"github.com/bloodbank/bloodbank/internal/platform/auth"
)

type Address struct {
	Street  string `db:"street" json:"street,omitempty"`
	City    string `db:"city" json:"city,omitempty"`
	State   string `db:"state" json:"state,omitempty"`
	ZipCode string `db:"zip_code" json:"zipCode,omitempty"`
	Country string `db:"country" json:"country,omitempty"`
}

// MergeNonEmpty overwrites only the parts of a that are set in b.
func (a Address) MergeNonEmpty(b Address) Address {
	if b.Street != "" {
		a.Street = b.Street
	}
	if b.City != "" {
		a.City = b.City
	}
	if b.State != "" {
		a.State = b.State
	}
	if b.ZipCode != "" {
		a.ZipCode = b.ZipCode
	}
	if b.Country != "" {
		a.Country = b.Country
	}
	return a
}

type MedicalHistory struct {
	HasChronicIllness      bool   `db:"has_chronic_illness" json:"hasChronicIllness"`
	RecentTravelToRiskArea bool   `db:"recent_travel_risk_area" json:"recentTravelToRiskArea"`
	RecentSurgery          bool   `db:"recent_surgery" json:"recentSurgery"`
	OnMedication           bool   `db:"on_medication" json:"onMedication"`
	Notes                  string `db:"medical_notes" json:"notes"`
}

// User maps to the users table. PasswordHash is never serialized.
type User struct {
	ID                uuid.UUID         `db:"id" json:"_id"`
	Email             string            `db:"email" json:"email"`
	PasswordHash      string            `db:"password_hash" json:"-"`
	Role              auth.Role         `db:"role" json:"role"`
	FirstName         string            `db:"first_name" json:"firstName,omitempty"`
	LastName          string            `db:"last_name" json:"lastName,omitempty"`
	ContactNumber     string            `db:"contact_number" json:"contactNumber,omitempty"`
	Address           Address           `json:"address"`
	BloodType         *blood.Group      `db:"blood_type" json:"bloodType"`
	LastDonationDate  *time.Time        `db:"last_donation_date" json:"lastDonationDate"`
	EligibilityStatus EligibilityStatus `db:"eligibility_status" json:"eligibilityStatus"`
	MedicalHistory    MedicalHistory    `json:"medicalHistory"`
	CreatedAt         time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time         `db:"updated_at" json:"updatedAt"`
}

// Ref is the populated form of a user reference on units, requests and
// appointments.
type Ref struct {
	ID            uuid.UUID `json:"_id"`
	FirstName     string    `json:"firstName,omitempty"`
	LastName      string    `json:"lastName,omitempty"`
	Email         string    `json:"email"`
	ContactNumber string    `json:"contactNumber,omitempty"`
}

func (u *User) Ref() *Ref {
	return &Ref{
		ID:            u.ID,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Email:         u.Email,
		ContactNumber: u.ContactNumber,
	}
}

// RegisterRequest is the body of POST /api/auth/register and POST /api/users.
type RegisterRequest struct {
	Email         string  `json:"email"`
	Password      string  `json:"password"`
	Role          string  `json:"role"`
	FirstName     string  `json:"firstName"`
	LastName      string  `json:"lastName"`
	ContactNumber string  `json:"contactNumber"`
	Address       Address `json:"address"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileUpdate holds the fields PUT /api/profile/me may change. Empty
// strings leave the stored value untouched.
type ProfileUpdate struct {
	FirstName     string   `json:"firstName"`
	LastName      string   `json:"lastName"`
	ContactNumber string   `json:"contactNumber"`
	Address       *Address `json:"address"`
}

// TokenResponse is returned by register and login.
type TokenResponse struct {
	Msg   string `json:"msg"`
	Token string `json:"token"`
}

type UserResponse struct {
	Msg  string `json:"msg"`
	User *User  `json:"user"`
}
