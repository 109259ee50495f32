package bloodbank

import (
	"time"

	"github.com/google/uuid"

	"github.com/bloodbank/bloodbank/internal/domain/blood"
)

const PointType = "Point"

// Location is a GeoJSON point. Coordinates are [longitude, latitude].
type Location struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

func (l Location) Longitude() float64 { return l.coord(0) }
func (l Location) Latitude() float64  { return l.coord(1) }

func (l Location) coord(i int) float64 {
	if len(l.Coordinates) > i {
		return l.Coordinates[i]
	}
	return 0
}

func NewPoint(lng, lat float64) Location {
	return Location{Type: PointType, Coordinates: []float64{lng, lat}}
}

type Address struct {
	Street   string   `db:"street" json:"street"`
	City     string   `db:"city" json:"city"`
	State    string   `db:"state" json:"state"`
	ZipCode  string   `db:"zip_code" json:"zipCode"`
	Country  string   `db:"country" json:"country"`
	Location Location `json:"location"`
}

// Charges holds the per-unit price for each blood group.
type Charges map[blood.Group]float64

// Complete returns a copy with every blood group present, absent ones at 0.
func (c Charges) Complete() Charges {
	out := make(Charges, len(blood.Groups()))
	for _, g := range blood.Groups() {
		out[g] = c[g]
	}
	return out
}

// BloodBank maps to the blood_banks table.
type BloodBank struct {
	ID           uuid.UUID  `db:"id" json:"_id"`
	Name         string     `db:"name" json:"name"`
	ContactEmail string     `db:"contact_email" json:"contactEmail"`
	ContactPhone string     `db:"contact_phone" json:"contactPhone"`
	Address      Address    `json:"address"`
	ManagedBy    *uuid.UUID `db:"managed_by" json:"managedBy,omitempty"`
	Charges      Charges    `db:"charges" json:"charges"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
}

// Ref is the embedded view of a bank attached to units and appointments.
type Ref struct {
	ID           uuid.UUID `json:"_id"`
	Name         string    `json:"name,omitempty"`
	ContactEmail string    `json:"contactEmail,omitempty"`
	Address      *Address  `json:"address,omitempty"`
}

func (b *BloodBank) Ref() *Ref {
	addr := b.Address
	return &Ref{ID: b.ID, Name: b.Name, ContactEmail: b.ContactEmail, Address: &addr}
}

type CreateRequest struct {
	Name         string             `json:"name"`
	ContactEmail string             `json:"contactEmail"`
	ContactPhone string             `json:"contactPhone"`
	Address      Address            `json:"address"`
	Location     *Location          `json:"location,omitempty"`
	Charges      map[string]float64 `json:"charges,omitempty"`
}

type BankResponse struct {
	Msg       string     `json:"msg"`
	BloodBank *BloodBank `json:"bloodBank"`
}
