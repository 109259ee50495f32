package bloodbank

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/bloodbank/bloodbank/internal/domain/blood"
	"github.com/bloodbank/bloodbank/internal/domain/identity"
	"github.com/bloodbank/bloodbank/internal/platform/apperr"
	"github.com/bloodbank/bloodbank/pkg/pagination"
)

type Service struct {
	banks Repository
}

func NewService(banks Repository) *Service {
	return &Service{banks: banks}
}

// Create registers a bank managed by the calling administrator.
func (s *Service) Create(ctx context.Context, managedBy uuid.UUID, req CreateRequest) (*BloodBank, error) {
	b := &BloodBank{
		Name:         strings.TrimSpace(req.Name),
		ContactEmail: identity.NormalizeEmail(req.ContactEmail),
		ContactPhone: strings.TrimSpace(req.ContactPhone),
		Address:      trimAddress(req.Address),
	}
	if managedBy != uuid.Nil {
		b.ManagedBy = &managedBy
	}

	required := []struct{ field, value string }{
		{"name", b.Name},
		{"contactEmail", b.ContactEmail},
		{"contactPhone", b.ContactPhone},
		{"address.street", b.Address.Street},
		{"address.city", b.Address.City},
		{"address.state", b.Address.State},
		{"address.zipCode", b.Address.ZipCode},
		{"address.country", b.Address.Country},
	}
	for _, r := range required {
		if r.value == "" {
			return nil, apperr.BadRequest("%s is required", r.field)
		}
	}
	if !identity.ValidEmail(b.ContactEmail) {
		return nil, apperr.BadRequest("Please enter a valid email address")
	}

	loc := req.Address.Location
	if isZeroLocation(loc) && req.Location != nil {
		loc = *req.Location
	}
	loc, err := normalizeLocation(loc)
	if err != nil {
		return nil, err
	}
	b.Address.Location = loc

	charges, err := parseCharges(req.Charges)
	if err != nil {
		return nil, err
	}
	b.Charges = charges

	if err := s.banks.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) List(ctx context.Context, pg pagination.Params) ([]*BloodBank, int, error) {
	return s.banks.List(ctx, pg)
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*BloodBank, error) {
	return s.banks.GetByID(ctx, id)
}

// RefsByID resolves bank references for display. Unknown ids are omitted.
func (s *Service) RefsByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Ref, error) {
	banks, err := s.banks.ListByIDs(ctx, dedupe(ids))
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]*Ref, len(banks))
	for _, b := range banks {
		out[b.ID] = b.Ref()
	}
	return out, nil
}

func isZeroLocation(l Location) bool {
	return l.Type == "" && len(l.Coordinates) == 0
}

func normalizeLocation(l Location) (Location, error) {
	if isZeroLocation(l) {
		return NewPoint(0, 0), nil
	}
	if l.Type != "" && l.Type != PointType {
		return Location{}, apperr.BadRequest("Location type must be Point")
	}
	if len(l.Coordinates) != 2 {
		return Location{}, apperr.BadRequest("Location coordinates must be [longitude, latitude]")
	}
	lng, lat := l.Coordinates[0], l.Coordinates[1]
	if lng < -180 || lng > 180 {
		return Location{}, apperr.BadRequest("Longitude must be between -180 and 180")
	}
	if lat < -90 || lat > 90 {
		return Location{}, apperr.BadRequest("Latitude must be between -90 and 90")
	}
	return NewPoint(lng, lat), nil
}

func parseCharges(in map[string]float64) (Charges, error) {
	out := Charges{}
	for k, v := range in {
		g, err := blood.ParseGroup(k)
		if err != nil {
			return nil, err
		}
		if v < 0 {
			return nil, apperr.BadRequest("Charge for %s cannot be negative", g)
		}
		out[g] = v
	}
	return out.Complete(), nil
}

func trimAddress(a Address) Address {
	return Address{
		Street:  strings.TrimSpace(a.Street),
		City:    strings.TrimSpace(a.City),
		State:   strings.TrimSpace(a.State),
		ZipCode: strings.TrimSpace(a.ZipCode),
		Country: strings.TrimSpace(a.Country),
	}
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
