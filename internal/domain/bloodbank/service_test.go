package bloodbank

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bloodbank/bloodbank/internal/domain/blood"
	"github.com/bloodbank/bloodbank/internal/platform/apperr"
	"github.com/bloodbank/bloodbank/pkg/pagination"
)

type mockBankRepo struct {
	banks map[uuid.UUID]*BloodBank
}

func newMockBankRepo() *mockBankRepo {
	return &mockBankRepo{banks: make(map[uuid.UUID]*BloodBank)}
}

func (m *mockBankRepo) Create(_ context.Context, b *BloodBank) error {
	for _, existing := range m.banks {
		if existing.Name == b.Name || existing.ContactEmail == b.ContactEmail {
			return apperr.BadRequest("Blood bank with this name or email already exists")
		}
	}
	b.ID = uuid.New()
	b.CreatedAt = time.Now().Add(time.Duration(len(m.banks)) * time.Millisecond)
	b.UpdatedAt = b.CreatedAt
	cp := *b
	m.banks[b.ID] = &cp
	return nil
}

func (m *mockBankRepo) GetByID(_ context.Context, id uuid.UUID) (*BloodBank, error) {
	b, ok := m.banks[id]
	if !ok {
		return nil, apperr.NotFound("Blood Bank not found.")
	}
	cp := *b
	return &cp, nil
}

func (m *mockBankRepo) ListByIDs(_ context.Context, ids []uuid.UUID) ([]*BloodBank, error) {
	var out []*BloodBank
	for _, id := range ids {
		if b, ok := m.banks[id]; ok {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockBankRepo) List(_ context.Context, pg pagination.Params) ([]*BloodBank, int, error) {
	var out []*BloodBank
	for _, b := range m.banks {
		cp := *b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	total := len(out)
	if pg.Offset >= len(out) {
		return nil, total, nil
	}
	out = out[pg.Offset:]
	if pg.Limited() && pg.Limit < len(out) {
		out = out[:pg.Limit]
	}
	return out, total, nil
}

func validRequest(name, email string) CreateRequest {
	return CreateRequest{
		Name:         name,
		ContactEmail: email,
		ContactPhone: "555-0100",
		Address: Address{
			Street: "1 Main St", City: "Springfield", State: "IL", ZipCode: "62701", Country: "USA",
		},
	}
}

func assertKind(t *testing.T, err error, want apperr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := apperr.KindOf(err); got != want {
		t.Fatalf("expected %s, got %s (%v)", want, got, err)
	}
}

func TestService_Create_Defaults(t *testing.T) {
	svc := NewService(newMockBankRepo())
	admin := uuid.New()

	b, err := svc.Create(context.Background(), admin, validRequest(" Central Bank ", "Central@Example.com "))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Name != "Central Bank" || b.ContactEmail != "central@example.com" {
		t.Errorf("expected trimmed fields, got %q %q", b.Name, b.ContactEmail)
	}
	if b.ManagedBy == nil || *b.ManagedBy != admin {
		t.Errorf("expected managedBy %s, got %v", admin, b.ManagedBy)
	}
	if b.Address.Location.Type != PointType || b.Address.Location.Longitude() != 0 || b.Address.Location.Latitude() != 0 {
		t.Errorf("expected default point, got %+v", b.Address.Location)
	}
	if len(b.Charges) != len(blood.Groups()) {
		t.Errorf("expected charges for all groups, got %v", b.Charges)
	}
	for g, v := range b.Charges {
		if v != 0 {
			t.Errorf("expected zero charge for %s, got %v", g, v)
		}
	}
}

func TestService_Create_LocationAndCharges(t *testing.T) {
	svc := NewService(newMockBankRepo())
	req := validRequest("North", "north@example.com")
	req.Address.Location = NewPoint(-73.98, 40.75)
	req.Charges = map[string]float64{"O-": 150, "AB+": 90.5}

	b, err := svc.Create(context.Background(), uuid.New(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Address.Location.Longitude() != -73.98 || b.Address.Location.Latitude() != 40.75 {
		t.Errorf("unexpected location %+v", b.Address.Location)
	}
	if b.Charges[blood.ONeg] != 150 || b.Charges[blood.ABPos] != 90.5 || b.Charges[blood.APos] != 0 {
		t.Errorf("unexpected charges %v", b.Charges)
	}
}

func TestService_Create_TopLevelLocation(t *testing.T) {
	svc := NewService(newMockBankRepo())
	req := validRequest("South", "south@example.com")
	loc := Location{Coordinates: []float64{10, 20}}
	req.Location = &loc

	b, err := svc.Create(context.Background(), uuid.New(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Address.Location.Type != PointType || b.Address.Location.Latitude() != 20 {
		t.Errorf("unexpected location %+v", b.Address.Location)
	}
}

func TestService_Create_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateRequest)
	}{
		{"missing name", func(r *CreateRequest) { r.Name = "  " }},
		{"missing phone", func(r *CreateRequest) { r.ContactPhone = "" }},
		{"missing city", func(r *CreateRequest) { r.Address.City = "" }},
		{"missing zip", func(r *CreateRequest) { r.Address.ZipCode = "" }},
		{"bad email", func(r *CreateRequest) { r.ContactEmail = "not-an-email" }},
		{"bad location type", func(r *CreateRequest) { r.Address.Location = Location{Type: "Polygon", Coordinates: []float64{0, 0}} }},
		{"one coordinate", func(r *CreateRequest) { r.Address.Location = Location{Type: PointType, Coordinates: []float64{1}} }},
		{"longitude out of range", func(r *CreateRequest) { r.Address.Location = NewPoint(181, 0) }},
		{"latitude out of range", func(r *CreateRequest) { r.Address.Location = NewPoint(0, -91) }},
		{"unknown charge group", func(r *CreateRequest) { r.Charges = map[string]float64{"C+": 1} }},
		{"negative charge", func(r *CreateRequest) { r.Charges = map[string]float64{"A+": -1} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(newMockBankRepo())
			req := validRequest("Bank", "bank@example.com")
			tt.mutate(&req)
			_, err := svc.Create(context.Background(), uuid.New(), req)
			assertKind(t, err, apperr.KindBadRequest)
		})
	}
}

func TestService_Create_Duplicate(t *testing.T) {
	svc := NewService(newMockBankRepo())
	ctx := context.Background()
	if _, err := svc.Create(ctx, uuid.New(), validRequest("Dup", "dup@example.com")); err != nil {
		t.Fatal(err)
	}

	_, err := svc.Create(ctx, uuid.New(), validRequest("Dup", "other@example.com"))
	assertKind(t, err, apperr.KindBadRequest)
	_, err = svc.Create(ctx, uuid.New(), validRequest("Other", "DUP@example.com"))
	assertKind(t, err, apperr.KindBadRequest)
}

func TestService_GetAndRefs(t *testing.T) {
	svc := NewService(newMockBankRepo())
	ctx := context.Background()
	b, err := svc.Create(ctx, uuid.New(), validRequest("Ref", "ref@example.com"))
	if err != nil {
		t.Fatal(err)
	}

	got, err := svc.GetByID(ctx, b.ID)
	if err != nil || got.Name != "Ref" {
		t.Fatalf("unexpected get %+v err=%v", got, err)
	}
	_, err = svc.GetByID(ctx, uuid.New())
	assertKind(t, err, apperr.KindNotFound)

	refs, err := svc.RefsByID(ctx, []uuid.UUID{b.ID, b.ID, uuid.Nil, uuid.New()})
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 1 || refs[b.ID].Name != "Ref" || refs[b.ID].Address.City != "Springfield" {
		t.Errorf("unexpected refs %+v", refs)
	}
}

func TestService_List_Pagination(t *testing.T) {
	svc := NewService(newMockBankRepo())
	ctx := context.Background()
	for _, n := range []string{"a", "b", "c"} {
		if _, err := svc.Create(ctx, uuid.New(), validRequest(n, n+"@example.com")); err != nil {
			t.Fatal(err)
		}
	}
	banks, total, err := svc.List(ctx, pagination.Params{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(banks) != 2 || banks[0].Name != "b" {
		t.Errorf("unexpected page total=%d banks=%d", total, len(banks))
	}
}
