package appointment

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/bloodbank/bloodbank/internal/domain/bloodbank"
	"github.com/bloodbank/bloodbank/internal/domain/identity"
	"github.com/bloodbank/bloodbank/internal/platform/apperr"
	"github.com/bloodbank/bloodbank/pkg/pagination"
)

type mockApptRepo struct {
	appts map[uuid.UUID]*Appointment
}

func newMockApptRepo() *mockApptRepo {
	return &mockApptRepo{appts: make(map[uuid.UUID]*Appointment)}
}

func (m *mockApptRepo) Create(_ context.Context, a *Appointment) error {
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *mockApptRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok {
		return nil, apperr.NotFound("Appointment not found")
	}
	cp := *a
	return &cp, nil
}

func (m *mockApptRepo) List(_ context.Context, donorID *uuid.UUID, pg pagination.Params) ([]*Appointment, int, error) {
	var out []*Appointment
	for _, a := range m.appts {
		if donorID != nil && a.DonorID != *donorID {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppointmentDate.Before(out[j].AppointmentDate) })
	total := len(out)
	if pg.Offset > len(out) {
		return nil, total, nil
	}
	out = out[pg.Offset:]
	if pg.Limited() && pg.Limit < len(out) {
		out = out[:pg.Limit]
	}
	return out, total, nil
}

func (m *mockApptRepo) UpdateStatus(_ context.Context, id uuid.UUID, status Status) error {
	a, ok := m.appts[id]
	if !ok {
		return apperr.NotFound("Appointment not found")
	}
	a.Status = status
	a.UpdatedAt = time.Now()
	return nil
}

type mockBanks struct {
	banks map[uuid.UUID]*bloodbank.BloodBank
}

func (m *mockBanks) GetByID(_ context.Context, id uuid.UUID) (*bloodbank.BloodBank, error) {
	b, ok := m.banks[id]
	if !ok {
		return nil, apperr.NotFound("Blood Bank not found.")
	}
	return b, nil
}

func (m *mockBanks) RefsByID(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*bloodbank.Ref, error) {
	out := make(map[uuid.UUID]*bloodbank.Ref)
	for _, id := range ids {
		if b, ok := m.banks[id]; ok {
			out[id] = b.Ref()
		}
	}
	return out, nil
}

type mockUsers struct {
	users map[uuid.UUID]*identity.User
}

func (m *mockUsers) RefsByID(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*identity.Ref, error) {
	out := make(map[uuid.UUID]*identity.Ref)
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out[id] = u.Ref()
		}
	}
	return out, nil
}

type fixture struct {
	svc   *Service
	repo  *mockApptRepo
	bank  *bloodbank.BloodBank
	donor *identity.User
}

func newFixture() *fixture {
	bank := &bloodbank.BloodBank{
		ID:           uuid.New(),
		Name:         "Central",
		ContactEmail: "central@example.com",
		Address:      bloodbank.Address{City: "Springfield"},
	}
	donor := &identity.User{ID: uuid.New(), FirstName: "Ann", LastName: "Lee", Email: "ann@example.com", ContactNumber: "555-0100"}
	repo := newMockApptRepo()
	svc := NewService(repo,
		&mockBanks{banks: map[uuid.UUID]*bloodbank.BloodBank{bank.ID: bank}},
		&mockUsers{users: map[uuid.UUID]*identity.User{donor.ID: donor}},
	)
	return &fixture{svc: svc, repo: repo, bank: bank, donor: donor}
}
