package inventory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bloodbank/bloodbank/internal/domain/blood"
	"github.com/bloodbank/bloodbank/internal/domain/bloodbank"
	"github.com/bloodbank/bloodbank/internal/domain/identity"
	"github.com/bloodbank/bloodbank/internal/platform/apperr"
	"github.com/bloodbank/bloodbank/internal/platform/auth"
	"github.com/bloodbank/bloodbank/pkg/pagination"
)

type mockUnitRepo struct {
	mu        sync.Mutex
	units     map[uuid.UUID]*Unit
	seq       int
	countHits int
}

func newMockUnitRepo() *mockUnitRepo {
	return &mockUnitRepo{units: make(map[uuid.UUID]*Unit)}
}

func (m *mockUnitRepo) Create(_ context.Context, u *Unit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.units {
		if existing.UnitID == u.UnitID {
			return apperr.BadRequest("Blood unit with this ID already exists")
		}
	}
	m.seq++
	u.ID = uuid.New()
	u.CreatedAt = time.Unix(int64(m.seq), 0).UTC()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	m.units[u.ID] = &cp
	return nil
}

func (m *mockUnitRepo) GetByID(_ context.Context, id uuid.UUID) (*Unit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.units[id]
	if !ok {
		return nil, apperr.NotFound("Blood unit not found")
	}
	cp := *u
	return &cp, nil
}

func (m *mockUnitRepo) GetByUnitID(_ context.Context, unitID string) (*Unit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.units {
		if u.UnitID == unitID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("Blood unit not found")
}

func (m *mockUnitRepo) sorted() []*Unit {
	var out []*Unit
	for _, u := range m.units {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (m *mockUnitRepo) List(_ context.Context, f Filter, pg pagination.Params) ([]*Unit, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Unit
	for _, u := range m.sorted() {
		if f.Status != "" && u.Status != f.Status {
			continue
		}
		if f.BloodGroup != "" && u.BloodGroup != f.BloodGroup {
			continue
		}
		out = append(out, u)
	}
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

func (m *mockUnitRepo) ListByIDs(_ context.Context, ids []uuid.UUID) ([]*Unit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Unit
	for _, id := range ids {
		if u, ok := m.units[id]; ok {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockUnitRepo) Update(_ context.Context, id uuid.UUID, p UnitPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.units[id]
	if !ok {
		return apperr.NotFound("Blood unit not found")
	}
	if p.Status != nil {
		u.Status = *p.Status
	}
	if p.Recipient != nil {
		u.Recipient = p.Recipient
	}
	if p.Request != nil {
		u.Request = p.Request
	}
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *mockUnitRepo) CountAvailable(_ context.Context) (map[blood.Group]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.countHits++
	counts := make(map[blood.Group]int)
	for _, u := range m.units {
		if u.Status == StatusAvailable {
			counts[u.BloodGroup]++
		}
	}
	return counts, nil
}

func (m *mockUnitRepo) LockForFulfillment(ctx context.Context, ids []uuid.UUID) ([]*Unit, error) {
	return m.ListByIDs(ctx, ids)
}

func (m *mockUnitRepo) MarkUsed(_ context.Context, ids []uuid.UUID, requestID uuid.UUID, recipient *uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, id := range ids {
		u, ok := m.units[id]
		if !ok || u.Status != StatusAvailable {
			continue
		}
		rid := requestID
		u.Status, u.Request, u.Recipient = StatusUsed, &rid, recipient
		n++
	}
	return n, nil
}

func (m *mockUnitRepo) ExpireOverdue(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range m.units {
		if u.Status == StatusAvailable && u.Expired(now) {
			u.Status = StatusExpired
			n++
		}
	}
	return n, nil
}

type mockBanks map[uuid.UUID]*bloodbank.BloodBank

func (m mockBanks) GetByID(_ context.Context, id uuid.UUID) (*bloodbank.BloodBank, error) {
	if b, ok := m[id]; ok {
		return b, nil
	}
	return nil, apperr.NotFound("Blood Bank not found.")
}

type mockUsers map[uuid.UUID]*identity.User

func (m mockUsers) GetByID(_ context.Context, id uuid.UUID) (*identity.User, error) {
	if u, ok := m[id]; ok {
		return u, nil
	}
	return nil, apperr.NotFound("User not found")
}

type fixture struct {
	svc    *Service
	repo   *mockUnitRepo
	bank   *bloodbank.BloodBank
	donor  *identity.User
	doctor *identity.User
}

func newFixture() *fixture {
	bank := &bloodbank.BloodBank{ID: uuid.New(), Name: "Central"}
	donor := &identity.User{ID: uuid.New(), Role: auth.RoleDonor, FirstName: "Ann", LastName: "Lee", Email: "ann@example.com"}
	doctor := &identity.User{ID: uuid.New(), Role: auth.RoleDoctor}
	repo := newMockUnitRepo()
	svc := NewService(repo,
		mockBanks{bank.ID: bank},
		mockUsers{donor.ID: donor, doctor.ID: doctor},
		nil, time.Minute)
	return &fixture{svc: svc, repo: repo, bank: bank, donor: donor, doctor: doctor}
}
