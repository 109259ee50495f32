package request

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bloodbank/bloodbank/internal/domain/identity"
	"github.com/bloodbank/bloodbank/internal/domain/inventory"
	"github.com/bloodbank/bloodbank/internal/platform/apperr"
	"github.com/bloodbank/bloodbank/pkg/pagination"
)

type mockRequestRepo struct {
	reqs map[uuid.UUID]*Request
	seq  int
}

func newMockRequestRepo() *mockRequestRepo {
	return &mockRequestRepo{reqs: make(map[uuid.UUID]*Request)}
}

func copyRequest(r *Request) *Request {
	cp := *r
	cp.AssignedUnitIDs = append([]uuid.UUID(nil), r.AssignedUnitIDs...)
	cp.AssignedUnits = nil
	cp.Hospital, cp.Doctor = nil, nil
	return &cp
}

func (m *mockRequestRepo) Create(_ context.Context, r *Request) error {
	m.seq++
	r.ID = uuid.New()
	r.CreatedAt = time.Unix(int64(m.seq), 0).UTC()
	r.UpdatedAt = r.CreatedAt
	m.reqs[r.ID] = copyRequest(r)
	return nil
}

func (m *mockRequestRepo) GetByID(_ context.Context, id uuid.UUID) (*Request, error) {
	r, ok := m.reqs[id]
	if !ok {
		return nil, apperr.NotFound("Blood request not found")
	}
	return copyRequest(r), nil
}

func (m *mockRequestRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*Request, error) {
	return m.GetByID(ctx, id)
}

func (m *mockRequestRepo) List(_ context.Context, f Filter, pg pagination.Params) ([]*Request, int, error) {
	var out []*Request
	for _, r := range m.reqs {
		if f.HospitalID != nil && (r.HospitalID == nil || *r.HospitalID != *f.HospitalID) {
			continue
		}
		if f.DoctorID != nil && (r.DoctorID == nil || *r.DoctorID != *f.DoctorID) {
			continue
		}
		out = append(out, copyRequest(r))
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

func (m *mockRequestRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to Status) (bool, error) {
	r, ok := m.reqs[id]
	if !ok || r.Status != from {
		return false, nil
	}
	r.Status = to
	return true, nil
}

func (m *mockRequestRepo) MarkFulfilled(_ context.Context, id uuid.UUID, units []uuid.UUID, at time.Time) (bool, error) {
	r, ok := m.reqs[id]
	if !ok || r.Status != StatusApproved {
		return false, nil
	}
	r.Status = StatusFulfilled
	r.FulfillmentDate = &at
	r.AssignedUnitIDs = append([]uuid.UUID(nil), units...)
	return true, nil
}

type mockUnitStore struct {
	units    map[uuid.UUID]*inventory.Unit
	markErr  error
	stealing bool
}

func newMockUnitStore() *mockUnitStore {
	return &mockUnitStore{units: make(map[uuid.UUID]*inventory.Unit)}
}

func (m *mockUnitStore) add(u *inventory.Unit) *inventory.Unit {
	u.ID = uuid.New()
	cp := *u
	m.units[u.ID] = &cp
	return u
}

func (m *mockUnitStore) ListByIDs(_ context.Context, ids []uuid.UUID) ([]*inventory.Unit, error) {
	var out []*inventory.Unit
	seen := map[uuid.UUID]bool{}
	for _, id := range ids {
		if u, ok := m.units[id]; ok && !seen[id] {
			seen[id] = true
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockUnitStore) LockForFulfillment(ctx context.Context, ids []uuid.UUID) ([]*inventory.Unit, error) {
	units, err := m.ListByIDs(ctx, ids)
	if m.stealing {
		// Another fulfillment claims the first unit after it was read.
		for _, u := range units {
			m.units[u.ID].Status = inventory.StatusUsed
			break
		}
	}
	return units, err
}

func (m *mockUnitStore) MarkUsed(_ context.Context, ids []uuid.UUID, requestID uuid.UUID, recipient *uuid.UUID) (int, error) {
	if m.markErr != nil {
		return 0, m.markErr
	}
	n := 0
	for _, id := range ids {
		u, ok := m.units[id]
		if !ok || u.Status != inventory.StatusAvailable {
			continue
		}
		rid := requestID
		u.Status, u.Request, u.Recipient = inventory.StatusUsed, &rid, recipient
		n++
	}
	return n, nil
}

// snapshotTx restores both stores when fn fails, standing in for a rollback.
type snapshotTx struct {
	mu    sync.Mutex
	reqs  *mockRequestRepo
	units *mockUnitStore
	runs  int
}

func (s *snapshotTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs++

	reqs := make(map[uuid.UUID]*Request, len(s.reqs.reqs))
	for id, r := range s.reqs.reqs {
		reqs[id] = copyRequest(r)
	}
	units := make(map[uuid.UUID]*inventory.Unit, len(s.units.units))
	for id, u := range s.units.units {
		cp := *u
		units[id] = &cp
	}

	if err := fn(ctx); err != nil {
		s.reqs.reqs, s.units.units = reqs, units
		return err
	}
	return nil
}

type mockDirectory map[uuid.UUID]*identity.User

func (m mockDirectory) GetByID(_ context.Context, id uuid.UUID) (*identity.User, error) {
	if u, ok := m[id]; ok {
		return u, nil
	}
	return nil, apperr.NotFound("User not found")
}

func (m mockDirectory) RefsByID(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*identity.Ref, error) {
	out := make(map[uuid.UUID]*identity.Ref)
	for _, id := range ids {
		if u, ok := m[id]; ok {
			out[id] = u.Ref()
		}
	}
	return out, nil
}

type countingInvalidator struct{ n int }

func (c *countingInvalidator) InvalidateSummary(context.Context) { c.n++ }
