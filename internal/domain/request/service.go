package request

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bloodbank/bloodbank/internal/domain/blood"
	"github.com/bloodbank/bloodbank/internal/domain/identity"
	"github.com/bloodbank/bloodbank/internal/domain/inventory"
	"github.com/bloodbank/bloodbank/internal/platform/apperr"
	"github.com/bloodbank/bloodbank/internal/platform/auth"
	"github.com/bloodbank/bloodbank/internal/platform/db"
	"github.com/bloodbank/bloodbank/pkg/pagination"
)

// UnitStore is the part of the inventory the workflow reads and claims.
type UnitStore interface {
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*inventory.Unit, error)
	LockForFulfillment(ctx context.Context, ids []uuid.UUID) ([]*inventory.Unit, error)
	MarkUsed(ctx context.Context, ids []uuid.UUID, requestID uuid.UUID, recipient *uuid.UUID) (int, error)
}

type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*identity.User, error)
	RefsByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*identity.Ref, error)
}

// SummaryInvalidator drops cached inventory counts after units change.
type SummaryInvalidator interface {
	InvalidateSummary(ctx context.Context)
}

type Service struct {
	requests Repository
	units    UnitStore
	users    UserDirectory
	tx       db.TxRunner
	summary  SummaryInvalidator
	now      func() time.Time
}

func NewService(requests Repository, units UnitStore, users UserDirectory, tx db.TxRunner, summary SummaryInvalidator) *Service {
	return &Service{requests: requests, units: units, users: users, tx: tx, summary: summary, now: time.Now}
}

// Create raises a Pending request for the calling hospital or doctor.
func (s *Service) Create(ctx context.Context, caller auth.Principal, req CreateRequest) (*Request, error) {
	if !caller.Role.In(auth.Requesters...) {
		return nil, apperr.Forbidden("Forbidden: Only hospitals or doctors can create blood requests.")
	}
	callerID, err := uuid.Parse(caller.UserID)
	if err != nil {
		return nil, apperr.Unauthorized("Token is not valid")
	}

	group, err := blood.ParseGroup(req.BloodGroup)
	if err != nil {
		return nil, err
	}
	component, err := blood.ParseComponent(req.ComponentType)
	if err != nil {
		return nil, err
	}
	if req.Quantity <= 0 {
		return nil, apperr.BadRequest("Quantity must be a positive integer")
	}
	urgency, err := ParseUrgency(strings.TrimSpace(req.Urgency))
	if err != nil {
		return nil, err
	}

	r := &Request{
		RequestID:     "REQ-" + uuid.NewString(),
		BloodGroup:    group,
		ComponentType: component,
		Quantity:      req.Quantity,
		Urgency:       urgency,
		Notes:         strings.TrimSpace(req.Notes),
		Status:        StatusPending,
		RequestDate:   s.now().UTC(),
	}

	switch caller.Role {
	case auth.RoleDoctor:
		r.DoctorID = &callerID
	case auth.RoleHospital:
		r.HospitalID = &callerID
		if doctorID := strings.TrimSpace(req.DoctorID); doctorID != "" {
			id, err := s.resolveDoctor(ctx, doctorID)
			if err != nil {
				return nil, err
			}
			r.DoctorID = &id
		}
	}

	if err := s.requests.Create(ctx, r); err != nil {
		return nil, err
	}
	if err := s.populate(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) resolveDoctor(ctx context.Context, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.BadRequest("Invalid Doctor User ID format")
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil && !apperr.Is(err, apperr.KindNotFound) {
		return uuid.Nil, err
	}
	if u == nil || u.Role != auth.RoleDoctor {
		return uuid.Nil, apperr.NotFound("Associated Doctor not found or is not a doctor role.")
	}
	return u.ID, nil
}

// ListAll returns every request for reviewers.
func (s *Service) ListAll(ctx context.Context, pg pagination.Params) ([]*Request, int, error) {
	return s.list(ctx, Filter{}, pg)
}

// ListMine returns the requests raised by or for the calling hospital or doctor.
func (s *Service) ListMine(ctx context.Context, caller auth.Principal, pg pagination.Params) ([]*Request, int, error) {
	id, err := uuid.Parse(caller.UserID)
	if err != nil {
		return nil, 0, apperr.Unauthorized("Token is not valid")
	}
	var f Filter
	switch caller.Role {
	case auth.RoleHospital:
		f.HospitalID = &id
	case auth.RoleDoctor:
		f.DoctorID = &id
	default:
		return nil, 0, apperr.Forbidden("Forbidden: Only hospitals or doctors can view their own requests.")
	}
	return s.list(ctx, f, pg)
}

func (s *Service) list(ctx context.Context, f Filter, pg pagination.Params) ([]*Request, int, error) {
	reqs, total, err := s.requests.List(ctx, f, pg)
	if err != nil {
		return nil, 0, err
	}
	if err := s.populate(ctx, reqs...); err != nil {
		return nil, 0, err
	}
	return reqs, total, nil
}

// Get returns one request to a reviewer or to the hospital or doctor it belongs to.
func (s *Service) Get(ctx context.Context, caller auth.Principal, id uuid.UUID) (*Request, error) {
	r, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.Role.In(auth.Reviewers...) {
		callerID, err := uuid.Parse(caller.UserID)
		if err != nil {
			return nil, apperr.Unauthorized("Token is not valid")
		}
		if !r.OwnedBy(callerID) {
			return nil, apperr.Forbidden("Forbidden: You do not have permission to view this request")
		}
	}
	if err := s.populate(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// UpdateStatus applies a reviewer decision. Setting the current status again
// is a no-op; any move outside the transition table is a Conflict.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*Request, error) {
	r, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	target, err := ParseReviewStatus(strings.TrimSpace(status))
	if err != nil {
		return nil, err
	}

	if r.Status != target {
		if !r.Status.CanTransitionTo(target) {
			return nil, apperr.Conflict("Cannot change request status from %s to %s", r.Status, target)
		}
		ok, err := s.requests.UpdateStatus(ctx, id, r.Status, target)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperr.Conflict("Blood request was modified concurrently, please retry")
		}
		if r, err = s.requests.GetByID(ctx, id); err != nil {
			return nil, err
		}
	}
	if err := s.populate(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Fulfill assigns units to an Approved request. All unit claims and the
// request transition commit together or not at all.
//
// Only Approved requests can be fulfilled: a Pending request fails with
// BadRequest and must be approved first, while Fulfilled, Cancelled and
// Rejected requests fail with Conflict.
func (s *Service) Fulfill(ctx context.Context, id uuid.UUID, rawUnitIDs []string) (*Request, error) {
	if len(rawUnitIDs) == 0 {
		return nil, apperr.BadRequest("Please provide an array of assignedUnitIds")
	}
	unitIDs := make([]uuid.UUID, 0, len(rawUnitIDs))
	for _, raw := range rawUnitIDs {
		uid, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			return nil, apperr.BadRequest("One or more assignedUnitIds are invalid format.")
		}
		unitIDs = append(unitIDs, uid)
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		r, err := s.requests.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if r.Status.Terminal() {
			return apperr.Conflict("Request is already %s. Cannot fulfill again.", r.Status)
		}
		if r.Status != StatusApproved {
			return apperr.BadRequest("Request must be Approved before it can be fulfilled")
		}

		units, err := s.units.LockForFulfillment(ctx, unitIDs)
		if err != nil {
			return err
		}
		available := make(map[uuid.UUID]*inventory.Unit, len(units))
		for _, u := range units {
			if u.Status == inventory.StatusAvailable {
				available[u.ID] = u
			}
		}
		if len(available) < len(unitIDs) {
			return apperr.BadRequest("One or more assigned units are not found or not available.")
		}
		if len(available) < r.Quantity {
			return apperr.BadRequest("Not enough available units provided. Requested: %d, Provided: %d", r.Quantity, len(available))
		}

		now := s.now().UTC()
		for _, uid := range unitIDs {
			u := available[uid]
			if u.BloodGroup != r.BloodGroup || u.ComponentType != r.ComponentType {
				return apperr.BadRequest("Assigned unit %s does not match requested blood group/component type.", u.UnitID)
			}
			if u.Expired(now) {
				return apperr.BadRequest("Assigned unit %s has expired.", u.UnitID)
			}
		}

		n, err := s.units.MarkUsed(ctx, unitIDs, r.ID, r.HospitalID)
		if err != nil {
			return err
		}
		if n != len(unitIDs) {
			return apperr.Conflict("One or more assigned units were claimed by another request")
		}
		ok, err := s.requests.MarkFulfilled(ctx, r.ID, unitIDs, now)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Conflict("Blood request was modified concurrently, please retry")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.summary != nil {
		s.summary.InvalidateSummary(ctx)
	}
	r, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.populate(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// populate resolves hospital, doctor and unit references in place.
func (s *Service) populate(ctx context.Context, reqs ...*Request) error {
	var userIDs, unitIDs []uuid.UUID
	for _, r := range reqs {
		if r.HospitalID != nil {
			userIDs = append(userIDs, *r.HospitalID)
		}
		if r.DoctorID != nil {
			userIDs = append(userIDs, *r.DoctorID)
		}
		unitIDs = append(unitIDs, r.AssignedUnitIDs...)
	}

	refs, err := s.users.RefsByID(ctx, userIDs)
	if err != nil {
		return err
	}
	unitRefs := make(map[uuid.UUID]UnitRef)
	if len(unitIDs) > 0 {
		units, err := s.units.ListByIDs(ctx, unitIDs)
		if err != nil {
			return err
		}
		for _, u := range units {
			unitRefs[u.ID] = UnitRef{ID: u.ID, UnitID: u.UnitID, BloodGroup: u.BloodGroup, ComponentType: u.ComponentType}
		}
	}

	for _, r := range reqs {
		r.Hospital = userRef(refs, r.HospitalID)
		r.Doctor = userRef(refs, r.DoctorID)
		r.AssignedUnits = make([]UnitRef, 0, len(r.AssignedUnitIDs))
		for _, uid := range r.AssignedUnitIDs {
			ref, ok := unitRefs[uid]
			if !ok {
				ref = UnitRef{ID: uid}
			}
			r.AssignedUnits = append(r.AssignedUnits, ref)
		}
	}
	return nil
}

func userRef(refs map[uuid.UUID]*identity.Ref, id *uuid.UUID) *identity.Ref {
	if id == nil {
		return nil
	}
	ref, ok := refs[*id]
	if !ok {
		return &identity.Ref{ID: *id}
	}
	return &identity.Ref{ID: ref.ID, FirstName: ref.FirstName, LastName: ref.LastName, Email: ref.Email}
}
