package inventory

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bloodbank/bloodbank/internal/domain/blood"
	"github.com/bloodbank/bloodbank/internal/domain/bloodbank"
	"github.com/bloodbank/bloodbank/internal/domain/identity"
	"github.com/bloodbank/bloodbank/internal/platform/apperr"
	"github.com/bloodbank/bloodbank/internal/platform/auth"
	"github.com/bloodbank/bloodbank/internal/platform/cache"
	"github.com/bloodbank/bloodbank/pkg/pagination"
)

// SummaryCacheKey prefixes the serialized availability summary. The summary
// is stored under SummaryCacheKey:<generation>; summaryGenKey holds the
// current generation and every unit write replaces it. A count that was
// computed before a write lands under the old generation and is never read.
const (
	SummaryCacheKey = "inventory:summary"
	summaryGenKey   = SummaryCacheKey + ":gen"
)

type BankLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*bloodbank.BloodBank, error)
}

type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*identity.User, error)
}

type Service struct {
	units      Repository
	banks      BankLookup
	users      UserLookup
	cache      cache.Cache
	summaryTTL time.Duration
	now        func() time.Time
}

func NewService(units Repository, banks BankLookup, users UserLookup, c cache.Cache, summaryTTL time.Duration) *Service {
	return &Service{units: units, banks: banks, users: users, cache: c, summaryTTL: summaryTTL, now: time.Now}
}

// Repo exposes the unit store to the request workflow.
func (s *Service) Repo() Repository { return s.units }

// AddUnit records a newly collected unit as Available.
func (s *Service) AddUnit(ctx context.Context, req AddRequest) (*Unit, error) {
	unitID := strings.TrimSpace(req.UnitID)
	if unitID == "" {
		return nil, apperr.BadRequest("unitId is required")
	}
	group, err := blood.ParseGroup(req.BloodGroup)
	if err != nil {
		return nil, err
	}
	component, err := blood.ParseComponent(req.ComponentType)
	if err != nil {
		return nil, err
	}
	if req.CollectionDate.IsZero() || req.ExpiryDate.IsZero() {
		return nil, apperr.BadRequest("collectionDate and expiryDate are required")
	}
	if !req.ExpiryDate.After(req.CollectionDate.Time) {
		return nil, apperr.BadRequest("Expiry date must be after collection date")
	}

	if _, err := s.units.GetByUnitID(ctx, unitID); err == nil {
		return nil, apperr.BadRequest("Blood unit with this ID already exists")
	} else if !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}

	bankID, err := uuid.Parse(strings.TrimSpace(req.BloodBankID))
	if err != nil {
		return nil, apperr.BadRequest("Invalid Blood Bank ID format.")
	}
	bank, err := s.banks.GetByID(ctx, bankID)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.NotFound("Associated Blood Bank not found")
	}
	if err != nil {
		return nil, err
	}

	u := &Unit{
		UnitID:         unitID,
		BloodGroup:     group,
		ComponentType:  component,
		CollectionDate: req.CollectionDate.UTC(),
		ExpiryDate:     req.ExpiryDate.UTC(),
		Status:         StatusAvailable,
		BloodBank:      BankRef{ID: bank.ID, Name: bank.Name},
	}

	if donorID := strings.TrimSpace(req.DonorID); donorID != "" {
		id, err := uuid.Parse(donorID)
		if err != nil {
			return nil, apperr.BadRequest("Invalid Donor User ID format")
		}
		donor, err := s.users.GetByID(ctx, id)
		if err != nil && !apperr.Is(err, apperr.KindNotFound) {
			return nil, err
		}
		if donor == nil || donor.Role != auth.RoleDonor {
			return nil, apperr.NotFound("Associated Donor not found or is not a donor role")
		}
		u.Donor = &DonorRef{ID: donor.ID, FirstName: donor.FirstName, LastName: donor.LastName, Email: donor.Email}
	}

	if err := s.units.Create(ctx, u); err != nil {
		return nil, err
	}
	s.InvalidateSummary(ctx)
	return u, nil
}

func (s *Service) ListUnits(ctx context.Context, status, group string, pg pagination.Params) ([]*Unit, int, error) {
	f, err := parseFilter(status, group)
	if err != nil {
		return nil, 0, err
	}
	return s.units.List(ctx, f, pg)
}

func parseFilter(status, group string) (Filter, error) {
	var f Filter
	if status = strings.TrimSpace(status); status != "" {
		st, err := ParseStatus(status)
		if err != nil {
			return Filter{}, err
		}
		f.Status = st
	}
	if group = strings.TrimSpace(group); group != "" {
		g, err := blood.ParseGroup(group)
		if err != nil {
			return Filter{}, err
		}
		f.BloodGroup = g
	}
	return f, nil
}

// AvailabilitySummary counts Available units per blood group. Every group is
// present, in canonical order, with 0 where nothing is stocked.
func (s *Service) AvailabilitySummary(ctx context.Context) ([]GroupCount, error) {
	key := s.summaryKey(ctx)
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key); err == nil {
			var cached []GroupCount
			if json.Unmarshal([]byte(raw), &cached) == nil {
				return cached, nil
			}
		}
	}

	counts, err := s.units.CountAvailable(ctx)
	if err != nil {
		return nil, err
	}
	summary := make([]GroupCount, 0, len(blood.Groups()))
	for _, g := range blood.Groups() {
		summary = append(summary, GroupCount{BloodGroup: g, Count: counts[g]})
	}

	if s.cache != nil {
		if raw, err := json.Marshal(summary); err == nil {
			_ = s.cache.Set(ctx, key, string(raw), s.summaryTTL)
		}
	}
	return summary, nil
}

func (s *Service) summaryKey(ctx context.Context) string {
	if s.cache == nil {
		return ""
	}
	gen, err := s.cache.Get(ctx, summaryGenKey)
	if err != nil {
		gen = "0"
	}
	return SummaryCacheKey + ":" + gen
}

// InvalidateSummary starts a new summary generation after any unit write and
// drops the previous generation's entry.
func (s *Service) InvalidateSummary(ctx context.Context) {
	if s.cache == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	old := s.summaryKey(ctx)
	_ = s.cache.Set(ctx, summaryGenKey, uuid.NewString(), 0)
	_ = s.cache.Delete(ctx, old)
}

// Update changes a unit's status or links. ref is the internal id or, failing
// that, the external unitId.
func (s *Service) Update(ctx context.Context, ref string, req UpdateRequest) (*Unit, error) {
	u, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	var p UnitPatch
	if st := strings.TrimSpace(req.Status); st != "" {
		status, err := ParseStatus(st)
		if err != nil {
			return nil, err
		}
		p.Status = &status
	}
	if rec := strings.TrimSpace(req.Recipient); rec != "" {
		id, err := uuid.Parse(rec)
		if err != nil {
			return nil, apperr.BadRequest("Invalid Recipient User ID format")
		}
		p.Recipient = &id
	}
	if rq := strings.TrimSpace(req.Request); rq != "" {
		id, err := uuid.Parse(rq)
		if err != nil {
			return nil, apperr.BadRequest("Invalid Blood Request ID format")
		}
		p.Request = &id
	}
	if p.Empty() {
		return u, nil
	}

	if err := s.units.Update(ctx, u.ID, p); err != nil {
		return nil, err
	}
	s.InvalidateSummary(ctx)
	return s.units.GetByID(ctx, u.ID)
}

func (s *Service) resolve(ctx context.Context, ref string) (*Unit, error) {
	ref = strings.TrimSpace(ref)
	if id, err := uuid.Parse(ref); err == nil {
		u, err := s.units.GetByID(ctx, id)
		if err == nil || !apperr.Is(err, apperr.KindNotFound) {
			return u, err
		}
	}
	u, err := s.units.GetByUnitID(ctx, ref)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.NotFound("Blood unit not found")
	}
	return u, err
}

// ExpireOverdue marks Available units past their expiry date as Expired.
func (s *Service) ExpireOverdue(ctx context.Context) (int, error) {
	n, err := s.units.ExpireOverdue(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.InvalidateSummary(ctx)
	}
	return n, nil
}
