package appointment

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/bloodbank/bloodbank/internal/domain/blood"
	"github.com/bloodbank/bloodbank/internal/domain/bloodbank"
	"github.com/bloodbank/bloodbank/internal/domain/identity"
	"github.com/bloodbank/bloodbank/internal/platform/apperr"
	"github.com/bloodbank/bloodbank/internal/platform/auth"
	"github.com/bloodbank/bloodbank/pkg/pagination"
)

type BankDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*bloodbank.BloodBank, error)
	RefsByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*bloodbank.Ref, error)
}

type UserDirectory interface {
	RefsByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*identity.Ref, error)
}

type Service struct {
	appts Repository
	banks BankDirectory
	users UserDirectory
}

func NewService(appts Repository, banks BankDirectory, users UserDirectory) *Service {
	return &Service{appts: appts, banks: banks, users: users}
}

// Book schedules a donation at a bank for the calling donor.
func (s *Service) Book(ctx context.Context, caller auth.Principal, req BookRequest) (*Appointment, error) {
	if caller.Role != auth.RoleDonor {
		return nil, apperr.Forbidden("Forbidden: Only donors can book appointments.")
	}
	donorID, err := uuid.Parse(caller.UserID)
	if err != nil {
		return nil, apperr.Unauthorized("Token is not valid")
	}

	bankID, err := uuid.Parse(strings.TrimSpace(req.BloodBank))
	if err != nil {
		return nil, apperr.BadRequest("Invalid Blood Bank ID format.")
	}
	if _, err := s.banks.GetByID(ctx, bankID); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.NotFound("Blood Bank not found.")
		}
		return nil, err
	}
	if req.AppointmentDate.IsZero() {
		return nil, apperr.BadRequest("appointmentDate is required")
	}

	a := &Appointment{
		DonorID:         donorID,
		BloodBankID:     bankID,
		AppointmentDate: req.AppointmentDate.UTC(),
		Status:          StatusScheduled,
		Notes:           strings.TrimSpace(req.Notes),
	}
	if g := strings.TrimSpace(req.BloodGroup); g != "" {
		group, err := blood.ParseGroup(g)
		if err != nil {
			return nil, err
		}
		a.BloodGroup = &group
	}

	if err := s.appts.Create(ctx, a); err != nil {
		return nil, err
	}
	if err := s.populate(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) ListMine(ctx context.Context, caller auth.Principal, pg pagination.Params) ([]*Appointment, int, error) {
	id, err := uuid.Parse(caller.UserID)
	if err != nil {
		return nil, 0, apperr.Unauthorized("Token is not valid")
	}
	return s.list(ctx, &id, pg)
}

func (s *Service) ListAll(ctx context.Context, pg pagination.Params) ([]*Appointment, int, error) {
	return s.list(ctx, nil, pg)
}

func (s *Service) list(ctx context.Context, donorID *uuid.UUID, pg pagination.Params) ([]*Appointment, int, error) {
	appts, total, err := s.appts.List(ctx, donorID, pg)
	if err != nil {
		return nil, 0, err
	}
	if err := s.populate(ctx, appts...); err != nil {
		return nil, 0, err
	}
	return appts, total, nil
}

// UpdateStatus sets any appointment status. The ledger has no transition rules.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*Appointment, error) {
	if _, err := s.appts.GetByID(ctx, id); err != nil {
		return nil, err
	}
	st, err := ParseStatus(strings.TrimSpace(status))
	if err != nil {
		return nil, err
	}
	if err := s.appts.UpdateStatus(ctx, id, st); err != nil {
		return nil, err
	}
	a, err := s.appts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.populate(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) populate(ctx context.Context, appts ...*Appointment) error {
	donorIDs := make([]uuid.UUID, 0, len(appts))
	bankIDs := make([]uuid.UUID, 0, len(appts))
	for _, a := range appts {
		donorIDs = append(donorIDs, a.DonorID)
		bankIDs = append(bankIDs, a.BloodBankID)
	}
	donors, err := s.users.RefsByID(ctx, donorIDs)
	if err != nil {
		return err
	}
	banks, err := s.banks.RefsByID(ctx, bankIDs)
	if err != nil {
		return err
	}
	for _, a := range appts {
		if ref, ok := donors[a.DonorID]; ok {
			a.Donor = ref
		} else {
			a.Donor = &identity.Ref{ID: a.DonorID}
		}
		if ref, ok := banks[a.BloodBankID]; ok {
			a.BloodBank = ref
		} else {
			a.BloodBank = &bloodbank.Ref{ID: a.BloodBankID}
		}
	}
	return nil
}
