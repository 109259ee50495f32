package identity

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bloodbank/bloodbank/internal/domain/blood"
	"github.com/bloodbank/bloodbank/internal/platform/apperr"
	"github.com/bloodbank/bloodbank/internal/platform/auth"
	"github.com/bloodbank/bloodbank/pkg/pagination"
)

var emailPattern = regexp.MustCompile(`.+@.+\..+`)

// TokenIssuer signs credentials for a user.
type TokenIssuer interface {
	Issue(userID string, role auth.Role) (string, error)
}

type Service struct {
	users  Repository
	tokens TokenIssuer
	now    func() time.Time
}

func NewService(users Repository, tokens TokenIssuer) *Service {
	return &Service{users: users, tokens: tokens, now: time.Now}
}

// NormalizeEmail lower-cases and trims an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether email looks like an address.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// Register creates a self-service account and returns its credential. Only
// donor, hospital and doctor may be chosen; the role defaults to donor.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (string, *User, error) {
	role := auth.RoleDonor
	if strings.TrimSpace(req.Role) != "" {
		r, err := auth.ParseRole(req.Role)
		if err != nil {
			return "", nil, err
		}
		if !r.SelfAssignable() {
			return "", nil, apperr.Forbidden("Forbidden: %s accounts are created by an administrator", r)
		}
		role = r
	}

	u, err := s.create(ctx, req, role)
	if err != nil {
		return "", nil, err
	}
	token, err := s.tokens.Issue(u.ID.String(), u.Role)
	if err != nil {
		return "", nil, apperr.Internal(err)
	}
	return token, u, nil
}

// CreateUser provisions an account with any role. Used by admins and the CLI.
func (s *Service) CreateUser(ctx context.Context, req RegisterRequest) (*User, error) {
	role, err := auth.ParseRole(req.Role)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, req, role)
}

func (s *Service) create(ctx context.Context, req RegisterRequest, role auth.Role) (*User, error) {
	email := NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, apperr.BadRequest("Email and password are required")
	}
	if !ValidEmail(email) {
		return nil, apperr.BadRequest("Please enter a valid email address")
	}
	if len(req.Password) < auth.MinPasswordLength {
		return nil, apperr.BadRequest("Password must be at least %d characters long", auth.MinPasswordLength)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperr.BadRequest("User with this email already exists")
	} else if !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	u := &User{
		Email:             email,
		PasswordHash:      hash,
		Role:              role,
		FirstName:         strings.TrimSpace(req.FirstName),
		LastName:          strings.TrimSpace(req.LastName),
		ContactNumber:     strings.TrimSpace(req.ContactNumber),
		Address:           trimAddress(req.Address),
		EligibilityStatus: EligibilityUnknown,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login checks the password and returns a fresh credential. Unknown email and
// wrong password fail identically.
func (s *Service) Login(ctx context.Context, req LoginRequest) (string, *User, error) {
	u, err := s.users.GetByEmail(ctx, NormalizeEmail(req.Email))
	if apperr.Is(err, apperr.KindNotFound) {
		return "", nil, apperr.BadRequest("Invalid Credentials")
	}
	if err != nil {
		return "", nil, err
	}
	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		return "", nil, apperr.BadRequest("Invalid Credentials")
	}
	token, err := s.tokens.Issue(u.ID.String(), u.Role)
	if err != nil {
		return "", nil, apperr.Internal(err)
	}
	return token, u, nil
}

func (s *Service) GetProfile(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.NotFound("User profile not found")
	}
	return u, err
}

// UpdateProfile applies the non-empty fields of upd to the caller's profile.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, upd ProfileUpdate) (*User, error) {
	u, err := s.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if v := strings.TrimSpace(upd.FirstName); v != "" {
		u.FirstName = v
	}
	if v := strings.TrimSpace(upd.LastName); v != "" {
		u.LastName = v
	}
	if v := strings.TrimSpace(upd.ContactNumber); v != "" {
		u.ContactNumber = v
	}
	if upd.Address != nil {
		u.Address = u.Address.MergeNonEmpty(trimAddress(*upd.Address))
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateEligibility records the donor's screening answers and recomputes
// their eligibility status.
func (s *Service) UpdateEligibility(ctx context.Context, caller auth.Principal, req EligibilityRequest) (*User, error) {
	if caller.Role != auth.RoleDonor {
		return nil, apperr.Forbidden("Forbidden: Only donor accounts can submit eligibility.")
	}
	id, err := uuid.Parse(caller.UserID)
	if err != nil {
		return nil, apperr.Unauthorized("Token is not valid")
	}
	u, err := s.users.GetByID(ctx, id)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.NotFound("Donor profile not found")
	}
	if err != nil {
		return nil, err
	}
	if u.Role != auth.RoleDonor {
		return nil, apperr.Forbidden("Forbidden: Only donor accounts can submit eligibility.")
	}

	if req.BloodType != "" {
		g, err := blood.ParseGroup(req.BloodType)
		if err != nil {
			return nil, err
		}
		u.BloodType = &g
	}
	if d := req.LastDonationDate.Ptr(); d != nil {
		if d.After(s.now()) {
			return nil, apperr.BadRequest("Last donation date cannot be in the future")
		}
		u.LastDonationDate = d
	}
	if req.MedicalHistory != nil {
		h := *req.MedicalHistory
		h.Notes = strings.TrimSpace(h.Notes)
		u.MedicalHistory = h
	}
	u.EligibilityStatus = EvaluateEligibility(req.MedicalHistory, u.LastDonationDate, s.now())

	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ListUsers returns users, optionally filtered by role.
func (s *Service) ListUsers(ctx context.Context, role string, pg pagination.Params) ([]*User, int, error) {
	var r auth.Role
	if role != "" {
		parsed, err := auth.ParseRole(role)
		if err != nil {
			return nil, 0, err
		}
		r = parsed
	}
	return s.users.List(ctx, r, pg)
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

// RefsByID loads the users among ids, keyed by id, for populating references.
func (s *Service) RefsByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Ref, error) {
	users, err := s.users.ListByIDs(ctx, dedupe(ids))
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]*Ref, len(users))
	for _, u := range users {
		out[u.ID] = u.Ref()
	}
	return out, nil
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
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
