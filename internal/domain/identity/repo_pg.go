package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bloodbank/bloodbank/internal/platform/apperr"
	"github.com/bloodbank/bloodbank/internal/platform/auth"
	"github.com/bloodbank/bloodbank/internal/platform/db"
	"github.com/bloodbank/bloodbank/pkg/pagination"
)

type userRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &userRepoPG{pool: pool}
}

func (r *userRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const userCols = `id, email, password_hash, role, first_name, last_name, contact_number,
	street, city, state, zip_code, country,
	blood_type, last_donation_date, eligibility_status,
	has_chronic_illness, recent_travel_risk_area, recent_surgery, on_medication, medical_notes,
	created_at, updated_at`

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	if u.EligibilityStatus == "" {
		u.EligibilityStatus = EligibilityUnknown
	}

	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO users (`+userCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)`,
		u.ID, u.Email, u.PasswordHash, u.Role, u.FirstName, u.LastName, u.ContactNumber,
		u.Address.Street, u.Address.City, u.Address.State, u.Address.ZipCode, u.Address.Country,
		u.BloodType, u.LastDonationDate, u.EligibilityStatus,
		u.MedicalHistory.HasChronicIllness, u.MedicalHistory.RecentTravelToRiskArea,
		u.MedicalHistory.RecentSurgery, u.MedicalHistory.OnMedication, u.MedicalHistory.Notes,
		u.CreatedAt, u.UpdatedAt,
	)
	if db.IsUniqueViolation(err) {
		return apperr.BadRequest("User with this email already exists")
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *userRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.getOne(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id)
}

func (r *userRepoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getOne(ctx, `SELECT `+userCols+` FROM users WHERE email = $1`, email)
}

func (r *userRepoPG) getOne(ctx context.Context, sql string, arg interface{}) (*User, error) {
	u, err := scanUser(r.conn(ctx).QueryRow(ctx, sql, arg))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *userRepoPG) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+userCols+` FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("list users by id: %w", err)
	}
	return collectUsers(rows)
}

func (r *userRepoPG) List(ctx context.Context, role auth.Role, pg pagination.Params) ([]*User, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE ($1 = '' OR role = $1)`, string(role),
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, `SELECT `+userCols+` FROM users
		WHERE ($1 = '' OR role = $1)
		ORDER BY created_at, id
		LIMIT $2 OFFSET $3`, string(role), pg.LimitArg(), pg.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	users, err := collectUsers(rows)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *userRepoPG) Update(ctx context.Context, u *User) error {
	u.UpdatedAt = time.Now().UTC()
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE users SET
			first_name=$2, last_name=$3, contact_number=$4,
			street=$5, city=$6, state=$7, zip_code=$8, country=$9,
			blood_type=$10, last_donation_date=$11, eligibility_status=$12,
			has_chronic_illness=$13, recent_travel_risk_area=$14, recent_surgery=$15,
			on_medication=$16, medical_notes=$17, updated_at=$18
		WHERE id = $1`,
		u.ID, u.FirstName, u.LastName, u.ContactNumber,
		u.Address.Street, u.Address.City, u.Address.State, u.Address.ZipCode, u.Address.Country,
		u.BloodType, u.LastDonationDate, u.EligibilityStatus,
		u.MedicalHistory.HasChronicIllness, u.MedicalHistory.RecentTravelToRiskArea,
		u.MedicalHistory.RecentSurgery, u.MedicalHistory.OnMedication, u.MedicalHistory.Notes,
		u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User not found")
	}
	return nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.FirstName, &u.LastName, &u.ContactNumber,
		&u.Address.Street, &u.Address.City, &u.Address.State, &u.Address.ZipCode, &u.Address.Country,
		&u.BloodType, &u.LastDonationDate, &u.EligibilityStatus,
		&u.MedicalHistory.HasChronicIllness, &u.MedicalHistory.RecentTravelToRiskArea,
		&u.MedicalHistory.RecentSurgery, &u.MedicalHistory.OnMedication, &u.MedicalHistory.Notes,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func collectUsers(rows pgx.Rows) ([]*User, error) {
	defer rows.Close()
	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
