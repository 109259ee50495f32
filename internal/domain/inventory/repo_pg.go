package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bloodbank/bloodbank/internal/domain/blood"
	"github.com/bloodbank/bloodbank/internal/platform/apperr"
	"github.com/bloodbank/bloodbank/internal/platform/db"
	"github.com/bloodbank/bloodbank/pkg/pagination"
)

type unitRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &unitRepoPG{pool: pool}
}

func (r *unitRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const unitSelect = `SELECT u.id, u.unit_id, u.blood_group, u.component_type,
	u.collection_date, u.expiry_date, u.status,
	u.blood_bank_id, COALESCE(b.name, ''),
	u.donor_id, COALESCE(d.first_name, ''), COALESCE(d.last_name, ''), COALESCE(d.email, ''),
	u.recipient_id, u.request_id, u.created_at, u.updated_at
	FROM blood_units u
	LEFT JOIN blood_banks b ON b.id = u.blood_bank_id
	LEFT JOIN users d ON d.id = u.donor_id`

// lockSelect has no joins so FOR UPDATE locks only unit rows.
const lockSelect = `SELECT u.id, u.unit_id, u.blood_group, u.component_type,
	u.collection_date, u.expiry_date, u.status,
	u.blood_bank_id, '',
	u.donor_id, '', '', '',
	u.recipient_id, u.request_id, u.created_at, u.updated_at
	FROM blood_units u`

func (r *unitRepoPG) Create(ctx context.Context, u *Unit) error {
	u.ID = uuid.New()
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	if u.Status == "" {
		u.Status = StatusAvailable
	}

	var donorID *uuid.UUID
	if u.Donor != nil {
		donorID = &u.Donor.ID
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO blood_units (id, unit_id, blood_group, component_type, collection_date, expiry_date,
			status, blood_bank_id, donor_id, recipient_id, request_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		u.ID, u.UnitID, u.BloodGroup, u.ComponentType, u.CollectionDate, u.ExpiryDate,
		u.Status, u.BloodBank.ID, donorID, u.Recipient, u.Request, u.CreatedAt, u.UpdatedAt,
	)
	if db.IsUniqueViolation(err) {
		return apperr.BadRequest("Blood unit with this ID already exists")
	}
	if err != nil {
		return fmt.Errorf("insert blood unit: %w", err)
	}
	return nil
}

func (r *unitRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Unit, error) {
	return r.getOne(ctx, unitSelect+` WHERE u.id = $1`, id)
}

func (r *unitRepoPG) GetByUnitID(ctx context.Context, unitID string) (*Unit, error) {
	return r.getOne(ctx, unitSelect+` WHERE u.unit_id = $1`, unitID)
}

func (r *unitRepoPG) getOne(ctx context.Context, sql string, arg interface{}) (*Unit, error) {
	u, err := scanUnit(r.conn(ctx).QueryRow(ctx, sql, arg))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("Blood unit not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get blood unit: %w", err)
	}
	return u, nil
}

func (r *unitRepoPG) List(ctx context.Context, f Filter, pg pagination.Params) ([]*Unit, int, error) {
	const where = ` WHERE ($1 = '' OR u.status = $1) AND ($2 = '' OR u.blood_group = $2)`
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM blood_units u`+where,
		string(f.Status), string(f.BloodGroup),
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count blood units: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, unitSelect+where+`
		ORDER BY u.created_at, u.id LIMIT $3 OFFSET $4`,
		string(f.Status), string(f.BloodGroup), pg.LimitArg(), pg.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list blood units: %w", err)
	}
	units, err := collectUnits(rows)
	if err != nil {
		return nil, 0, err
	}
	return units, total, nil
}

func (r *unitRepoPG) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*Unit, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.conn(ctx).Query(ctx, unitSelect+` WHERE u.id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("list blood units by id: %w", err)
	}
	return collectUnits(rows)
}

func (r *unitRepoPG) Update(ctx context.Context, id uuid.UUID, p UnitPatch) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE blood_units SET
			status       = COALESCE($2, status),
			recipient_id = COALESCE($3, recipient_id),
			request_id   = COALESCE($4, request_id),
			updated_at   = $5
		WHERE id = $1`,
		id, p.Status, p.Recipient, p.Request, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update blood unit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Blood unit not found")
	}
	return nil
}

func (r *unitRepoPG) CountAvailable(ctx context.Context) (map[blood.Group]int, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT blood_group, COUNT(*) FROM blood_units
		WHERE status = $1 GROUP BY blood_group`, StatusAvailable)
	if err != nil {
		return nil, fmt.Errorf("count available units: %w", err)
	}
	defer rows.Close()

	counts := make(map[blood.Group]int)
	for rows.Next() {
		var g blood.Group
		var n int
		if err := rows.Scan(&g, &n); err != nil {
			return nil, fmt.Errorf("scan unit count: %w", err)
		}
		counts[g] = n
	}
	return counts, rows.Err()
}

func (r *unitRepoPG) LockForFulfillment(ctx context.Context, ids []uuid.UUID) ([]*Unit, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.conn(ctx).Query(ctx, lockSelect+` WHERE u.id = ANY($1) ORDER BY u.id FOR UPDATE`, ids)
	if err != nil {
		return nil, fmt.Errorf("lock blood units: %w", err)
	}
	return collectUnits(rows)
}

func (r *unitRepoPG) MarkUsed(ctx context.Context, ids []uuid.UUID, requestID uuid.UUID, recipient *uuid.UUID) (int, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE blood_units SET status=$2, request_id=$3, recipient_id=$4, updated_at=NOW()
		WHERE id = ANY($1) AND status = $5`,
		ids, StatusUsed, requestID, recipient, StatusAvailable)
	if err != nil {
		return 0, fmt.Errorf("mark units used: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *unitRepoPG) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE blood_units SET status=$1, updated_at=NOW()
		WHERE status = $2 AND expiry_date <= $3`,
		StatusExpired, StatusAvailable, now)
	if err != nil {
		return 0, fmt.Errorf("expire overdue units: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanUnit(row pgx.Row) (*Unit, error) {
	var u Unit
	var donorID *uuid.UUID
	var donor DonorRef
	err := row.Scan(
		&u.ID, &u.UnitID, &u.BloodGroup, &u.ComponentType,
		&u.CollectionDate, &u.ExpiryDate, &u.Status,
		&u.BloodBank.ID, &u.BloodBank.Name,
		&donorID, &donor.FirstName, &donor.LastName, &donor.Email,
		&u.Recipient, &u.Request, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if donorID != nil {
		donor.ID = *donorID
		u.Donor = &donor
	}
	return &u, nil
}

func collectUnits(rows pgx.Rows) ([]*Unit, error) {
	defer rows.Close()
	var units []*Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan blood unit: %w", err)
		}
		units = append(units, u)
	}
	return units, rows.Err()
}
