package request

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bloodbank/bloodbank/internal/platform/apperr"
	"github.com/bloodbank/bloodbank/internal/platform/db"
	"github.com/bloodbank/bloodbank/pkg/pagination"
)

type requestRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &requestRepoPG{pool: pool}
}

func (r *requestRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const requestCols = `id, request_id, hospital_id, doctor_id, blood_group, component_type,
	quantity, urgency, notes, status, request_date, fulfillment_date, assigned_units,
	created_at, updated_at`

func (r *requestRepoPG) Create(ctx context.Context, req *Request) error {
	req.ID = uuid.New()
	now := time.Now().UTC()
	req.CreatedAt, req.UpdatedAt = now, now
	if req.RequestDate.IsZero() {
		req.RequestDate = now
	}
	if req.AssignedUnitIDs == nil {
		req.AssignedUnitIDs = []uuid.UUID{}
	}

	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO blood_requests (`+requestCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		req.ID, req.RequestID, req.HospitalID, req.DoctorID, req.BloodGroup, req.ComponentType,
		req.Quantity, req.Urgency, req.Notes, req.Status, req.RequestDate, req.FulfillmentDate,
		req.AssignedUnitIDs, req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert blood request: %w", err)
	}
	return nil
}

func (r *requestRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Request, error) {
	return r.getOne(ctx, `SELECT `+requestCols+` FROM blood_requests WHERE id = $1`, id)
}

func (r *requestRepoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*Request, error) {
	return r.getOne(ctx, `SELECT `+requestCols+` FROM blood_requests WHERE id = $1 FOR UPDATE`, id)
}

func (r *requestRepoPG) getOne(ctx context.Context, sql string, id uuid.UUID) (*Request, error) {
	req, err := scanRequest(r.conn(ctx).QueryRow(ctx, sql, id))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("Blood request not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get blood request: %w", err)
	}
	return req, nil
}

func (r *requestRepoPG) List(ctx context.Context, f Filter, pg pagination.Params) ([]*Request, int, error) {
	const where = ` WHERE ($1::uuid IS NULL OR hospital_id = $1) AND ($2::uuid IS NULL OR doctor_id = $2)`
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM blood_requests`+where,
		f.HospitalID, f.DoctorID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count blood requests: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, `SELECT `+requestCols+` FROM blood_requests`+where+`
		ORDER BY request_date DESC, id LIMIT $3 OFFSET $4`,
		f.HospitalID, f.DoctorID, pg.LimitArg(), pg.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list blood requests: %w", err)
	}
	defer rows.Close()

	var out []*Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan blood request: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *requestRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE blood_requests SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return false, fmt.Errorf("update blood request status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *requestRepoPG) MarkFulfilled(ctx context.Context, id uuid.UUID, units []uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE blood_requests
		SET status = $2, fulfillment_date = $3, assigned_units = $4, updated_at = $3
		WHERE id = $1 AND status = $5`,
		id, StatusFulfilled, at, units, StatusApproved)
	if err != nil {
		return false, fmt.Errorf("fulfill blood request: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanRequest(row pgx.Row) (*Request, error) {
	var req Request
	err := row.Scan(
		&req.ID, &req.RequestID, &req.HospitalID, &req.DoctorID, &req.BloodGroup, &req.ComponentType,
		&req.Quantity, &req.Urgency, &req.Notes, &req.Status, &req.RequestDate, &req.FulfillmentDate,
		&req.AssignedUnitIDs, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}
