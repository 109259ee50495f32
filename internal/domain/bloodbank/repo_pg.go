package bloodbank

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

type bankRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &bankRepoPG{pool: pool}
}

func (r *bankRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const bankCols = `id, name, contact_email, contact_phone,
	street, city, state, zip_code, country, longitude, latitude,
	managed_by, charges, created_at, updated_at`

func (r *bankRepoPG) Create(ctx context.Context, b *BloodBank) error {
	b.ID = uuid.New()
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now

	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO blood_banks (`+bankCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		b.ID, b.Name, b.ContactEmail, b.ContactPhone,
		b.Address.Street, b.Address.City, b.Address.State, b.Address.ZipCode, b.Address.Country,
		b.Address.Location.Longitude(), b.Address.Location.Latitude(),
		b.ManagedBy, b.Charges, b.CreatedAt, b.UpdatedAt,
	)
	if db.IsUniqueViolation(err) {
		return apperr.BadRequest("Blood bank with this name or email already exists")
	}
	if err != nil {
		return fmt.Errorf("insert blood bank: %w", err)
	}
	return nil
}

func (r *bankRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*BloodBank, error) {
	b, err := scanBank(r.conn(ctx).QueryRow(ctx, `SELECT `+bankCols+` FROM blood_banks WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("Blood Bank not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("get blood bank: %w", err)
	}
	return b, nil
}

func (r *bankRepoPG) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*BloodBank, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+bankCols+` FROM blood_banks WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("list blood banks by id: %w", err)
	}
	return collectBanks(rows)
}

func (r *bankRepoPG) List(ctx context.Context, pg pagination.Params) ([]*BloodBank, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM blood_banks`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count blood banks: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+bankCols+` FROM blood_banks
		ORDER BY created_at, id LIMIT $1 OFFSET $2`, pg.LimitArg(), pg.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list blood banks: %w", err)
	}
	banks, err := collectBanks(rows)
	if err != nil {
		return nil, 0, err
	}
	return banks, total, nil
}

func scanBank(row pgx.Row) (*BloodBank, error) {
	var b BloodBank
	var lng, lat float64
	err := row.Scan(
		&b.ID, &b.Name, &b.ContactEmail, &b.ContactPhone,
		&b.Address.Street, &b.Address.City, &b.Address.State, &b.Address.ZipCode, &b.Address.Country,
		&lng, &lat, &b.ManagedBy, &b.Charges, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.Address.Location = NewPoint(lng, lat)
	b.Charges = b.Charges.Complete()
	return &b, nil
}

func collectBanks(rows pgx.Rows) ([]*BloodBank, error) {
	defer rows.Close()
	var banks []*BloodBank
	for rows.Next() {
		b, err := scanBank(rows)
		if err != nil {
			return nil, fmt.Errorf("scan blood bank: %w", err)
		}
		banks = append(banks, b)
	}
	return banks, rows.Err()
}
