// README: Reservation store backed by PostgreSQL; status writes are compare-and-set on status_version.
package reservation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"petcare/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const reservationColumns = `
        id, owner_id, caregiver_id, pet_ids, start_date, end_date, care_location, address,
        visits_per_day, visits_count, total_price, commission, total_owner, total_caregiver, currency,
        distance_km, status, status_version, created_at, updated_at`

func (s *Store) Create(ctx context.Context, r *Reservation) error {
	addr, err := json.Marshal(r.Address)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
        INSERT INTO reservations (`+reservationColumns+`
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8,
            $9, $10, $11, $12, $13, $14, $15,
            $16, $17, $18, $19, $20
        )`,
		string(r.ID), string(r.OwnerID), string(r.CaregiverID), idStrings(r.PetIDs),
		r.StartDate, r.EndDate, string(r.CareLocation), addr,
		r.VisitsPerDay, r.VisitsCount,
		r.TotalPrice.Amount, r.Commission.Amount, r.TotalOwner.Amount, r.TotalCaregiver.Amount, r.TotalPrice.Currency,
		r.DistanceKm, string(r.Status), r.StatusVersion, r.CreatedAt, r.UpdatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Reservation, error) {
	row := s.db.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, string(id))
	r, err := scanReservation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
        UPDATE reservations
        SET status = $1,
            status_version = status_version + 1,
            updated_at = $2
        WHERE id = $3 AND status = $4 AND status_version = $5`,
		string(to), at, string(id), string(from), version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// List returns one page of the user's reservations, newest start date first,
// together with the total number of matches.
func (s *Store) List(ctx context.Context, f ListFilter) ([]Reservation, int, error) {
	var where []string
	args := []any{string(f.UserID)}
	switch f.Role {
	case ListAsOwner:
		where = append(where, "owner_id = $1")
	case ListAsCaregiver:
		where = append(where, "caregiver_id = $1")
	default:
		where = append(where, "(owner_id = $1 OR caregiver_id = $1)")
	}
	if f.Status != nil {
		args = append(args, string(*f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM reservations WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	rows, err := s.db.Query(ctx, fmt.Sprintf(`
        SELECT %s FROM reservations
        WHERE %s
        ORDER BY start_date DESC, id
        LIMIT $%d OFFSET $%d`, reservationColumns, cond, len(args)-1, len(args)),
		args...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out, err := collect(rows)
	return out, total, err
}

// ListDue returns reservations in status whose date field falls in [from, to).
func (s *Store) ListDue(ctx context.Context, status Status, field DateField, from, to time.Time) ([]Reservation, error) {
	if field != FieldStartDate && field != FieldEndDate {
		return nil, fmt.Errorf("%w: unknown date field %q", ErrBadRequest, field)
	}
	rows, err := s.db.Query(ctx, fmt.Sprintf(`
        SELECT %s FROM reservations
        WHERE status = $1 AND %s >= $2 AND %s < $3
        ORDER BY id`, reservationColumns, field, field),
		string(status), from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func collect(rows pgx.Rows) ([]Reservation, error) {
	var out []Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func scanReservation(row pgx.Row) (*Reservation, error) {
	var r Reservation
	var petIDs []string
	var addr []byte
	var currency string
	err := row.Scan(
		&r.ID, &r.OwnerID, &r.CaregiverID, &petIDs, &r.StartDate, &r.EndDate, &r.CareLocation, &addr,
		&r.VisitsPerDay, &r.VisitsCount,
		&r.TotalPrice.Amount, &r.Commission.Amount, &r.TotalOwner.Amount, &r.TotalCaregiver.Amount, &currency,
		&r.DistanceKm, &r.Status, &r.StatusVersion, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(addr, &r.Address); err != nil {
		return nil, err
	}
	if currency == "" {
		currency = types.DefaultCurrency
	}
	r.TotalPrice.Currency = currency
	r.Commission.Currency = currency
	r.TotalOwner.Currency = currency
	r.TotalCaregiver.Currency = currency
	r.PetIDs = make([]types.ID, len(petIDs))
	for i, id := range petIDs {
		r.PetIDs[i] = types.ID(id)
	}
	return &r, nil
}

func idStrings(ids []types.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
