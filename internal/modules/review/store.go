// README: Review store backed by PostgreSQL; uniqueness of (reservation, reviewer) is enforced by the schema.
package review

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"petcare/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, r *Review) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO reviews (id, reservation_id, reviewer_id, reviewed_user_id, rating, comment, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(r.ID), string(r.ReservationID), string(r.ReviewerID), string(r.ReviewedUserID),
		r.Rating, r.Comment, r.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

func (s *Store) ListByReviewedUser(ctx context.Context, userID types.ID, limit, offset int) ([]Review, int, error) {
	var total int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM reviews WHERE reviewed_user_id = $1`, string(userID)).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.db.Query(ctx, `
        SELECT id, reservation_id, reviewer_id, reviewed_user_id, rating, comment, created_at
        FROM reviews
        WHERE reviewed_user_id = $1
        ORDER BY created_at DESC, id
        LIMIT $2 OFFSET $3`, string(userID), limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out, err := collect(rows)
	return out, total, err
}

func (s *Store) ListByReservation(ctx context.Context, reservationID types.ID) ([]Review, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, reservation_id, reviewer_id, reviewed_user_id, rating, comment, created_at
        FROM reviews
        WHERE reservation_id = $1
        ORDER BY created_at, id`, string(reservationID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// StatRows joins each received review with its reservation to learn whether
// the reviewed user was the caregiver or the owner. Averaging happens in Go.
func (s *Store) StatRows(ctx context.Context, userIDs []types.ID) ([]StatRow, error) {
	ids := make([]string, len(userIDs))
	for i, id := range userIDs {
		ids[i] = string(id)
	}
	rows, err := s.db.Query(ctx, `
        SELECT rv.reviewed_user_id,
               CASE WHEN res.caregiver_id = rv.reviewed_user_id THEN 'caregiver' ELSE 'owner' END,
               rv.rating
        FROM reviews rv
        JOIN reservations res ON res.id = rv.reservation_id
        WHERE rv.reviewed_user_id = ANY($1)`, ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StatRow
	for rows.Next() {
		var r StatRow
		if err := rows.Scan(&r.ReviewedUserID, &r.Role, &r.Rating); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func collect(rows pgx.Rows) ([]Review, error) {
	var out []Review
	for rows.Next() {
		var r Review
		if err := rows.Scan(&r.ID, &r.ReservationID, &r.ReviewerID, &r.ReviewedUserID, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
