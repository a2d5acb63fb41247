// README: Directory store backed by PostgreSQL; implements the user directory and pet catalog.
package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"petcare/internal/types"
)

var (
	ErrUserNotFound    = fmt.Errorf("user: %w", types.ErrNotFound)
	ErrAddressNotFound = fmt.Errorf("address: %w", types.ErrNotFound)
	ErrPetNotFound     = fmt.Errorf("pet: %w", types.ErrNotFound)
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) GetUser(ctx context.Context, id types.ID) (*User, error) {
	row := s.db.QueryRow(ctx, `
        SELECT id, name, COALESCE(avatar_url, ''),
               home_care_enabled, price_per_day, pet_home_care_enabled, price_per_visit,
               accepted_pet_types, care_address_id, created_at
        FROM users
        WHERE id = $1`, string(id),
	)

	var u User
	var careAddressID *string
	err := row.Scan(
		&u.ID, &u.Name, &u.AvatarURL,
		&u.Care.HomeCareEnabled, &u.Care.PricePerDay, &u.Care.PetHomeCareEnabled, &u.Care.PricePerVisit,
		&u.Care.AcceptedPetTypes, &careAddressID, &u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if careAddressID != nil {
		id := types.ID(*careAddressID)
		u.Care.CareAddressID = &id
	}

	addrs, err := s.addresses(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	u.Addresses = addrs
	return &u, nil
}

// GetAddress returns an address only when it belongs to userID.
func (s *Store) GetAddress(ctx context.Context, userID, addressID types.ID) (Address, error) {
	row := s.db.QueryRow(ctx, `
        SELECT id, user_id, label, full_address, floor, apartment, lat, lng
        FROM addresses
        WHERE id = $1 AND user_id = $2`, string(addressID), string(userID),
	)
	var a Address
	err := row.Scan(&a.ID, &a.UserID, &a.Label, &a.FullAddress, &a.Floor, &a.Apartment, &a.Position.Lat, &a.Position.Lng)
	if errors.Is(err, pgx.ErrNoRows) {
		return Address{}, ErrAddressNotFound
	}
	if err != nil {
		return Address{}, err
	}
	return a, nil
}

// GetPets resolves every id or fails with ErrPetNotFound.
func (s *Store) GetPets(ctx context.Context, ids []types.ID) ([]Pet, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = string(id)
	}
	rows, err := s.db.Query(ctx, `
        SELECT id, owner_id, name, pet_type
        FROM pets
        WHERE id = ANY($1)`, raw,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[types.ID]Pet, len(ids))
	for rows.Next() {
		var p Pet
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Type); err != nil {
			return nil, err
		}
		byID[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]Pet, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrPetNotFound, id)
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Store) addresses(ctx context.Context, userID types.ID) ([]Address, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, user_id, label, full_address, floor, apartment, lat, lng
        FROM addresses
        WHERE user_id = $1
        ORDER BY created_at, id`, string(userID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Address
	for rows.Next() {
		var a Address
		if err := rows.Scan(&a.ID, &a.UserID, &a.Label, &a.FullAddress, &a.Floor, &a.Apartment, &a.Position.Lat, &a.Position.Lng); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
