// README: Candidate store backed by PostgreSQL; loads caregivers with the requested care mode enabled.
package matching

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"petcare/internal/modules/directory"
	"petcare/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Candidates(ctx context.Context, f CandidateFilter) ([]directory.User, error) {
	var enabled string
	switch f.CareLocation {
	case types.CarePetHome:
		enabled = "pet_home_care_enabled"
	case types.CareCaregiverHome:
		enabled = "home_care_enabled"
	default:
		return nil, fmt.Errorf("%w: unknown care location %q", ErrBadRequest, f.CareLocation)
	}
	petTypes := f.PetTypes
	if petTypes == nil {
		petTypes = []string{}
	}

	rows, err := s.db.Query(ctx, fmt.Sprintf(`
        SELECT id, name, COALESCE(avatar_url, ''),
               home_care_enabled, price_per_day, pet_home_care_enabled, price_per_visit,
               accepted_pet_types, care_address_id, created_at
        FROM users
        WHERE %s AND id <> $1 AND accepted_pet_types @> $2::text[]
        ORDER BY created_at, id`, enabled),
		string(f.ExcludeID), petTypes,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []directory.User
	index := map[types.ID]int{}
	for rows.Next() {
		var u directory.User
		var careAddressID *string
		if err := rows.Scan(
			&u.ID, &u.Name, &u.AvatarURL,
			&u.Care.HomeCareEnabled, &u.Care.PricePerDay, &u.Care.PetHomeCareEnabled, &u.Care.PricePerVisit,
			&u.Care.AcceptedPetTypes, &careAddressID, &u.CreatedAt,
		); err != nil {
			return nil, err
		}
		if careAddressID != nil {
			id := types.ID(*careAddressID)
			u.Care.CareAddressID = &id
		}
		index[u.ID] = len(out)
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}
	return out, s.attachAddresses(ctx, out, index)
}

func (s *Store) attachAddresses(ctx context.Context, users []directory.User, index map[types.ID]int) error {
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = string(u.ID)
	}
	rows, err := s.db.Query(ctx, `
        SELECT id, user_id, label, full_address, floor, apartment, lat, lng
        FROM addresses
        WHERE user_id = ANY($1)
        ORDER BY created_at, id`, ids,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var a directory.Address
		if err := rows.Scan(&a.ID, &a.UserID, &a.Label, &a.FullAddress, &a.Floor, &a.Apartment, &a.Position.Lat, &a.Position.Lng); err != nil {
			return err
		}
		if i, ok := index[a.UserID]; ok {
			users[i].Addresses = append(users[i].Addresses, a)
		}
	}
	return rows.Err()
}
