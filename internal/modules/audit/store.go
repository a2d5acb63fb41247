// README: Audit store backed by a single PostgreSQL table keyed by (entity_type, entity_id).
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"petcare/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, e Entry) error {
	if len(e.Changes) == 0 {
		return nil
	}
	raw, err := json.Marshal(e.Changes)
	if err != nil {
		return err
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	var actor *string
	if e.ActorID != nil {
		v := string(*e.ActorID)
		actor = &v
	}
	_, err = s.db.Exec(ctx, `
        INSERT INTO audit_log (entity_type, entity_id, actor_id, changes, created_at)
        VALUES ($1, $2, $3, $4, $5)`,
		string(e.EntityType), string(e.EntityID), actor, raw, e.CreatedAt,
	)
	return err
}

func (s *Store) List(ctx context.Context, entityType EntityType, entityID types.ID, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
        SELECT id, entity_type, entity_id, actor_id, changes, created_at
        FROM audit_log
        WHERE entity_type = $1 AND entity_id = $2
        ORDER BY id
        LIMIT $3`, string(entityType), string(entityID), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var actor *string
		var raw []byte
		if err := rows.Scan(&e.ID, &e.EntityType, &e.EntityID, &actor, &raw, &e.CreatedAt); err != nil {
			return nil, err
		}
		if actor != nil {
			id := types.ID(*actor)
			e.ActorID = &id
		}
		if err := json.Unmarshal(raw, &e.Changes); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
