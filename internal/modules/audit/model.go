// README: Change records appended per entity; entity types are a closed set.
package audit

import (
	"fmt"
	"time"

	"petcare/internal/types"
)

type EntityType string

const (
	EntityReservation EntityType = "reservation"
	EntityReview      EntityType = "review"
)

func ParseEntityType(v string) (EntityType, error) {
	switch e := EntityType(v); e {
	case EntityReservation, EntityReview:
		return e, nil
	}
	return "", fmt.Errorf("%w: unknown entity type %q", types.ErrValidation, v)
}

type Change struct {
	Field    string `json:"field"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

type Entry struct {
	ID         int64      `json:"id"`
	EntityType EntityType `json:"entity_type"`
	EntityID   types.ID   `json:"entity_id"`
	ActorID    *types.ID  `json:"actor_id,omitempty"`
	Changes    []Change   `json:"changes"`
	CreatedAt  time.Time  `json:"created_at"`
}
