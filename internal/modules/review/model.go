// README: Review records and per-user rating aggregates split by the role the reviewed user played.
package review

import (
	"math"
	"time"

	"petcare/internal/types"
)

type Review struct {
	ID             types.ID  `json:"id"`
	ReservationID  types.ID  `json:"reservation_id"`
	ReviewerID     types.ID  `json:"reviewer_id"`
	ReviewedUserID types.ID  `json:"reviewed_user_id"`
	Rating         int       `json:"rating"`
	Comment        *string   `json:"comment,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type Role string

const (
	RoleCaregiver Role = "caregiver"
	RoleOwner     Role = "owner"
)

// StatRow is one received review joined with the reservation it belongs to.
type StatRow struct {
	ReviewedUserID types.ID
	Role           Role
	Rating         int
}

type Aggregate struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

type Stats struct {
	AsCaregiver Aggregate `json:"as_caregiver"`
	AsOwner     Aggregate `json:"as_owner"`
}

// Received is the number of reviews the user got in either role.
func (s Stats) Received() int {
	return s.AsCaregiver.Count + s.AsOwner.Count
}

// AggregateRows filters joined rows by role and averages each group. Users with
// no rows are absent from the result.
func AggregateRows(rows []StatRow) map[types.ID]Stats {
	type sum struct {
		total int
		count int
	}
	caregiver := map[types.ID]*sum{}
	owner := map[types.ID]*sum{}
	for _, r := range rows {
		var m map[types.ID]*sum
		switch r.Role {
		case RoleCaregiver:
			m = caregiver
		case RoleOwner:
			m = owner
		default:
			continue
		}
		s, ok := m[r.ReviewedUserID]
		if !ok {
			s = &sum{}
			m[r.ReviewedUserID] = s
		}
		s.total += r.Rating
		s.count++
	}

	out := map[types.ID]Stats{}
	for id, s := range caregiver {
		st := out[id]
		st.AsCaregiver = Aggregate{Average: average(s.total, s.count), Count: s.count}
		out[id] = st
	}
	for id, s := range owner {
		st := out[id]
		st.AsOwner = Aggregate{Average: average(s.total, s.count), Count: s.count}
		out[id] = st
	}
	return out
}

func average(total, count int) float64 {
	if count == 0 {
		return 0
	}
	return math.Round(float64(total)/float64(count)*100) / 100
}
