// README: Reservation aggregate, status definitions and the transition table.
package reservation

import (
	"fmt"
	"time"

	"petcare/internal/types"
)

type Status string

const (
	StatusPending            Status = "PENDING"
	StatusPaymentPending     Status = "PAYMENT_PENDING"
	StatusWaitingAcceptance  Status = "WAITING_ACCEPTANCE"
	StatusConfirmed          Status = "CONFIRMED"
	StatusStarted            Status = "STARTED"
	StatusFinished           Status = "FINISHED"
	StatusRejected           Status = "REJECTED"
	StatusPaymentRejected    Status = "PAYMENT_REJECTED"
	StatusCancelledOwner     Status = "CANCELLED_OWNER"
	StatusCancelledCaregiver Status = "CANCELLED_CAREGIVER"
)

// AllowedTransitions represents the reservation state flow as code. Statuses
// without an entry are terminal.
var AllowedTransitions = map[Status][]Status{
	StatusPending:           {StatusConfirmed, StatusRejected, StatusCancelledOwner, StatusCancelledCaregiver},
	StatusPaymentPending:    {StatusWaitingAcceptance, StatusPaymentRejected, StatusCancelledOwner, StatusCancelledCaregiver},
	StatusWaitingAcceptance: {StatusConfirmed, StatusRejected, StatusCancelledOwner, StatusCancelledCaregiver},
	StatusConfirmed:         {StatusStarted, StatusCancelledOwner, StatusCancelledCaregiver},
	StatusStarted:           {StatusFinished, StatusCancelledOwner, StatusCancelledCaregiver},
}

var allStatuses = []Status{
	StatusPending, StatusPaymentPending, StatusWaitingAcceptance, StatusConfirmed, StatusStarted,
	StatusFinished, StatusRejected, StatusPaymentRejected, StatusCancelledOwner, StatusCancelledCaregiver,
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

func (s Status) IsTerminal() bool {
	_, ok := AllowedTransitions[s]
	return !ok
}

func (s Status) Valid() bool {
	for _, v := range allStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", types.ErrValidation, v)
	}
	return s, nil
}

// AddressSnapshot is copied into the reservation at creation time.
type AddressSnapshot struct {
	Name        string      `json:"name"`
	FullAddress string      `json:"full_address"`
	Floor       *string     `json:"floor,omitempty"`
	Apartment   *string     `json:"apartment,omitempty"`
	Position    types.Point `json:"position"`
}

type Reservation struct {
	ID             types.ID           `json:"id"`
	OwnerID        types.ID           `json:"owner_id"`
	CaregiverID    types.ID           `json:"caregiver_id"`
	PetIDs         []types.ID         `json:"pet_ids"`
	StartDate      time.Time          `json:"start_date"`
	EndDate        time.Time          `json:"end_date"`
	CareLocation   types.CareLocation `json:"care_location"`
	Address        AddressSnapshot    `json:"address"`
	VisitsPerDay   *int               `json:"visits_per_day,omitempty"`
	VisitsCount    *int               `json:"visits_count,omitempty"`
	TotalPrice     types.Money        `json:"total_price"`
	Commission     types.Money        `json:"commission"`
	TotalOwner     types.Money        `json:"total_owner"`
	TotalCaregiver types.Money        `json:"total_caregiver"`
	DistanceKm     *float64           `json:"distance_km,omitempty"`
	Status         Status             `json:"status"`
	StatusVersion  int                `json:"-"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// Party reports how userID relates to the reservation.
func (r *Reservation) Party(userID types.ID) ActorRole {
	switch userID {
	case r.OwnerID:
		return ActorOwner
	case r.CaregiverID:
		return ActorCaregiver
	}
	return ""
}

type ActorRole string

const (
	ActorOwner     ActorRole = "owner"
	ActorCaregiver ActorRole = "caregiver"
	ActorSystem    ActorRole = "system"
)

type Actor struct {
	ID   types.ID
	Role ActorRole
}

var SystemActor = Actor{Role: ActorSystem}

type ListRole string

const (
	ListAsOwner     ListRole = "owner"
	ListAsCaregiver ListRole = "caregiver"
	ListAll         ListRole = "all"
)

type ListFilter struct {
	UserID types.ID
	Role   ListRole
	Status *Status
	Page   int
	Limit  int
}

// maxListPage bounds the page so the store's OFFSET cannot overflow.
const maxListPage = 1_000_000

// Paged applies the default page and limit.
func (f ListFilter) Paged() ListFilter {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Page > maxListPage {
		f.Page = maxListPage
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	return f
}

// DateField selects which reservation date a scheduler scan matches on.
type DateField string

const (
	FieldStartDate DateField = "start_date"
	FieldEndDate   DateField = "end_date"
)
