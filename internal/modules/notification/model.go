// README: Lifecycle notification messages addressed to a single user.
package notification

import "petcare/internal/types"

const (
	EventRequested       = "reservation.requested"
	EventAccepted        = "reservation.accepted"
	EventRejected        = "reservation.rejected"
	EventCancelled       = "reservation.cancelled"
	EventPaymentAccepted = "reservation.payment_accepted"
	EventPaymentRejected = "reservation.payment_rejected"
	EventExpired         = "reservation.expired"
	EventStarted         = "reservation.started"
	EventFinished        = "reservation.finished"
)

type Message struct {
	Event         string            `json:"event"`
	UserID        types.ID          `json:"user_id"`
	ReservationID types.ID          `json:"reservation_id"`
	Title         string            `json:"title"`
	Body          string            `json:"body"`
	Data          map[string]string `json:"data,omitempty"`
}
