// README: Trigger table and guards for reservation status transitions.
package reservation

import (
	"fmt"
	"time"

	"petcare/internal/types"
)

type Event string

const (
	EventAccept           Event = "accept"
	EventReject           Event = "reject"
	EventPaymentSucceeded Event = "payment_succeeded"
	EventPaymentFailed    Event = "payment_failed"
	EventAbandon          Event = "abandon"
	EventStart            Event = "start"
	EventFinish           Event = "finish"
	EventCancelOwner      Event = "cancel_owner"
	EventCancelCaregiver  Event = "cancel_caregiver"
)

type dateGuard int

const (
	noDateGuard dateGuard = iota
	// startReached requires now >= startDate.
	startReached
	// onStartDay requires now in [startDate, startDate+1d).
	onStartDay
	// onEndDay requires now in [endDate, endDate+1d).
	onEndDay
)

type trigger struct {
	to    Status
	from  []Status
	actor ActorRole
	date  dateGuard
}

var active = []Status{StatusPending, StatusPaymentPending, StatusWaitingAcceptance, StatusConfirmed, StatusStarted}

// Accept and reject also fire from WAITING_ACCEPTANCE: that is the
// post-payment acceptance path.
var triggers = map[Event]trigger{
	EventAccept:           {to: StatusConfirmed, from: []Status{StatusPending, StatusWaitingAcceptance}, actor: ActorCaregiver},
	EventReject:           {to: StatusRejected, from: []Status{StatusPending, StatusWaitingAcceptance}, actor: ActorCaregiver},
	EventPaymentSucceeded: {to: StatusWaitingAcceptance, from: []Status{StatusPaymentPending}, actor: ActorSystem},
	EventPaymentFailed:    {to: StatusPaymentRejected, from: []Status{StatusPaymentPending}, actor: ActorSystem},
	EventAbandon:          {to: StatusRejected, from: []Status{StatusWaitingAcceptance}, actor: ActorSystem, date: startReached},
	EventStart:            {to: StatusStarted, from: []Status{StatusConfirmed}, actor: ActorSystem, date: onStartDay},
	EventFinish:           {to: StatusFinished, from: []Status{StatusStarted}, actor: ActorSystem, date: onEndDay},
	EventCancelOwner:      {to: StatusCancelledOwner, from: active, actor: ActorOwner},
	EventCancelCaregiver:  {to: StatusCancelledCaregiver, from: active, actor: ActorCaregiver},
}

// Next returns the status r moves to when ev fires, or an error when a guard
// fails. It does not mutate r.
func Next(r *Reservation, ev Event, actor Actor, now time.Time, loc *time.Location) (Status, error) {
	t, ok := triggers[ev]
	if !ok {
		return "", fmt.Errorf("%w: unknown event %q", ErrInvalidState, ev)
	}
	if r.Status.IsTerminal() {
		return "", fmt.Errorf("%w: %s is terminal", ErrInvalidState, r.Status)
	}
	if !contains(t.from, r.Status) || !CanTransition(r.Status, t.to) {
		return "", fmt.Errorf("%w: %s cannot %s", ErrInvalidState, r.Status, ev)
	}
	if err := checkActor(r, t.actor, actor); err != nil {
		return "", err
	}
	if !dateAllows(t.date, r, now, loc) {
		return "", fmt.Errorf("%w: %s outside its date window", ErrInvalidState, ev)
	}
	return t.to, nil
}

func checkActor(r *Reservation, want ActorRole, actor Actor) error {
	switch want {
	case ActorSystem:
		if actor.Role != ActorSystem {
			return ErrForbidden
		}
	case ActorOwner:
		if actor.ID == "" || actor.ID != r.OwnerID {
			return ErrForbidden
		}
	case ActorCaregiver:
		if actor.ID == "" || actor.ID != r.CaregiverID {
			return ErrForbidden
		}
	}
	return nil
}

func dateAllows(g dateGuard, r *Reservation, now time.Time, loc *time.Location) bool {
	switch g {
	case startReached:
		return !now.Before(types.StartOfDay(r.StartDate, loc))
	case onStartDay:
		return withinDay(now, r.StartDate, loc)
	case onEndDay:
		return withinDay(now, r.EndDate, loc)
	}
	return true
}

func withinDay(now, day time.Time, loc *time.Location) bool {
	from, to := types.DayWindow(day, loc)
	return !now.Before(from) && now.Before(to)
}

func contains(list []Status, s Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
