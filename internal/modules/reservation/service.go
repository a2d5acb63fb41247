// README: Reservation service implements booking creation, guarded state transitions and their side effects.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"petcare/internal/modules/audit"
	"petcare/internal/modules/directory"
	"petcare/internal/modules/location"
	"petcare/internal/modules/notification"
	"petcare/internal/modules/pricing"
	"petcare/internal/types"
)

var (
	ErrBadRequest   = fmt.Errorf("bad request: %w", types.ErrValidation)
	ErrNotFound     = fmt.Errorf("reservation: %w", types.ErrNotFound)
	ErrForbidden    = fmt.Errorf("reservation: %w", types.ErrForbidden)
	ErrInvalidState = fmt.Errorf("reservation: %w", types.ErrInvalidTransition)
	ErrConflict     = fmt.Errorf("reservation state changed concurrently: %w", types.ErrConflict)
)

// ReservationStore persists reservations. UpdateStatus is a compare-and-set
// on (status, status_version) and reports whether the row was updated.
type ReservationStore interface {
	Create(ctx context.Context, r *Reservation) error
	Get(ctx context.Context, id types.ID) (*Reservation, error)
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, at time.Time) (bool, error)
	List(ctx context.Context, f ListFilter) ([]Reservation, int, error)
	ListDue(ctx context.Context, status Status, field DateField, from, to time.Time) ([]Reservation, error)
}

type Directory interface {
	GetUser(ctx context.Context, id types.ID) (*directory.User, error)
	GetAddress(ctx context.Context, userID, addressID types.ID) (directory.Address, error)
}

type PetCatalog interface {
	GetPets(ctx context.Context, ids []types.ID) ([]directory.Pet, error)
}

type Pricing interface {
	Quote(ctx context.Context, plan pricing.Plan) (pricing.Quote, error)
}

type AuditSink interface {
	Append(ctx context.Context, e audit.Entry) error
}

type Deps struct {
	Directory Directory
	Pets      PetCatalog
	Pricing   Pricing
	Audit     AuditSink
	Notifier  notification.Sender
	Clock     types.Clock
	Location  *time.Location
	Logger    *slog.Logger
}

type Service struct {
	store    ReservationStore
	dir      Directory
	pets     PetCatalog
	pricing  Pricing
	audit    AuditSink
	notifier notification.Sender
	clock    types.Clock
	loc      *time.Location
	logger   *slog.Logger
}

func NewService(store ReservationStore, deps Deps) *Service {
	if deps.Clock == nil {
		deps.Clock = types.SystemClock{}
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{
		store:    store,
		dir:      deps.Directory,
		pets:     deps.Pets,
		pricing:  deps.Pricing,
		audit:    deps.Audit,
		notifier: deps.Notifier,
		clock:    deps.Clock,
		loc:      deps.Location,
		logger:   deps.Logger,
	}
}

type CreateCommand struct {
	OwnerID            types.ID
	CaregiverID        types.ID
	PetIDs             []types.ID
	StartDate          time.Time
	EndDate            time.Time
	CareLocation       types.CareLocation
	VisitsPerDay       int
	OwnerAddressID     *types.ID
	CaregiverAddressID *types.ID
	DistanceKm         *float64
}

// Create books care through the direct flow; the reservation starts PENDING.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Reservation, error) {
	return s.create(ctx, cmd, StatusPending)
}

// CreateWithPayment books care through the payment-gated flow; the
// reservation starts PAYMENT_PENDING.
func (s *Service) CreateWithPayment(ctx context.Context, cmd CreateCommand) (*Reservation, error) {
	return s.create(ctx, cmd, StatusPaymentPending)
}

func (s *Service) create(ctx context.Context, cmd CreateCommand, initial Status) (*Reservation, error) {
	now := s.clock.Now()
	if err := s.validateCreate(cmd, now); err != nil {
		return nil, err
	}

	pets, err := s.pets.GetPets(ctx, cmd.PetIDs)
	if err != nil {
		return nil, err
	}
	for _, p := range pets {
		if p.OwnerID != cmd.OwnerID {
			return nil, fmt.Errorf("%w: pet %s does not belong to the owner", types.ErrForbidden, p.ID)
		}
	}

	caregiver, err := s.dir.GetUser(ctx, cmd.CaregiverID)
	if err != nil {
		return nil, err
	}
	if !caregiver.Care.Enabled(cmd.CareLocation) {
		return nil, fmt.Errorf("%w: caregiver does not offer %s care", ErrBadRequest, cmd.CareLocation)
	}
	if !caregiver.Care.Accepts(directory.DistinctTypes(pets)) {
		return nil, fmt.Errorf("%w: caregiver does not accept these pet types", ErrBadRequest)
	}

	snapshot, distance, err := s.resolveAddress(ctx, cmd, caregiver)
	if err != nil {
		return nil, err
	}

	plan := pricing.Plan{
		CareLocation:  cmd.CareLocation,
		DaysCount:     pricing.DaysCount(cmd.StartDate, cmd.EndDate, s.loc),
		VisitsPerDay:  cmd.VisitsPerDay,
		PricePerVisit: caregiver.Care.PricePerVisit,
		PricePerDay:   caregiver.Care.PricePerDay,
	}
	quote, err := s.pricing.Quote(ctx, plan)
	if err != nil {
		return nil, err
	}

	r := &Reservation{
		ID:             types.NewID(),
		OwnerID:        cmd.OwnerID,
		CaregiverID:    cmd.CaregiverID,
		PetIDs:         cmd.PetIDs,
		StartDate:      types.StartOfDay(cmd.StartDate, s.loc),
		EndDate:        types.StartOfDay(cmd.EndDate, s.loc),
		CareLocation:   cmd.CareLocation,
		Address:        snapshot,
		VisitsCount:    quote.VisitsCount,
		TotalPrice:     quote.TotalPrice,
		Commission:     quote.Commission,
		TotalOwner:     quote.TotalOwner,
		TotalCaregiver: quote.TotalCaregiver,
		DistanceKm:     distance,
		Status:         initial,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if cmd.CareLocation == types.CarePetHome {
		v := cmd.VisitsPerDay
		r.VisitsPerDay = &v
	}
	if err := s.store.Create(ctx, r); err != nil {
		return nil, err
	}

	owner := Actor{ID: cmd.OwnerID, Role: ActorOwner}
	s.record(ctx, r, owner, []audit.Change{{Field: "status", OldValue: "", NewValue: string(initial)}}, now)
	if initial == StatusPending {
		s.notify(ctx, r, notification.EventRequested, false, true)
	}
	return r, nil
}

func (s *Service) validateCreate(cmd CreateCommand, now time.Time) error {
	switch {
	case cmd.OwnerID == "" || cmd.CaregiverID == "":
		return fmt.Errorf("%w: owner and caregiver are required", ErrBadRequest)
	case cmd.OwnerID == cmd.CaregiverID:
		return fmt.Errorf("%w: caregiver cannot book themselves", ErrBadRequest)
	case !cmd.CareLocation.Valid():
		return fmt.Errorf("%w: unknown care location %q", ErrBadRequest, cmd.CareLocation)
	case len(cmd.PetIDs) == 0:
		return fmt.Errorf("%w: at least one pet is required", ErrBadRequest)
	case types.StartOfDay(cmd.StartDate, s.loc).Before(types.Tomorrow(now, s.loc)):
		return fmt.Errorf("%w: start date must be tomorrow or later", ErrBadRequest)
	case types.StartOfDay(cmd.EndDate, s.loc).Before(types.StartOfDay(cmd.StartDate, s.loc)):
		return fmt.Errorf("%w: end date is before start date", ErrBadRequest)
	}
	seen := make(map[types.ID]bool, len(cmd.PetIDs))
	for _, id := range cmd.PetIDs {
		if id == "" || seen[id] {
			return fmt.Errorf("%w: pet ids must be unique and non-empty", ErrBadRequest)
		}
		seen[id] = true
	}
	if cmd.CareLocation == types.CarePetHome {
		if cmd.VisitsPerDay <= 0 {
			return fmt.Errorf("%w: visits per day must be positive", ErrBadRequest)
		}
		if cmd.OwnerAddressID == nil || *cmd.OwnerAddressID == "" {
			return fmt.Errorf("%w: owner address is required for pet home care", ErrBadRequest)
		}
	}
	if cmd.DistanceKm != nil && *cmd.DistanceKm < 0 {
		return fmt.Errorf("%w: distance cannot be negative", ErrBadRequest)
	}
	return nil
}

// resolveAddress picks the care address and copies it into a snapshot. The
// distance is taken from the command, or computed between owner and
// caregiver addresses when both are known.
func (s *Service) resolveAddress(ctx context.Context, cmd CreateCommand, caregiver *directory.User) (AddressSnapshot, *float64, error) {
	var ownerAddr *directory.Address
	if cmd.OwnerAddressID != nil && *cmd.OwnerAddressID != "" {
		a, err := s.dir.GetAddress(ctx, cmd.OwnerID, *cmd.OwnerAddressID)
		if err != nil {
			return AddressSnapshot{}, nil, err
		}
		ownerAddr = &a
	}

	var careAddr directory.Address
	var caregiverAddr *directory.Address
	switch cmd.CareLocation {
	case types.CarePetHome:
		careAddr = *ownerAddr
		if a, ok := caregiver.PrimaryAddress(); ok {
			caregiverAddr = &a
		}
	case types.CareCaregiverHome:
		if cmd.CaregiverAddressID != nil && *cmd.CaregiverAddressID != "" {
			a, ok := caregiver.Address(*cmd.CaregiverAddressID)
			if !ok {
				return AddressSnapshot{}, nil, directory.ErrAddressNotFound
			}
			careAddr = a
		} else {
			a, ok := caregiver.PrimaryAddress()
			if !ok {
				return AddressSnapshot{}, nil, fmt.Errorf("%w: caregiver has no care address", ErrBadRequest)
			}
			careAddr = a
		}
		caregiverAddr = &careAddr
	}

	distance := cmd.DistanceKm
	if distance == nil && ownerAddr != nil && caregiverAddr != nil {
		d := location.Between(ownerAddr.Position, caregiverAddr.Position)
		distance = &d
	}

	return AddressSnapshot{
		Name:        careAddr.Label,
		FullAddress: careAddr.FullAddress,
		Floor:       careAddr.Floor,
		Apartment:   careAddr.Apartment,
		Position:    careAddr.Position,
	}, distance, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Reservation, error) {
	return s.store.Get(ctx, id)
}

// GetFor returns the reservation when userID takes part in it, or when the
// caller may read any reservation.
func (s *Service) GetFor(ctx context.Context, id, userID types.ID, readAny bool) (*Reservation, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !readAny && r.Party(userID) == "" {
		return nil, ErrForbidden
	}
	return r, nil
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Reservation, int, error) {
	if f.UserID == "" {
		return nil, 0, fmt.Errorf("%w: user is required", ErrBadRequest)
	}
	switch f.Role {
	case "":
		f.Role = ListAll
	case ListAsOwner, ListAsCaregiver, ListAll:
	default:
		return nil, 0, fmt.Errorf("%w: unknown role %q", ErrBadRequest, f.Role)
	}
	return s.store.List(ctx, f.Paged())
}

func (s *Service) Accept(ctx context.Context, id, caregiverID types.ID) (*Reservation, error) {
	return s.transition(ctx, id, EventAccept, Actor{ID: caregiverID, Role: ActorCaregiver})
}

func (s *Service) Reject(ctx context.Context, id, caregiverID types.ID) (*Reservation, error) {
	return s.transition(ctx, id, EventReject, Actor{ID: caregiverID, Role: ActorCaregiver})
}

// Cancel cancels on behalf of whichever party userID is.
func (s *Service) Cancel(ctx context.Context, id, userID types.ID) (*Reservation, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch r.Party(userID) {
	case ActorOwner:
		return s.apply(ctx, r, EventCancelOwner, Actor{ID: userID, Role: ActorOwner})
	case ActorCaregiver:
		return s.apply(ctx, r, EventCancelCaregiver, Actor{ID: userID, Role: ActorCaregiver})
	}
	return nil, ErrForbidden
}

// RecordPayment applies the payment outcome of a payment-gated booking.
func (s *Service) RecordPayment(ctx context.Context, id types.ID, succeeded bool) (*Reservation, error) {
	ev := EventPaymentFailed
	if succeeded {
		ev = EventPaymentSucceeded
	}
	return s.transition(ctx, id, ev, SystemActor)
}

func (s *Service) transition(ctx context.Context, id types.ID, ev Event, actor Actor) (*Reservation, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, r, ev, actor)
}

// apply runs ev against the snapshot r and commits it with a guarded
// compare-and-set. Audit and notification failures are logged only.
func (s *Service) apply(ctx context.Context, r *Reservation, ev Event, actor Actor) (*Reservation, error) {
	now := s.clock.Now()
	to, err := Next(r, ev, actor, now, s.loc)
	if err != nil {
		return nil, err
	}
	ok, err := s.store.UpdateStatus(ctx, r.ID, r.Status, to, r.StatusVersion, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}

	out := *r
	out.Status = to
	out.StatusVersion = r.StatusVersion + 1
	out.UpdatedAt = now

	s.record(ctx, &out, actor, []audit.Change{
		{Field: "status", OldValue: string(r.Status), NewValue: string(to)},
		{Field: "updatedAt", OldValue: r.UpdatedAt.UTC().Format(time.RFC3339), NewValue: now.UTC().Format(time.RFC3339)},
	}, now)

	if n, ok := notices[ev]; ok {
		s.notify(ctx, &out, n.event, n.owner, n.caregiver)
	}
	return &out, nil
}

type notice struct {
	event     string
	owner     bool
	caregiver bool
}

var notices = map[Event]notice{
	EventAccept:           {event: notification.EventAccepted, owner: true},
	EventReject:           {event: notification.EventRejected, owner: true},
	EventPaymentSucceeded: {event: notification.EventPaymentAccepted, owner: true, caregiver: true},
	EventPaymentFailed:    {event: notification.EventPaymentRejected, owner: true},
	EventAbandon:          {event: notification.EventExpired, owner: true, caregiver: true},
	EventStart:            {event: notification.EventStarted, owner: true, caregiver: true},
	EventFinish:           {event: notification.EventFinished, owner: true, caregiver: true},
	EventCancelOwner:      {event: notification.EventCancelled, caregiver: true},
	EventCancelCaregiver:  {event: notification.EventCancelled, owner: true},
}

func (s *Service) record(ctx context.Context, r *Reservation, actor Actor, changes []audit.Change, at time.Time) {
	if s.audit == nil {
		return
	}
	e := audit.Entry{
		EntityType: audit.EntityReservation,
		EntityID:   r.ID,
		Changes:    changes,
		CreatedAt:  at,
	}
	if actor.ID != "" {
		id := actor.ID
		e.ActorID = &id
	}
	if err := s.audit.Append(ctx, e); err != nil {
		s.logger.Error("audit append failed", "reservation_id", r.ID, "err", err)
	}
}

// notify delivers event to the selected parties. It returns the number of
// failed deliveries.
func (s *Service) notify(ctx context.Context, r *Reservation, event string, owner, caregiver bool) int {
	if s.notifier == nil {
		return 0
	}
	var recipients []types.ID
	if owner {
		recipients = append(recipients, r.OwnerID)
	}
	if caregiver {
		recipients = append(recipients, r.CaregiverID)
	}
	failed := 0
	for _, uid := range recipients {
		msg := notification.Message{
			Event:         event,
			UserID:        uid,
			ReservationID: r.ID,
			Title:         titles[event],
			Body:          fmt.Sprintf("Reservation %s to %s is now %s", r.StartDate.Format(time.DateOnly), r.EndDate.Format(time.DateOnly), r.Status),
			Data: map[string]string{
				"status":      string(r.Status),
				"start_date":  r.StartDate.Format(time.DateOnly),
				"end_date":    r.EndDate.Format(time.DateOnly),
				"total_owner": strconv.FormatInt(r.TotalOwner.Amount, 10),
			},
		}
		if err := s.notifier.Send(ctx, msg); err != nil {
			failed++
			s.logger.Error("notification failed", "reservation_id", r.ID, "user_id", uid, "event", event, "err", err)
		}
	}
	return failed
}

var titles = map[string]string{
	notification.EventRequested:       "New care request",
	notification.EventAccepted:        "Your reservation was accepted",
	notification.EventRejected:        "Your reservation was declined",
	notification.EventCancelled:       "A reservation was cancelled",
	notification.EventPaymentAccepted: "Payment received",
	notification.EventPaymentRejected: "Payment failed",
	notification.EventExpired:         "Reservation expired without acceptance",
	notification.EventStarted:         "Care starts today",
	notification.EventFinished:        "Care finished, leave a review",
}

// IsConflict reports whether err means the caller lost a transition race.
func IsConflict(err error) bool {
	return errors.Is(err, types.ErrConflict)
}
