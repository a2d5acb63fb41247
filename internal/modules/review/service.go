// README: Review service; reviews open once a reservation is FINISHED, one per participant.
package review

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"unicode/utf8"

	"petcare/internal/modules/audit"
	"petcare/internal/modules/reservation"
	"petcare/internal/types"
)

const maxCommentLength = 2000

var (
	ErrBadRequest  = fmt.Errorf("review: %w", types.ErrValidation)
	ErrNotFinished = fmt.Errorf("reservation is not finished: %w", types.ErrInvalidTransition)
	ErrForbidden   = fmt.Errorf("review: %w", types.ErrForbidden)
	ErrDuplicate   = fmt.Errorf("review already submitted: %w", types.ErrConflict)
)

type ReviewStore interface {
	Create(ctx context.Context, r *Review) error
	ListByReviewedUser(ctx context.Context, userID types.ID, limit, offset int) ([]Review, int, error)
	ListByReservation(ctx context.Context, reservationID types.ID) ([]Review, error)
	StatRows(ctx context.Context, userIDs []types.ID) ([]StatRow, error)
}

type Reservations interface {
	Get(ctx context.Context, id types.ID) (*reservation.Reservation, error)
}

type AuditSink interface {
	Append(ctx context.Context, e audit.Entry) error
}

type Service struct {
	store        ReviewStore
	reservations Reservations
	audit        AuditSink
	clock        types.Clock
	logger       *slog.Logger
}

func NewService(store ReviewStore, reservations Reservations, auditSink AuditSink, clock types.Clock, logger *slog.Logger) *Service {
	if clock == nil {
		clock = types.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, reservations: reservations, audit: auditSink, clock: clock, logger: logger}
}

type CreateCommand struct {
	ReservationID types.ID
	ReviewerID    types.ID
	Rating        int
	Comment       *string
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Review, error) {
	if cmd.Rating < 1 || cmd.Rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrBadRequest)
	}
	if cmd.Comment != nil && utf8.RuneCountInString(*cmd.Comment) > maxCommentLength {
		return nil, fmt.Errorf("%w: comment is too long", ErrBadRequest)
	}

	res, err := s.reservations.Get(ctx, cmd.ReservationID)
	if err != nil {
		return nil, err
	}
	var reviewed types.ID
	switch res.Party(cmd.ReviewerID) {
	case reservation.ActorOwner:
		reviewed = res.CaregiverID
	case reservation.ActorCaregiver:
		reviewed = res.OwnerID
	default:
		return nil, ErrForbidden
	}
	if res.Status != reservation.StatusFinished {
		return nil, ErrNotFinished
	}

	r := &Review{
		ID:             types.NewID(),
		ReservationID:  res.ID,
		ReviewerID:     cmd.ReviewerID,
		ReviewedUserID: reviewed,
		Rating:         cmd.Rating,
		Comment:        cmd.Comment,
		CreatedAt:      s.clock.Now(),
	}
	if err := s.store.Create(ctx, r); err != nil {
		return nil, err
	}

	if s.audit != nil {
		actor := cmd.ReviewerID
		err := s.audit.Append(ctx, audit.Entry{
			EntityType: audit.EntityReview,
			EntityID:   r.ID,
			ActorID:    &actor,
			Changes: []audit.Change{
				{Field: "reservationId", NewValue: string(r.ReservationID)},
				{Field: "rating", NewValue: strconv.Itoa(r.Rating)},
			},
			CreatedAt: r.CreatedAt,
		})
		if err != nil {
			s.logger.Error("audit append failed", "review_id", r.ID, "err", err)
		}
	}
	return r, nil
}

// maxPage bounds the page so the store's OFFSET cannot overflow.
const maxPage = 1_000_000

func (s *Service) ListReceived(ctx context.Context, userID types.ID, page, limit int) ([]Review, int, error) {
	if page <= 0 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.store.ListByReviewedUser(ctx, userID, limit, (page-1)*limit)
}

// ListForReservation returns the reservation's reviews to its participants,
// or to any caller when readAny is set.
func (s *Service) ListForReservation(ctx context.Context, reservationID, userID types.ID, readAny bool) ([]Review, error) {
	res, err := s.reservations.Get(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if !readAny && res.Party(userID) == "" {
		return nil, ErrForbidden
	}
	return s.store.ListByReservation(ctx, reservationID)
}

// Stats returns aggregates for every requested user; users without reviews
// get zero aggregates.
func (s *Service) Stats(ctx context.Context, userIDs []types.ID) (map[types.ID]Stats, error) {
	out := make(map[types.ID]Stats, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	start := s.clock.Now()
	rows, err := s.store.StatRows(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	agg := AggregateRows(rows)
	for _, id := range userIDs {
		out[id] = agg[id]
	}
	s.logger.Debug("review stats", "users", len(userIDs), "rows", len(rows), "elapsed", s.clock.Now().Sub(start))
	return out, nil
}
