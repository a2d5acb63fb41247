// README: Reservation handlers for booking, listing, lookup and status actions.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"petcare/internal/access"
	"petcare/internal/http/middleware"
	"petcare/internal/modules/reservation"
	"petcare/internal/types"
)

// ReservationService is the slice of reservation.Service the handlers call.
type ReservationService interface {
	Create(ctx context.Context, cmd reservation.CreateCommand) (*reservation.Reservation, error)
	CreateWithPayment(ctx context.Context, cmd reservation.CreateCommand) (*reservation.Reservation, error)
	GetFor(ctx context.Context, id, userID types.ID, readAny bool) (*reservation.Reservation, error)
	List(ctx context.Context, f reservation.ListFilter) ([]reservation.Reservation, int, error)
	Accept(ctx context.Context, id, caregiverID types.ID) (*reservation.Reservation, error)
	Reject(ctx context.Context, id, caregiverID types.ID) (*reservation.Reservation, error)
	Cancel(ctx context.Context, id, userID types.ID) (*reservation.Reservation, error)
	RecordPayment(ctx context.Context, id types.ID, succeeded bool) (*reservation.Reservation, error)
}

type ReservationHandler struct {
	reservations    ReservationService
	location        *time.Location
	paymentRequired bool
	logger          *slog.Logger
}

func NewReservationHandler(svc ReservationService, loc *time.Location, paymentRequired bool, logger *slog.Logger) *ReservationHandler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReservationHandler{reservations: svc, location: loc, paymentRequired: paymentRequired, logger: logger}
}

type createReservationReq struct {
	StartDate          string   `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate            string   `json:"end_date" validate:"required,datetime=2006-01-02"`
	CareLocation       string   `json:"care_location" validate:"required,oneof=pet_home caregiver_home"`
	CaregiverID        string   `json:"caregiver_id" validate:"required,max=64"`
	PetIDs             []string `json:"pet_ids" validate:"required,min=1,max=20,dive,required,max=64"`
	VisitsPerDay       int      `json:"visits_per_day" validate:"gte=0,max=24"`
	OwnerAddressID     *string  `json:"owner_address_id" validate:"omitempty,max=64"`
	CaregiverAddressID *string  `json:"caregiver_address_id" validate:"omitempty,max=64"`
	DistanceKm         *float64 `json:"distance_km" validate:"omitempty,gte=0"`
}

func (h *ReservationHandler) Create(c *gin.Context) {
	var req createReservationReq
	if !bindJSON(c, &req) {
		return
	}
	start, err := types.ParseDate(req.StartDate, h.location)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid start_date")
		return
	}
	end, err := types.ParseDate(req.EndDate, h.location)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid end_date")
		return
	}
	petIDs := make([]types.ID, 0, len(req.PetIDs))
	for _, id := range req.PetIDs {
		petIDs = append(petIDs, types.ID(id))
	}
	cmd := reservation.CreateCommand{
		OwnerID:            middleware.CallerID(c),
		CaregiverID:        types.ID(req.CaregiverID),
		PetIDs:             petIDs,
		StartDate:          start,
		EndDate:            end,
		CareLocation:       types.CareLocation(req.CareLocation),
		VisitsPerDay:       req.VisitsPerDay,
		OwnerAddressID:     optionalID(req.OwnerAddressID),
		CaregiverAddressID: optionalID(req.CaregiverAddressID),
		DistanceKm:         req.DistanceKm,
	}

	create := h.reservations.Create
	if h.paymentRequired {
		create = h.reservations.CreateWithPayment
	}
	r, err := create(c.Request.Context(), cmd)
	if err != nil {
		writeDomainError(c, h.logger, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}

func (h *ReservationHandler) List(c *gin.Context) {
	f := reservation.ListFilter{UserID: middleware.CallerID(c), Role: reservation.ListAll}
	switch role := reservation.ListRole(c.Query("role")); role {
	case "":
	case reservation.ListAsOwner, reservation.ListAsCaregiver, reservation.ListAll:
		f.Role = role
	default:
		writeError(c, http.StatusBadRequest, "role must be one of owner, caregiver, all")
		return
	}
	if v := c.Query("status"); v != "" {
		st, err := reservation.ParseStatus(v)
		if err != nil {
			writeError(c, http.StatusBadRequest, err.Error())
			return
		}
		f.Status = &st
	}
	var ok bool
	if f.Page, ok = queryInt(c, "page", 1); !ok {
		return
	}
	if f.Limit, ok = queryInt(c, "limit", 20); !ok {
		return
	}

	items, total, err := h.reservations.List(c.Request.Context(), f)
	if err != nil {
		writeDomainError(c, h.logger, err)
		return
	}
	if items == nil {
		items = []reservation.Reservation{}
	}
	f = f.Paged()
	writeJSON(c, http.StatusOK, listResponse[reservation.Reservation]{Items: items, Total: total, Page: f.Page, Limit: f.Limit})
}

func (h *ReservationHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	readAny := middleware.Can(c, access.Reservation, access.ReadAny)
	r, err := h.reservations.GetFor(c.Request.Context(), id, middleware.CallerID(c), readAny)
	if err != nil {
		writeDomainError(c, h.logger, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}

func (h *ReservationHandler) Accept(c *gin.Context) {
	h.act(c, h.reservations.Accept)
}

func (h *ReservationHandler) Reject(c *gin.Context) {
	h.act(c, h.reservations.Reject)
}

func (h *ReservationHandler) Cancel(c *gin.Context) {
	h.act(c, h.reservations.Cancel)
}

func (h *ReservationHandler) act(c *gin.Context, fn func(ctx context.Context, id, userID types.ID) (*reservation.Reservation, error)) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	r, err := fn(c.Request.Context(), id, middleware.CallerID(c))
	if err != nil {
		writeDomainError(c, h.logger, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}

type paymentReq struct {
	Succeeded *bool `json:"succeeded" validate:"required"`
}

func (h *ReservationHandler) Payment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req paymentReq
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.reservations.RecordPayment(c.Request.Context(), id, *req.Succeeded)
	if err != nil {
		writeDomainError(c, h.logger, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}
