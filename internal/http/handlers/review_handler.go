// README: Review handlers: submit, list per reservation, list received per user.
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"petcare/internal/access"
	"petcare/internal/http/middleware"
	"petcare/internal/modules/review"
	"petcare/internal/types"
)

type ReviewService interface {
	Create(ctx context.Context, cmd review.CreateCommand) (*review.Review, error)
	ListForReservation(ctx context.Context, reservationID, userID types.ID, readAny bool) ([]review.Review, error)
	ListReceived(ctx context.Context, userID types.ID, page, limit int) ([]review.Review, int, error)
	Stats(ctx context.Context, userIDs []types.ID) (map[types.ID]review.Stats, error)
}

type ReviewHandler struct {
	reviews ReviewService
	logger  *slog.Logger
}

func NewReviewHandler(svc ReviewService, logger *slog.Logger) *ReviewHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReviewHandler{reviews: svc, logger: logger}
}

type createReviewReq struct {
	Rating  int     `json:"rating" validate:"required,min=1,max=5"`
	Comment *string `json:"comment" validate:"omitempty,max=2000"`
}

func (h *ReviewHandler) Create(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req createReviewReq
	if !bindJSON(c, &req) {
		return
	}
	rv, err := h.reviews.Create(c.Request.Context(), review.CreateCommand{
		ReservationID: id,
		ReviewerID:    middleware.CallerID(c),
		Rating:        req.Rating,
		Comment:       req.Comment,
	})
	if err != nil {
		writeDomainError(c, h.logger, err)
		return
	}
	writeJSON(c, http.StatusCreated, rv)
}

func (h *ReviewHandler) ListForReservation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	readAny := middleware.Can(c, access.Reservation, access.ReadAny)
	items, err := h.reviews.ListForReservation(c.Request.Context(), id, middleware.CallerID(c), readAny)
	if err != nil {
		writeDomainError(c, h.logger, err)
		return
	}
	if items == nil {
		items = []review.Review{}
	}
	writeJSON(c, http.StatusOK, gin.H{"items": items})
}

type receivedReviewsResponse struct {
	listResponse[review.Review]
	Stats review.Stats `json:"stats"`
}

func (h *ReviewHandler) ListReceived(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 20)
	if !ok {
		return
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	ctx := c.Request.Context()
	items, total, err := h.reviews.ListReceived(ctx, userID, page, limit)
	if err != nil {
		writeDomainError(c, h.logger, err)
		return
	}
	stats, err := h.reviews.Stats(ctx, []types.ID{userID})
	if err != nil {
		writeDomainError(c, h.logger, err)
		return
	}
	if items == nil {
		items = []review.Review{}
	}
	writeJSON(c, http.StatusOK, receivedReviewsResponse{
		listResponse: listResponse[review.Review]{Items: items, Total: total, Page: page, Limit: limit},
		Stats:        stats[userID],
	})
}
