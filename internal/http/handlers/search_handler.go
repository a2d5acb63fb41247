// README: Caregiver search handler; body carries filters, query carries sort and paging.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"petcare/internal/http/middleware"
	"petcare/internal/modules/matching"
	"petcare/internal/types"
)

type SearchService interface {
	Search(ctx context.Context, q matching.SearchQuery) (matching.Page, error)
}

type SearchHandler struct {
	search   SearchService
	location *time.Location
	logger   *slog.Logger
}

func NewSearchHandler(svc SearchService, loc *time.Location, logger *slog.Logger) *SearchHandler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchHandler{search: svc, location: loc, logger: logger}
}

type searchReq struct {
	StartDate     string   `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate       string   `json:"end_date" validate:"required,datetime=2006-01-02"`
	CareLocation  string   `json:"care_location" validate:"required,oneof=pet_home caregiver_home"`
	PetIDs        []string `json:"pet_ids" validate:"required,min=1,max=20,dive,required,max=64"`
	VisitsPerDay  int      `json:"visits_per_day" validate:"gte=0,max=24"`
	AddressID     *string  `json:"address_id" validate:"omitempty,max=64"`
	MaxDistanceKm *float64 `json:"max_distance" validate:"omitempty,gte=0"`
	MaxPrice      *int64   `json:"max_price" validate:"omitempty,gte=0"`
	MinRating     *float64 `json:"min_rating" validate:"omitempty,gte=1,max=5"`
}

func (h *SearchHandler) Search(c *gin.Context) {
	var req searchReq
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

	q := matching.SearchQuery{
		RequesterID:   middleware.CallerID(c),
		StartDate:     start,
		EndDate:       end,
		CareLocation:  types.CareLocation(req.CareLocation),
		VisitsPerDay:  req.VisitsPerDay,
		AddressID:     optionalID(req.AddressID),
		MaxDistanceKm: req.MaxDistanceKm,
		MaxPrice:      req.MaxPrice,
		MinRating:     req.MinRating,
		SortBy:        matching.SortField(c.Query("sort_by")),
		SortOrder:     matching.SortOrder(c.Query("sort_order")),
	}
	for _, id := range req.PetIDs {
		q.PetIDs = append(q.PetIDs, types.ID(id))
	}
	var ok bool
	if q.Page, ok = queryInt(c, "page", 1); !ok {
		return
	}
	if q.Limit, ok = queryInt(c, "limit", 0); !ok {
		return
	}

	page, err := h.search.Search(c.Request.Context(), q)
	if err != nil {
		writeDomainError(c, h.logger, err)
		return
	}
	writeJSON(c, http.StatusOK, page)
}
