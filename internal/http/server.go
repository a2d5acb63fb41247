// README: API gateway; builds the gin engine and registers routes with their capability guards.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"petcare/internal/access"
	"petcare/internal/http/handlers"
	"petcare/internal/http/middleware"
	"petcare/internal/infra"
)

type ServerDeps struct {
	Verifier     infra.TokenVerifier
	Reservations *handlers.ReservationHandler
	Search       *handlers.SearchHandler
	Reviews      *handlers.ReviewHandler
	Admin        *handlers.AdminHandler
	Logger       *slog.Logger
}

type Server struct {
	deps ServerDeps
}

func NewServer(deps ServerDeps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Server{deps: deps}
}

func (s *Server) Routes() http.Handler {
	r := gin.New()
	r.Use(middleware.Logging(s.deps.Logger), middleware.Recovery(s.deps.Logger))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := r.Group("/", middleware.Auth(s.deps.Verifier))
	can := middleware.RequireCapability

	res := s.deps.Reservations
	api.POST("/reservations", can(access.Reservation, access.Create), res.Create)
	api.GET("/reservations", can(access.Reservation, access.List), res.List)
	api.GET("/reservations/:id", can(access.Reservation, access.Read), res.Get)
	api.PUT("/reservations/:id/accept", can(access.Reservation, access.Accept), res.Accept)
	api.PUT("/reservations/:id/reject", can(access.Reservation, access.Reject), res.Reject)
	api.PUT("/reservations/:id/cancel", can(access.Reservation, access.Cancel), res.Cancel)
	api.PUT("/reservations/:id/payment", can(access.Reservation, access.UpdatePayment), res.Payment)

	api.POST("/caregiver-search", can(access.Search, access.Query), s.deps.Search.Search)

	rev := s.deps.Reviews
	api.POST("/reservations/:id/reviews", can(access.Review, access.Create), rev.Create)
	api.GET("/reservations/:id/reviews", can(access.Review, access.Read), rev.ListForReservation)
	api.GET("/users/:id/reviews", can(access.Review, access.Read), rev.ListReceived)

	admin := api.Group("/admin")
	admin.GET("/audit/:entityType/:entityId", can(access.Audit, access.Read), s.deps.Admin.Audit)
	admin.POST("/scheduler/run", can(access.Scheduler, access.Run), s.deps.Admin.RunScheduler)

	return r
}
