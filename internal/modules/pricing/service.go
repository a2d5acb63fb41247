// README: Pricing service converts a care plan into total, commission and per-party totals.
package pricing

import (
	"context"
	"fmt"
	"math"
	"time"

	"petcare/internal/types"
)

const DefaultCommissionRate = 0.06

var (
	ErrMissingUnitPrice = fmt.Errorf("missing per-unit price: %w", types.ErrPricingConfiguration)
	ErrBadRate          = fmt.Errorf("commission rate out of range: %w", types.ErrPricingConfiguration)
	ErrInvalidAmount    = fmt.Errorf("total price must be positive and finite: %w", types.ErrInvalidAmount)
	ErrBadCareLocation  = fmt.Errorf("unknown care location: %w", types.ErrValidation)
)

// RateSource reads the commission rate from system configuration.
type RateSource interface {
	CommissionRate(ctx context.Context) (float64, error)
}

type Service struct {
	rates RateSource
}

func NewService(rates RateSource) *Service {
	return &Service{rates: rates}
}

// Rate returns the configured commission rate, or the default when no
// source is configured.
func (s *Service) Rate(ctx context.Context) (float64, error) {
	if s.rates == nil {
		return DefaultCommissionRate, nil
	}
	return s.rates.CommissionRate(ctx)
}

func (s *Service) Quote(ctx context.Context, plan Plan) (Quote, error) {
	rate, err := s.Rate(ctx)
	if err != nil {
		return Quote{}, fmt.Errorf("read commission rate: %w", err)
	}
	return Calculate(plan, rate)
}

// Calculate prices a plan at the given commission rate.
func Calculate(plan Plan, rate float64) (Quote, error) {
	if math.IsNaN(rate) || rate < 0 || rate >= 1 {
		return Quote{}, ErrBadRate
	}

	var (
		total  float64
		visits *int
	)
	switch plan.CareLocation {
	case types.CarePetHome:
		if plan.PricePerVisit == nil {
			return Quote{}, ErrMissingUnitPrice
		}
		n := plan.VisitsPerDay * plan.DaysCount
		visits = &n
		total = float64(n) * float64(*plan.PricePerVisit)
	case types.CareCaregiverHome:
		if plan.PricePerDay == nil {
			return Quote{}, ErrMissingUnitPrice
		}
		total = float64(plan.DaysCount) * float64(*plan.PricePerDay)
	default:
		return Quote{}, ErrBadCareLocation
	}

	if math.IsNaN(total) || math.IsInf(total, 0) || total <= 0 || total > math.MaxInt64/2 {
		return Quote{}, ErrInvalidAmount
	}

	totalPrice := int64(total)
	commission := int64(math.Round(total * rate))
	return Quote{
		TotalPrice:     types.NewMoney(totalPrice),
		Commission:     types.NewMoney(commission),
		TotalOwner:     types.NewMoney(totalPrice + commission),
		TotalCaregiver: types.NewMoney(totalPrice - commission),
		VisitsCount:    visits,
		Rate:           rate,
	}, nil
}

// DaysCount is the number of calendar days from start's day through end's day
// in loc, both inclusive. It is 0 when end's day precedes start's.
func DaysCount(start, end time.Time, loc *time.Location) int {
	n := types.CalendarDaysBetween(start, end, loc)
	if n < 0 {
		return 0
	}
	return n + 1
}
