// README: Caregiver matcher filters, prices and ranks candidates for a search request.
package matching

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"petcare/internal/modules/directory"
	"petcare/internal/modules/location"
	"petcare/internal/modules/pricing"
	"petcare/internal/modules/review"
	"petcare/internal/types"
)

var ErrBadRequest = fmt.Errorf("search: %w", types.ErrValidation)

type CandidateSource interface {
	Candidates(ctx context.Context, f CandidateFilter) ([]directory.User, error)
}

type PetCatalog interface {
	GetPets(ctx context.Context, ids []types.ID) ([]directory.Pet, error)
}

type AddressBook interface {
	GetAddress(ctx context.Context, userID, addressID types.ID) (directory.Address, error)
}

type RateSource interface {
	Rate(ctx context.Context) (float64, error)
}

type ReviewStats interface {
	Stats(ctx context.Context, userIDs []types.ID) (map[types.ID]review.Stats, error)
}

type Deps struct {
	Candidates  CandidateSource
	Pets        PetCatalog
	Addresses   AddressBook
	Rates       RateSource
	Reviews     ReviewStats
	Clock       types.Clock
	Location    *time.Location
	MaxPageSize int
	Logger      *slog.Logger
}

type Service struct {
	candidates  CandidateSource
	pets        PetCatalog
	addresses   AddressBook
	rates       RateSource
	reviews     ReviewStats
	clock       types.Clock
	loc         *time.Location
	maxPageSize int
	logger      *slog.Logger
}

func NewService(deps Deps) *Service {
	if deps.Clock == nil {
		deps.Clock = types.SystemClock{}
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.MaxPageSize <= 0 {
		deps.MaxPageSize = maxPageSize
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{
		candidates:  deps.Candidates,
		pets:        deps.Pets,
		addresses:   deps.Addresses,
		rates:       deps.Rates,
		reviews:     deps.Reviews,
		clock:       deps.Clock,
		loc:         deps.Location,
		maxPageSize: deps.MaxPageSize,
		logger:      deps.Logger,
	}
}

type ranked struct {
	result   Result
	price    int64
	distance float64
}

func (s *Service) Search(ctx context.Context, q SearchQuery) (Page, error) {
	if err := s.normalize(&q); err != nil {
		return Page{}, err
	}

	pets, err := s.pets.GetPets(ctx, q.PetIDs)
	if err != nil {
		return Page{}, err
	}
	petTypes := directory.DistinctTypes(pets)

	pool, err := s.candidates.Candidates(ctx, CandidateFilter{
		CareLocation: q.CareLocation,
		PetTypes:     petTypes,
		ExcludeID:    q.RequesterID,
	})
	if err != nil {
		return Page{}, err
	}

	var origin *types.Point
	wantDistance := q.MaxDistanceKm != nil || q.SortBy == SortByDistance
	if wantDistance && q.AddressID != nil {
		a, err := s.addresses.GetAddress(ctx, q.RequesterID, *q.AddressID)
		if err != nil {
			return Page{}, err
		}
		origin = &a.Position
	}

	rate, err := s.rates.Rate(ctx)
	if err != nil {
		return Page{}, fmt.Errorf("read commission rate: %w", err)
	}
	days := pricing.DaysCount(q.StartDate, q.EndDate, s.loc)

	var kept []ranked
	for i := range pool {
		c := &pool[i]
		if c.ID == q.RequesterID || !c.Care.Enabled(q.CareLocation) || !c.Care.Accepts(petTypes) {
			continue
		}
		quote, err := pricing.Calculate(pricing.Plan{
			CareLocation:  q.CareLocation,
			DaysCount:     days,
			VisitsPerDay:  q.VisitsPerDay,
			PricePerVisit: c.Care.PricePerVisit,
			PricePerDay:   c.Care.PricePerDay,
		}, rate)
		if errors.Is(err, pricing.ErrBadRate) {
			return Page{}, err
		}
		if err != nil {
			s.logger.Debug("candidate skipped", "caregiver_id", c.ID, "reason", err)
			continue
		}
		if q.MaxPrice != nil && quote.TotalPrice.Amount > *q.MaxPrice {
			continue
		}

		r := ranked{
			result: Result{
				Caregiver:   c.Public(),
				TotalPrice:  quote.TotalPrice,
				Commission:  quote.Commission,
				TotalOwner:  quote.TotalOwner,
				VisitsCount: quote.VisitsCount,
			},
			price:    quote.TotalPrice.Amount,
			distance: math.Inf(1),
		}
		if q.CareLocation == types.CarePetHome {
			r.result.PricePerVisit = c.Care.PricePerVisit
		} else {
			r.result.PricePerDay = c.Care.PricePerDay
		}

		if wantDistance {
			var d *float64
			if addr, ok := c.PrimaryAddress(); ok && origin != nil {
				v := location.Between(*origin, addr.Position)
				d = &v
			}
			if q.MaxDistanceKm != nil && (d == nil || *d > *q.MaxDistanceKm) {
				continue
			}
			if d != nil {
				r.result.DistanceKm = d
				r.distance = *d
			}
		}
		kept = append(kept, r)
	}

	kept, err = s.attachReviews(ctx, kept, q.MinRating)
	if err != nil {
		return Page{}, err
	}

	sortRanked(kept, q.SortBy, q.SortOrder)

	page := Page{Items: []Result{}, Total: len(kept), Page: q.Page, Limit: q.Limit}
	// Compare page numbers before multiplying so huge pages cannot overflow.
	if pages := (len(kept) + q.Limit - 1) / q.Limit; q.Page <= pages {
		start := (q.Page - 1) * q.Limit
		end := start + q.Limit
		if end > len(kept) {
			end = len(kept)
		}
		for _, r := range kept[start:end] {
			page.Items = append(page.Items, r.result)
		}
	}
	return page, nil
}

// attachReviews adds aggregates and applies the minimum caregiver rating.
// Candidates never reviewed as caregivers are kept.
func (s *Service) attachReviews(ctx context.Context, kept []ranked, minRating *float64) ([]ranked, error) {
	if len(kept) == 0 || s.reviews == nil {
		return kept, nil
	}
	ids := make([]types.ID, len(kept))
	for i, r := range kept {
		ids[i] = r.result.Caregiver.ID
	}
	stats, err := s.reviews.Stats(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := kept[:0]
	for _, r := range kept {
		st := stats[r.result.Caregiver.ID]
		if minRating != nil && st.AsCaregiver.Count > 0 && st.AsCaregiver.Average < *minRating {
			continue
		}
		r.result.Reviews = st
		out = append(out, r)
	}
	return out, nil
}

func sortRanked(list []ranked, by SortField, order SortOrder) {
	key := func(r ranked) float64 { return float64(r.price) }
	if by == SortByDistance {
		key = func(r ranked) float64 { return r.distance }
	}
	sort.SliceStable(list, func(i, j int) bool {
		a, b := key(list[i]), key(list[j])
		if order == SortDesc {
			return a > b
		}
		return a < b
	})
}

func (s *Service) normalize(q *SearchQuery) error {
	now := s.clock.Now()
	start := types.StartOfDay(q.StartDate, s.loc)
	switch {
	case !q.CareLocation.Valid():
		return fmt.Errorf("%w: unknown care location %q", ErrBadRequest, q.CareLocation)
	case start.Before(types.Tomorrow(now, s.loc)):
		return fmt.Errorf("%w: start date must be tomorrow or later", ErrBadRequest)
	case types.StartOfDay(q.EndDate, s.loc).Before(start):
		return fmt.Errorf("%w: end date is before start date", ErrBadRequest)
	case q.MinRating != nil && (*q.MinRating < 1 || *q.MinRating > 5):
		return fmt.Errorf("%w: minimum rating must be between 1 and 5", ErrBadRequest)
	case q.MaxDistanceKm != nil && *q.MaxDistanceKm < 0:
		return fmt.Errorf("%w: max distance cannot be negative", ErrBadRequest)
	case q.MaxPrice != nil && *q.MaxPrice < 0:
		return fmt.Errorf("%w: max price cannot be negative", ErrBadRequest)
	}
	if q.CareLocation == types.CarePetHome {
		if q.VisitsPerDay <= 0 {
			return fmt.Errorf("%w: visits per day must be positive", ErrBadRequest)
		}
		if q.AddressID == nil || *q.AddressID == "" {
			return fmt.Errorf("%w: address is required for pet home care", ErrBadRequest)
		}
	}
	if q.AddressID != nil && *q.AddressID == "" {
		q.AddressID = nil
	}

	switch q.SortBy {
	case "":
		q.SortBy = SortByPrice
	case SortByPrice, SortByDistance:
	default:
		return fmt.Errorf("%w: unknown sort field %q", ErrBadRequest, q.SortBy)
	}
	switch q.SortOrder {
	case "":
		q.SortOrder = SortAsc
	case SortAsc, SortDesc:
	default:
		return fmt.Errorf("%w: unknown sort order %q", ErrBadRequest, q.SortOrder)
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = defaultPageSize
	}
	if q.Limit > s.maxPageSize {
		q.Limit = s.maxPageSize
	}
	return nil
}
