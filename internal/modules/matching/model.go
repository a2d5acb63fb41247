// README: Caregiver search query, ranked results and sorting options.
package matching

import (
	"time"

	"petcare/internal/modules/directory"
	"petcare/internal/modules/review"
	"petcare/internal/types"
)

type SortField string

const (
	SortByPrice    SortField = "price"
	SortByDistance SortField = "distance"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

type SearchQuery struct {
	RequesterID   types.ID
	StartDate     time.Time
	EndDate       time.Time
	CareLocation  types.CareLocation
	PetIDs        []types.ID
	VisitsPerDay  int
	AddressID     *types.ID
	MaxDistanceKm *float64
	MaxPrice      *int64
	MinRating     *float64
	SortBy        SortField
	SortOrder     SortOrder
	Page          int
	Limit         int
}

// CandidateFilter narrows the caregiver pool before pricing.
type CandidateFilter struct {
	CareLocation types.CareLocation
	PetTypes     []string
	ExcludeID    types.ID
}

type Result struct {
	Caregiver     directory.PublicProfile `json:"caregiver"`
	Reviews       review.Stats            `json:"reviews"`
	TotalPrice    types.Money             `json:"total_price"`
	Commission    types.Money             `json:"commission"`
	TotalOwner    types.Money             `json:"total_owner"`
	DistanceKm    *float64                `json:"distance_km,omitempty"`
	VisitsCount   *int                    `json:"visits_count,omitempty"`
	PricePerDay   *int64                  `json:"price_per_day,omitempty"`
	PricePerVisit *int64                  `json:"price_per_visit,omitempty"`
}

type Page struct {
	Items []Result `json:"items"`
	Total int      `json:"total"`
	Page  int      `json:"page"`
	Limit int      `json:"limit"`
}
