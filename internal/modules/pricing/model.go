// README: Care plan input and price breakdown output.
package pricing

import "petcare/internal/types"

// Plan describes what is being priced. PricePerVisit is read for pet_home,
// PricePerDay for caregiver_home; a nil price means the caregiver has not
// configured that care mode.
type Plan struct {
	CareLocation  types.CareLocation
	DaysCount     int
	VisitsPerDay  int
	PricePerVisit *int64
	PricePerDay   *int64
}

type Quote struct {
	TotalPrice     types.Money
	Commission     types.Money
	TotalOwner     types.Money
	TotalCaregiver types.Money
	// VisitsCount is set only for pet_home plans.
	VisitsCount *int
	Rate        float64
}
