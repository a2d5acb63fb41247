// README: Care location shared by pricing, matching and reservations.
package types

type CareLocation string

const (
	CarePetHome       CareLocation = "pet_home"
	CareCaregiverHome CareLocation = "caregiver_home"
)

func (c CareLocation) Valid() bool {
	return c == CarePetHome || c == CareCaregiverHome
}
