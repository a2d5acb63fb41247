// README: User, address and pet records consumed by the reservation engine.
package directory

import (
	"time"

	"petcare/internal/types"
)

type Address struct {
	ID          types.ID    `json:"id"`
	UserID      types.ID    `json:"-"`
	Label       string      `json:"label"`
	FullAddress string      `json:"full_address"`
	Floor       *string     `json:"floor,omitempty"`
	Apartment   *string     `json:"apartment,omitempty"`
	Position    types.Point `json:"position"`
}

// CareConfig is the caregiver facet of a user.
type CareConfig struct {
	HomeCareEnabled    bool      `json:"home_care_enabled"`
	PricePerDay        *int64    `json:"price_per_day,omitempty"`
	PetHomeCareEnabled bool      `json:"pet_home_care_enabled"`
	PricePerVisit      *int64    `json:"price_per_visit,omitempty"`
	AcceptedPetTypes   []string  `json:"accepted_pet_types"`
	CareAddressID      *types.ID `json:"care_address_id,omitempty"`
}

func (c CareConfig) Enabled(loc types.CareLocation) bool {
	switch loc {
	case types.CarePetHome:
		return c.PetHomeCareEnabled
	case types.CareCaregiverHome:
		return c.HomeCareEnabled
	}
	return false
}

func (c CareConfig) Accepts(petTypes []string) bool {
	for _, want := range petTypes {
		found := false
		for _, have := range c.AcceptedPetTypes {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

type User struct {
	ID        types.ID   `json:"id"`
	Name      string     `json:"name"`
	AvatarURL string     `json:"avatar_url,omitempty"`
	Addresses []Address  `json:"addresses"`
	Care      CareConfig `json:"care"`
	CreatedAt time.Time  `json:"created_at"`
}

// PrimaryAddress is the designated care address, or the first address on
// file when none is designated.
func (u *User) PrimaryAddress() (Address, bool) {
	if u.Care.CareAddressID != nil {
		if a, ok := u.Address(*u.Care.CareAddressID); ok {
			return a, true
		}
	}
	if len(u.Addresses) == 0 {
		return Address{}, false
	}
	return u.Addresses[0], true
}

func (u *User) Address(id types.ID) (Address, bool) {
	for _, a := range u.Addresses {
		if a.ID == id {
			return a, true
		}
	}
	return Address{}, false
}

// PublicProfile is what other users may see of a caregiver.
type PublicProfile struct {
	ID        types.ID `json:"id"`
	Name      string   `json:"name"`
	AvatarURL string   `json:"avatar_url,omitempty"`
}

func (u *User) Public() PublicProfile {
	return PublicProfile{ID: u.ID, Name: u.Name, AvatarURL: u.AvatarURL}
}

type Pet struct {
	ID      types.ID `json:"id"`
	OwnerID types.ID `json:"owner_id"`
	Name    string   `json:"name"`
	Type    string   `json:"type"`
}

// DistinctTypes returns the pet types in first-seen order.
func DistinctTypes(pets []Pet) []string {
	seen := make(map[string]bool, len(pets))
	var out []string
	for _, p := range pets {
		if p.Type == "" || seen[p.Type] {
			continue
		}
		seen[p.Type] = true
		out = append(out, p.Type)
	}
	return out
}
