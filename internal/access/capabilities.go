// README: Declarative role capability table; handlers ask Allowed instead of comparing role strings.
package access

type Role string

const (
	RoleUser   Role = "user"
	RoleAdmin  Role = "admin"
	RoleSystem Role = "system"
)

type Resource string

const (
	Reservation Resource = "reservation"
	Search      Resource = "search"
	Review      Resource = "review"
	Audit       Resource = "audit"
	Scheduler   Resource = "scheduler"
)

type Action string

const (
	Create        Action = "create"
	List          Action = "list"
	Read          Action = "read"
	ReadAny       Action = "read_any"
	Accept        Action = "accept"
	Reject        Action = "reject"
	Cancel        Action = "cancel"
	UpdatePayment Action = "update_payment"
	Query         Action = "query"
	Run           Action = "run"
)

type Capability struct {
	Resource Resource
	Action   Action
}

var userCapabilities = []Capability{
	{Reservation, Create}, {Reservation, List}, {Reservation, Read},
	{Reservation, Accept}, {Reservation, Reject}, {Reservation, Cancel},
	{Search, Query},
	{Review, Create}, {Review, Read},
}

var table = map[Role]map[Capability]bool{
	RoleUser: set(userCapabilities...),
	RoleAdmin: set(append([]Capability{
		{Reservation, ReadAny}, {Reservation, UpdatePayment},
		{Audit, Read},
		{Scheduler, Run},
	}, userCapabilities...)...),
	RoleSystem: set(
		Capability{Reservation, UpdatePayment},
		Capability{Scheduler, Run},
	),
}

func set(caps ...Capability) map[Capability]bool {
	m := make(map[Capability]bool, len(caps))
	for _, c := range caps {
		m[c] = true
	}
	return m
}

// Allowed reports whether role may perform action on resource.
func Allowed(role Role, resource Resource, action Action) bool {
	return table[role][Capability{resource, action}]
}

// ParseRole maps a token claim to a role; unknown or empty claims are plain users.
func ParseRole(claim string) Role {
	switch r := Role(claim); r {
	case RoleAdmin, RoleSystem:
		return r
	}
	return RoleUser
}
