package access

import "testing"

func TestAllowed(t *testing.T) {
	tests := []struct {
		role     Role
		resource Resource
		action   Action
		want     bool
	}{
		{RoleUser, Reservation, Create, true},
		{RoleUser, Reservation, Cancel, true},
		{RoleUser, Search, Query, true},
		{RoleUser, Review, Create, true},
		{RoleUser, Reservation, ReadAny, false},
		{RoleUser, Reservation, UpdatePayment, false},
		{RoleUser, Audit, Read, false},
		{RoleUser, Scheduler, Run, false},
		{RoleAdmin, Reservation, ReadAny, true},
		{RoleAdmin, Audit, Read, true},
		{RoleAdmin, Scheduler, Run, true},
		{RoleAdmin, Reservation, Create, true},
		{RoleSystem, Reservation, UpdatePayment, true},
		{RoleSystem, Scheduler, Run, true},
		{RoleSystem, Reservation, Create, false},
		{Role("driver"), Reservation, Create, false},
	}
	for _, tt := range tests {
		if got := Allowed(tt.role, tt.resource, tt.action); got != tt.want {
			t.Errorf("Allowed(%s, %s, %s) = %v, want %v", tt.role, tt.resource, tt.action, got, tt.want)
		}
	}
}

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"":       RoleUser,
		"user":   RoleUser,
		"admin":  RoleAdmin,
		"system": RoleSystem,
		"driver": RoleUser,
	}
	for claim, want := range cases {
		if got := ParseRole(claim); got != want {
			t.Errorf("ParseRole(%q) = %s, want %s", claim, got, want)
		}
	}
}
