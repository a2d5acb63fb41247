package audit

import (
	"errors"
	"testing"

	"petcare/internal/types"
)

func TestParseEntityType(t *testing.T) {
	for _, v := range []string{"reservation", "review"} {
		if _, err := ParseEntityType(v); err != nil {
			t.Errorf("ParseEntityType(%q) error = %v", v, err)
		}
	}
	if _, err := ParseEntityType("reservation_logs"); !errors.Is(err, types.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}
