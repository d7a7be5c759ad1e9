package server

import "testing"

type dated struct {
	Date string `validate:"required,yyyymmdd"`
}

// TestValidatorCalendarDate проверяет тег yyyymmdd.
func TestValidatorCalendarDate(t *testing.T) {
	v := NewValidator()

	if err := v.Validate(&dated{Date: "2024-02-29"}); err != nil {
		t.Fatalf("expected valid date, got %v", err)
	}

	for _, value := range []string{"2023-02-29", "29/02/2024", "2024-2-1"} {
		if err := v.Validate(&dated{Date: value}); err == nil {
			t.Fatalf("expected error for %q", value)
		}
	}
}
