package finance

import (
	"testing"
	"time"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// TestAddMonthsClampsToMonthEnd проверяет перенос 31-го числа на последний день месяца.
func TestAddMonthsClampsToMonthEnd(t *testing.T) {
	cases := []struct {
		from   time.Time
		months int
		want   time.Time
	}{
		{date(2024, time.January, 31), 1, date(2024, time.February, 29)},
		{date(2023, time.January, 31), 1, date(2023, time.February, 28)},
		{date(2024, time.March, 31), 1, date(2024, time.April, 30)},
		{date(2024, time.March, 31), -1, date(2024, time.February, 29)},
		{date(2024, time.December, 15), 1, date(2025, time.January, 15)},
		{date(2024, time.January, 31), 2, date(2024, time.March, 31)},
	}

	for _, tc := range cases {
		got := AddMonths(tc.from, tc.months)
		if !got.Equal(tc.want) {
			t.Fatalf("AddMonths(%s, %d): expected %s, got %s", tc.from.Format(DateLayout), tc.months, tc.want.Format(DateLayout), got.Format(DateLayout))
		}
	}
}

// TestMonthRangeInclusive проверяет границы месяца и включение последнего дня.
func TestMonthRangeInclusive(t *testing.T) {
	r := MonthRange(2024, time.February)

	if r.End.Format(DateLayout) != "2024-02-29" {
		t.Fatalf("unexpected end: %s", r.End.Format(DateLayout))
	}

	if !r.Contains(time.Date(2024, time.February, 29, 23, 59, 59, 0, time.UTC)) {
		t.Fatal("expected last day to be inside the range through end of day")
	}
	if r.Contains(date(2024, time.March, 1)) {
		t.Fatal("expected next month to be outside the range")
	}
	if r.Contains(date(2024, time.January, 31)) {
		t.Fatal("expected previous month to be outside the range")
	}
}

// TestTodayUsesLocation проверяет, что текущий день берется в заданной локации.
func TestTodayUsesLocation(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	now := time.Date(2024, time.May, 2, 1, 30, 0, 0, time.UTC)

	got := Today(now, loc)
	if got.Format(DateLayout) != "2024-05-01" {
		t.Fatalf("expected 2024-05-01, got %s", got.Format(DateLayout))
	}
}

// TestParseDate проверяет разбор даты и ошибку на неверном формате.
func TestParseDate(t *testing.T) {
	got, err := ParseDate(" 2024-05-10 ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !got.Equal(date(2024, time.May, 10)) {
		t.Fatalf("unexpected date: %s", got)
	}

	if _, err := ParseDate("10/05/2024"); err == nil {
		t.Fatal("expected error for invalid format")
	}
}
