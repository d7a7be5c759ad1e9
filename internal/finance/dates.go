package finance

import (
	"strings"
	"time"

	"github.com/fmmarmello/finAI/internal/models"
)

// DateLayout задает формат календарной даты без времени.
const DateLayout = models.DateLayout

// Range описывает интервал дат включительно с обеих сторон.
type Range struct {
	Start time.Time
	End   time.Time
}

// Day отбрасывает время и возвращает календарную дату в UTC.
// Год, месяц и день берутся в локации t.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today возвращает текущую календарную дату в заданной локации.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return Day(now.In(loc))
}

// ParseDate разбирает дату в формате YYYY-MM-DD.
func ParseDate(value string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(value))
}

// MonthRange возвращает интервал с первого по последний день месяца.
func MonthRange(year int, month time.Month) Range {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Range{Start: start, End: start.AddDate(0, 1, -1)}
}

// Contains сообщает, попадает ли дата в интервал с точностью до дня.
func (r Range) Contains(date time.Time) bool {
	day := Day(date)
	return !day.Before(Day(r.Start)) && !day.After(Day(r.End))
}

// AddMonths сдвигает дату на months календарных месяцев. Если в целевом месяце
// нет такого дня, берется его последний день (31 января + 1 = 28/29 февраля).
func AddMonths(date time.Time, months int) time.Time {
	y, m, d := date.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, date.Location())

	if last := daysIn(first.Year(), first.Month()); d > last {
		d = last
	}

	return time.Date(first.Year(), first.Month(), d, date.Hour(), date.Minute(), date.Second(), date.Nanosecond(), date.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
