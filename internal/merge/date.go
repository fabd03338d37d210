package merge

import (
	"fmt"
	"time"
)

// DateLayout is the month-day-year layout of the derived date column.
const DateLayout = "01-02-2006"

// DateFromDayOfYear returns the calendar date of day doy (1-based) of year,
// formatted MM-DD-YYYY. Day 366 is only valid in leap years.
func DateFromDayOfYear(year, doy int) (string, error) {
	if doy < 1 || doy > daysIn(year) {
		return "", fmt.Errorf("day of year %d out of range for %d", doy, year)
	}
	d := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, doy-1)
	return d.Format(DateLayout), nil
}

// FullYear expands a two-digit alert year (23) to 2023.
func FullYear(year int) int {
	if year < 100 {
		return 2000 + year
	}
	return year
}

func daysIn(year int) int {
	if time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC).YearDay() == 366 {
		return 366
	}
	return 365
}
