// Package calendar answers "should a report run today?" against a static
// table of Korean public holidays.
package calendar

import (
	"fmt"
	"time"
)

// Year is the calendar year the holiday table covers. Queries for other
// years are rejected rather than silently treated as non-holidays.
const Year = 2026

type monthDay struct {
	month time.Month
	day   int
}

// 2026 Korean public holidays including substitute holidays.
var holidays = map[monthDay]string{
	{time.January, 1}:    "sinjeong",
	{time.January, 27}:   "seollal-eve",
	{time.January, 28}:   "seollal",
	{time.January, 29}:   "seollal+1",
	{time.March, 1}:      "samiljeol",
	{time.March, 2}:      "samiljeol-sub",
	{time.May, 5}:        "children-day",
	{time.May, 24}:       "buddha-birthday",
	{time.May, 25}:       "buddha-sub",
	{time.June, 6}:       "memorial-day",
	{time.August, 15}:    "liberation-day",
	{time.August, 17}:    "liberation-sub",
	{time.September, 14}: "chuseok-eve",
	{time.September, 15}: "chuseok",
	{time.September, 16}: "chuseok+1",
	{time.October, 3}:    "gaecheonjeol",
	{time.October, 5}:    "gaecheonjeol-sub",
	{time.October, 9}:    "hangul-day",
	{time.December, 25}:  "christmas",
}

// IsHoliday reports whether d is a public holiday, with its label.
func IsHoliday(d time.Time) (bool, string, error) {
	if d.Year() != Year {
		return false, "", fmt.Errorf("holiday table only covers %d, got %d", Year, d.Year())
	}
	if name, ok := holidays[monthDay{d.Month(), d.Day()}]; ok {
		return true, name, nil
	}
	return false, "", nil
}

// IsBusinessDay reports whether d is a weekday and not a holiday.
func IsBusinessDay(d time.Time) (bool, error) {
	wd := d.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false, nil
	}
	hol, _, err := IsHoliday(d)
	if err != nil {
		return false, err
	}
	return !hol, nil
}
