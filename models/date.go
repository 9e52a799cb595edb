package models

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Birth date format used in the birthday database and in commands.
const (
	BirthDateFormat  = "DD.MM"
	BirthDateExample = "15.05"
)

// ErrInvalidFormat is returned for dates that are not DD.MM.
var ErrInvalidFormat = errors.New("birth date must use DD.MM format")

var birthDatePattern = regexp.MustCompile(`^\d{2}\.\d{2}$`)

// BirthDate is a canonical, zero-padded "DD.MM" day of the year.
type BirthDate string

// ParseBirthDate validates text as DD.MM with day 01-31 and month 01-12.
// Combinations such as 31.02 are accepted; they simply never match.
func ParseBirthDate(text string) (BirthDate, error) {
	if !birthDatePattern.MatchString(text) {
		return "", fmt.Errorf("%w: %q", ErrInvalidFormat, text)
	}

	day, _ := strconv.Atoi(text[:2])
	month, _ := strconv.Atoi(text[3:])
	if day < 1 || day > 31 || month < 1 || month > 12 {
		return "", fmt.Errorf("%w: %q is out of range", ErrInvalidFormat, text)
	}

	return BirthDate(text), nil
}

// BirthDateOf returns the DD.MM of t in t's own location.
func BirthDateOf(t time.Time) BirthDate {
	return BirthDate(t.Format("02.01"))
}

// Day returns the day of the month.
func (d BirthDate) Day() int {
	day, _ := strconv.Atoi(string(d)[:2])
	return day
}

// Month returns the month.
func (d BirthDate) Month() time.Month {
	month, _ := strconv.Atoi(string(d)[3:])
	return time.Month(month)
}

func (d BirthDate) String() string {
	return string(d)
}

// maxYearsAhead bounds the search for dates like 29.02 that skip years.
const maxYearsAhead = 8

// Next returns the next occurrence of the date on or after from's day,
// at midnight in from's location. Dates that never exist (31.02) report false.
func (d BirthDate) Next(from time.Time) (time.Time, bool) {
	year, month, day := from.Date()
	today := time.Date(year, month, day, 0, 0, 0, 0, from.Location())

	for y := year; y <= year+maxYearsAhead; y++ {
		candidate := time.Date(y, d.Month(), d.Day(), 0, 0, 0, 0, from.Location())
		if candidate.Day() != d.Day() {
			continue
		}
		if !candidate.Before(today) {
			return candidate, true
		}
	}

	return time.Time{}, false
}
