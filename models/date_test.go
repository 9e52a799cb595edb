package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBirthDate(t *testing.T) {
	valid := []string{"15.05", "01.01", "31.12", "29.02", "31.02"}
	for _, text := range valid {
		date, err := ParseBirthDate(text)
		require.NoError(t, err, text)
		assert.Equal(t, BirthDate(text), date)
	}

	invalid := []string{
		"5.5", "2022-05-15", "15/05", "15.5", "15.05.", " 15.05", "1505",
		"", "ab.cd", "00.13", "00.05", "32.01", "15.00", "15.13", "١٥.٠٥",
	}
	for _, text := range invalid {
		_, err := ParseBirthDate(text)
		assert.ErrorIs(t, err, ErrInvalidFormat, text)
	}
}

func TestBirthDateOfUsesLocation(t *testing.T) {
	instant := time.Date(2026, time.May, 14, 22, 30, 0, 0, time.UTC)
	assert.Equal(t, BirthDate("14.05"), BirthDateOf(instant))

	moscow := time.FixedZone("MSK", 3*60*60)
	assert.Equal(t, BirthDate("15.05"), BirthDateOf(instant.In(moscow)))
}

func TestBirthDateParts(t *testing.T) {
	date := BirthDate("05.12")
	assert.Equal(t, 5, date.Day())
	assert.Equal(t, time.December, date.Month())
	assert.Equal(t, "05.12", date.String())
}

func TestBirthDateNext(t *testing.T) {
	from := time.Date(2026, time.October, 17, 15, 0, 0, 0, time.UTC)

	next, ok := BirthDate("17.10").Next(from)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, time.October, 17, 0, 0, 0, 0, time.UTC), next)

	next, ok = BirthDate("16.10").Next(from)
	require.True(t, ok)
	assert.Equal(t, time.Date(2027, time.October, 16, 0, 0, 0, 0, time.UTC), next)

	next, ok = BirthDate("29.02").Next(from)
	require.True(t, ok)
	assert.Equal(t, time.Date(2028, time.February, 29, 0, 0, 0, 0, time.UTC), next)

	_, ok = BirthDate("31.02").Next(from)
	assert.False(t, ok)
}
