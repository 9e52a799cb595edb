package dal

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrEmptyMember is returned when a birthday is saved without a member.
	ErrEmptyMember = errors.New("member id must not be empty")

	// ErrEmptyScope is returned when a record operation names no guild.
	// Every record is scoped, so an unscoped row never exists next to a
	// scoped one for the same member.
	ErrEmptyScope = errors.New("scope id must not be empty")

	// ErrBusy marks storage errors caused by lock contention. Retrying
	// later usually succeeds.
	ErrBusy = errors.New("birthday database is busy")
)

func storageError(op string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) &&
		(sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked) {
		return fmt.Errorf("%s: %w: %w", op, ErrBusy, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
