package models

import "time"

// Birthday represents a member's birth day and month within a scope
// (the guild). Every record carries a scope.
type Birthday struct {
	MemberID    string `gorm:"primaryKey;not null"`
	ScopeID     string `gorm:"primaryKey;not null"`
	DisplayName string `gorm:"not null"`
	BirthDate   string `gorm:"not null;index;check:birth_date GLOB '[0-9][0-9].[0-9][0-9]'"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BirthdayRun records that the daily scan already fired for a scope on
// a calendar day of the reference timezone.
type BirthdayRun struct {
	ScopeID string `gorm:"primaryKey;not null"`
	RunDate string `gorm:"primaryKey;not null"`
	CycleID string
	FiredAt time.Time
}

// Mention returns the Discord mention markup for the member.
func (b Birthday) Mention() string {
	return "<@" + b.MemberID + ">"
}
