package dal

import (
	"birthdaybot/models"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Store owns the birthday table. It is safe for concurrent use by
// command handlers and the daily scheduler.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the SQLite birthday database at dbPath
// and migrates its schema.
func Open(dbPath string) (*Store, error) {
	db, err := gorm.Open(
		sqlite.Open(dsn(dbPath)),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)},
	)
	if err != nil {
		return nil, fmt.Errorf("open birthday database: %w", err)
	}

	if err := db.AutoMigrate(&models.Birthday{}, &models.BirthdayRun{}); err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			sqlDB.Close()
		}
		return nil, fmt.Errorf("migrate birthday database: %w", err)
	}
	slog.Info("birthday database ready", "path", dbPath)

	return &Store{db: db}, nil
}

// dsn enables WAL, a busy timeout and immediate write transactions so
// concurrent writers queue on the lock instead of failing.
func dsn(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate"
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Upsert validates dateText and stores the birthday for the given member
// and scope, fully replacing any existing record for that key.
func (s *Store) Upsert(
	ctx context.Context,
	memberID string,
	displayName string,
	dateText string,
	scopeID string,
) error {
	if memberID == "" {
		return ErrEmptyMember
	}
	if scopeID == "" {
		return ErrEmptyScope
	}

	date, err := models.ParseBirthDate(dateText)
	if err != nil {
		return err
	}

	birthday := models.Birthday{
		MemberID:    memberID,
		ScopeID:     scopeID,
		DisplayName: displayName,
		BirthDate:   date.String(),
	}

	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "member_id"}, {Name: "scope_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name", "birth_date", "updated_at"}),
	}).Create(&birthday).Error
	if err != nil {
		return storageError("upsert birthday", err)
	}

	return nil
}

// Remove deletes the birthday for the given member and scope. It reports
// whether a record existed.
func (s *Store) Remove(ctx context.Context, memberID string, scopeID string) (bool, error) {
	if scopeID == "" {
		return false, ErrEmptyScope
	}

	result := s.db.WithContext(ctx).
		Where("member_id = ? AND scope_id = ?", memberID, scopeID).
		Delete(&models.Birthday{})
	if result.Error != nil {
		return false, storageError("remove birthday", result.Error)
	}

	return result.RowsAffected > 0, nil
}

// ListAll returns every birthday in the scope ordered by the DD.MM text,
// so "05.12" sorts before "15.01".
func (s *Store) ListAll(ctx context.Context, scopeID string) ([]models.Birthday, error) {
	if scopeID == "" {
		return nil, ErrEmptyScope
	}

	birthdays := []models.Birthday{}
	err := s.db.WithContext(ctx).
		Where("scope_id = ?", scopeID).
		Order("birth_date").
		Order("member_id").
		Find(&birthdays).Error
	if err != nil {
		return nil, storageError("list birthdays", err)
	}

	return birthdays, nil
}

// FindByDate returns the birthdays stored with exactly the given date.
// Storage failures are logged and yield no birthdays, so a broken
// database skips a day's congratulations instead of failing the scan.
func (s *Store) FindByDate(
	ctx context.Context,
	date models.BirthDate,
	scopeID string,
) []models.Birthday {
	birthdays := []models.Birthday{}
	err := s.db.WithContext(ctx).
		Where("birth_date = ? AND scope_id = ?", date.String(), scopeID).
		Order("member_id").
		Find(&birthdays).Error
	if err != nil {
		slog.Error(
			"birthday lookup failed, no congratulations will be sent",
			"date", date.String(),
			"scope", scopeID,
			"err", err,
		)
		return []models.Birthday{}
	}

	return birthdays
}

// ClaimRun marks runDate as handled for the scope. Only the first claim
// for a day returns true.
func (s *Store) ClaimRun(
	ctx context.Context,
	scopeID string,
	runDate string,
	cycleID string,
) (bool, error) {
	run := models.BirthdayRun{
		ScopeID: scopeID,
		RunDate: runDate,
		CycleID: cycleID,
		FiredAt: time.Now().UTC(),
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&run)
	if result.Error != nil {
		return false, storageError("claim daily run", result.Error)
	}

	return result.RowsAffected == 1, nil
}
