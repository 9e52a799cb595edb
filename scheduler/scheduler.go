package scheduler

import (
	"birthdaybot/models"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultGreeting is used when Config.Greeting is empty. {mention} and
// {name} are replaced with the member's mention and display name.
const DefaultGreeting = "🎉 **Happy birthday, {mention}!** 🎂"

const runDateFormat = "2006-01-02"

// Store is the part of the birthday store the scheduler reads.
type Store interface {
	FindByDate(ctx context.Context, date models.BirthDate, scopeID string) []models.Birthday
	ClaimRun(ctx context.Context, scopeID string, runDate string, cycleID string) (bool, error)
}

// Channel is a resolved, text-capable announcement channel.
type Channel interface {
	Send(ctx context.Context, content string) error
}

// Notifier resolves the announcement channel for a cycle.
type Notifier interface {
	OpenChannel(ctx context.Context, channelID string) (Channel, error)
}

// RoleSyncer gives today's members the birthday role and takes it away
// from everyone else.
type RoleSyncer interface {
	SyncBirthdayRole(ctx context.Context, memberIDs []string)
}

// Config controls when and where the scheduler congratulates members.
type Config struct {
	ScopeID   string
	ChannelID string

	// Location is the reference timezone for both the trigger time and
	// today's date. Nil means UTC.
	Location *time.Location

	// At is the daily trigger time as an offset from midnight.
	At time.Duration

	CheckInterval time.Duration
	SendInterval  time.Duration
	RunOnStartup  bool
	Greeting      string
}

// Result summarises one birthday check.
type Result struct {
	CycleID   string
	Date      models.BirthDate
	Matched   int
	Delivered int
	Failed    int
	Aborted   bool
	Skipped   bool
}

// Scheduler runs the daily birthday check.
type Scheduler struct {
	store    Store
	notifier Notifier
	roles    RoleSyncer
	cfg      Config
	now      func() time.Time

	runMu       sync.Mutex
	lastRunDate string

	mu     sync.Mutex
	ticker *time.Ticker
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler. Call Start to begin checking on a ticker.
func New(store Store, notifier Notifier, cfg Config) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = time.Minute
	}
	if cfg.Greeting == "" {
		cfg.Greeting = DefaultGreeting
	}

	return &Scheduler{
		store:    store,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

// SetRoleSyncer enables birthday role management for every cycle.
func (s *Scheduler) SetRoleSyncer(roles RoleSyncer) {
	s.roles = roles
}

// Start begins the scheduler. One check happens immediately: it fires
// if today's trigger time has already passed, or unconditionally when
// RunOnStartup is set. Either way a day is only ever handled once.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.ticker = time.NewTicker(s.cfg.CheckInterval)
	s.wg.Add(1)

	go s.run(ctx)

	slog.Info(
		"birthday scheduler started",
		"timezone", s.cfg.Location.String(),
		"at", formatOffset(s.cfg.At),
		"check_interval", s.cfg.CheckInterval.String(),
		"run_on_startup", s.cfg.RunOnStartup,
	)
}

// Stop stops the scheduler and waits for an in-flight check to finish.
// Pending sends of that check are cancelled.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return
	}

	s.ticker.Stop()
	s.cancel()
	s.wg.Wait()
	s.cancel = nil
	slog.Info("birthday scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	s.tick(ctx, !s.cfg.RunOnStartup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.ticker.C:
			s.tick(ctx, true)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, waitForTrigger bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("birthday check panicked", "panic", fmt.Sprint(r))
		}
	}()

	s.runOnce(ctx, waitForTrigger)
}

// RunDue runs today's check if the trigger time has passed and the day
// has not been handled yet.
func (s *Scheduler) RunDue(ctx context.Context) Result {
	return s.runOnce(ctx, true)
}

// CatchUp runs today's check now unless the day was already handled.
func (s *Scheduler) CatchUp(ctx context.Context) Result {
	return s.runOnce(ctx, false)
}

func (s *Scheduler) runOnce(ctx context.Context, waitForTrigger bool) Result {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	now := s.now().In(s.cfg.Location)
	runDate := now.Format(runDateFormat)
	today := models.BirthDateOf(now)

	if s.lastRunDate == runDate {
		return Result{Date: today, Skipped: true}
	}
	if waitForTrigger && now.Before(s.triggerOn(now)) {
		return Result{Date: today, Skipped: true}
	}

	cycleID := uuid.NewString()
	claimed, err := s.store.ClaimRun(ctx, s.cfg.ScopeID, runDate, cycleID)
	if err != nil {
		slog.Error(
			"cannot record today's birthday run, will retry",
			"cycle", cycleID,
			"date", runDate,
			"err", err,
		)
		return Result{CycleID: cycleID, Date: today, Aborted: true}
	}

	s.lastRunDate = runDate
	if !claimed {
		slog.Info("birthdays already checked today", "date", runDate, "scope", s.cfg.ScopeID)
		return Result{Date: today, Skipped: true}
	}

	return s.check(ctx, cycleID, today)
}

// CheckBirthdays congratulates everyone whose birthday is date. It does
// not consult or record the daily run guard.
func (s *Scheduler) CheckBirthdays(ctx context.Context, date models.BirthDate) Result {
	return s.check(ctx, uuid.NewString(), date)
}

func (s *Scheduler) check(ctx context.Context, cycleID string, date models.BirthDate) Result {
	log := slog.With("cycle", cycleID, "date", date.String(), "scope", s.cfg.ScopeID)
	result := Result{CycleID: cycleID, Date: date}

	log.Info("checking birthdays")

	channel, err := s.notifier.OpenChannel(ctx, s.cfg.ChannelID)
	if err != nil {
		log.Error(
			"cannot use birthday channel, skipping today's congratulations",
			"channel", s.cfg.ChannelID,
			"err", err,
		)
		result.Aborted = true
		return result
	}

	birthdays := s.store.FindByDate(ctx, date, s.cfg.ScopeID)
	result.Matched = len(birthdays)

	if s.roles != nil {
		memberIDs := make([]string, len(birthdays))
		for i, birthday := range birthdays {
			memberIDs[i] = birthday.MemberID
		}
		s.roles.SyncBirthdayRole(ctx, memberIDs)
	}

	if len(birthdays) == 0 {
		log.Info("no birthdays today")
		return result
	}

	for i, birthday := range birthdays {
		if i > 0 {
			if err := pace(ctx, s.cfg.SendInterval); err != nil {
				log.Warn("birthday check interrupted", "remaining", len(birthdays)-i, "err", err)
				result.Aborted = true
				break
			}
		}

		if err := channel.Send(ctx, s.Greeting(birthday)); err != nil {
			result.Failed++
			log.Error(
				"failed to congratulate member",
				"member", birthday.MemberID,
				"name", birthday.DisplayName,
				"err", err,
			)
			continue
		}

		result.Delivered++
		log.Info("congratulated member", "member", birthday.MemberID, "name", birthday.DisplayName)
	}

	log.Info(
		"birthday check complete",
		"matched", result.Matched,
		"delivered", result.Delivered,
		"failed", result.Failed,
	)
	return result
}

// Today returns today's DD.MM in the reference timezone.
func (s *Scheduler) Today() models.BirthDate {
	return models.BirthDateOf(s.now().In(s.cfg.Location))
}

// Greeting renders the congratulation message for a member.
func (s *Scheduler) Greeting(birthday models.Birthday) string {
	return strings.NewReplacer(
		"{mention}", birthday.Mention(),
		"{name}", birthday.DisplayName,
	).Replace(s.cfg.Greeting)
}

func (s *Scheduler) triggerOn(now time.Time) time.Time {
	year, month, day := now.Date()
	return time.Date(
		year, month, day,
		int(s.cfg.At/time.Hour),
		int(s.cfg.At%time.Hour/time.Minute),
		0, 0,
		s.cfg.Location,
	)
}

// pace waits between sends so the platform does not throttle the channel.
func pace(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func formatOffset(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d/time.Hour), int(d%time.Hour/time.Minute))
}
