package cli

import (
	"birthdaybot/bot"
	"birthdaybot/config"
	"birthdaybot/health"
	"birthdaybot/scheduler"
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command, which runs the bot until
// it receives SIGINT or SIGTERM.
func NewServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot, the daily scheduler and the health endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, opts)
		},
	}
}

func serve(ctx context.Context, opts *RootOptions) error {
	cfg := opts.cfg

	location, at, err := cfg.Schedule.Resolve()
	if err != nil {
		return err
	}

	store, err := opts.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	healthDone := make(chan error, 1)
	go func() {
		healthDone <- health.Serve(ctx, cfg.Addr(), health.NewRouter(cfg.Server.AllowedOrigins))
	}()

	b, err := bot.New(cfg.Discord, store, location)
	if err != nil {
		cancel()
		<-healthDone
		return err
	}
	if err := b.Open(); err != nil {
		b.Shutdown()
		cancel()
		<-healthDone
		return err
	}

	sched := scheduler.New(store, b, schedulerConfig(cfg, location, at))
	if roles := b.BirthdayRoleSyncer(ctx); roles != nil {
		sched.SetRoleSyncer(roles)
	}
	sched.Start()

	slog.Info("birthday bot running", "guild", cfg.Discord.GuildID, "channel", cfg.Discord.ChannelID)

	var healthErr error
	select {
	case <-ctx.Done():
		slog.Info("shutdown requested")
	case healthErr = <-healthDone:
		slog.Error("health server stopped unexpectedly", "err", healthErr)
	}

	sched.Stop()
	b.Shutdown()
	cancel()
	if healthErr == nil {
		healthErr = <-healthDone
	}

	if healthErr != nil {
		return fmt.Errorf("serve: %w", healthErr)
	}
	return nil
}

func schedulerConfig(cfg *config.Config, location *time.Location, at time.Duration) scheduler.Config {
	return scheduler.Config{
		ScopeID:       cfg.Discord.GuildID,
		ChannelID:     cfg.Discord.ChannelID,
		Location:      location,
		At:            at,
		CheckInterval: cfg.Schedule.CheckInterval,
		SendInterval:  cfg.Schedule.SendInterval,
		RunOnStartup:  cfg.Schedule.RunOnStartup,
		Greeting:      cfg.Greeting,
	}
}
