package cli

import (
	"birthdaybot/bot"
	"birthdaybot/models"
	"birthdaybot/scheduler"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var errDateNeedsForce = errors.New("--date runs outside the daily guard and needs --force")

// NewCheckCommand creates the check command, which runs one birthday
// scan over the REST API without connecting to the gateway.
func NewCheckCommand(opts *RootOptions) *cobra.Command {
	var date string
	var force bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run one birthday check now",
		Long: "Runs today's birthday check immediately. Without --force the check is " +
			"skipped if today was already handled, by this command or by a running bot.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if date != "" && !force {
				return errDateNeedsForce
			}

			var target models.BirthDate
			if date != "" {
				parsed, err := models.ParseBirthDate(date)
				if err != nil {
					return err
				}
				target = parsed
			}

			cfg := opts.cfg
			if err := cfg.Validate(); err != nil {
				return err
			}
			location, at, err := cfg.Schedule.Resolve()
			if err != nil {
				return err
			}

			store, err := opts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			b, err := bot.New(cfg.Discord, store, location)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			sched := scheduler.New(store, b, schedulerConfig(cfg, location, at))
			if roles := b.BirthdayRoleSyncer(ctx); roles != nil {
				sched.SetRoleSyncer(roles)
			}

			var result scheduler.Result
			switch {
			case !force:
				result = sched.CatchUp(ctx)
			case target == "":
				result = sched.CheckBirthdays(ctx, sched.Today())
			default:
				result = sched.CheckBirthdays(ctx, target)
			}

			printResult(cmd, result)
			if result.Aborted {
				return fmt.Errorf("birthday check for %s did not complete", result.Date)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "check this DD.MM instead of today (requires --force)")
	cmd.Flags().BoolVar(&force, "force", false, "ignore the once-a-day guard")
	return cmd
}

func printResult(cmd *cobra.Command, result scheduler.Result) {
	out := cmd.OutOrStdout()
	if result.Skipped {
		fmt.Fprintf(out, "%s was already checked today.\n", result.Date)
		return
	}
	fmt.Fprintf(
		out,
		"%s: %d matched, %d congratulated, %d failed\n",
		result.Date,
		result.Matched,
		result.Delivered,
		result.Failed,
	)
}
