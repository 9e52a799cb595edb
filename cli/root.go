package cli

import (
	"birthdaybot/config"
	"birthdaybot/dal"
	"birthdaybot/logger"
	"errors"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
	EnvFile    string
	DBPath     string
	Verbose    bool

	cfg *config.Config
}

// errNoScope is returned by the record commands when neither --scope nor
// GUILD_ID names the guild to work on.
var errNoScope = errors.New("no guild: pass --scope or set GUILD_ID")

// NewRootCommand creates the root command for the birthday bot.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "birthdaybot",
		Short:         "Discord birthday bot",
		Long:          "Stores member birthdays and congratulates them in a Discord channel once a day.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd.Name() == "serve")
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "YAML config file")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file loaded into the environment if present")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "SQLite database path (overrides DB_PATH)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log at info level for one-off commands")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewRemoveCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))

	return cmd
}

// load reads the configuration and installs the logger. One-off
// commands only log warnings unless --verbose is set.
func (opts *RootOptions) load(serving bool) error {
	cfg, err := config.Load(opts.ConfigFile, opts.EnvFile)
	if err != nil {
		return err
	}
	if opts.DBPath != "" {
		cfg.Database.Path = opts.DBPath
	}

	logCfg := cfg.Log
	if !serving && !opts.Verbose && logger.ParseLevel(logCfg.Level) < logger.ParseLevel("warn") {
		logCfg.Level = "warn"
	}
	logger.Init(logCfg)

	opts.cfg = cfg
	return nil
}

func (opts *RootOptions) openStore() (*dal.Store, error) {
	return dal.Open(opts.cfg.Database.Path)
}

func (opts *RootOptions) scope(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if opts.cfg.Discord.GuildID != "" {
		return opts.cfg.Discord.GuildID, nil
	}
	return "", errNoScope
}
