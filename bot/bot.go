package bot

import (
	"birthdaybot/config"
	"birthdaybot/discordutils"
	"birthdaybot/models"
	"birthdaybot/scheduler"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
)

type commandHandler = func(*discordgo.InteractionCreate)

var adminOnly int64 = discordgo.PermissionAdministrator

var botCommands = []*discordgo.ApplicationCommand{
	{
		Name:                     "birthday",
		Description:              "Manage member birthdays.",
		DefaultMemberPermissions: &adminOnly,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "add",
				Description: "Saves a member's birthday.",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionUser,
						Name:        "user",
						Description: "The member whose birthday it is.",
						Required:    true,
					},
					{
						Type: discordgo.ApplicationCommandOptionString,
						Name: "date",
						Description: fmt.Sprintf(
							"Birthday (format: %v, for example %v)",
							models.BirthDateFormat,
							models.BirthDateExample,
						),
						Required: true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "remove",
				Description: "Removes a member's birthday.",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionUser,
						Name:        "user",
						Description: "The member to forget.",
						Required:    true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "list",
				Description: "Lists every saved birthday.",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "next",
				Description: "Shows the next upcoming birthday.",
			},
		},
	},
}

// Store is the birthday store used by the command handlers.
type Store interface {
	Upsert(ctx context.Context, memberID string, displayName string, dateText string, scopeID string) error
	Remove(ctx context.Context, memberID string, scopeID string) (bool, error)
	ListAll(ctx context.Context, scopeID string) ([]models.Birthday, error)
}

// Bot is the birthday bot's Discord session and command layer.
type Bot struct {
	session            *discordgo.Session
	store              Store
	cfg                config.DiscordConfig
	location           *time.Location
	now                func() time.Time
	registeredCommands []*discordgo.ApplicationCommand
	commandHandlers    map[string]commandHandler
}

func newBot(cfg config.DiscordConfig, store Store, location *time.Location) *Bot {
	if location == nil {
		location = time.UTC
	}

	bot := &Bot{
		store:    store,
		cfg:      cfg,
		location: location,
		now:      time.Now,
	}
	bot.commandHandlers = map[string]commandHandler{
		"birthday": bot.Birthday,
	}
	return bot
}

// New creates the bot and its Discord session without connecting.
// location is the reference timezone used by /birthday next.
func New(
	cfg config.DiscordConfig,
	store Store,
	location *time.Location,
) (*Bot, error) {
	bot := newBot(cfg, store, location)

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers

	session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		slog.Info("bot is up", "user", r.User.Username, "guilds", len(r.Guilds))
	})

	session.AddHandler(func(
		_ *discordgo.Session,
		i *discordgo.InteractionCreate,
	) {
		if i.Type != discordgo.InteractionApplicationCommand {
			return
		}
		if handler, ok := bot.commandHandlers[i.ApplicationCommandData().Name]; ok {
			handler(i)
		}
	})

	bot.session = session
	return bot, nil
}

// Open connects to Discord and registers the slash commands in the guild.
func (bot *Bot) Open() error {
	if err := bot.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}

	for _, command := range botCommands {
		newCommand, err := bot.session.ApplicationCommandCreate(
			bot.cfg.ClientID,
			bot.cfg.GuildID,
			command,
		)
		if err != nil {
			return fmt.Errorf("create %v command: %w", command.Name, err)
		}
		bot.registeredCommands = append(bot.registeredCommands, newCommand)
		slog.Info("created command", "command", command.Name)
	}

	return nil
}

// Shutdown removes the registered commands and closes the session.
func (bot *Bot) Shutdown() {
	slog.Info("shutting down bot")

	for _, command := range bot.registeredCommands {
		err := bot.session.ApplicationCommandDelete(
			bot.cfg.ClientID,
			bot.cfg.GuildID,
			command.ID,
		)
		if err != nil {
			slog.Warn("failed to delete command", "command", command.Name, "err", err)
		} else {
			slog.Info("deleted command", "command", command.Name)
		}
	}
	bot.registeredCommands = nil

	if err := bot.session.Close(); err != nil {
		slog.Warn("failed to close discord session", "err", err)
	}
}

// OpenChannel fetches the announcement channel and checks that messages
// can be posted in it.
func (bot *Bot) OpenChannel(ctx context.Context, channelID string) (scheduler.Channel, error) {
	channel, err := bot.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetch channel %s: %w", channelID, err)
	}
	if !discordutils.IsTextChannel(channel) {
		return nil, fmt.Errorf("channel %s (%s) is not a text channel", channel.Name, channelID)
	}

	return &announcementChannel{id: channelID, session: bot.session}, nil
}

type announcementChannel struct {
	id      string
	session *discordgo.Session
}

// Send posts a message that may only ping the users it mentions.
func (c *announcementChannel) Send(ctx context.Context, content string) error {
	_, err := c.session.ChannelMessageSendComplex(
		c.id,
		&discordgo.MessageSend{
			Content: content,
			AllowedMentions: &discordgo.MessageAllowedMentions{
				Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers},
			},
		},
		discordgo.WithContext(ctx),
	)
	return err
}
