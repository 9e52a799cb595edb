package bot

import (
	"birthdaybot/dal"
	"birthdaybot/discordutils"
	"birthdaybot/models"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
)

// commandTimeout bounds the store work behind a single command.
const commandTimeout = 10 * time.Second

const (
	adminOnlyReply     = "❌ Only administrators can manage birthdays."
	invalidDateReply   = "❌ Use the " + models.BirthDateFormat + " format, for example " + models.BirthDateExample + "."
	busyReply          = "⚠️ The birthday database is busy. Please try again in a moment."
	storageErrorReply  = "⚠️ I couldn't reach the birthday database. Please try again later."
	genericErrorReply  = "⚠️ Something went wrong."
	unknownOptionReply = "❌ Unknown birthday command."
	noServerReply      = "❌ Birthdays can only be managed inside a server."
	noBirthdaysReply   = "Nobody has a birthday saved yet."
)

type reply struct {
	content string
	embed   *discordgo.MessageEmbed
}

// Birthday handles the /birthday command and its subcommands. Replies
// are only visible to the invoking administrator.
func (bot *Bot) Birthday(i *discordgo.InteractionCreate) {
	if !discordutils.IsAdministrator(i.Member) {
		if err := discordutils.RespondEphemeral(adminOnlyReply, i.Interaction, bot.session); err != nil {
			slog.Warn("failed to reject non-admin", "err", err)
		}
		return
	}

	if err := discordutils.AckInteraction(i.Interaction, bot.session); err != nil {
		slog.Error("failed to acknowledge interaction", "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	r := bot.runBirthdayCommand(ctx, i.GuildID, i.ApplicationCommandData())

	if err := discordutils.EditReply(r.content, r.embed, i.Interaction, bot.session); err != nil {
		slog.Error("failed to send command reply", "err", err)
	}
}

// runBirthdayCommand executes a /birthday subcommand. A panic anywhere in
// the handler becomes a generic failure reply.
func (bot *Bot) runBirthdayCommand(
	ctx context.Context,
	scopeID string,
	data discordgo.ApplicationCommandInteractionData,
) (r reply) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("birthday command panicked", "panic", fmt.Sprint(rec))
			r = reply{content: genericErrorReply}
		}
	}()

	if len(data.Options) == 0 {
		return reply{content: unknownOptionReply}
	}

	sub := data.Options[0]
	switch sub.Name {
	case "add":
		user := resolveUser(data, option(sub, "user"))
		return bot.addBirthday(ctx, scopeID, user, option(sub, "date").StringValue())
	case "remove":
		user := resolveUser(data, option(sub, "user"))
		return bot.removeBirthday(ctx, scopeID, user)
	case "list":
		return bot.listBirthdays(ctx, scopeID)
	case "next":
		return bot.nextBirthday(ctx, scopeID)
	}

	return reply{content: unknownOptionReply}
}

func (bot *Bot) addBirthday(
	ctx context.Context,
	scopeID string,
	user *discordgo.User,
	date string,
) reply {
	err := bot.store.Upsert(ctx, user.ID, displayName(user), date, scopeID)
	switch {
	case errors.Is(err, models.ErrInvalidFormat):
		return reply{content: invalidDateReply}
	case err != nil:
		slog.Error("failed to save birthday", "member", user.ID, "scope", scopeID, "err", err)
		return reply{content: storageFailure(err)}
	}

	slog.Info("saved birthday", "member", user.ID, "scope", scopeID, "date", date)
	return reply{content: fmt.Sprintf("✅ Saved %v's birthday as %v.", user.Mention(), date)}
}

func (bot *Bot) removeBirthday(
	ctx context.Context,
	scopeID string,
	user *discordgo.User,
) reply {
	removed, err := bot.store.Remove(ctx, user.ID, scopeID)
	if err != nil {
		slog.Error("failed to remove birthday", "member", user.ID, "scope", scopeID, "err", err)
		return reply{content: storageFailure(err)}
	}

	if !removed {
		return reply{content: fmt.Sprintf("❌ %v is not on the birthday list.", user.Mention())}
	}

	slog.Info("removed birthday", "member", user.ID, "scope", scopeID)
	return reply{content: fmt.Sprintf("✅ Removed %v from the birthday list.", user.Mention())}
}

func (bot *Bot) listBirthdays(ctx context.Context, scopeID string) reply {
	birthdays, err := bot.store.ListAll(ctx, scopeID)
	if err != nil {
		slog.Error("failed to list birthdays", "scope", scopeID, "err", err)
		return reply{content: storageFailure(err)}
	}

	return reply{embed: listEmbed(birthdays)}
}

func (bot *Bot) nextBirthday(ctx context.Context, scopeID string) reply {
	birthdays, err := bot.store.ListAll(ctx, scopeID)
	if err != nil {
		slog.Error("failed to list birthdays", "scope", scopeID, "err", err)
		return reply{content: storageFailure(err)}
	}

	now := bot.now().In(bot.location)
	next, when, ok := upcoming(birthdays, now)
	if !ok {
		return reply{content: noBirthdaysReply}
	}

	mentions := make([]string, len(next))
	for i, birthday := range next {
		mentions[i] = birthday.Mention()
	}

	distance := humanize.RelTime(when, now, "ago", "from now")
	if models.BirthDateOf(when) == models.BirthDateOf(now) && when.Year() == now.Year() {
		distance = "today 🎉"
	}

	return reply{content: fmt.Sprintf(
		"🎂 Next birthday: %v on %v (%v).",
		strings.Join(mentions, ", "),
		next[0].BirthDate,
		distance,
	)}
}

// upcoming returns the birthdays sharing the nearest next occurrence.
func upcoming(birthdays []models.Birthday, now time.Time) ([]models.Birthday, time.Time, bool) {
	var next []models.Birthday
	var when time.Time

	for _, birthday := range birthdays {
		at, ok := models.BirthDate(birthday.BirthDate).Next(now)
		if !ok {
			continue
		}

		switch {
		case next == nil || at.Before(when):
			next = []models.Birthday{birthday}
			when = at
		case at.Equal(when):
			next = append(next, birthday)
		}
	}

	return next, when, next != nil
}

func storageFailure(err error) string {
	switch {
	case errors.Is(err, dal.ErrEmptyScope):
		return noServerReply
	case errors.Is(err, dal.ErrBusy):
		return busyReply
	}
	return storageErrorReply
}

func option(
	parent *discordgo.ApplicationCommandInteractionDataOption,
	name string,
) *discordgo.ApplicationCommandInteractionDataOption {
	for _, opt := range parent.Options {
		if opt.Name == name {
			return opt
		}
	}
	panic(fmt.Sprintf("missing %q option for %q", name, parent.Name))
}

// resolveUser prefers the resolved user data Discord sends with the
// interaction, which carries the username.
func resolveUser(
	data discordgo.ApplicationCommandInteractionData,
	opt *discordgo.ApplicationCommandInteractionDataOption,
) *discordgo.User {
	user := opt.UserValue(nil)
	if data.Resolved != nil {
		if resolved, ok := data.Resolved.Users[user.ID]; ok {
			return resolved
		}
	}
	return user
}

func displayName(user *discordgo.User) string {
	if user.Username == "" {
		return user.ID
	}
	if user.Discriminator != "" && user.Discriminator != "0" {
		return user.Username + "#" + user.Discriminator
	}
	return user.Username
}
