package bot

import (
	"birthdaybot/config"
	"birthdaybot/dal"
	"birthdaybot/models"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const guild = "guild-1"

func newTestBot(t *testing.T) (*Bot, *dal.Store) {
	store, err := dal.Open(filepath.Join(t.TempDir(), "birthdays.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return newBot(config.DiscordConfig{GuildID: guild}, store, time.UTC), store
}

func subcommand(name string, options ...*discordgo.ApplicationCommandInteractionDataOption) discordgo.ApplicationCommandInteractionData {
	return discordgo.ApplicationCommandInteractionData{
		Name: "birthday",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{{
			Name:    name,
			Type:    discordgo.ApplicationCommandOptionSubCommand,
			Options: options,
		}},
	}
}

func userOption(id string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  "user",
		Type:  discordgo.ApplicationCommandOptionUser,
		Value: id,
	}
}

func dateOption(date string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  "date",
		Type:  discordgo.ApplicationCommandOptionString,
		Value: date,
	}
}

func withUsers(data discordgo.ApplicationCommandInteractionData, users ...*discordgo.User) discordgo.ApplicationCommandInteractionData {
	data.Resolved = &discordgo.ApplicationCommandInteractionDataResolved{
		Users: make(map[string]*discordgo.User, len(users)),
	}
	for _, user := range users {
		data.Resolved.Users[user.ID] = user
	}
	return data
}

func TestAddBirthday(t *testing.T) {
	bot, store := newTestBot(t)
	ctx := context.Background()

	data := withUsers(
		subcommand("add", userOption("U1"), dateOption("15.05")),
		&discordgo.User{ID: "U1", Username: "alice"},
	)
	r := bot.runBirthdayCommand(ctx, guild, data)
	assert.Equal(t, "✅ Saved <@U1>'s birthday as 15.05.", r.content)

	birthdays, err := store.ListAll(ctx, guild)
	require.NoError(t, err)
	require.Len(t, birthdays, 1)
	assert.Equal(t, "alice", birthdays[0].DisplayName)
	assert.Equal(t, "15.05", birthdays[0].BirthDate)
}

func TestAddBirthdayOverwrites(t *testing.T) {
	bot, store := newTestBot(t)
	ctx := context.Background()

	bot.runBirthdayCommand(ctx, guild, subcommand("add", userOption("U1"), dateOption("15.05")))
	r := bot.runBirthdayCommand(ctx, guild, subcommand("add", userOption("U1"), dateOption("16.05")))
	assert.Equal(t, "✅ Saved <@U1>'s birthday as 16.05.", r.content)

	birthdays, err := store.ListAll(ctx, guild)
	require.NoError(t, err)
	require.Len(t, birthdays, 1)
	assert.Equal(t, "16.05", birthdays[0].BirthDate)
	assert.Equal(t, "U1", birthdays[0].DisplayName)
}

func TestAddBirthdayRejectsBadDates(t *testing.T) {
	bot, store := newTestBot(t)
	ctx := context.Background()

	for _, date := range []string{"5.5", "15/05", "2024-05-15", "00.13", "", " 15.05", "15.05 "} {
		r := bot.runBirthdayCommand(ctx, guild, subcommand("add", userOption("U1"), dateOption(date)))
		assert.Equal(t, invalidDateReply, r.content, date)
	}

	birthdays, err := store.ListAll(ctx, guild)
	require.NoError(t, err)
	assert.Empty(t, birthdays)
}

func TestRemoveBirthday(t *testing.T) {
	bot, store := newTestBot(t)
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, "U1", "alice", "15.05", guild))

	r := bot.runBirthdayCommand(ctx, guild, subcommand("remove", userOption("U1")))
	assert.Equal(t, "✅ Removed <@U1> from the birthday list.", r.content)

	r = bot.runBirthdayCommand(ctx, guild, subcommand("remove", userOption("U1")))
	assert.Equal(t, "❌ <@U1> is not on the birthday list.", r.content)
}

func TestListBirthdays(t *testing.T) {
	bot, store := newTestBot(t)
	ctx := context.Background()

	r := bot.runBirthdayCommand(ctx, guild, subcommand("list"))
	require.NotNil(t, r.embed)
	assert.Equal(t, emptyListText, r.embed.Description)

	require.NoError(t, store.Upsert(ctx, "U1", "alice", "15.01", guild))
	require.NoError(t, store.Upsert(ctx, "U2", "bob", "05.12", guild))
	require.NoError(t, store.Upsert(ctx, "U3", "carol", "01.01", "other-guild"))

	r = bot.runBirthdayCommand(ctx, guild, subcommand("list"))
	require.NotNil(t, r.embed)
	assert.Equal(t, "• <@U2> — 05.12\n• <@U1> — 15.01", r.embed.Description)
	assert.Equal(t, listTitle, r.embed.Title)
}

func TestNextBirthday(t *testing.T) {
	bot, store := newTestBot(t)
	ctx := context.Background()
	bot.now = func() time.Time { return time.Date(2026, time.May, 17, 12, 0, 0, 0, time.UTC) }

	r := bot.runBirthdayCommand(ctx, guild, subcommand("next"))
	assert.Equal(t, noBirthdaysReply, r.content)

	require.NoError(t, store.Upsert(ctx, "U1", "alice", "15.05", guild))
	require.NoError(t, store.Upsert(ctx, "U2", "bob", "20.05", guild))
	require.NoError(t, store.Upsert(ctx, "U3", "carol", "20.05", guild))
	require.NoError(t, store.Upsert(ctx, "U4", "dave", "31.02", guild))

	r = bot.runBirthdayCommand(ctx, guild, subcommand("next"))
	assert.Contains(t, r.content, "<@U2>, <@U3> on 20.05")
	assert.Contains(t, r.content, "from now")

	require.NoError(t, store.Upsert(ctx, "U5", "erin", "17.05", guild))
	r = bot.runBirthdayCommand(ctx, guild, subcommand("next"))
	assert.Equal(t, "🎂 Next birthday: <@U5> on 17.05 (today 🎉).", r.content)
}

func TestNextBirthdayWrapsToNextYear(t *testing.T) {
	now := time.Date(2026, time.December, 31, 23, 0, 0, 0, time.UTC)
	next, when, ok := upcoming([]models.Birthday{
		{MemberID: "U1", BirthDate: "01.01"},
		{MemberID: "U2", BirthDate: "30.12"},
	}, now)

	require.True(t, ok)
	require.Len(t, next, 1)
	assert.Equal(t, "U1", next[0].MemberID)
	assert.Equal(t, 2027, when.Year())
}

func TestRunBirthdayCommandRecoversFromPanics(t *testing.T) {
	bot, _ := newTestBot(t)

	// add without a date option
	r := bot.runBirthdayCommand(context.Background(), guild, subcommand("add", userOption("U1")))
	assert.Equal(t, genericErrorReply, r.content)
}

func TestRunBirthdayCommandUnknownSubcommand(t *testing.T) {
	bot, _ := newTestBot(t)

	r := bot.runBirthdayCommand(context.Background(), guild, subcommand("purge"))
	assert.Equal(t, unknownOptionReply, r.content)

	r = bot.runBirthdayCommand(context.Background(), guild, discordgo.ApplicationCommandInteractionData{Name: "birthday"})
	assert.Equal(t, unknownOptionReply, r.content)
}

func TestStorageFailureReplies(t *testing.T) {
	bot, store := newTestBot(t)
	require.NoError(t, store.Close())

	r := bot.runBirthdayCommand(context.Background(), guild, subcommand("add", userOption("U1"), dateOption("15.05")))
	assert.Equal(t, storageErrorReply, r.content)

	assert.Equal(t, busyReply, storageFailure(errors.Join(errors.New("upsert"), dal.ErrBusy)))
}

func TestCommandsOutsideAServer(t *testing.T) {
	bot, store := newTestBot(t)
	ctx := context.Background()

	r := bot.runBirthdayCommand(ctx, "", subcommand("add", userOption("U1"), dateOption("15.05")))
	assert.Equal(t, noServerReply, r.content)

	r = bot.runBirthdayCommand(ctx, "", subcommand("list"))
	assert.Equal(t, noServerReply, r.content)

	birthdays, err := store.ListAll(ctx, guild)
	require.NoError(t, err)
	assert.Empty(t, birthdays)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "U1", displayName(&discordgo.User{ID: "U1"}))
	assert.Equal(t, "alice", displayName(&discordgo.User{ID: "U1", Username: "alice", Discriminator: "0"}))
	assert.Equal(t, "bob#1234", displayName(&discordgo.User{ID: "U2", Username: "bob", Discriminator: "1234"}))
}
