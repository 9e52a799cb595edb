package bot

import (
	"birthdaybot/discordutils"
	"birthdaybot/scheduler"
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// SyncBirthdayRole gives the birthday role to the given members and takes
// it away from everyone else in the guild.
func (bot *Bot) SyncBirthdayRole(ctx context.Context, memberIDs []string) {
	members, err := discordutils.GuildMembers(ctx, bot.cfg.GuildID, bot.session)
	if err != nil {
		slog.Error("failed to fetch guild members for role sync", "guild", bot.cfg.GuildID, "err", err)
		return
	}

	gain, lose := discordutils.RoleChanges(bot.cfg.BirthdayRoleID, members, memberIDs)

	failed := discordutils.RemoveRoleFromMembers(ctx, bot.cfg.GuildID, bot.cfg.BirthdayRoleID, lose, bot.session)
	failed += discordutils.AddRoleToMembers(ctx, bot.cfg.GuildID, bot.cfg.BirthdayRoleID, gain, bot.session)

	slog.Info(
		"synced birthday role",
		"role", bot.cfg.BirthdayRoleID,
		"gained", len(gain),
		"lost", len(lose),
		"failed", failed,
	)
}

// BirthdayRoleSyncer returns the bot as a role syncer when a usable
// birthday role is configured, or nil otherwise. Roles that grant
// administrator permissions are refused.
func (bot *Bot) BirthdayRoleSyncer(ctx context.Context) scheduler.RoleSyncer {
	if bot.cfg.BirthdayRoleID == "" {
		return nil
	}

	role, err := bot.birthdayRole(ctx)
	if err != nil {
		slog.Warn("birthday role disabled", "role", bot.cfg.BirthdayRoleID, "err", err)
		return nil
	}
	if discordutils.RoleAllowsAdminPermissions(role) {
		slog.Warn("birthday role disabled: it grants administrator permissions", "role", role.Name)
		return nil
	}

	slog.Info("birthday role enabled", "role", role.Name)
	return bot
}

func (bot *Bot) birthdayRole(ctx context.Context) (*discordgo.Role, error) {
	roles, err := bot.session.GuildRoles(bot.cfg.GuildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetch guild roles: %w", err)
	}

	for _, role := range roles {
		if role.ID == bot.cfg.BirthdayRoleID {
			return role, nil
		}
	}
	return nil, fmt.Errorf("role %s not found in guild %s", bot.cfg.BirthdayRoleID, bot.cfg.GuildID)
}
