package discordutils

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// guildMembersPageSize is the largest page the members endpoint returns.
const guildMembersPageSize = 1000

// IsAdministrator returns true if the interaction member has admin permissions.
func IsAdministrator(member *discordgo.Member) bool {
	return member != nil && member.Permissions&discordgo.PermissionAdministrator != 0
}

// RoleAllowsAdminPermissions returns true if the given role allows admin permissions.
func RoleAllowsAdminPermissions(role *discordgo.Role) bool {
	return role.Permissions&discordgo.PermissionAdministrator != 0
}

// IsTextChannel returns true if messages can be posted in the channel.
func IsTextChannel(channel *discordgo.Channel) bool {
	if channel == nil {
		return false
	}

	switch channel.Type {
	case discordgo.ChannelTypeGuildText,
		discordgo.ChannelTypeGuildNews,
		discordgo.ChannelTypeGuildPublicThread,
		discordgo.ChannelTypeGuildPrivateThread,
		discordgo.ChannelTypeGuildNewsThread:
		return true
	}
	return false
}

// AckInteraction sends a deferred response that only the invoker can see.
func AckInteraction(
	interaction *discordgo.Interaction,
	session *discordgo.Session,
) error {
	return session.InteractionRespond(interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
}

// RespondEphemeral answers an interaction immediately with a private message.
func RespondEphemeral(
	content string,
	interaction *discordgo.Interaction,
	session *discordgo.Session,
) error {
	return session.InteractionRespond(interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

// EditReply replaces the deferred response with the given content and
// optional embed.
func EditReply(
	content string,
	embed *discordgo.MessageEmbed,
	interaction *discordgo.Interaction,
	session *discordgo.Session,
) error {
	edit := &discordgo.WebhookEdit{}
	if content != "" {
		edit.Content = &content
	}
	if embed != nil {
		embeds := []*discordgo.MessageEmbed{embed}
		edit.Embeds = &embeds
	}

	_, err := session.InteractionResponseEdit(interaction, edit)
	return err
}

// GuildMembers pages through every member of the guild.
func GuildMembers(
	ctx context.Context,
	guildID string,
	session *discordgo.Session,
) ([]*discordgo.Member, error) {
	var members []*discordgo.Member
	after := ""

	for {
		page, err := session.GuildMembers(guildID, after, guildMembersPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, err
		}

		members = append(members, page...)
		if len(page) < guildMembersPageSize {
			return members, nil
		}
		after = page[len(page)-1].User.ID
	}
}

// MemberHasRole returns true if the given member has the given role.
func MemberHasRole(member *discordgo.Member, roleID string) bool {
	for _, id := range member.Roles {
		if id == roleID {
			return true
		}
	}
	return false
}

// FindMembersWithRole filters the given list of members to include only those
// with the given role.
func FindMembersWithRole(
	roleID string,
	members []*discordgo.Member,
) (membersWithRole []*discordgo.Member) {
	for _, member := range members {
		if MemberHasRole(member, roleID) {
			membersWithRole = append(membersWithRole, member)
		}
	}
	return
}

// RoleChanges works out who should gain the role (listed members in
// memberIDs without it) and who should lose it (holders not in memberIDs).
func RoleChanges(
	roleID string,
	members []*discordgo.Member,
	memberIDs []string,
) (gain []string, lose []string) {
	wanted := make(map[string]bool, len(memberIDs))
	for _, id := range memberIDs {
		wanted[id] = true
	}

	for _, holder := range FindMembersWithRole(roleID, members) {
		if holder.User != nil && !wanted[holder.User.ID] {
			lose = append(lose, holder.User.ID)
		}
	}

	for _, member := range members {
		if member.User != nil && wanted[member.User.ID] && !MemberHasRole(member, roleID) {
			gain = append(gain, member.User.ID)
		}
	}
	return
}

// AddRoleToMembers adds the role to every given member. Failures are
// logged per member and counted.
func AddRoleToMembers(
	ctx context.Context,
	guildID string,
	roleID string,
	memberIDs []string,
	session *discordgo.Session,
) (failed int) {
	for _, memberID := range memberIDs {
		err := session.GuildMemberRoleAdd(guildID, memberID, roleID, discordgo.WithContext(ctx))
		if err != nil {
			failed++
			slog.Error("failed to add birthday role", "member", memberID, "role", roleID, "err", err)
		} else {
			slog.Info("added birthday role", "member", memberID, "role", roleID)
		}
	}
	return
}

// RemoveRoleFromMembers removes the role from every given member. Failures
// are logged per member and counted.
func RemoveRoleFromMembers(
	ctx context.Context,
	guildID string,
	roleID string,
	memberIDs []string,
	session *discordgo.Session,
) (failed int) {
	for _, memberID := range memberIDs {
		err := session.GuildMemberRoleRemove(guildID, memberID, roleID, discordgo.WithContext(ctx))
		if err != nil {
			failed++
			slog.Error("failed to remove birthday role", "member", memberID, "role", roleID, "err", err)
		} else {
			slog.Info("removed birthday role", "member", memberID, "role", roleID)
		}
	}
	return
}
