// Package perms holds the permission checks shared by command handlers:
// caller permission bits, moderator/admin shorthands, and the role
// hierarchy comparison used before acting on another member.
package perms

import (
	"github.com/bwmarrin/discordgo"
)

// Has reports whether the invoking member holds the permission bit in the
// channel the interaction came from. DM interactions carry no member and
// never pass.
func Has(i *discordgo.InteractionCreate, perm int64) bool {
	return i.Member != nil && i.Member.Permissions&perm == perm
}

// IsMod reports whether the member can perform day-to-day moderation:
// kick, ban or manage messages. Administrators always pass.
func IsMod(i *discordgo.InteractionCreate) bool {
	return Has(i, discordgo.PermissionAdministrator) ||
		Has(i, discordgo.PermissionKickMembers) ||
		Has(i, discordgo.PermissionBanMembers) ||
		Has(i, discordgo.PermissionManageMessages)
}

// IsAdmin reports whether the member administers the guild.
func IsAdmin(i *discordgo.InteractionCreate) bool {
	return Has(i, discordgo.PermissionAdministrator) ||
		Has(i, discordgo.PermissionManageGuild)
}

// BotCanSend reports whether the bot may send messages in the channel.
func BotCanSend(s *discordgo.Session, channelID string) bool {
	if s.State == nil || s.State.User == nil {
		return false
	}
	p, err := s.State.UserChannelPermissions(s.State.User.ID, channelID)
	if err != nil {
		// Outside the state cache; let the REST call be the judge.
		return true
	}
	return p&discordgo.PermissionSendMessages == discordgo.PermissionSendMessages
}

// TopRolePosition returns the highest role position held by the member.
func TopRolePosition(s *discordgo.Session, guildID string, roleIDs []string) int {
	guild, err := s.State.Guild(guildID)
	if err != nil {
		return 0
	}
	top := 0
	for _, r := range guild.Roles {
		for _, id := range roleIDs {
			if r.ID == id && r.Position > top {
				top = r.Position
			}
		}
	}
	return top
}

// CallerOutranks reports whether the invoking member sits above the target
// in the role hierarchy. The guild owner outranks everyone.
func CallerOutranks(s *discordgo.Session, i *discordgo.InteractionCreate, target *discordgo.Member) bool {
	guild, err := s.State.Guild(i.GuildID)
	if err == nil && i.Member != nil && i.Member.User != nil && guild.OwnerID == i.Member.User.ID {
		return true
	}
	if i.Member == nil || target == nil {
		return false
	}
	return TopRolePosition(s, i.GuildID, i.Member.Roles) > TopRolePosition(s, i.GuildID, target.Roles)
}

// BotOutranks reports whether the bot's top role sits above the target's.
func BotOutranks(s *discordgo.Session, guildID string, target *discordgo.Member) bool {
	if s.State == nil || s.State.User == nil || target == nil {
		return false
	}
	me, err := s.State.Member(guildID, s.State.User.ID)
	if err != nil {
		return false
	}
	return TopRolePosition(s, guildID, me.Roles) > TopRolePosition(s, guildID, target.Roles)
}

// BotOutranksRole reports whether the bot's top role sits above role.
func BotOutranksRole(s *discordgo.Session, guildID string, role *discordgo.Role) bool {
	if s.State == nil || s.State.User == nil || role == nil {
		return false
	}
	me, err := s.State.Member(guildID, s.State.User.ID)
	if err != nil {
		return false
	}
	return TopRolePosition(s, guildID, me.Roles) > role.Position
}
