package bot

import "github.com/bwmarrin/discordgo"

// isModerator reports whether the invoking member carries the configured
// moderator role. DM interactions never qualify.
func (b *Bot) isModerator(i *discordgo.InteractionCreate) bool {
	if i.Member == nil {
		return false
	}

	roleID := b.cfg.Discord.ModeratorRoleID
	if roleID == "" {
		// Unconfigured deployments fall back to the administrator bit.
		return i.Member.Permissions&discordgo.PermissionAdministrator != 0
	}

	for _, r := range i.Member.Roles {
		if r == roleID {
			return true
		}
	}
	return false
}
