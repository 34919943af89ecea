package bot

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

func (b *Bot) handlePing(s *discordgo.Session, i *discordgo.InteractionCreate) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: fmt.Sprintf("Pong! 🏓 (%dms)", s.HeartbeatLatency().Milliseconds()),
		},
	})
	if err != nil {
		b.log.WithError(err).Warn("failed to respond to ping", nil)
	}
}

func (b *Bot) handleServerInfo(s *discordgo.Session, i *discordgo.InteractionCreate) {
	b.respondEphemeral(s, i, b.serverInfo(s, i.GuildID))
}

func (b *Bot) serverInfo(s *discordgo.Session, guildID string) string {
	if guildID == "" {
		return "This command can only be used in a server."
	}

	guild, err := s.State.Guild(guildID)
	if err != nil {
		guild, err = s.Guild(guildID)
	}
	if err != nil {
		b.log.WithError(err).Warn("failed to fetch guild info", map[string]interface{}{
			"guildId": guildID,
		})
		return "Could not fetch server information."
	}

	return formatServerInfo(guild.Name, guild.MemberCount)
}

func formatServerInfo(name string, members int) string {
	return fmt.Sprintf("🏰 Server: **%s**\n👥 Members: %d", name, members)
}

func (b *Bot) handleUserInfo(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		b.respondEphemeral(s, i, "This command can only be used in a server.")
		return
	}

	target := interactionUser(i).ID
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "target" {
			target = opt.StringValue()
		}
	}

	embed, err := b.userEmbed(s, i.GuildID, target)
	if err != nil {
		b.respondEphemeral(s, i, fmt.Sprintf("Could not find a user for input: %s", target))
		return
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
	if err != nil {
		b.log.WithError(err).Warn("failed to respond with user info", nil)
	}
}

// userEmbed builds the user-info card for a mention, raw id, or absent
// input (the invoker). Falls back from guild member to plain user so it
// also works for people who are not in the server.
func (b *Bot) userEmbed(s *discordgo.Session, guildID, input string) (*discordgo.MessageEmbed, error) {
	userID := parseUserID(input)

	var user *discordgo.User
	member, err := s.GuildMember(guildID, userID)
	if err == nil {
		user = member.User
	} else {
		member = nil
		if user, err = s.User(userID); err != nil {
			return nil, err
		}
	}

	created, _ := discordgo.SnowflakeTimestamp(user.ID)

	inServer, joined, roles := "No", "N/A", "N/A"
	if member != nil {
		inServer = "Yes"
		joined = fmt.Sprintf("<t:%d:R>", member.JoinedAt.Unix())
		roles = b.roleNames(s, guildID, member.Roles)
	}

	return &discordgo.MessageEmbed{
		Title:     "User Info: " + user.Username,
		Color:     colorBlue,
		Thumbnail: &discordgo.MessageEmbedThumbnail{URL: user.AvatarURL("")},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Mention", Value: fmt.Sprintf("<@%s>", user.ID), Inline: true},
			{Name: "User ID", Value: user.ID, Inline: true},
			{Name: "Account Created", Value: fmt.Sprintf("<t:%d:R>", created.Unix()), Inline: true},
			{Name: "In Server?", Value: inServer, Inline: true},
			{Name: "Joined Server", Value: joined, Inline: true},
			{Name: "Roles", Value: roles},
		},
	}, nil
}

func (b *Bot) roleNames(s *discordgo.Session, guildID string, roleIDs []string) string {
	if len(roleIDs) == 0 {
		return "No roles"
	}

	guild, err := s.State.Guild(guildID)
	if err != nil {
		return fmt.Sprintf("%d role(s)", len(roleIDs))
	}

	byID := make(map[string]string, len(guild.Roles))
	for _, role := range guild.Roles {
		byID[role.ID] = role.Name
	}

	names := make([]string, 0, len(roleIDs))
	for _, id := range roleIDs {
		if name, ok := byID[id]; ok {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "No roles"
	}
	return strings.Join(names, ", ")
}

// parseUserID strips mention decoration, leaving the bare snowflake.
func parseUserID(input string) string {
	return strings.NewReplacer("<", "", ">", "", "@", "", "!", "").Replace(strings.TrimSpace(input))
}
