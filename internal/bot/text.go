package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/09wizardguy/SignalBox/internal/common/metrics"
)

// onMessageCreate serves the prefix text surface for the reminder
// commands. Replies go to the channel the command came from.
func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	prefix := b.cfg.Discord.TextCommandPrefix
	if prefix == "" || !strings.HasPrefix(m.Content, prefix) {
		return
	}

	fields := strings.Fields(strings.TrimPrefix(m.Content, prefix))
	if len(fields) == 0 {
		return
	}
	command, args := strings.ToLower(fields[0]), fields[1:]

	var reply string
	switch command {
	case "remindme":
		if len(args) == 0 {
			reply = "Usage: `" + prefix + "remindme <duration> [message]`"
			break
		}
		reply = b.scheduleReminder(m.Author.ID, args[0], strings.Join(args[1:], " "))
	case "reminders":
		reply = b.formatReminderList(m.Author.ID)
	case "delreminder":
		if len(args) == 0 {
			reply = "Usage: `" + prefix + "delreminder <number>`"
			break
		}
		number, err := strconv.Atoi(args[0])
		if err != nil {
			reply = "That's not a number. Check `" + prefix + "reminders` for the numbering."
			break
		}
		reply = b.deleteReminder(m.Author.ID, number)
	case "server":
		reply = b.serverInfo(s, m.GuildID)
	case "user":
		if m.GuildID == "" {
			reply = "This command can only be used in a server."
			break
		}
		target := m.Author.ID
		if len(args) > 0 {
			target = args[0]
		}
		embed, err := b.userEmbed(s, m.GuildID, target)
		if err != nil {
			reply = fmt.Sprintf("Could not find a user for input: %s", target)
			break
		}
		metrics.CommandsHandled.WithLabelValues(command, "text").Inc()
		if _, err := s.ChannelMessageSendEmbed(m.ChannelID, embed); err != nil {
			b.log.WithError(err).Warn("failed to send user info", nil)
		}
		return
	default:
		return
	}

	metrics.CommandsHandled.WithLabelValues(command, "text").Inc()

	if _, err := s.ChannelMessageSendReply(m.ChannelID, reply, m.Reference()); err != nil {
		b.log.WithError(err).Warn("failed to reply to text command", map[string]interface{}{
			"command": command,
		})
	}
}
