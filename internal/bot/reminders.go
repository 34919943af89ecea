package bot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	commonerrors "github.com/09wizardguy/SignalBox/internal/common/errors"
	"github.com/09wizardguy/SignalBox/internal/reminder"
)

func (b *Bot) handleRemindMe(s *discordgo.Session, i *discordgo.InteractionCreate) {
	user := interactionUser(i)

	var durationText, message string
	for _, opt := range i.ApplicationCommandData().Options {
		switch opt.Name {
		case "duration":
			durationText = opt.StringValue()
		case "message":
			message = opt.StringValue()
		}
	}

	b.respondEphemeral(s, i, b.scheduleReminder(user.ID, durationText, message))
}

func (b *Bot) handleListReminders(s *discordgo.Session, i *discordgo.InteractionCreate) {
	b.respondEphemeral(s, i, b.formatReminderList(interactionUser(i).ID))
}

func (b *Bot) handleDeleteReminder(s *discordgo.Session, i *discordgo.InteractionCreate) {
	var number int64
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "number" {
			number = opt.IntValue()
		}
	}

	b.respondEphemeral(s, i, b.deleteReminder(interactionUser(i).ID, int(number)))
}

// scheduleReminder is shared by the slash and text surfaces; it returns
// the user-facing reply.
func (b *Bot) scheduleReminder(userID, durationText, message string) string {
	delay, err := b.reminders.Schedule(userID, durationText, message, b.deliverReminder)
	if err != nil {
		if errors.Is(err, reminder.ErrInvalidDuration) {
			b.countFailure("remindme", commonerrors.NewInvalidDurationError(durationText))
			return "Invalid duration. Use units like `30s`, `10m`, `2h`, `1d` or `1w`, e.g. `1d12h30m`."
		}
		b.log.WithError(err).Error("failed to schedule reminder", map[string]interface{}{
			"userId": userID,
		})
		return "Something went wrong scheduling that reminder."
	}

	return fmt.Sprintf("Got it! I'll remind you in **%s**.", formatDelay(delay.Milliseconds()))
}

func (b *Bot) formatReminderList(userID string) string {
	entries := b.reminders.List(userID)
	if len(entries) == 0 {
		return "You have no pending reminders."
	}

	var sb strings.Builder
	sb.WriteString("**Your reminders:**\n")
	for n, e := range entries {
		fmt.Fprintf(&sb, "%d. %s — <t:%d:R>\n", n+1, e.Message, e.ExpiresAt/1000)
	}
	return sb.String()
}

// deleteReminder takes a 1-based number as shown by the listing.
func (b *Bot) deleteReminder(userID string, number int) string {
	if !b.reminders.Delete(userID, number-1) {
		b.countFailure("delreminder", commonerrors.NewInvalidIndexError(number))
		return fmt.Sprintf("No reminder **#%d** found. Check `/reminders` for the numbering.", number)
	}
	return fmt.Sprintf("Reminder **#%d** deleted.", number)
}

// formatDelay renders a millisecond span the same way durations are
// written: largest unit first, zero components skipped.
func formatDelay(ms int64) string {
	units := []struct {
		label string
		ms    int64
	}{
		{"w", 7 * 24 * 3600 * 1000},
		{"d", 24 * 3600 * 1000},
		{"h", 3600 * 1000},
		{"m", 60 * 1000},
		{"s", 1000},
	}

	var sb strings.Builder
	for _, u := range units {
		if n := ms / u.ms; n > 0 {
			fmt.Fprintf(&sb, "%d%s", n, u.label)
			ms -= n * u.ms
		}
	}
	if sb.Len() == 0 {
		return "0s"
	}
	return sb.String()
}
