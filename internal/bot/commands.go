package bot

import (
	"strings"

	"github.com/bwmarrin/discordgo"

	commonerrors "github.com/09wizardguy/SignalBox/internal/common/errors"
	"github.com/09wizardguy/SignalBox/internal/common/metrics"
)

const (
	colorGreen  = 0x57F287
	colorRed    = 0xED4245
	colorBlue   = 0x5865F2
	colorYellow = 0xFEE75C
)

const (
	customIDApplyButton = "application_apply"
	customIDApplyModal  = "application_modal"
	prefixTrainSelect   = "train_select_"
	prefixApproveButton = "approve_"
	prefixRejectButton  = "reject_"
)

func slashCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "remindme",
			Description: "Set a reminder, delivered by DM",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "duration",
					Description: "How long to wait, e.g. 1d12h30m",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "message",
					Description: "What to remind you about",
					Required:    false,
				},
			},
		},
		{
			Name:        "reminders",
			Description: "List your pending reminders",
		},
		{
			Name:        "delreminder",
			Description: "Delete one of your pending reminders",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "number",
					Description: "Reminder number, as shown by /reminders",
					Required:    true,
				},
			},
		},
		{
			Name:        "ping",
			Description: "Replies with Pong!",
		},
		{
			Name:        "server",
			Description: "Info about the server",
		},
		{
			Name:        "user",
			Description: "Provides information about a user",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "target",
					Description: "The user mention or ID to get info on",
					Required:    false,
				},
			},
		},
		{
			Name:        "showapply",
			Description: "Post the application prompt in this channel",
		},
		{
			Name:        "listapplications",
			Description: "List pending membership applications",
		},
	}
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.routeCommand(s, i)
	case discordgo.InteractionMessageComponent:
		b.routeComponent(s, i)
	case discordgo.InteractionModalSubmit:
		b.routeModal(s, i)
	}
}

func (b *Bot) routeCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	name := i.ApplicationCommandData().Name
	metrics.CommandsHandled.WithLabelValues(name, "slash").Inc()

	switch name {
	case "remindme":
		b.handleRemindMe(s, i)
	case "reminders":
		b.handleListReminders(s, i)
	case "delreminder":
		b.handleDeleteReminder(s, i)
	case "ping":
		b.handlePing(s, i)
	case "server":
		b.handleServerInfo(s, i)
	case "user":
		b.handleUserInfo(s, i)
	case "showapply":
		b.handleShowApply(s, i)
	case "listapplications":
		b.handleListApplications(s, i)
	}
}

func (b *Bot) routeComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	customID := i.MessageComponentData().CustomID

	switch {
	case customID == customIDApplyButton:
		b.handleApplyButton(s, i)
	case strings.HasPrefix(customID, prefixTrainSelect):
		b.handleTrainSelect(s, i)
	case strings.HasPrefix(customID, prefixApproveButton):
		b.handleDecision(s, i, strings.TrimPrefix(customID, prefixApproveButton), true)
	case strings.HasPrefix(customID, prefixRejectButton):
		b.handleDecision(s, i, strings.TrimPrefix(customID, prefixRejectButton), false)
	}
}

func (b *Bot) routeModal(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.ModalSubmitData().CustomID == customIDApplyModal {
		b.handleApplyModal(s, i)
	}
}

// countFailure counts a failed command and logs its classified error.
func (b *Bot) countFailure(command string, serr *commonerrors.StandardError) {
	metrics.CommandsFailed.WithLabelValues(command, string(serr.Code)).Inc()
	b.log.WithError(serr).Warn("command failed", map[string]interface{}{
		"command":   command,
		"category":  commonerrors.GetErrorCategory(serr.Code),
		"retryable": commonerrors.IsRetryableErrorCode(serr.Code),
	})
}

// interactionUser resolves the invoking user for both guild and DM
// interactions.
func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil {
		return i.Member.User
	}
	return i.User
}

func (b *Bot) respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.log.WithError(err).Warn("failed to respond to interaction", nil)
	}
}
