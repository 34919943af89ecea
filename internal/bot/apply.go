package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/09wizardguy/SignalBox/internal/application"
	commonerrors "github.com/09wizardguy/SignalBox/internal/common/errors"
	"github.com/09wizardguy/SignalBox/internal/common/metrics"
)

const lookupTimeout = 10 * time.Second

// handleShowApply posts the persistent application prompt. Moderators
// only; the prompt carries the button everyone else interacts with.
func (b *Bot) handleShowApply(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.isModerator(i) {
		b.respondEphemeral(s, i, "Only moderators can post the application prompt.")
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:       "🚂 Join the Community",
		Description: "Want to apply for membership? Click the button below and fill in the form. A moderator will review your application.",
		Color:       colorBlue,
	}

	_, err := s.ChannelMessageSendComplex(i.ChannelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Apply",
						Style:    discordgo.PrimaryButton,
						CustomID: customIDApplyButton,
					},
				},
			},
		},
	})
	if err != nil {
		b.log.WithError(err).Error("failed to post application prompt", nil)
		b.respondEphemeral(s, i, "Could not post the application prompt here.")
		return
	}

	b.respondEphemeral(s, i, "Application prompt posted.")
}

// handleApplyButton gates re-entry and opens the form modal.
func (b *Bot) handleApplyButton(s *discordgo.Session, i *discordgo.InteractionCreate) {
	user := interactionUser(i)
	metrics.CommandsHandled.WithLabelValues("apply", "component").Inc()

	if err := b.workflow.Begin(user.ID); err != nil {
		b.countFailure("apply", beginFailure(user.ID, err))
		b.respondEphemeral(s, i, beginErrorReply(err))
		return
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: customIDApplyModal,
			Title:    "Membership Application",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:    "minecraft_username_input",
							Label:       "Minecraft Username",
							Style:       discordgo.TextInputShort,
							Placeholder: "e.g. Notch",
							Required:    true,
							MaxLength:   16,
						},
					},
				},
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:  "reason_input",
							Label:     "Why do you want to join?",
							Style:     discordgo.TextInputParagraph,
							Required:  true,
							MaxLength: 1000,
						},
					},
				},
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:  "experience_input",
							Label:     "Tell us about your Minecraft experience",
							Style:     discordgo.TextInputParagraph,
							Required:  true,
							MaxLength: 1000,
						},
					},
				},
			},
		},
	})
	if err != nil {
		b.log.WithError(err).Error("failed to open application modal", map[string]interface{}{
			"userId": user.ID,
		})
	}
}

func beginErrorReply(err error) string {
	switch {
	case errors.Is(err, application.ErrAlreadyPending):
		return "You already have an application pending review."
	case errors.Is(err, application.ErrAlreadyApproved):
		return "Your application was already approved."
	case errors.Is(err, application.ErrAlreadyRejected):
		return "Your application was rejected. Contact a moderator if you think this is a mistake."
	default:
		return "Could not start an application right now."
	}
}

// beginFailure classifies a blocked re-application for the failure log.
func beginFailure(userID string, err error) *commonerrors.StandardError {
	switch {
	case errors.Is(err, application.ErrAlreadyApproved):
		return commonerrors.NewDuplicateApplicationError(userID, string(application.StatusApproved))
	case errors.Is(err, application.ErrAlreadyRejected):
		return commonerrors.NewDuplicateApplicationError(userID, string(application.StatusRejected))
	default:
		return commonerrors.NewDuplicateApplicationError(userID, string(application.StatusPending))
	}
}

// handleApplyModal stages the submitted form and asks the one remaining
// question with a select menu.
func (b *Bot) handleApplyModal(s *discordgo.Session, i *discordgo.InteractionCreate) {
	user := interactionUser(i)
	data := i.ModalSubmitData()

	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()

	form := b.workflow.Stage(ctx,
		user.ID,
		modalValue(data, "minecraft_username_input"),
		modalValue(data, "reason_input"),
		modalValue(data, "experience_input"),
	)

	verified := "⚠️ We couldn't verify that Minecraft account. You can still submit, but you won't be whitelisted automatically."
	if form.IsValidMinecraftAccount {
		verified = fmt.Sprintf("✅ Minecraft account **%s** verified.", form.MinecraftUsername)
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: verified + "\n\nOne last question:",
			Flags:   discordgo.MessageFlagsEphemeral,
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.SelectMenu{
							MenuType:    discordgo.StringSelectMenu,
							CustomID:    prefixTrainSelect + user.ID,
							Placeholder: "Do you like trains?",
							Options: []discordgo.SelectMenuOption{
								{Label: "Yes, I love trains!", Value: "Yes"},
								{Label: "They're alright", Value: "Somewhat"},
								{Label: "Not really", Value: "No"},
							},
						},
					},
				},
			},
		},
	})
	if err != nil {
		b.log.WithError(err).Error("failed to respond to application modal", map[string]interface{}{
			"userId": user.ID,
		})
	}
}

// handleTrainSelect finalizes the staged application and posts it for
// moderator review.
func (b *Bot) handleTrainSelect(s *discordgo.Session, i *discordgo.InteractionCreate) {
	user := interactionUser(i)

	// The customID carries the applicant id; only the applicant's own
	// ephemeral select can reach here, but verify anyway.
	if strings.TrimPrefix(i.MessageComponentData().CustomID, prefixTrainSelect) != user.ID {
		b.respondEphemeral(s, i, "This form isn't yours.")
		return
	}

	values := i.MessageComponentData().Values
	likeTrains := "No"
	if len(values) > 0 {
		likeTrains = values[0]
	}

	app, err := b.workflow.Finalize(user.ID, user.Username, likeTrains)
	if err != nil {
		b.countFailure("apply", commonerrors.NewStagingNotFoundError(user.ID))
		b.respondEphemeral(s, i, "Your application session expired. Please click **Apply** and start over.")
		return
	}

	b.postForReview(s, app)

	done := "Your application has been submitted! A moderator will review it soon."
	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    done,
			Components: []discordgo.MessageComponent{},
		},
	})
	if err != nil {
		b.log.WithError(err).Warn("failed to acknowledge application submit", nil)
	}
}

// postForReview sends the review embed with the decision buttons and
// records the message id on the application.
func (b *Bot) postForReview(s *discordgo.Session, app application.Application) {
	channelID := b.cfg.Discord.ReviewChannelID
	if channelID == "" {
		b.log.Warn("no review channel configured, application awaits /listapplications", map[string]interface{}{
			"userId": app.UserID,
		})
		return
	}

	msg, err := s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{reviewEmbed(app)},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Approve",
						Style:    discordgo.SuccessButton,
						CustomID: prefixApproveButton + app.UserID,
					},
					discordgo.Button{
						Label:    "Reject",
						Style:    discordgo.DangerButton,
						CustomID: prefixRejectButton + app.UserID,
					},
				},
			},
		},
	})
	if err != nil {
		b.log.WithError(err).Error("failed to post application for review", map[string]interface{}{
			"userId": app.UserID,
		})
		return
	}

	b.workflow.SetMessageID(app.UserID, msg.ID)
}

func reviewEmbed(app application.Application) *discordgo.MessageEmbed {
	verified := "No ⚠️"
	if app.IsValidMinecraftAccount {
		verified = "Yes ✅"
	}

	return &discordgo.MessageEmbed{
		Title: "📋 New Membership Application",
		Color: colorYellow,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Applicant", Value: fmt.Sprintf("<@%s> (%s)", app.UserID, app.Username), Inline: true},
			{Name: "Minecraft Username", Value: orDash(app.MinecraftUsername), Inline: true},
			{Name: "Account Verified", Value: verified, Inline: true},
			{Name: "Why they want to join", Value: orDash(app.Reason)},
			{Name: "Experience", Value: orDash(app.Experience)},
			{Name: "Likes Trains", Value: orDash(app.LikeTrains), Inline: true},
			{Name: "Submitted", Value: fmt.Sprintf("<t:%d:R>", app.CreatedAt/1000), Inline: true},
		},
	}
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

// modalValue digs the named text input out of the modal payload.
func modalValue(data discordgo.ModalSubmitInteractionData, customID string) string {
	for _, row := range data.Components {
		actions, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, comp := range actions.Components {
			input, ok := comp.(*discordgo.TextInput)
			if ok && input.CustomID == customID {
				return strings.TrimSpace(input.Value)
			}
		}
	}
	return ""
}
