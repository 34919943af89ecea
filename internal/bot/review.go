package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/09wizardguy/SignalBox/internal/application"
	commonerrors "github.com/09wizardguy/SignalBox/internal/common/errors"
	"github.com/09wizardguy/SignalBox/internal/common/metrics"
)

const decisionTimeout = 15 * time.Second

// handleDecision resolves an approve/reject button press on a review
// message.
func (b *Bot) handleDecision(s *discordgo.Session, i *discordgo.InteractionCreate, applicantID string, approve bool) {
	if !b.isModerator(i) {
		b.respondEphemeral(s, i, "Only moderators can decide applications.")
		return
	}

	moderator := interactionUser(i)
	surface := "reject"
	if approve {
		surface = "approve"
	}
	metrics.CommandsHandled.WithLabelValues(surface, "component").Inc()

	ctx, cancel := context.WithTimeout(context.Background(), decisionTimeout)
	defer cancel()

	if approve {
		b.approve(ctx, s, i, applicantID, moderator)
	} else {
		b.reject(ctx, s, i, applicantID, moderator)
	}
}

func (b *Bot) approve(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, applicantID string, moderator *discordgo.User) {
	decision, err := b.workflow.Approve(ctx, applicantID)
	if err != nil {
		prior, _ := b.workflow.Get(applicantID)
		b.countFailure("approve", decisionFailure(applicantID, prior.Status, err))
		b.respondEphemeral(s, i, decisionErrorReply(err))
		return
	}

	b.grantApprovedRole(s, applicantID)
	b.settleReviewMessage(s, i, decision.App, moderator, colorGreen, "Approved")

	reply := fmt.Sprintf("Application from <@%s> approved.", applicantID)
	switch {
	case decision.Whitelisted:
		reply += fmt.Sprintf(" **%s** is now whitelisted.", decision.App.MinecraftUsername)
	case decision.WhitelistAttempted:
		reply += " ⚠️ Whitelisting failed; add them manually."
	default:
		reply += " No verified Minecraft account, so nobody was whitelisted."
	}
	b.respondEphemeral(s, i, reply)
}

func (b *Bot) reject(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, applicantID string, moderator *discordgo.User) {
	app, err := b.workflow.Reject(ctx, applicantID)
	if err != nil {
		prior, _ := b.workflow.Get(applicantID)
		b.countFailure("reject", decisionFailure(applicantID, prior.Status, err))
		b.respondEphemeral(s, i, decisionErrorReply(err))
		return
	}

	b.settleReviewMessage(s, i, app, moderator, colorRed, "Rejected")
	b.respondEphemeral(s, i, fmt.Sprintf("Application from <@%s> rejected.", applicantID))
}

// decisionFailure classifies a failed decision for the failure log.
// status is the applicant's current status, for the already-processed case.
func decisionFailure(applicantID string, status application.Status, err error) *commonerrors.StandardError {
	if errors.Is(err, application.ErrNotFound) {
		return commonerrors.NewApplicationNotFoundError(applicantID)
	}
	return commonerrors.NewAlreadyProcessedError(applicantID, string(status))
}

func decisionErrorReply(err error) string {
	switch {
	case errors.Is(err, application.ErrNotFound):
		return "No application found for that user."
	case errors.Is(err, application.ErrAlreadyProcessed):
		return "That application was already decided."
	default:
		return "Could not process that decision."
	}
}

func (b *Bot) grantApprovedRole(s *discordgo.Session, applicantID string) {
	roleID := b.cfg.Discord.ApprovedRoleID
	if roleID == "" {
		return
	}
	if err := s.GuildMemberRoleAdd(b.cfg.Discord.GuildID, applicantID, roleID); err != nil {
		b.log.WithError(err).Warn("failed to grant approved role", map[string]interface{}{
			"userId": applicantID,
		})
	}
}

// settleReviewMessage recolors the review embed, stamps the deciding
// moderator and strips the buttons so it cannot be pressed twice.
func (b *Bot) settleReviewMessage(s *discordgo.Session, i *discordgo.InteractionCreate, app application.Application, moderator *discordgo.User, color int, verdict string) {
	if app.MessageID == "" {
		return
	}

	embed := reviewEmbed(app)
	embed.Color = color
	embed.Footer = &discordgo.MessageEmbedFooter{
		Text: fmt.Sprintf("%s by %s", verdict, moderator.Username),
	}

	_, err := s.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    i.ChannelID,
		ID:         app.MessageID,
		Embeds:     &[]*discordgo.MessageEmbed{embed},
		Components: &[]discordgo.MessageComponent{},
	})
	if err != nil {
		b.log.WithError(err).Warn("failed to update review message", map[string]interface{}{
			"messageId": app.MessageID,
		})
	}
}
