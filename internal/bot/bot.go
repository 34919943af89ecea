// Package bot wires the gateway: session lifecycle, slash and text
// command routing, the application review surface, and reminder delivery
// over DMs.
package bot

import (
	"fmt"
	"runtime"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/09wizardguy/SignalBox/internal/application"
	"github.com/09wizardguy/SignalBox/internal/common/config"
	"github.com/09wizardguy/SignalBox/internal/common/logger"
	"github.com/09wizardguy/SignalBox/internal/invites"
	"github.com/09wizardguy/SignalBox/internal/reminder"
)

type Bot struct {
	cfg       *config.Config
	log       logger.Logger
	session   *discordgo.Session
	reminders *reminder.Manager
	workflow  *application.Workflow
	invites   *invites.Tracker
}

func New(cfg *config.Config, reminders *reminder.Manager, workflow *application.Workflow, tracker *invites.Tracker, log logger.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildInvites

	b := &Bot{
		cfg:       cfg,
		log:       log.WithFields(map[string]interface{}{"component": "bot"}),
		session:   session,
		reminders: reminders,
		workflow:  workflow,
		invites:   tracker,
	}

	session.AddHandler(b.onReady)
	session.AddHandler(b.onInteractionCreate)
	session.AddHandler(b.onMessageCreate)
	session.AddHandler(b.onGuildMemberAdd)
	session.AddHandler(b.onInviteCreate)
	session.AddHandler(b.onInviteDelete)

	return b, nil
}

// Start opens the gateway connection and registers the slash commands.
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open gateway: %w", err)
	}

	appID := b.session.State.User.ID
	if _, err := b.session.ApplicationCommandBulkOverwrite(appID, b.cfg.Discord.GuildID, slashCommands()); err != nil {
		// Commands from a previous run keep working; log and carry on.
		b.log.WithError(err).Error("failed to register slash commands", nil)
	}

	return nil
}

// Stop cancels live reminder timers and closes the gateway connection.
func (b *Bot) Stop() {
	b.reminders.Stop()
	if err := b.session.Close(); err != nil {
		b.log.WithError(err).Warn("error closing gateway", nil)
	}
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.log.Info("gateway ready", map[string]interface{}{
		"user":   r.User.Username,
		"guilds": len(r.Guilds),
	})

	b.initInviteTracking(s, r)

	rearmed := b.reminders.LoadAndRearm(b.deliverReminder)
	b.log.Info("reminders rehydrated", map[string]interface{}{"rearmed": rearmed})

	if err := s.UpdateWatchStatus(0, "the Rails"); err != nil {
		b.log.WithError(err).Warn("failed to set presence", nil)
	}

	b.announceStartup(s)
}

func (b *Bot) initInviteTracking(s *discordgo.Session, r *discordgo.Ready) {
	for _, guild := range r.Guilds {
		ginvites, err := s.GuildInvites(guild.ID)
		if err != nil {
			b.log.WithError(err).Warn("failed to cache guild invites", map[string]interface{}{
				"guildId": guild.ID,
			})
			continue
		}
		b.invites.SetGuildInvites(guild.ID, toInviteUses(ginvites))
	}
}

func (b *Bot) announceStartup(s *discordgo.Session) {
	channelID := b.cfg.Discord.StartupLogsChannelID
	if channelID == "" {
		return
	}

	embed := &discordgo.MessageEmbed{
		Description: fmt.Sprintf(
			"## SignalBox is Online! :green_circle:\nTime: <t:%d:R>\nRunning in **%s** mode\nOS: **%s**\nGo Version: **%s**",
			time.Now().Unix(),
			b.cfg.App.Environment,
			runtime.GOOS,
			runtime.Version(),
		),
		Color: colorGreen,
	}

	if _, err := s.ChannelMessageSendEmbed(channelID, embed); err != nil {
		b.log.WithError(err).Warn("failed to send startup announcement", nil)
	}
}

// deliverReminder is the reminder delivery adapter: a DM to the owner.
func (b *Bot) deliverReminder(userID, message string, createdAt int64) {
	content := fmt.Sprintf("⏰ Reminder for <@%s>: %s set <t:%d:R>", userID, message, createdAt/1000)
	if err := b.DirectMessage(userID, content); err != nil {
		b.log.WithError(err).Error("failed to deliver reminder", map[string]interface{}{
			"userId": userID,
		})
	}
}

// DirectMessage implements the delivery adapter consumed by the
// application workflow.
func (b *Bot) DirectMessage(userID, content string) error {
	channel, err := b.session.UserChannelCreate(userID)
	if err != nil {
		return err
	}
	_, err = b.session.ChannelMessageSend(channel.ID, content)
	return err
}

func (b *Bot) onGuildMemberAdd(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	ginvites, err := s.GuildInvites(m.GuildID)
	if err != nil {
		b.log.WithError(err).Warn("failed to fetch invites on member join", map[string]interface{}{
			"guildId": m.GuildID,
		})
		return
	}

	info, ok := b.invites.ResolveJoin(m.GuildID, m.User.ID, toInviteUses(ginvites), m.JoinedAt.UnixMilli())
	if !ok {
		return
	}

	if channelID := b.cfg.Discord.JoinLogsChannelID; channelID != "" {
		content := fmt.Sprintf("📥 <@%s> joined using invite `%s` from **%s**",
			m.User.ID, info.InviteCode, info.InviterTag)
		if _, err := s.ChannelMessageSend(channelID, content); err != nil {
			b.log.WithError(err).Warn("failed to log member join", nil)
		}
	}
}

func (b *Bot) onInviteCreate(s *discordgo.Session, i *discordgo.InviteCreate) {
	use := invites.InviteUse{Code: i.Code, Uses: i.Uses}
	if i.Inviter != nil {
		use.InviterID = i.Inviter.ID
		use.InviterTag = i.Inviter.Username
	}
	b.invites.InviteCreated(i.GuildID, use)
}

func (b *Bot) onInviteDelete(s *discordgo.Session, i *discordgo.InviteDelete) {
	b.invites.InviteDeleted(i.GuildID, i.Code)
}

func toInviteUses(ginvites []*discordgo.Invite) []invites.InviteUse {
	uses := make([]invites.InviteUse, 0, len(ginvites))
	for _, inv := range ginvites {
		use := invites.InviteUse{Code: inv.Code, Uses: inv.Uses}
		if inv.Inviter != nil {
			use.InviterID = inv.Inviter.ID
			use.InviterTag = inv.Inviter.Username
		}
		uses = append(uses, use)
	}
	return uses
}
