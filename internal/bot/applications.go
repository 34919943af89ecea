package bot

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/09wizardguy/SignalBox/internal/application"
)

// handleListApplications summarizes the pending queue for moderators.
func (b *Bot) handleListApplications(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.isModerator(i) {
		b.respondEphemeral(s, i, "Only moderators can list applications.")
		return
	}

	pending := b.workflow.List(application.StatusPending)
	if len(pending) == 0 {
		b.respondEphemeral(s, i, "No pending applications. 🎉")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "**%d pending application(s):**\n", len(pending))
	for _, app := range pending {
		verified := "⚠️"
		if app.IsValidMinecraftAccount {
			verified = "✅"
		}
		fmt.Fprintf(&sb, "- <@%s> — MC: **%s** %s — submitted <t:%d:R>\n",
			app.UserID, orDash(app.MinecraftUsername), verified, app.CreatedAt/1000)
	}

	b.respondEphemeral(s, i, sb.String())
}
