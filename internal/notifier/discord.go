package notifier

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/hi-events/hi-events-api/internal/dates"
	"github.com/hi-events/hi-events-api/internal/models"
	"github.com/rs/zerolog"
)

// messageSender is the part of *discordgo.Session the notifier needs.
type messageSender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type DiscordNotifier struct {
	session   messageSender
	channelID string
	logger    zerolog.Logger
}

func NewDiscordNotifier(session *discordgo.Session, channelID string, logger zerolog.Logger) *DiscordNotifier {
	n := &DiscordNotifier{channelID: channelID, logger: logger}
	if session != nil {
		n.session = session
	}
	return n
}

func (n *DiscordNotifier) NotifyRegistration(user models.User, event models.Event, registration models.Registration) error {
	if n.session == nil {
		return fmt.Errorf("discord session is nil")
	}
	if n.channelID == "" {
		return fmt.Errorf("discord channel ID is empty")
	}

	mention := ""
	if user.DiscordID != nil {
		mention = fmt.Sprintf(" (<@%s>)", *user.DiscordID)
	}

	message := fmt.Sprintf("🎟️ **Registration Update**\n**User:** %s%s\n**Event:** %s\n**When:** %s\n**Where:** %s\n**Status:** %s",
		user.DisplayName(),
		mention,
		event.Title,
		dates.FormatEventDateTime(event.StartDate),
		event.Location,
		statusText(registration.Status),
	)

	if _, err := n.session.ChannelMessageSend(n.channelID, message); err != nil {
		n.logger.Error().Err(err).Str("channel_id", n.channelID).Msg("failed to send discord message")
		return err
	}
	return nil
}

func statusText(s models.RegistrationStatus) string {
	switch s {
	case models.RegistrationConfirmed:
		return "registered 🎉"
	case models.RegistrationWaitlisted:
		return "joined the waitlist ⏳"
	case models.RegistrationCancelled:
		return "cancelled registration 😢"
	}
	return s.Label()
}
