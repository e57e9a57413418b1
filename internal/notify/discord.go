package notify

import (
	"context"
	"fmt"
	"log/slog"

	"parsec/internal/economy"

	"github.com/bwmarrin/discordgo"
)

// DiscordNotifier posts alerts to a single ops channel. Delivery is best
// effort; the caller already treats Notify errors as non-fatal.
type DiscordNotifier struct {
	session   *discordgo.Session
	channelID string
	log       *slog.Logger
}

func NewDiscordNotifier(botToken, channelID string, logger *slog.Logger) (*DiscordNotifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	session, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	return &DiscordNotifier{session: session, channelID: channelID, log: logger}, nil
}

func (n *DiscordNotifier) Notify(_ context.Context, owner economy.Owner, message string) error {
	_, err := n.session.ChannelMessageSend(n.channelID, fmt.Sprintf("[%s] %s", owner, message))
	if err != nil {
		return fmt.Errorf("discord send: %w", err)
	}
	return nil
}

func (n *DiscordNotifier) Close() error {
	return n.session.Close()
}
