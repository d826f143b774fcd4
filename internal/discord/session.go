package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	apperrors "github.com/edgard/plexdiscordbot/internal/errors"
)

// Session wraps the discordgo gateway session for one channel.
type Session struct {
	dg        *discordgo.Session
	channelID string
	log       *slog.Logger
	ready     chan struct{}
}

// NewSession creates a discordgo session authenticated as a bot. logLevel is
// one of the discordgo.Log* constants.
func NewSession(token, channelID string, logLevel int, logger *slog.Logger) (*Session, error) {
	if token == "" {
		return nil, fmt.Errorf("discord bot token cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "discord_session")

	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		log.Error("Failed to create Discord session", "error", err)
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	dg.LogLevel = logLevel
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages

	s := &Session{
		dg:        dg,
		channelID: channelID,
		log:       log,
		ready:     make(chan struct{}),
	}
	dg.AddHandlerOnce(s.onReady)
	return s, nil
}

// API exposes the REST calls used by the Publisher.
func (s *Session) API() MessageAPI {
	return s.dg
}

// Ready is closed once the gateway reports the bot as logged in.
func (s *Session) Ready() <-chan struct{} {
	return s.ready
}

func (s *Session) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	if r != nil && r.User != nil {
		s.log.Info("Bot logged in", "username", r.User.Username, "user_id", r.User.ID, "guilds", len(r.Guilds))
	}
	close(s.ready)
}

// VerifyChannel checks the configured channel exists and is visible to the bot.
func (s *Session) VerifyChannel(ctx context.Context) error {
	ch, err := s.dg.Channel(s.channelID, discordgo.WithContext(ctx))
	if err != nil {
		return apperrors.NewPublishError(fmt.Sprintf("could not find Discord channel %s", s.channelID), err)
	}
	s.log.InfoContext(ctx, "Connected to Discord channel", "channel_id", ch.ID, "channel_name", ch.Name)
	return nil
}

// Run opens the gateway connection and keeps it until ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	s.log.Info("Opening Discord gateway connection...")
	if err := s.dg.Open(); err != nil {
		return fmt.Errorf("failed to open discord gateway: %w", err)
	}

	<-ctx.Done()
	s.log.Info("Closing Discord gateway connection...")
	if err := s.dg.Close(); err != nil {
		s.log.Error("Error closing Discord gateway", "error", err)
	}
	return nil
}
