// Package discord publishes the catalog listing to a Discord channel and
// manages the gateway session used by the bot.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	apperrors "github.com/edgard/plexdiscordbot/internal/errors"
	"github.com/edgard/plexdiscordbot/internal/format"
)

const (
	embedColor         = 0xe5a00d
	embedTitle         = "📚 Plex Media Library"
	embedFieldValueMax = 1024
)

// MessageAPI is the subset of *discordgo.Session used for publishing.
type MessageAPI interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
}

// PostedMessage references one live message of the listing.
type PostedMessage struct {
	ChannelID string
	MessageID string
}

// Mode selects how a listing replaces the previous one.
type Mode int

const (
	// ModeRepost deletes the previous listing and sends a fresh one, which
	// notifies channel members.
	ModeRepost Mode = iota
	// ModeEdit rewrites the previous messages in place when the message count
	// matches, and falls back to ModeRepost otherwise.
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "repost"
}

// Publisher writes listings into a single channel.
type Publisher struct {
	api       MessageAPI
	channelID string
	log       *slog.Logger
}

// NewPublisher creates a Publisher for channelID.
func NewPublisher(api MessageAPI, channelID string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		api:       api,
		channelID: channelID,
		log:       logger.With("component", "publisher", "channel_id", channelID),
	}
}

// Publish replaces previous with listing. The returned references are the
// messages of this bot that are live in the channel afterwards, and are valid
// even when a PublishError is returned.
func (p *Publisher) Publish(ctx context.Context, listing format.Listing, previous []PostedMessage, mode Mode) ([]PostedMessage, error) {
	messages := render(listing)

	if mode == ModeEdit && len(previous) == len(messages) && len(previous) > 0 {
		return p.edit(ctx, messages, previous)
	}
	if mode == ModeEdit {
		p.log.InfoContext(ctx, "Message count changed, reposting listing",
			"previous", len(previous), "next", len(messages))
	}
	return p.repost(ctx, messages, previous)
}

func (p *Publisher) edit(ctx context.Context, messages []*discordgo.MessageSend, previous []PostedMessage) ([]PostedMessage, error) {
	for i, msg := range messages {
		ref := previous[i]
		content := msg.Content
		embeds := msg.Embeds
		if embeds == nil {
			embeds = []*discordgo.MessageEmbed{}
		}
		_, err := p.api.ChannelMessageEditComplex(&discordgo.MessageEdit{
			ID:      ref.MessageID,
			Channel: ref.ChannelID,
			Content: &content,
			Embeds:  &embeds,
		}, discordgo.WithContext(ctx))
		if err != nil {
			return previous, apperrors.NewPublishError(fmt.Sprintf("edit message %s", ref.MessageID), err)
		}
	}
	p.log.InfoContext(ctx, "Listing edited in place", "messages", len(messages))
	return previous, nil
}

func (p *Publisher) repost(ctx context.Context, messages []*discordgo.MessageSend, previous []PostedMessage) ([]PostedMessage, error) {
	remaining, err := p.Delete(ctx, previous)
	if err != nil {
		return remaining, err
	}

	posted := make([]PostedMessage, 0, len(messages))
	for i, msg := range messages {
		sent, err := p.api.ChannelMessageSendComplex(p.channelID, msg, discordgo.WithContext(ctx))
		if err != nil {
			return posted, apperrors.NewPublishError(fmt.Sprintf("send message %d of %d", i+1, len(messages)), err)
		}
		posted = append(posted, PostedMessage{ChannelID: p.channelID, MessageID: sent.ID})
	}
	p.log.InfoContext(ctx, "Listing posted", "messages", len(posted), "deleted", len(previous))
	return posted, nil
}

// Delete removes refs from the channel. Messages that are already gone count
// as deleted. On failure the refs that could not be removed are returned.
func (p *Publisher) Delete(ctx context.Context, refs []PostedMessage) ([]PostedMessage, error) {
	for i, ref := range refs {
		err := p.api.ChannelMessageDelete(ref.ChannelID, ref.MessageID, discordgo.WithContext(ctx))
		if err == nil {
			continue
		}
		if isUnknownMessage(err) {
			p.log.DebugContext(ctx, "Previous message already gone", "message_id", ref.MessageID)
			continue
		}
		return refs[i:], apperrors.NewPublishError(fmt.Sprintf("delete message %s", ref.MessageID), err)
	}
	return nil, nil
}

func isUnknownMessage(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	return restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeUnknownMessage
}

func render(listing format.Listing) []*discordgo.MessageSend {
	out := make([]*discordgo.MessageSend, 0, listing.MessageCount())
	out = append(out, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{summaryEmbed(listing.Summary)}})
	for _, page := range listing.Pages {
		out = append(out, &discordgo.MessageSend{Content: page})
	}
	return out
}

func summaryEmbed(s format.Summary) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       embedTitle,
		Description: fmt.Sprintf("**Movies:** %d | **TV Shows:** %d", s.Movies, s.Shows),
		Color:       embedColor,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Last updated • Next check in %d minutes", int(s.NextCheck/time.Minute)),
		},
	}
	if !s.UpdatedAt.IsZero() {
		embed.Timestamp = s.UpdatedAt.Format(time.RFC3339)
	}
	if len(s.Recent) > 0 {
		value := strings.Join(s.Recent, "\n")
		if s.RecentHidden > 0 {
			value += fmt.Sprintf("\n…and %d more", s.RecentHidden)
		}
		value = clampFieldValue(value)
		embed.Fields = []*discordgo.MessageEmbedField{{
			Name:  "🆕 Recently Added",
			Value: value,
		}}
	}
	return embed
}

// clampFieldValue keeps an embed field under Discord's limit, cutting at a
// line break when possible and never inside a rune.
func clampFieldValue(value string) string {
	if len(value) <= embedFieldValueMax {
		return value
	}
	const more = "\n…"
	limit := embedFieldValueMax - len(more)
	if cut := strings.LastIndex(value[:limit], "\n"); cut > 0 {
		return value[:cut] + more
	}
	for limit > 0 && !utf8.RuneStart(value[limit]) {
		limit--
	}
	return value[:limit] + more
}
