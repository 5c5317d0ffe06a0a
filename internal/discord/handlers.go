package discord

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/chris/focus/internal/agent"
)

// maxMessageLen is Discord's message size limit.
const maxMessageLen = 2000

const failureReply = "Something went wrong. Try again?"

func (b *Bot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore own messages
	if m.Author.ID == s.State.User.ID {
		return
	}

	// Only respond to DMs or when mentioned
	isDM := m.GuildID == ""
	isMentioned := false
	for _, u := range m.Mentions {
		if u.ID == s.State.User.ID {
			isMentioned = true
			break
		}
	}
	if !isDM && !isMentioned {
		return
	}

	content := strings.TrimSpace(stripMention(m.Content, s.State.User.ID))
	if content == "" {
		return
	}

	s.ChannelTyping(m.ChannelID)

	reply := b.reply(context.Background(), m.Author.ID, content)
	for _, chunk := range splitMessage(reply, maxMessageLen) {
		if _, err := s.ChannelMessageSend(m.ChannelID, chunk); err != nil {
			slog.Error("discord send failed", "channel_id", m.ChannelID, "error", err)
			return
		}
	}
}

// reply runs a turn for a Discord author on their most recent session.
func (b *Bot) reply(ctx context.Context, authorID, content string) string {
	userID, err := b.users.LinkedUser(ctx, Provider, authorID)
	if err != nil {
		slog.Error("linking discord user", "author_id", authorID, "error", err)
		return failureReply
	}

	sessionID, err := b.agent.Transcript().Resolve(ctx, userID, "")
	if err != nil {
		slog.Warn("resolving discord session", "user_id", userID, "error", err)
	}

	out, err := b.agent.Run(ctx, agent.Turn{UserID: userID, Message: content, SessionID: sessionID})
	if err != nil {
		var te *agent.TurnError
		if errors.As(err, &te) {
			return te.Message
		}
		slog.Error("discord turn failed", "user_id", userID, "error", err)
		return failureReply
	}
	return out.Message
}

func stripMention(s, userID string) string {
	s = strings.ReplaceAll(s, "<@"+userID+">", "")
	s = strings.ReplaceAll(s, "<@!"+userID+">", "")
	return s
}

// splitMessage splits s into chunks of at most maxLen bytes, preferring to
// break after a newline and never inside a UTF-8 sequence.
func splitMessage(s string, maxLen int) []string {
	if len(s) <= maxLen {
		return []string{s}
	}
	var chunks []string
	for len(s) > 0 {
		end := min(maxLen, len(s))
		if end < len(s) {
			if idx := strings.LastIndex(s[:end], "\n"); idx > 0 {
				end = idx + 1
			} else {
				for end > 0 && !utf8.RuneStart(s[end]) {
					end--
				}
				if end == 0 {
					end = min(maxLen, len(s))
				}
			}
		}
		chunks = append(chunks, s[:end])
		s = s[end:]
	}
	return chunks
}
