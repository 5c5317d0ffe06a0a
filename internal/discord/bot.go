// Package discord connects Discord DMs and mentions to the coaching agent.
package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/chris/focus/internal/agent"
)

// Provider is the identity provider name used for linked Discord users.
const Provider = "discord"

// UserLinker maps a Discord account to an application user id.
type UserLinker interface {
	LinkedUser(ctx context.Context, provider, externalID string) (string, error)
}

type Bot struct {
	session *discordgo.Session
	agent   *agent.Orchestrator
	users   UserLinker
}

func NewBot(token string, o *agent.Orchestrator, users UserLinker) (*Bot, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating Discord session: %w", err)
	}

	bot := &Bot{session: s, agent: o, users: users}
	s.AddHandler(bot.onMessage)
	s.Identify.Intents = discordgo.IntentsDirectMessages | discordgo.IntentsGuildMessages

	if err := s.Open(); err != nil {
		return nil, fmt.Errorf("opening Discord connection: %w", err)
	}

	slog.Info("discord bot connected", "username", s.State.User.Username)
	return bot, nil
}

// SendDM delivers content to a Discord user by account id.
func (b *Bot) SendDM(discordUserID, content string) error {
	ch, err := b.session.UserChannelCreate(discordUserID)
	if err != nil {
		return fmt.Errorf("opening DM channel: %w", err)
	}
	for _, chunk := range splitMessage(content, maxMessageLen) {
		if _, err := b.session.ChannelMessageSend(ch.ID, chunk); err != nil {
			return fmt.Errorf("sending DM: %w", err)
		}
	}
	return nil
}

func (b *Bot) Close() {
	b.session.Close()
}
