package gateway

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// DiscordGateway posts through the REST API only; no gateway websocket is opened.
type DiscordGateway struct {
	Session   *discordgo.Session
	ChannelID string
}

func NewDiscordGateway(token, channelID string) (*DiscordGateway, error) {
	if channelID == "" {
		return nil, fmt.Errorf("discord channel ID is required")
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	return &DiscordGateway{Session: s, ChannelID: channelID}, nil
}

func (d *DiscordGateway) Name() string {
	return "discord"
}

func (d *DiscordGateway) Send(ctx context.Context, text string) error {
	_, err := d.Session.ChannelMessageSend(d.ChannelID, text, discordgo.WithContext(ctx))
	return err
}
