package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/json-iterator/go"

	"github.com/yonatandev1/tsukuyomi/discord"
	"github.com/yonatandev1/tsukuyomi/gateway"
)

// MessageCreate is the body of SendMessage. Embeds and components are sent
// as given.
type MessageCreate struct {
	Content    string               `json:"content,omitempty"`
	TTS        bool                 `json:"tts,omitempty"`
	Nonce      string               `json:"nonce,omitempty"`
	Embeds     jsoniter.RawMessage  `json:"embeds,omitempty"`
	Components jsoniter.RawMessage  `json:"components,omitempty"`
	Flags      discord.MessageFlags `json:"flags,omitempty"`
}

// Every helper below runs its response through the cache on the client
// loop and returns the cached entity.

func (c *Client) SendMessage(ctx context.Context, channelID discord.Snowflake, message MessageCreate) (*discord.Message, error) {
	var p discord.MessagePayload
	if err := c.request(ctx, http.MethodPost, "/channels/"+channelID.String()+"/messages", message, &p); err != nil {
		return nil, err
	}

	return exec(ctx, c, func() *discord.Message { return c.State.AddMessage(&p) })
}

func (c *Client) FetchMessage(ctx context.Context, channelID, messageID discord.Snowflake) (*discord.Message, error) {
	var p discord.MessagePayload
	if err := c.request(ctx, http.MethodGet, "/channels/"+channelID.String()+"/messages/"+messageID.String(), nil, &p); err != nil {
		return nil, err
	}

	return exec(ctx, c, func() *discord.Message { return c.State.AddMessage(&p) })
}

func (c *Client) FetchChannel(ctx context.Context, channelID discord.Snowflake) (*discord.Channel, error) {
	var p discord.ChannelPayload
	if err := c.request(ctx, http.MethodGet, "/channels/"+channelID.String(), nil, &p); err != nil {
		return nil, err
	}

	return exec(ctx, c, func() *discord.Channel { return c.State.AddChannel(&p) })
}

func (c *Client) FetchGuild(ctx context.Context, guildID discord.Snowflake) (*discord.Guild, error) {
	var p discord.GuildPayload
	if err := c.request(ctx, http.MethodGet, "/guilds/"+guildID.String(), nil, &p); err != nil {
		return nil, err
	}

	return exec(ctx, c, func() *discord.Guild { return c.State.AddGuild(&p) })
}

func (c *Client) FetchUser(ctx context.Context, userID discord.Snowflake) (*discord.User, error) {
	var p discord.UserPayload
	if err := c.request(ctx, http.MethodGet, "/users/"+userID.String(), nil, &p); err != nil {
		return nil, err
	}

	return exec(ctx, c, func() *discord.User { return c.State.AddUser(&p) })
}

func (c *Client) FetchMember(ctx context.Context, guildID, userID discord.Snowflake) (*discord.Member, error) {
	var p discord.MemberPayload
	if err := c.request(ctx, http.MethodGet, "/guilds/"+guildID.String()+"/members/"+userID.String(), nil, &p); err != nil {
		return nil, err
	}

	return exec(ctx, c, func() *discord.Member { return c.State.AddMember(guildID, &p) })
}

// GatewayURL asks the API for the gateway address.
func (c *Client) GatewayURL(ctx context.Context) (string, error) {
	var p struct {
		URL string `json:"url"`
	}
	if err := c.request(ctx, http.MethodGet, "/gateway", nil, &p); err != nil {
		return "", err
	}
	if p.URL == "" {
		return "", errors.New("client: empty gateway url")
	}
	return p.URL, nil
}

// RequestGuildMembers asks the gateway for members; they arrive as
// GuildMembersChunkEvents.
func (c *Client) RequestGuildMembers(ctx context.Context, request gateway.RequestGuildMembers) error {
	return c.Gateway.RequestGuildMembers(ctx, request)
}

func (c *Client) request(ctx context.Context, method, route string, body, v any) error {
	data, err := c.REST.Make(ctx, route, method, body, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("client: decode %s %s: %w", method, route, err)
	}
	return nil
}
