package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// Message represents a received guild message
type Message struct {
	GuildID   string
	ChannelID string
	MessageID string
	AuthorID  string
	IsBot     bool // Bot, webhook or system author
}

// Component represents a press of a message component (button)
type Component struct {
	GuildID   string
	ChannelID string // Channel the pressed message lives in
	MessageID string
	CustomID  string
	ActorID   string

	interaction *discordgo.Interaction
	member      *discordgo.Member
	deferred    bool
}

// MessageHandler is the callback for received messages
type MessageHandler func(msg *Message)

// ComponentHandler is the callback for component presses
type ComponentHandler func(c *Component)

// Client is the Discord gateway and REST client
type Client struct {
	session     *discordgo.Session
	onMessage   MessageHandler
	onComponent ComponentHandler
	logger      *slog.Logger
	removers    []func()
}

// NewClient creates a new Discord client for a bot token
func NewClient(token string, logger *slog.Logger) (*Client, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		session: session,
		logger:  logger.With("component", "discord"),
	}, nil
}

// OnMessage sets the message handler
func (c *Client) OnMessage(handler MessageHandler) {
	c.onMessage = handler
}

// OnComponent sets the component handler
func (c *Client) OnComponent(handler ComponentHandler) {
	c.onComponent = handler
}

// Start registers the event handlers and opens the gateway connection
func (c *Client) Start() error {
	c.removers = append(c.removers,
		c.session.AddHandler(c.handleMessage),
		c.session.AddHandler(c.handleInteraction),
		c.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
			c.logger.Info("gateway ready", "user", r.User.Username, "guilds", len(r.Guilds))
		}),
	)

	c.logger.Info("opening gateway connection")
	if err := c.session.Open(); err != nil {
		return fmt.Errorf("failed to open gateway: %w", err)
	}
	return nil
}

// Stop closes the gateway connection
func (c *Client) Stop() error {
	for _, remove := range c.removers {
		remove()
	}
	c.removers = nil
	return c.session.Close()
}

func (c *Client) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if c.onMessage == nil || m.Author == nil {
		return
	}
	// Gateway handlers run on their own goroutine, the callback may block briefly
	c.onMessage(&Message{
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		MessageID: m.ID,
		AuthorID:  m.Author.ID,
		IsBot:     m.Author.Bot || m.Author.System || m.WebhookID != "",
	})
}

func (c *Client) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if c.onComponent == nil || i.Type != discordgo.InteractionMessageComponent {
		return
	}

	comp := &Component{
		GuildID:     i.GuildID,
		ChannelID:   i.ChannelID,
		CustomID:    i.MessageComponentData().CustomID,
		interaction: i.Interaction,
	}
	if i.Message != nil {
		comp.MessageID = i.Message.ID
	}
	switch {
	case i.Member != nil && i.Member.User != nil:
		comp.ActorID = i.Member.User.ID
		comp.member = i.Member
	case i.User != nil:
		comp.ActorID = i.User.ID
	}
	c.onComponent(comp)
}

// DeferEphemeral acknowledges a component press, the answer follows with RespondEphemeral
func (c *Client) DeferEphemeral(ctx context.Context, comp *Component) error {
	err := c.session.InteractionRespond(comp.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("defer interaction failed: %w", err)
	}
	comp.deferred = true
	return nil
}

// RespondEphemeral answers a component press with a message only the presser sees
func (c *Client) RespondEphemeral(ctx context.Context, comp *Component, text string) error {
	if comp.deferred {
		if _, err := c.session.InteractionResponseEdit(comp.interaction, &discordgo.WebhookEdit{
			Content: &text,
		}, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("edit interaction response failed: %w", err)
		}
		return nil
	}

	err := c.session.InteractionRespond(comp.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: text,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("respond to interaction failed: %w", err)
	}
	return nil
}

// CanManageChannel reports whether the presser may manage channelID.
// Permissions are computed from the cached guild, its roles and channelID's overwrites,
// not from the channel the button was pressed in.
func (c *Client) CanManageChannel(comp *Component, channelID string) bool {
	if comp.member == nil || comp.member.User == nil {
		return false
	}

	state := c.session.State
	ch, err := state.Channel(channelID)
	if err != nil || ch.GuildID != comp.GuildID {
		c.logger.Warn("permission check on uncached channel", "guild", comp.GuildID, "channel", channelID, "err", err)
		return false
	}

	member := *comp.member
	member.GuildID = comp.GuildID
	if err := state.MemberAdd(&member); err != nil {
		c.logger.Warn("failed to cache member", "guild", comp.GuildID, "user", member.User.ID, "err", err)
		return false
	}

	perms, err := state.UserChannelPermissions(member.User.ID, channelID)
	if err != nil {
		c.logger.Warn("failed to compute permissions", "channel", channelID, "user", member.User.ID, "err", err)
		return false
	}
	return perms&discordgo.PermissionManageChannels != 0
}

// Channel gets a channel
func (c *Client) Channel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	return c.session.Channel(channelID, discordgo.WithContext(ctx))
}

// EditChannel edits a channel and records reason in the audit log
func (c *Client) EditChannel(ctx context.Context, channelID string, edit *discordgo.ChannelEdit, reason string) (*discordgo.Channel, error) {
	return c.session.ChannelEdit(channelID, edit, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
}

// SendMessage sends a message with embeds and components
func (c *Client) SendMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	return c.session.ChannelMessageSendComplex(channelID, msg, discordgo.WithContext(ctx))
}

// EditMessage edits a previously sent message
func (c *Client) EditMessage(ctx context.Context, edit *discordgo.MessageEdit) (*discordgo.Message, error) {
	return c.session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx))
}
