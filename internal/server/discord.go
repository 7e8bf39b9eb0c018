package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/DevRickLin/adaptive-slowmode/internal/biz/domain"
	"github.com/DevRickLin/adaptive-slowmode/internal/biz/usecase"
	"github.com/DevRickLin/adaptive-slowmode/internal/infra/discord"
	"github.com/dustin/go-humanize/english"
)

const (
	seenTTL = 10 * time.Minute

	// Discord drops the interaction unless it is acknowledged within 3s
	ackTimeout      = 2 * time.Second
	overrideTimeout = 30 * time.Second
	replyTimeout    = 5 * time.Second
)

// Gateway is the Discord event source and interaction responder
type Gateway interface {
	OnMessage(handler discord.MessageHandler)
	OnComponent(handler discord.ComponentHandler)
	DeferEphemeral(ctx context.Context, comp *discord.Component) error
	RespondEphemeral(ctx context.Context, comp *discord.Component, text string) error
	CanManageChannel(comp *discord.Component, channelID string) bool
	Start() error
	Stop() error
}

// Slowmode is the usecase surface the server drives
type Slowmode interface {
	Ingest(ctx context.Context, ev usecase.MessageEvent)
	Override(ctx context.Context, req usecase.OverrideRequest) (*usecase.OverrideResult, error)
}

// DiscordServer feeds gateway events into the slowmode usecase
type DiscordServer struct {
	gateway  Gateway
	slowmode Slowmode
	logger   *slog.Logger
	now      func() time.Time

	// Message deduplication cache, the gateway may replay events after a resume
	seenMsgsMu sync.Mutex
	seenMsgs   map[string]time.Time // msgID -> receive time
}

// NewDiscordServer creates a new Discord server
func NewDiscordServer(gateway Gateway, slowmode Slowmode, logger *slog.Logger) *DiscordServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &DiscordServer{
		gateway:  gateway,
		slowmode: slowmode,
		logger:   logger.With("component", "server"),
		now:      time.Now,
		seenMsgs: make(map[string]time.Time),
	}
}

// Start registers the handlers and connects the gateway
func (s *DiscordServer) Start() error {
	s.gateway.OnMessage(s.handleMessage)
	s.gateway.OnComponent(s.handleComponent)
	return s.gateway.Start()
}

// Stop disconnects the gateway
func (s *DiscordServer) Stop() {
	if err := s.gateway.Stop(); err != nil {
		s.logger.Warn("failed to close gateway", "err", err)
	}
}

func (s *DiscordServer) handleMessage(msg *discord.Message) {
	if msg.GuildID == "" || s.seen(msg.MessageID) {
		return
	}

	// Stamped with local receive time so events share the ticker's clock
	s.slowmode.Ingest(context.Background(), usecase.MessageEvent{
		GuildID:   msg.GuildID,
		ChannelID: msg.ChannelID,
		ActorID:   msg.AuthorID,
		At:        s.now(),
		IsHuman:   !msg.IsBot,
	})
}

// seen records a message id and reports whether it was already recorded
func (s *DiscordServer) seen(msgID string) bool {
	if msgID == "" {
		return false
	}
	now := s.now()

	s.seenMsgsMu.Lock()
	defer s.seenMsgsMu.Unlock()

	if _, ok := s.seenMsgs[msgID]; ok {
		return true
	}
	s.seenMsgs[msgID] = now

	// Periodic cleanup of old entries
	if len(s.seenMsgs) > 10_000 {
		for id, t := range s.seenMsgs {
			if now.Sub(t) > seenTTL {
				delete(s.seenMsgs, id)
			}
		}
	}
	return false
}

func (s *DiscordServer) handleComponent(comp *discord.Component) {
	control, ok := domain.ParseControlID(comp.CustomID)
	if !ok {
		s.logger.Debug("ignoring unknown component", "custom_id", comp.CustomID)
		return
	}

	ackCtx, cancel := context.WithTimeout(context.Background(), ackTimeout)
	err := s.gateway.DeferEphemeral(ackCtx, comp)
	cancel()
	if err != nil {
		s.logger.Warn("failed to acknowledge interaction", "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), overrideTimeout)
	res, err := s.slowmode.Override(ctx, usecase.OverrideRequest{
		GuildID:           comp.GuildID,
		ActorID:           comp.ActorID,
		Control:           control,
		CanManageChannels: s.gateway.CanManageChannel(comp, control.ChannelID),
	})
	cancel()
	if err != nil {
		s.logger.Info("override failed", "guild", comp.GuildID, "channel", control.ChannelID, "actor", comp.ActorID, "err", err)
	}

	replyCtx, cancel := context.WithTimeout(context.Background(), replyTimeout)
	defer cancel()
	if err := s.gateway.RespondEphemeral(replyCtx, comp, overrideReply(control, res, err)); err != nil {
		s.logger.Warn("failed to respond to interaction", "err", err)
	}
}

// overrideReply renders the ephemeral feedback for an override
func overrideReply(control domain.Control, res *usecase.OverrideResult, err error) string {
	switch {
	case errors.Is(err, domain.ErrNotAuthorized):
		return "You don't have permission to adjust slowmode."
	case errors.Is(err, domain.ErrStaleControl):
		return "This report is out of date. Use the buttons on the latest report."
	case errors.Is(err, domain.ErrForbidden):
		return "I don't have permission to edit this channel."
	case errors.Is(err, domain.ErrUnknownChannel):
		return "That channel no longer exists."
	case err != nil:
		return fmt.Sprintf("Failed to %s slowmode, try again later.", control.Direction)
	}

	seconds := english.Plural(res.Current, "second", "")
	if !res.Changed() {
		bound := "maximum"
		if control.Direction == domain.DirectionDecrease {
			bound = "minimum"
		}
		return fmt.Sprintf("Slowmode for <#%s> is already at its %s of %s.", res.ChannelID, bound, seconds)
	}
	return fmt.Sprintf("Slowmode for <#%s> %sd to %s.", res.ChannelID, control.Direction, seconds)
}
