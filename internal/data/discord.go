package data

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/DevRickLin/adaptive-slowmode/internal/biz/domain"
	"github.com/DevRickLin/adaptive-slowmode/internal/biz/repo"
	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"
)

// DiscordAPI is the subset of the Discord client used by the channel repository
type DiscordAPI interface {
	Channel(ctx context.Context, channelID string) (*discordgo.Channel, error)
	EditChannel(ctx context.Context, channelID string, edit *discordgo.ChannelEdit, reason string) (*discordgo.Channel, error)
	SendMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error)
	EditMessage(ctx context.Context, edit *discordgo.MessageEdit) (*discordgo.Message, error)
}

// discordRepo implements the channel repository on Discord
type discordRepo struct {
	api     DiscordAPI
	limiter *rate.Limiter
}

// NewDiscordRepo creates a new Discord channel repository.
// Writes are throttled to writesPerSecond on top of the library's own bucket handling.
func NewDiscordRepo(api DiscordAPI, writesPerSecond float64) repo.ChannelRepo {
	limit := rate.Inf
	if writesPerSecond > 0 {
		limit = rate.Limit(writesPerSecond)
	}
	return &discordRepo{
		api:     api,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// GetDelay gets the per-user rate limit of a channel
func (r *discordRepo) GetDelay(ctx context.Context, channelID string) (int, error) {
	ch, err := r.api.Channel(ctx, channelID)
	if err != nil {
		return 0, fmt.Errorf("failed to get channel %s: %w", channelID, mapDiscordError(err))
	}
	return ch.RateLimitPerUser, nil
}

// SetDelay sets the per-user rate limit of a channel
func (r *discordRepo) SetDelay(ctx context.Context, channelID string, delay int, reason string) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := r.api.EditChannel(ctx, channelID, &discordgo.ChannelEdit{RateLimitPerUser: &delay}, reason)
	if err != nil {
		return fmt.Errorf("failed to set slowmode of %s: %w", channelID, mapDiscordError(err))
	}
	return nil
}

// SendReport posts a report with override buttons
func (r *discordRepo) SendReport(ctx context.Context, report *domain.Report) (domain.ReportHandle, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return domain.ReportHandle{}, err
	}
	msg, err := r.api.SendMessage(ctx, report.DestinationID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{renderReportEmbed(report)},
		Components: renderControls(report.ChannelID, report.ID, report.CanIncrease(), report.CanDecrease()),
	})
	if err != nil {
		return domain.ReportHandle{}, fmt.Errorf("failed to send report: %w", mapDiscordError(err))
	}
	return domain.ReportHandle{
		ChannelID: report.DestinationID,
		MessageID: msg.ID,
		ReportID:  report.ID,
		SubjectID: report.ChannelID,
	}, nil
}

// DisableReport replaces a report's buttons with disabled ones
func (r *discordRepo) DisableReport(ctx context.Context, handle domain.ReportHandle) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	edit := discordgo.NewMessageEdit(handle.ChannelID, handle.MessageID)
	components := renderControls(handle.SubjectID, handle.ReportID, false, false)
	edit.Components = &components
	if _, err := r.api.EditMessage(ctx, edit); err != nil {
		return fmt.Errorf("failed to disable report: %w", mapDiscordError(err))
	}
	return nil
}

// SendText sends a plain message
func (r *discordRepo) SendText(ctx context.Context, channelID, text string) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := r.api.SendMessage(ctx, channelID, &discordgo.MessageSend{
		Content:         text,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	})
	if err != nil {
		return fmt.Errorf("failed to send message: %w", mapDiscordError(err))
	}
	return nil
}

// mapDiscordError translates REST errors into domain errors
func mapDiscordError(err error) error {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return err
	}

	code := 0
	if restErr.Message != nil {
		code = restErr.Message.Code
	}
	status := 0
	if restErr.Response != nil {
		status = restErr.Response.StatusCode
	}

	switch {
	case code == discordgo.ErrCodeMissingPermissions, code == discordgo.ErrCodeMissingAccess, status == http.StatusForbidden:
		return fmt.Errorf("%w: %v", domain.ErrForbidden, err)
	case code == discordgo.ErrCodeUnknownChannel, status == http.StatusNotFound:
		return fmt.Errorf("%w: %v", domain.ErrUnknownChannel, err)
	default:
		return err
	}
}
