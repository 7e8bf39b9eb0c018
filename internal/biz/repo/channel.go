package repo

import (
	"context"

	"github.com/DevRickLin/adaptive-slowmode/internal/biz/domain"
)

// ChannelRepo is the channel control interface
// Reads and writes channel delays and posts reports through the chat platform
type ChannelRepo interface {
	// GetDelay gets the current slowmode delay of a channel in seconds
	GetDelay(ctx context.Context, channelID string) (int, error)

	// SetDelay sets the slowmode delay of a channel
	// reason is recorded in the platform's audit log
	SetDelay(ctx context.Context, channelID string, delay int, reason string) error

	// SendReport posts a report with live override controls to report.DestinationID
	SendReport(ctx context.Context, report *domain.Report) (domain.ReportHandle, error)

	// DisableReport edits a previously sent report so its controls are disabled
	DisableReport(ctx context.Context, handle domain.ReportHandle) error

	// SendText sends a plain notice to a channel
	SendText(ctx context.Context, channelID, text string) error
}

// ReportMirror copies reports to a secondary destination without controls
type ReportMirror interface {
	MirrorReport(ctx context.Context, report *domain.Report) error
}
