package data

import (
	"context"
	"fmt"

	"github.com/DevRickLin/adaptive-slowmode/internal/biz/domain"
	"github.com/DevRickLin/adaptive-slowmode/internal/biz/repo"
	"github.com/dustin/go-humanize"
)

// RichTextSender posts rich text messages to a chat
type RichTextSender interface {
	SendRichText(ctx context.Context, chatID, title string, content [][]map[string]interface{}) error
}

// feishuMirror copies reports to a Feishu chat
type feishuMirror struct {
	client RichTextSender
	chatID string
}

// NewFeishuMirror creates a report mirror posting to a Feishu chat
func NewFeishuMirror(client RichTextSender, chatID string) repo.ReportMirror {
	return &feishuMirror{client: client, chatID: chatID}
}

// MirrorReport posts a read-only copy of a report
func (m *feishuMirror) MirrorReport(ctx context.Context, report *domain.Report) error {
	title := fmt.Sprintf("Slowmode report: channel %s", report.ChannelID)
	if err := m.client.SendRichText(ctx, m.chatID, title, renderReportPost(report)); err != nil {
		return fmt.Errorf("failed to mirror report: %w", err)
	}
	return nil
}

func textElem(text string) map[string]interface{} {
	return map[string]interface{}{"tag": "text", "text": text}
}

// renderReportPost renders a report as Feishu post paragraphs
func renderReportPost(r *domain.Report) [][]map[string]interface{} {
	content := [][]map[string]interface{}{
		{textElem(fmt.Sprintf("Guild %s, current slowmode %ds (bounds %d-%ds), target %d messages/min",
			r.GuildID, r.Current, r.MinDelay, r.MaxDelay, r.Target))},
	}

	stamps := r.MinuteStamps()
	for i, count := range r.History {
		content = append(content, []map[string]interface{}{
			textElem(fmt.Sprintf("%s: %d", humanize.RelTime(stamps[i], r.GeneratedAt, "ago", "from now"), count)),
		})
	}

	content = append(content, []map[string]interface{}{
		textElem(fmt.Sprintf("Active users: %d", len(r.Actors))),
	})
	return content
}
