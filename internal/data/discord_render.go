package data

import (
	"fmt"
	"strings"
	"time"

	"github.com/DevRickLin/adaptive-slowmode/internal/biz/domain"
	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize/english"
)

const (
	reportColor     = 0x5865F2
	maxActorMention = 20
)

// renderReportEmbed renders the activity digest of a report
func renderReportEmbed(r *domain.Report) *discordgo.MessageEmbed {
	stamps := r.MinuteStamps()
	var perMinute strings.Builder
	for i, count := range r.History {
		fmt.Fprintf(&perMinute, "<t:%d:R>: %s\n", stamps[i].Unix(), english.Plural(count, "message", ""))
	}

	return &discordgo.MessageEmbed{
		Title:       "Slowmode report",
		Description: fmt.Sprintf("Activity in <#%s>", r.ChannelID),
		Color:       reportColor,
		Timestamp:   r.GeneratedAt.UTC().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Current slowmode", Value: english.Plural(r.Current, "second", ""), Inline: true},
			{Name: "Target", Value: fmt.Sprintf("%d messages/min", r.Target), Inline: true},
			{Name: "Bounds", Value: fmt.Sprintf("%d-%ds", r.MinDelay, r.MaxDelay), Inline: true},
			{Name: "Messages per minute", Value: perMinute.String()},
			{Name: "Active users", Value: renderActors(r.Actors)},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "Report " + r.ID},
	}
}

// renderActors lists actor mentions, truncated after maxActorMention
func renderActors(actors []string) string {
	if len(actors) == 0 {
		return "No users seen"
	}

	shown := actors
	if len(shown) > maxActorMention {
		shown = shown[:maxActorMention]
	}
	mentions := make([]string, len(shown))
	for i, id := range shown {
		mentions[i] = "<@" + id + ">"
	}

	text := english.Plural(len(actors), "user", "") + ": " + strings.Join(mentions, " ")
	if rest := len(actors) - len(shown); rest > 0 {
		text += fmt.Sprintf(" and %d more", rest)
	}
	return text
}

// renderControls renders the increase and decrease buttons of a report
func renderControls(channelID, reportID string, canIncrease, canDecrease bool) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Increase slowmode",
					Style:    discordgo.DangerButton,
					CustomID: domain.ControlID(domain.DirectionIncrease, channelID, reportID),
					Disabled: !canIncrease,
				},
				discordgo.Button{
					Label:    "Decrease slowmode",
					Style:    discordgo.SuccessButton,
					CustomID: domain.ControlID(domain.DirectionDecrease, channelID, reportID),
					Disabled: !canDecrease,
				},
			},
		},
	}
}
