package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewServer creates an MCP server exposing slowmode administration tools
func NewServer(client *Client, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "slowmode-tools",
		Version: version,
	}, nil)

	t := &tools{client: client}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "slowmode_get_policy",
		Description: "Get the adaptive slowmode settings of a guild: enabled flag, delay bounds, target messages per minute, monitored channels and report channel.",
	}, t.getPolicy)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "slowmode_update_policy",
		Description: "Change adaptive slowmode settings of a guild. Only the provided fields are changed. Delays are in seconds, target is messages per minute.",
	}, t.updatePolicy)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "slowmode_add_channel",
		Description: "Start monitoring a channel with adaptive slowmode.",
	}, t.addChannel)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "slowmode_remove_channel",
		Description: "Stop monitoring a channel with adaptive slowmode.",
	}, t.removeChannel)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "slowmode_channel_status",
		Description: "Get the recent per-minute message counts, live report and survey state of every monitored channel in a guild.",
	}, t.channelStatus)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "slowmode_start_survey",
		Description: "Watch a channel for five minutes, then set the guild's target and delay bounds from the observed activity and start monitoring the channel.",
	}, t.startSurvey)

	return server
}

// Run serves the MCP server over stdio
func Run(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

type tools struct {
	client *Client
}

// GuildInput identifies a guild
type GuildInput struct {
	GuildID string `json:"guild_id" jsonschema:"the guild (server) id"`
}

// ChannelInput identifies a channel in a guild
type ChannelInput struct {
	GuildID   string `json:"guild_id" jsonschema:"the guild (server) id"`
	ChannelID string `json:"channel_id" jsonschema:"the channel id"`
}

// UpdatePolicyInput is the input for slowmode_update_policy
type UpdatePolicyInput struct {
	GuildID         string  `json:"guild_id" jsonschema:"the guild (server) id"`
	Enabled         *bool   `json:"enabled,omitempty" jsonschema:"turn adaptive slowmode on or off"`
	MinDelay        *int    `json:"min_delay,omitempty" jsonschema:"lowest slowmode in seconds"`
	MaxDelay        *int    `json:"max_delay,omitempty" jsonschema:"highest slowmode in seconds"`
	Target          *int    `json:"target,omitempty" jsonschema:"target messages per minute"`
	ReportChannelID *string `json:"report_channel_id,omitempty" jsonschema:"channel receiving activity reports, empty to disable"`
}

// PolicyOutput wraps a policy
type PolicyOutput struct {
	Policy Policy `json:"policy"`
}

// StatusOutput is the output of slowmode_channel_status
type StatusOutput struct {
	Channels []ChannelStatus `json:"channels"`
}

// SurveyOutput is the output of slowmode_start_survey
type SurveyOutput struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

func policyResult(p *Policy, err error) (*mcp.CallToolResult, PolicyOutput, error) {
	if err != nil {
		return nil, PolicyOutput{}, err
	}
	return nil, PolicyOutput{Policy: *p}, nil
}

func (t *tools) getPolicy(ctx context.Context, req *mcp.CallToolRequest, in GuildInput) (*mcp.CallToolResult, PolicyOutput, error) {
	return policyResult(t.client.GetPolicy(ctx, in.GuildID))
}

func (t *tools) updatePolicy(ctx context.Context, req *mcp.CallToolRequest, in UpdatePolicyInput) (*mcp.CallToolResult, PolicyOutput, error) {
	return policyResult(t.client.UpdatePolicy(ctx, in.GuildID, PolicyUpdate{
		Enabled:         in.Enabled,
		MinDelay:        in.MinDelay,
		MaxDelay:        in.MaxDelay,
		Target:          in.Target,
		ReportChannelID: in.ReportChannelID,
	}))
}

func (t *tools) addChannel(ctx context.Context, req *mcp.CallToolRequest, in ChannelInput) (*mcp.CallToolResult, PolicyOutput, error) {
	return policyResult(t.client.AddChannel(ctx, in.GuildID, in.ChannelID))
}

func (t *tools) removeChannel(ctx context.Context, req *mcp.CallToolRequest, in ChannelInput) (*mcp.CallToolResult, PolicyOutput, error) {
	return policyResult(t.client.RemoveChannel(ctx, in.GuildID, in.ChannelID))
}

func (t *tools) channelStatus(ctx context.Context, req *mcp.CallToolRequest, in GuildInput) (*mcp.CallToolResult, StatusOutput, error) {
	channels, err := t.client.Status(ctx, in.GuildID)
	if err != nil {
		return nil, StatusOutput{}, err
	}
	return nil, StatusOutput{Channels: channels}, nil
}

func (t *tools) startSurvey(ctx context.Context, req *mcp.CallToolRequest, in ChannelInput) (*mcp.CallToolResult, SurveyOutput, error) {
	if err := t.client.StartSurvey(ctx, in.GuildID, in.ChannelID); err != nil {
		return nil, SurveyOutput{}, err
	}
	return nil, SurveyOutput{
		Started: true,
		Message: "Survey running for five minutes, results will be posted to the report channel.",
	}, nil
}
