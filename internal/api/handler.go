package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/DevRickLin/adaptive-slowmode/internal/biz/domain"
	"github.com/DevRickLin/adaptive-slowmode/internal/biz/usecase"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PolicyManager reads and changes guild policies
type PolicyManager interface {
	Get(ctx context.Context, guildID string) (*domain.GuildPolicy, error)
	Update(ctx context.Context, guildID string, update usecase.PolicyUpdate) (*domain.GuildPolicy, error)
	AddChannel(ctx context.Context, guildID, channelID string) (*domain.GuildPolicy, error)
	RemoveChannel(ctx context.Context, guildID, channelID string) (*domain.GuildPolicy, error)
}

// StatusReader reports the controller's view of a guild
type StatusReader interface {
	Status(ctx context.Context, guildID string) ([]usecase.ChannelStatus, error)
}

// SurveyStarter starts background calibration surveys
type SurveyStarter interface {
	Start(guildID, channelID string) error
}

// Server provides the admin HTTP API used by operators and the MCP sidecar
type Server struct {
	policies PolicyManager
	status   StatusReader
	surveys  SurveyStarter
	logger   *slog.Logger

	server *http.Server
	addr   string
}

// Policy is the JSON view of a guild policy
type Policy struct {
	GuildID         string   `json:"guild_id"`
	Enabled         bool     `json:"enabled"`
	MinDelay        int      `json:"min_delay"`
	MaxDelay        int      `json:"max_delay"`
	Target          int      `json:"target"`
	Channels        []string `json:"channels"`
	ReportChannelID string   `json:"report_channel_id"`
}

// NewPolicy converts a domain policy to its JSON view
func NewPolicy(p *domain.GuildPolicy) Policy {
	channels := p.Channels
	if channels == nil {
		channels = []string{}
	}
	return Policy{
		GuildID:         p.GuildID,
		Enabled:         p.Enabled,
		MinDelay:        p.MinDelay,
		MaxDelay:        p.MaxDelay,
		Target:          p.Target,
		Channels:        channels,
		ReportChannelID: p.ReportChannelID,
	}
}

// NewServer creates a new API server
func NewServer(policies PolicyManager, status StatusReader, surveys SurveyStarter, addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		policies: policies,
		status:   status,
		surveys:  surveys,
		addr:     addr,
		logger:   logger.With("component", "api"),
	}
}

// Handler returns the HTTP handler of the API
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Guild operations
	mux.HandleFunc("/api/guilds/", s.handleGuild)

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler())

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return mux
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	s.logger.Info("starting HTTP server", "addr", s.addr)
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// ============ Guild Handlers ============

func (s *Server) handleGuild(w http.ResponseWriter, r *http.Request) {
	// Parse path: /api/guilds/{guild}/policy, /status, /channels/{channel}[/survey]
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/guilds/"), "/")
	parts := strings.Split(path, "/")
	if len(parts) < 2 || parts[0] == "" {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}

	guildID := parts[0]
	switch {
	case len(parts) == 2 && parts[1] == "policy":
		s.handlePolicy(w, r, guildID)
	case len(parts) == 2 && parts[1] == "status":
		s.handleStatus(w, r, guildID)
	case len(parts) == 3 && parts[1] == "channels" && parts[2] != "":
		s.handleChannel(w, r, guildID, parts[2])
	case len(parts) == 4 && parts[1] == "channels" && parts[2] != "" && parts[3] == "survey":
		s.handleSurvey(w, r, guildID, parts[2])
	default:
		http.Error(w, "unknown action", http.StatusNotFound)
	}
}

func (s *Server) handlePolicy(w http.ResponseWriter, r *http.Request, guildID string) {
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		p, err := s.policies.Get(ctx, guildID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, NewPolicy(p))

	case http.MethodPut, http.MethodPatch:
		var update usecase.PolicyUpdate
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		p, err := s.policies.Update(ctx, guildID, update)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.logger.Info("policy updated", "guild", guildID)
		s.writeJSON(w, NewPolicy(p))

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request, guildID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	channels, err := s.status.Status(r.Context(), guildID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, map[string]interface{}{"guild_id": guildID, "channels": channels})
}

func (s *Server) handleChannel(w http.ResponseWriter, r *http.Request, guildID, channelID string) {
	var (
		p   *domain.GuildPolicy
		err error
	)
	switch r.Method {
	case http.MethodPost, http.MethodPut:
		p, err = s.policies.AddChannel(r.Context(), guildID, channelID)
	case http.MethodDelete:
		p, err = s.policies.RemoveChannel(r.Context(), guildID, channelID)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, NewPolicy(p))
}

func (s *Server) handleSurvey(w http.ResponseWriter, r *http.Request, guildID, channelID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.surveys.Start(guildID, channelID); err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"guild_id":   guildID,
		"channel_id": channelID,
		"window":     domain.SurveyWindow.String(),
	})
}

// ============ Helpers ============

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidPolicy):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrSurveyRunning):
		status = http.StatusConflict
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
