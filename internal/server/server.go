// internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/ThinkInAIXYZ/go-mcp/server"

	"mcp-nutrition-tracker/internal/meal"
	"mcp-nutrition-tracker/internal/nutrition"
	"mcp-nutrition-tracker/internal/storage"
)

const (
	Version     = "1.0.0"
	defaultTDEE = 2000

	defaultSessionTTL = 2 * time.Hour
)

type Config struct {
	Transport   string
	Host        string
	Port        int
	DBPath      string
	UploadURL   string
	DefaultTDEE float64
	SessionTTL  time.Duration // idle meal sessions older than this are discarded
	Logger      *slog.Logger
}

// toolFunc handles one tool call; the returned value is sent back as JSON text content.
type toolFunc func(ctx context.Context, args interface{}) (interface{}, error)

type NutritionServer struct {
	server     *server.Server
	httpServer *http.Server
	storage    *storage.SQLiteStorage
	lookup     ProfileLookup
	recorder   *meal.Recorder
	sessions   *sessionStore
	tools      map[string]toolFunc
	logger     *slog.Logger
	config     *Config
}

func NewNutritionServer(cfg *Config) (*NutritionServer, error) {
	// Initialize database
	stor, err := storage.NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	s := newNutritionServer(cfg, stor, NewProfileClient(), NewHTTPUploader(cfg.UploadURL))

	mcpServer, err := server.NewServer(
		nil, // transport is handled by handleHTTP
		server.WithServerInfo(protocol.Implementation{
			Name:    "nutrition-tracker",
			Version: Version,
		}),
	)
	if err != nil {
		stor.Close()
		return nil, fmt.Errorf("failed to create MCP server: %w", err)
	}
	s.server = mcpServer

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHTTP)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

func newNutritionServer(cfg *Config, stor *storage.SQLiteStorage, lookup ProfileLookup, uploader meal.ImageUploader) *NutritionServer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DefaultTDEE <= 0 {
		cfg.DefaultTDEE = defaultTDEE
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	s := &NutritionServer{
		storage:  stor,
		lookup:   lookup,
		recorder: meal.NewRecorder(uploader, stor),
		sessions: newSessionStore(),
		logger:   logger,
		config:   cfg,
	}
	s.registerTools()
	return s
}

func (s *NutritionServer) handleHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if r.Method == http.MethodOptions {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request protocol.CallToolRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	tool, ok := s.tools[request.Name]
	if !ok {
		http.Error(w, fmt.Sprintf("Unknown tool: %s", request.Name), http.StatusNotFound)
		return
	}

	data, err := tool(r.Context(), request.Arguments)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("tool call failed", "tool", request.Name, "error", err)
		}
		http.Error(w, err.Error(), status)
		return
	}

	result, err := s.createJSONResponse(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func statusFor(err error) int {
	var upstream *meal.UpstreamError
	switch {
	case errors.As(err, &upstream):
		return http.StatusBadGateway
	case errors.Is(err, meal.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUnknownSession), errors.Is(err, nutrition.ErrUnknownFood):
		return http.StatusNotFound
	case errors.Is(err, nutrition.ErrNotEditing), errors.Is(err, nutrition.ErrAlreadyEditing):
		return http.StatusConflict
	case errors.Is(err, errInvalidParams), errors.Is(err, meal.ErrEmptyMeal):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *NutritionServer) Start(ctx context.Context) error {
	s.logger.Info("starting nutrition server", "addr", s.httpServer.Addr, "transport", s.config.Transport)
	go s.sweepSessions(ctx)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// sweepSessions discards abandoned meal sessions until ctx is done.
func (s *NutritionServer) sweepSessions(ctx context.Context) {
	interval := s.config.SessionTTL / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.sessions.sweep(now, s.config.SessionTTL); n > 0 {
				s.logger.Info("discarded idle meal sessions", "count", n, "remaining", s.sessions.len())
			}
		}
	}
}

func (s *NutritionServer) Stop(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	if s.storage != nil {
		s.storage.Close()
	}
	return err
}

func (s *NutritionServer) createJSONResponse(data interface{}) (*protocol.CallToolResult, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}

	return &protocol.CallToolResult{
		Content: []protocol.Content{
			protocol.TextContent{
				Type: "text",
				Text: string(jsonBytes),
			},
		},
	}, nil
}
