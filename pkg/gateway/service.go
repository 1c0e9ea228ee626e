package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/DiscipleTools/agent-ai-sub003/pkg/bus"
	"github.com/DiscipleTools/agent-ai-sub003/pkg/config"
	"github.com/DiscipleTools/agent-ai-sub003/pkg/pipeline"
)

const (
	defaultHost = "0.0.0.0"
	defaultPort = 18790
)

// Pinger is implemented by config sources that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Listener is an inbound channel source (for example Telegram long polling)
// that feeds messages into the pipeline.
type Listener interface {
	Name() string
	Listen(ctx context.Context, handler bus.Handler) error
}

// Service exposes the pipeline over HTTP (webhooks, preview, health) and
// drives optional channel listeners.
type Service struct {
	cfg          *config.Config
	log          *slog.Logger
	orchestrator *pipeline.Orchestrator
	health       Pinger
	listeners    []Listener

	mu             sync.RWMutex
	startedAt      time.Time
	listenerStates map[string]listenerState
}

type listenerState struct {
	Running bool   `json:"running"`
	Error   string `json:"error,omitempty"`
}

type statusResponse struct {
	Status        string                   `json:"status"`
	UptimeSeconds int64                    `json:"uptime_seconds"`
	Listeners     map[string]listenerState `json:"listeners,omitempty"`
}

// NewService wires the HTTP surface around one orchestrator. health may be
// nil when the config source has no reachability probe; listeners may be
// empty for webhook-only deployments.
func NewService(cfg *config.Config, orchestrator *pipeline.Orchestrator, health Pinger, listeners []Listener, log *slog.Logger) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if orchestrator == nil {
		return nil, errors.New("orchestrator is required")
	}
	if log == nil {
		log = slog.Default()
	}

	listenerStates := make(map[string]listenerState, len(listeners))
	for _, listener := range listeners {
		listenerStates[listener.Name()] = listenerState{}
	}

	return &Service{
		cfg:            cfg,
		log:            log.With("component", "gateway.service"),
		orchestrator:   orchestrator,
		health:         health,
		listeners:      listeners,
		listenerStates: listenerStates,
	}, nil
}

// Run serves HTTP and drives listeners until the context is cancelled or a
// fatal server/listener error occurs.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	s.startedAt = time.Now().UTC()
	s.mu.Unlock()

	serverErrors := make(chan error, 1)
	go s.runHTTPServer(ctx, serverErrors)

	listenerErrors := make(chan error, len(s.listeners))
	for _, listener := range s.listeners {
		s.setListenerState(listener.Name(), listenerState{Running: true})

		go func() {
			err := listener.Listen(ctx, s.handleInbound)
			s.setListenerState(listener.Name(), listenerState{Running: false, Error: errorString(err)})
			if err != nil && !errors.Is(err, context.Canceled) {
				listenerErrors <- fmt.Errorf("run %s listener: %w", listener.Name(), err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-serverErrors:
		return err
	case err := <-listenerErrors:
		return err
	}
}

// handleInbound routes one listener message through the pipeline. Reply
// delivery happens inside the response stage; the listener only needs the
// error outcome.
func (s *Service) handleInbound(ctx context.Context, inbound bus.InboundMessage) error {
	result, err := s.orchestrator.Run(ctx, inbound.InboxID, inbound)
	if err != nil {
		return err
	}

	s.log.Info("Listener message processed",
		"inbox_id", inbound.InboxID,
		"conversation_id", inbound.ConversationID,
		"total_agents", result.TotalAgents,
		"successful_agents", result.SuccessfulAgents,
		"message_sent", result.Summary.MessageSent,
	)
	return nil
}

func (s *Service) runHTTPServer(ctx context.Context, errCh chan<- error) {
	host := strings.TrimSpace(s.cfg.Gateway.Host)
	if host == "" {
		host = defaultHost
	}

	port := s.cfg.Gateway.Port
	if port <= 0 {
		port = defaultPort
	}

	addr := host + ":" + strconv.Itoa(port)
	server := &http.Server{
		Addr:              addr,
		Handler:           s.router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.log.Info("Gateway server started", "address", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errCh <- fmt.Errorf("start gateway server: %w", err)
	}
}

func (s *Service) router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Post("/webhooks/{inboxID}", s.handleWebhook)
	r.Get("/inboxes/{inboxID}/plan", s.handlePlan)
	return r
}

// handleWebhook runs the pipeline for one inbound message. Payload
// validation beyond the envelope shape belongs to the ingestion layer in
// front of this service.
func (s *Service) handleWebhook(w http.ResponseWriter, r *http.Request) {
	inboxID := chi.URLParam(r, "inboxID")
	requestID := uuid.NewString()
	log := s.log.With("request_id", requestID, "inbox_id", inboxID)

	var inbound bus.InboundMessage
	if err := json.NewDecoder(r.Body).Decode(&inbound); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	inbound.InboxID = inboxID
	if strings.TrimSpace(inbound.Content) == "" {
		s.respondError(w, http.StatusBadRequest, "content is required")
		return
	}

	result, err := s.orchestrator.Run(r.Context(), inboxID, inbound)
	if err != nil {
		log.Error("Pipeline run rejected", "error", err)
		s.respondError(w, configStatusCode(err), err.Error())
		return
	}

	log.Info("Webhook processed", "total_agents", result.TotalAgents, "successful_agents", result.SuccessfulAgents)
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Service) handlePlan(w http.ResponseWriter, r *http.Request) {
	inboxID := chi.URLParam(r, "inboxID")

	plan, err := s.orchestrator.Preview(r.Context(), inboxID)
	if err != nil {
		s.respondError(w, configStatusCode(err), err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, plan)
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, s.currentStatus("ok"))
}

func (s *Service) handleReady(w http.ResponseWriter, r *http.Request) {
	statusCode := http.StatusOK
	status := "ready"
	if !s.isReady(r.Context()) {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	s.respondJSON(w, statusCode, s.currentStatus(status))
}

// configStatusCode maps the configuration fault taxonomy onto HTTP status
// codes so callers can tell "no such inbox" from "inbox turned off".
func configStatusCode(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrInboxNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrInboxInactive):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Service) respondJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("Failed to write response", "error", err)
	}
}

func (s *Service) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, map[string]string{"error": message})
}

func (s *Service) currentStatus(status string) statusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uptime := int64(0)
	if !s.startedAt.IsZero() {
		uptime = int64(time.Since(s.startedAt).Seconds())
	}

	listeners := make(map[string]listenerState, len(s.listenerStates))
	for name, state := range s.listenerStates {
		listeners[name] = state
	}

	return statusResponse{
		Status:        status,
		UptimeSeconds: uptime,
		Listeners:     listeners,
	}
}

func (s *Service) isReady(ctx context.Context) bool {
	if s.health != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := s.health.Ping(pingCtx); err != nil {
			return false
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, state := range s.listenerStates {
		if state.Error != "" {
			return false
		}
	}

	return true
}

func (s *Service) setListenerState(name string, state listenerState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listenerStates[name] = state
}

func errorString(err error) string {
	if err == nil {
		return ""
	}

	return err.Error()
}
