// Package api serves the locally cached realtime state over HTTP, so
// dashboards and scripts on the same machine can poll job and queue
// snapshots without their own database subscription.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"igait-client/internal/domain"
	"igait-client/internal/realtime"
)

type Server struct {
	router *mux.Router
	sub    *realtime.Subscriber
	logger *zap.Logger
	server *http.Server
	addr   string

	mu          sync.RWMutex
	jobs        realtime.AllJobsState
	queues      realtime.QueuesState
	queueConfig realtime.QueueConfigState

	unsubs []realtime.Unsubscribe
}

func NewServer(addr string, sub *realtime.Subscriber, logger *zap.Logger) *Server {
	s := &Server{
		router: mux.NewRouter(),
		sub:    sub,
		logger: logger,
		addr:   addr,
	}

	s.setupRoutes()
	s.setupMiddleware()

	return s
}

func (s *Server) setupRoutes() {
	apiRouter := s.router.PathPrefix("/api/v1").Subrouter()

	apiRouter.HandleFunc("/jobs", s.listJobs).Methods("GET")
	apiRouter.HandleFunc("/queues", s.listQueues).Methods("GET")
	apiRouter.HandleFunc("/queue_config", s.getQueueConfig).Methods("GET")
	apiRouter.HandleFunc("/queues/{stage}/{key}/approve", s.approveItem).Methods("POST")
	apiRouter.HandleFunc("/queue_config/{stage}", s.updateQueueConfig).Methods("PUT")

	s.router.HandleFunc("/health", s.healthCheck).Methods("GET")

	s.router.NotFoundHandler = http.HandlerFunc(s.notFoundHandler)
}

func (s *Server) setupMiddleware() {
	s.router.Use(s.corsMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.recoveryMiddleware)
}

// Middleware
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		if r.URL.Path != "/health" {
			s.logger.Debug("request served",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Duration("took", time.Since(start)))
		}
	})
}

func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered", zap.Any("panic", err))
				s.respondWithError(w, http.StatusInternalServerError, "Internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// Handlers
func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	state := s.jobs
	s.mu.RUnlock()

	if !s.requireLoaded(w, string(state.Status), state.Error) {
		return
	}

	response := map[string]any{
		"jobs":  state.Jobs,
		"count": len(state.Jobs),
	}
	s.respondWithJSON(w, http.StatusOK, response)
}

func (s *Server) listQueues(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	state := s.queues
	s.mu.RUnlock()

	if !s.requireLoaded(w, string(state.Status), state.Error) {
		return
	}

	s.respondWithJSON(w, http.StatusOK, state.Queues)
}

func (s *Server) getQueueConfig(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	state := s.queueConfig
	s.mu.RUnlock()

	if !s.requireLoaded(w, string(state.Status), state.Error) {
		return
	}

	s.respondWithJSON(w, http.StatusOK, state.Configs)
}

// approveItem flips the approval flag on a queued item. The item must be
// present in the cached queues snapshot.
func (s *Server) approveItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	stage := vars["stage"]
	key := vars["key"]

	s.mu.RLock()
	state := s.queues
	s.mu.RUnlock()

	if !s.requireLoaded(w, string(state.Status), state.Error) {
		return
	}

	item, ok := s.findQueueItem(state.Queues, stage, key)
	if !ok {
		s.respondWithError(w, http.StatusNotFound, "Queue item not found")
		return
	}

	if err := s.sub.ApproveQueueItem(r.Context(), stage, key, item); err != nil {
		s.logger.Error("approval failed",
			zap.String("stage", stage), zap.String("key", key), zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "Failed to approve queue item")
		return
	}

	s.respondWithJSON(w, http.StatusOK, map[string]string{"message": "Queue item approved"})
}

func (s *Server) findQueueItem(queues domain.QueuesData, stage, key string) (domain.QueueItem, bool) {
	if stage == domain.FinalizeKey {
		item, ok := queues.Finalize[key]
		return item.QueueItem, ok
	}
	bucket := queues.Stage(stage)
	if bucket == nil {
		return domain.QueueItem{}, false
	}
	item, ok := bucket[key]
	return item, ok
}

func (s *Server) updateQueueConfig(w http.ResponseWriter, r *http.Request) {
	stage := mux.Vars(r)["stage"]

	var body struct {
		RequiresApproval *bool `json:"requires_approval"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RequiresApproval == nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.sub.SetQueueRequiresApproval(r.Context(), stage, *body.RequiresApproval); err != nil {
		s.logger.Error("queue config update failed",
			zap.String("stage", stage), zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "Failed to update queue config")
		return
	}

	s.respondWithJSON(w, http.StatusOK, map[string]string{"message": "Queue config updated"})
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	jobsStatus := s.jobs.Status
	s.mu.RUnlock()

	response := map[string]any{
		"status":    "healthy",
		"service":   "igait-status",
		"jobs":      jobsStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	s.respondWithJSON(w, http.StatusOK, response)
}

func (s *Server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	s.respondWithError(w, http.StatusNotFound, "Endpoint not found")
}

// requireLoaded turns a not-yet-loaded or failed snapshot into the right
// HTTP status so pollers can distinguish warmup from failure.
func (s *Server) requireLoaded(w http.ResponseWriter, status, errMsg string) bool {
	switch realtime.Status(status) {
	case realtime.StatusLoaded:
		return true
	case realtime.StatusError:
		s.respondWithError(w, http.StatusBadGateway, errMsg)
		return false
	}
	s.respondWithError(w, http.StatusServiceUnavailable, "Snapshot not loaded yet")
	return false
}

// Helper functions
func (s *Server) respondWithJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondWithError(w http.ResponseWriter, status int, message string) {
	s.respondWithJSON(w, status, map[string]string{"error": message})
}

// Server lifecycle
func (s *Server) Start() error {
	s.attachSubscriptions()

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting status server", zap.String("addr", s.addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("status server failed: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	for _, unsub := range s.unsubs {
		unsub()
	}
	if s.server != nil {
		s.logger.Info("shutting down status server")
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) attachSubscriptions() {
	s.unsubs = append(s.unsubs,
		s.sub.SubscribeToAllJobs(func(state realtime.AllJobsState) {
			s.mu.Lock()
			s.jobs = state
			s.mu.Unlock()
		}),
		s.sub.SubscribeToQueues(func(state realtime.QueuesState) {
			s.mu.Lock()
			s.queues = state
			s.mu.Unlock()
		}),
		s.sub.SubscribeToQueueConfigs(func(state realtime.QueueConfigState) {
			s.mu.Lock()
			s.queueConfig = state
			s.mu.Unlock()
		}),
	)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
