package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/jonathan/pathway-tracker/internal/config"
	"github.com/jonathan/pathway-tracker/internal/observability"
	"github.com/jonathan/pathway-tracker/internal/permissions"
	"github.com/jonathan/pathway-tracker/internal/server/middleware"
	"github.com/jonathan/pathway-tracker/internal/server/ratelimit"
	"github.com/jonathan/pathway-tracker/internal/tracker"
	"go.uber.org/zap"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// maxCSVBytes caps raw CSV uploads.
const maxCSVBytes = 10 << 20

// Server represents the HTTP server
type Server struct {
	httpServer     *http.Server
	svc            *tracker.Service
	logger         *zap.Logger
	metrics        *observability.Metrics
	rateLimiter    *ratelimit.Limiter
	jwtService     *JWTService
	userService    *UserService
	authHandler    *AuthHandler
	allowedOrigins []string
	handler        http.Handler
}

// Config holds server configuration
type Config struct {
	Port           int
	AllowedOrigins []string
	JWT            *config.JWTConfig
	Password       *config.PasswordConfig
	RateLimit      *ratelimit.Config
	Logger         *zap.Logger
	Metrics        *observability.Metrics
}

// New creates a new server instance over svc.
func New(cfg Config, svc *tracker.Service) (*Server, error) {
	if svc == nil {
		return nil, errors.New("tracker service is required")
	}
	if cfg.JWT == nil {
		return nil, errors.New("JWT config is required")
	}
	if cfg.Password == nil {
		return nil, errors.New("password config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		svc:            svc,
		logger:         logger,
		metrics:        cfg.Metrics,
		rateLimiter:    ratelimit.NewLimiter(cfg.RateLimit),
		jwtService:     NewJWTService(cfg.JWT),
		allowedOrigins: cfg.AllowedOrigins,
	}
	s.userService = NewUserService(svc.Store(), cfg.Password)
	s.authHandler = NewAuthHandler(s.userService, s.jwtService, logger)

	mux := http.NewServeMux()
	s.routes(mux)
	s.handler = s.withRateLimit(s.withMetrics(s.withLogging(s.withCORS(mux))))

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second, // sheet syncs and AI drafts
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())

	// Auth
	mux.HandleFunc("POST /api/auth/register", s.authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", s.authHandler.Login)
	mux.HandleFunc("POST /api/auth/refresh", s.authHandler.Refresh)
	mux.HandleFunc("POST /api/auth/logout", s.authHandler.Logout)
	mux.Handle("GET /api/auth/me", s.protect(s.authHandler.Me))
	mux.Handle("PUT /api/auth/password", s.protect(s.authHandler.UpdatePassword))

	// Members
	mux.Handle("GET /api/members", s.protect(s.handleListMembers, permissions.MemberView))
	mux.Handle("POST /api/members", s.protect(s.handleCreateMember, permissions.MemberCreate))
	mux.Handle("GET /api/members/{id}", s.protect(s.handleGetMember, permissions.MemberView))
	mux.Handle("PATCH /api/members/{id}", s.protect(s.handleUpdateMember, permissions.MemberEdit))
	mux.Handle("DELETE /api/members/{id}", s.protect(s.handleDeleteMember, permissions.MemberDelete))
	mux.Handle("POST /api/members/{id}/advance", s.protect(s.handleAdvanceMember, permissions.MemberAdvance))
	mux.Handle("POST /api/members/{id}/notes", s.protect(s.handleAddNote, permissions.NoteAdd))
	mux.Handle("PUT /api/members/{id}/assign", s.protect(s.handleAssignMember, permissions.MemberAssign))
	mux.Handle("POST /api/members/{id}/messages", s.protect(s.handleSendMessage, permissions.MessageSend))
	mux.Handle("POST /api/members/{id}/messages/draft", s.protect(s.handleDraftMessage, permissions.MessageAIDraft))

	// Tasks
	mux.Handle("GET /api/tasks", s.protect(s.handleListTasks, permissions.TaskView))
	mux.Handle("POST /api/tasks", s.protect(s.handleCreateTask, permissions.TaskCreate))
	mux.Handle("POST /api/tasks/{id}/toggle", s.protect(s.handleToggleTask, permissions.TaskEdit))
	mux.Handle("DELETE /api/tasks/{id}", s.protect(s.handleDeleteTask, permissions.TaskDelete))

	// Pipeline
	mux.Handle("GET /api/stages", s.protect(s.handleListStages, permissions.PipelineView))
	mux.Handle("POST /api/stages", s.protect(s.handleSaveStage, permissions.PipelineEdit))
	mux.Handle("PUT /api/stages/order", s.protect(s.handleReorderStages, permissions.PipelineEdit))
	mux.Handle("PUT /api/stages/{id}", s.protect(s.handleSaveStage, permissions.PipelineEdit))
	mux.Handle("DELETE /api/stages/{id}", s.protect(s.handleDeleteStage, permissions.PipelineEdit))
	mux.Handle("GET /api/rules", s.protect(s.handleListRules, permissions.PipelineView))
	mux.Handle("POST /api/rules", s.protect(s.handleSaveRule, permissions.AutomationManage))
	mux.Handle("PUT /api/rules/{id}", s.protect(s.handleSaveRule, permissions.AutomationManage))
	mux.Handle("DELETE /api/rules/{id}", s.protect(s.handleDeleteRule, permissions.AutomationManage))

	// Integrations
	mux.Handle("GET /api/integrations", s.protect(s.handleListIntegrations))
	mux.Handle("POST /api/integrations", s.protect(s.handleSaveIntegration, permissions.IntegrationManage))
	mux.Handle("POST /api/integrations/sync", s.protect(s.handleSyncAll, permissions.IntegrationSync))
	mux.Handle("PUT /api/integrations/{id}", s.protect(s.handleSaveIntegration, permissions.IntegrationManage))
	mux.Handle("DELETE /api/integrations/{id}", s.protect(s.handleDeleteIntegration, permissions.IntegrationManage))
	mux.Handle("POST /api/integrations/{id}/sync", s.protect(s.handleSyncIntegration, permissions.IntegrationSync))
	mux.Handle("POST /api/integrations/{id}/import", s.protect(s.handleImportCSV, permissions.IntegrationSync))

	// Forms
	mux.Handle("GET /api/forms", s.protect(s.handleListForms, permissions.FormView))
	mux.Handle("POST /api/forms", s.protect(s.handleSaveForm, permissions.FormManage))
	mux.Handle("GET /api/forms/{id}", s.protect(s.handleGetForm, permissions.FormView))
	mux.Handle("PUT /api/forms/{id}", s.protect(s.handleSaveForm, permissions.FormManage))
	mux.Handle("DELETE /api/forms/{id}", s.protect(s.handleDeleteForm, permissions.FormManage))
	mux.Handle("GET /api/forms/{id}/submissions", s.protect(s.handleListSubmissions, permissions.FormSubmissionsView))
	mux.HandleFunc("GET /api/public/forms/{id}", s.handleGetPublicForm)
	mux.HandleFunc("POST /api/public/forms/{id}", s.handleSubmitForm)

	// Academy
	mux.Handle("GET /api/academy/courses", s.protect(s.handleListCourses, permissions.AcademyView))
	mux.Handle("POST /api/academy/courses", s.protect(s.handleSaveCourse, permissions.AcademyManage))
	mux.Handle("PUT /api/academy/courses/{id}", s.protect(s.handleSaveCourse, permissions.AcademyManage))
	mux.Handle("GET /api/academy/progress", s.protect(s.handleListMyProgress, permissions.AcademyView))
	mux.Handle("GET /api/academy/courses/{id}/progress", s.protect(s.handleGetProgress, permissions.AcademyView))
	mux.Handle("POST /api/academy/courses/{id}/modules/{module}/watched", s.protect(s.handleMarkWatched, permissions.AcademyView))
	mux.Handle("POST /api/academy/courses/{id}/modules/{module}/quiz", s.protect(s.handleSubmitQuiz, permissions.AcademyView))

	// Users and reporting
	mux.Handle("GET /api/users", s.protect(s.handleListUsers, permissions.UserView))
	mux.Handle("PUT /api/users/{id}/role", s.protect(s.handleUpdateUserRole, permissions.RoleAssign))
	mux.Handle("GET /api/dashboard", s.protect(s.handleDashboard, permissions.MemberView, permissions.TaskView))
}

// protect wraps h with authentication and, when perms are given, a
// permission gate. The tracker repeats the checks on every command.
func (s *Server) protect(h http.HandlerFunc, perms ...permissions.Permission) http.Handler {
	var next http.Handler = h
	if len(perms) > 0 {
		next = middleware.RequirePermission(perms...)(next)
	}
	return middleware.AuthMiddleware(s.jwtService.AsTokenValidator(), s.userService.LoadPrincipal)(next)
}

// Handler returns the full middleware chain, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			s.rateLimiter.Stop()
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.rateLimiter.Stop()
	s.logger.Info("server stopped")
	return nil
}

// withCORS adds CORS headers for allowed origins.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := s.allowOrigin(r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			if origin != "*" {
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin, or
// "" when it is not allowed.
func (s *Server) allowOrigin(origin string) string {
	for _, allowed := range s.allowedOrigins {
		if allowed == "*" {
			return "*"
		}
		if origin != "" && strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)
		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)

		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, clientID, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withMetrics records request counts and latency by route pattern. The mux
// sets r.Pattern on the shared request, so it is read after serving.
func (s *Server) withMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.metrics.ObserveRequest(route, r.Method, m.Code, m.Duration)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", m.Code),
			zap.Duration("elapsed", m.Duration),
			zap.Int64("bytes", m.Written),
			zap.String("remote", r.RemoteAddr),
		}
		switch {
		case m.Code >= http.StatusInternalServerError:
			s.logger.Error("request", fields...)
		case r.URL.Path == "/health" || r.URL.Path == "/metrics":
			s.logger.Debug("request", fields...)
		default:
			s.logger.Info("request", fields...)
		}
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	if err := writeJSON(w, status, data); err != nil {
		s.logger.Warn("encode response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// fail maps err to a status and error body.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	s.jsonResponse(w, status, errorBody(err, status))
}

// decode reads a JSON body into dst, writing a 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		s.fail(w, r, &ErrValidation{Field: "body", Message: "invalid request body"})
		return false
	}
	return true
}

// principal returns the authenticated caller. protect guarantees one exists.
func (s *Server) principal(r *http.Request) permissions.Principal {
	p, _ := middleware.GetPrincipal(r)
	return p
}

// extractClientID extracts the client identifier from the request.
// It uses the IP address from RemoteAddr; forwarded headers are not trusted.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, clientID string, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		secs := int(info.RetryAfter.Seconds() + 0.999)
		response["retry_after"] = secs
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}

	s.logger.Warn("rate limit exceeded",
		zap.String("client", clientID),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("limit", info.Limit))

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
