// Package api exposes the HTTP surface: profile and history endpoints,
// service status, and the realtime WebSocket used by coaching clients.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kinetic-data/repcoach/internal/db"
	"github.com/kinetic-data/repcoach/internal/httputil"
	"github.com/kinetic-data/repcoach/internal/session"
	"github.com/kinetic-data/repcoach/internal/version"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	db     *db.DB
	orch   *session.Orchestrator
	camera session.CameraControl
}

func NewServer(database *db.DB, orch *session.Orchestrator, camera session.CameraControl) *Server {
	return &Server{
		db:     database,
		orch:   orch,
		camera: camera,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.healthz)
	mux.HandleFunc("/api/status", s.showStatus)
	mux.HandleFunc("/api/users", s.usersCollection)
	mux.HandleFunc("/api/users/", s.userResource)
	mux.HandleFunc("/ws", s.serveWS)
	return mux
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]string{"status": "ok", "version": version.Version})
}

func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	status := map[string]interface{}{
		"camera_running":   s.camera.Running(),
		"camera_available": true,
		"fps":              s.camera.FPS(),
	}
	if avail, ok := s.camera.(interface{ Available() bool }); ok {
		status["camera_available"] = avail.Available()
	}
	httputil.WriteJSONOK(w, status)
}

func (s *Server) usersCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		users, err := s.db.ListUsers(r.Context())
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("Failed to list users: %v", err))
			return
		}
		if users == nil {
			users = []*db.User{}
		}
		httputil.WriteJSONOK(w, users)

	case http.MethodPost:
		var body struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Name) == "" {
			httputil.BadRequest(w, "A non-empty 'name' is required")
			return
		}
		user, err := s.db.CreateUser(r.Context(), strings.TrimSpace(body.Name))
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("Failed to create user: %v", err))
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, user)

	default:
		httputil.MethodNotAllowed(w)
	}
}

// userResource handles /api/users/{id} and /api/users/{id}/history.
func (s *Server) userResource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/users/")
	userID, sub, _ := strings.Cut(rest, "/")
	if userID == "" {
		httputil.NotFound(w, "User id required")
		return
	}

	if sub == "history" {
		s.userHistory(w, r, userID)
		return
	}
	if sub != "" {
		httputil.NotFound(w, "Unknown resource")
		return
	}

	switch r.Method {
	case http.MethodGet:
		user, err := s.db.GetUser(r.Context(), userID)
		if errors.Is(err, db.ErrNotFound) {
			httputil.NotFound(w, "User not found")
			return
		}
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("Failed to load user: %v", err))
			return
		}
		httputil.WriteJSONOK(w, user)

	case http.MethodPut:
		var body struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Name) == "" {
			httputil.BadRequest(w, "A non-empty 'name' is required")
			return
		}
		err := s.db.UpdateUserName(r.Context(), userID, strings.TrimSpace(body.Name))
		if errors.Is(err, db.ErrNotFound) {
			httputil.NotFound(w, "User not found")
			return
		}
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("Failed to update user: %v", err))
			return
		}
		user, err := s.db.GetUser(r.Context(), userID)
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("Failed to load user: %v", err))
			return
		}
		httputil.WriteJSONOK(w, user)

	case http.MethodDelete:
		err := s.db.DeleteUser(r.Context(), userID)
		if errors.Is(err, db.ErrNotFound) {
			httputil.NotFound(w, "User not found")
			return
		}
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("Failed to delete user: %v", err))
			return
		}
		httputil.WriteJSONOK(w, map[string]string{"deleted": userID})

	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) userHistory(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			httputil.BadRequest(w, "Invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	workouts, err := s.db.UserWorkouts(r.Context(), userID, limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to load history: %v", err))
		return
	}
	stats, err := s.db.UserStats(r.Context(), userID)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to load stats: %v", err))
		return
	}
	if workouts == nil {
		workouts = []*db.Workout{}
	}

	httputil.WriteJSONOK(w, map[string]interface{}{
		"sessions": workouts,
		"stats":    stats,
	})
}
