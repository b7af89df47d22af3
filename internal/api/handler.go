// Package api exposes the chat orchestration over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/voxcrm/server/internal/agent"
	"github.com/voxcrm/server/internal/agent/model"
	"github.com/voxcrm/server/internal/agent/ratelimit"
	"github.com/voxcrm/server/internal/crm"
	errx "github.com/voxcrm/server/internal/core/error"
	logx "github.com/voxcrm/server/pkg/logger"
)

// Config wires the handler's dependencies.
type Config struct {
	Agent    *agent.Agent
	Resolver crm.SessionResolver
	// IPLimiter throttles by client address before any authentication work.
	IPLimiter *ratelimit.Limiter
	// UserLimiter throttles by resolved user after authentication.
	UserLimiter *ratelimit.Limiter
}

type handler struct {
	cfg Config
}

// NewRouter builds the HTTP surface: POST /chat and GET /healthz.
func NewRouter(cfg Config) http.Handler {
	h := &handler{cfg: cfg}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.handleHealth)
	r.Post("/chat", h.handleChat)
	return r
}

// chatResponse is the success envelope of POST /chat.
type chatResponse struct {
	Response      string               `json:"response"`
	Success       bool                 `json:"success"`
	Duration      string               `json:"duration"`
	Model         string               `json:"model"`
	ClientActions []model.ClientAction `json:"clientActions,omitempty"`
	Cached        bool                 `json:"cached"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Success bool   `json:"success"`
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// IP throttle runs before anything touches the auth backend, so an
	// unauthenticated flood never reaches it.
	if d := h.cfg.IPLimiter.Check(ratelimit.IPKey(clientIP(r))); !d.Allowed {
		writeError(w, errx.RateLimited(d.RetryAfter))
		return
	}

	cookie, err := r.Cookie(crm.SessionCookieName)
	if err != nil {
		writeError(w, errx.Unauthorized(errors.New("missing session cookie")))
		return
	}
	user, err := h.cfg.Resolver.ResolveSession(ctx, cookie.Value)
	if err != nil {
		if errors.Is(err, crm.ErrUnauthenticated) {
			writeError(w, errx.Unauthorized(err))
			return
		}
		logx.Error().Err(err).Msg("session resolution failed")
		writeError(w, errx.Upstream(err))
		return
	}

	if d := h.cfg.UserLimiter.Check(ratelimit.UserKey(user.UserID)); !d.Allowed {
		writeError(w, errx.RateLimited(d.RetryAfter))
		return
	}

	var req model.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errx.Validation("malformed request body"))
		return
	}

	auth := &crm.AuthContext{Cookie: cookie.Value, User: *user}
	res, err := h.cfg.Agent.Chat(ctx, auth, req)
	if err != nil {
		if errx.StatusOf(err) >= http.StatusInternalServerError {
			logx.Error().Err(err).Str("session_id", req.SessionID).Msg("chat turn failed")
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Response:      res.Response,
		Success:       true,
		Duration:      res.Duration.Round(time.Millisecond).String(),
		Model:         res.Model,
		ClientActions: res.ClientActions,
		Cached:        res.Cached,
	})
}

func writeError(w http.ResponseWriter, err error) {
	var app *errx.AppError
	if errors.As(err, &app) && app.RetryAfter > 0 {
		secs := int(math.Ceil(app.RetryAfter.Seconds()))
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}
	writeJSON(w, errx.StatusOf(err), errorResponse{Error: errx.MessageOf(err)})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logx.Error().Err(err).Msg("failed to encode response")
	}
}

// clientIP trusts middleware.RealIP to have rewritten RemoteAddr and strips
// the port if one is present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
