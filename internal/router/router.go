// Package router serves the command table over HTTP with chi.
package router

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/rpc"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/token"
	"github.com/ovaphlow/pitchfork/service-user-go/pkg/utilities"
)

// APIPrefix is where the command routes are mounted.
const APIPrefix = "/api/v1"

var (
	errUnauthorized = apperr.Unauthorized("Unauthorized")
	errForbidden    = apperr.Forbidden("Forbidden resource")
)

// TokenParser verifies bearer tokens.
type TokenParser interface {
	Parse(raw string) (*token.Claims, error)
}

// PermissionChecker decides whether a caller may use a route.
type PermissionChecker interface {
	Allowed(ctx context.Context, userID, roleID int64, method, path string) (bool, error)
}

type Deps struct {
	Registry    *rpc.Registry
	Tokens      TokenParser
	Permissions PermissionChecker
	// Logs is optional; without it no api logs are written.
	Logs        LogRecorder
	Logger      *zap.SugaredLogger
	CORSOrigins []string
	Timeout     time.Duration
}

type gateway struct {
	reg    *rpc.Registry
	tokens TokenParser
	perms  PermissionChecker
	logger *zap.SugaredLogger
}

// New mounts every registered command under APIPrefix, plus GET /health.
func New(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop().Sugar()
	}
	if d.Timeout <= 0 {
		d.Timeout = 60 * time.Second
	}
	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	g := &gateway{reg: d.Registry, tokens: d.Tokens, perms: d.Permissions, logger: d.Logger}

	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(d.Logger))
	r.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         86400,
	}))
	r.Use(SecurityHeadersMiddleware())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route(APIPrefix, func(r chi.Router) {
		r.Use(middleware.Timeout(d.Timeout))
		if d.Logs != nil {
			r.Use(APILogMiddleware(d.Logs))
		}
		for _, ep := range d.Registry.Endpoints() {
			h := g.serve(ep)
			if !ep.Public {
				h = g.authorize(ep, h)
			}
			r.Method(ep.Method, ep.Path, h)
		}
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		g.writeError(w, r, apperr.NotFound("Cannot "+r.Method+" "+r.URL.Path))
	})
	return r
}

// RequestIDMiddleware keeps an incoming X-Request-Id or assigns a UUID, and
// stores it where middleware.GetReqID finds it.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(middleware.RequestIDHeader)
		if id == "" {
			id = utilities.NewRequestID()
		}
		w.Header().Set(middleware.RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (g *gateway) serve(ep rpc.Endpoint) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		out, err := g.reg.Invoke(r.Context(), ep, requestDecoder(w, r))
		if err != nil {
			g.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	})
}

// authorize requires a valid bearer token whose user and role hold an active
// grant for the endpoint's method and path.
func (g *gateway) authorize(ep rpc.Endpoint, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearer(r)
		if !ok {
			g.writeError(w, r, errUnauthorized)
			return
		}
		claims, err := g.tokens.Parse(raw)
		if err != nil {
			g.writeError(w, r, errUnauthorized)
			return
		}
		userID, _ := claims.UserID()
		setLoggedCaller(r.Context(), userID)

		allowed, err := g.perms.Allowed(r.Context(), userID, claims.RoleID, ep.Method, ep.Path)
		if err != nil {
			g.writeError(w, r, err)
			return
		}
		if !allowed {
			g.writeError(w, r, errForbidden)
			return
		}
		next.ServeHTTP(w, r.WithContext(rpc.WithCaller(r.Context(), userID)))
	})
}

func bearer(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if len(auth) < len("bearer ") || !strings.EqualFold(auth[:len("bearer ")], "bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(auth[len("bearer "):])
	return raw, raw != ""
}

func (g *gateway) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ae := apperr.From(err)
	if ae.Code >= http.StatusInternalServerError {
		g.logger.Errorw("request failed", "method", r.Method, "path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()), "err", err)
		if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
			hub.CaptureException(err)
		}
	}
	writeJSON(w, ae.Code, ae)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
