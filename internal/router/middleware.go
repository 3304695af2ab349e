package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	logrepo "github.com/ovaphlow/pitchfork/service-user-go/internal/monitoring/repo"
)

// statusWriter wraps http.ResponseWriter to capture status and size.
type statusWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (sw *statusWriter) WriteHeader(code int) {
	if sw.status == 0 {
		sw.status = code
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if sw.status == 0 {
		sw.status = http.StatusOK
	}
	n, err := sw.ResponseWriter.Write(b)
	sw.size += n
	return n, err
}

func (sw *statusWriter) Status() int {
	if sw.status == 0 {
		return http.StatusOK
	}
	return sw.status
}

// LoggingMiddleware logs every request with the sugared logger. Server errors
// are logged at warn, everything else at debug.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r)
			dur := time.Since(start)

			fields := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"request_id", middleware.GetReqID(r.Context()),
				"status", sw.Status(),
				"duration_ms", float64(dur.Microseconds()) / 1000.0,
				"size", sw.size,
			}
			if sw.Status() >= http.StatusInternalServerError {
				logger.Warnw("http request", fields...)
				return
			}
			logger.Debugw("http request", fields...)
		})
	}
}

// SecurityHeadersMiddleware sets common HTTP security headers. The API only
// serves JSON, so the content security policy denies everything.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			if h.Get("Content-Security-Policy") == "" {
				h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			}
			if r.TLS != nil {
				h.Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LogRecorder persists one api log row per request.
type LogRecorder interface {
	Record(ctx context.Context, e logrepo.Entry)
}

type callerSlot struct {
	userID *int64
}

type callerSlotKey struct{}

// setLoggedCaller tells the api log middleware who made the request.
func setLoggedCaller(ctx context.Context, userID int64) {
	if slot, ok := ctx.Value(callerSlotKey{}).(*callerSlot); ok {
		slot.userID = &userID
	}
}

// APILogMiddleware records every request that reaches it. The caller is
// filled in by the auth step further down the chain.
func APILogMiddleware(rec LogRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			slot := &callerSlot{}
			sw := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r.WithContext(context.WithValue(r.Context(), callerSlotKey{}, slot)))

			rec.Record(context.WithoutCancel(r.Context()), logrepo.Entry{
				UserID:     slot.userID,
				Method:     r.Method,
				URL:        r.URL.RequestURI(),
				StatusCode: sw.Status(),
				DurationMs: time.Since(start).Milliseconds(),
				RequestID:  middleware.GetReqID(r.Context()),
			})
		})
	}
}
