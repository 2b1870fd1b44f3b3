package api

import (
	"crypto/subtle"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"tms/internal/config"
	"tms/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	apiKeyHeaderDefault   = "x-api-key"
	requestIDHeader       = "X-Request-ID"
	permReadLedger        = "read:ledger"
	permWriteLedger       = "write:ledger"
	permExport            = "read:export"
	clientKeyUnknown      = "unknown"
	endpointUnmatched     = "unmatched"
	defaultRateLimitBurst = 5
)

var (
	errMissingAPIKey    = errors.New("missing api key header")
	errInvalidAPIKey    = errors.New("invalid api key")
	errPermissionDenied = errors.New("permission denied")
	errRateLimited      = errors.New("rate limit exceeded")
)

// HTTPAuth provides API-key auth and per-client rate limiting.
type HTTPAuth struct {
	cfg     config.APIConfig
	clients []config.APIClientKey
	limiter *rateLimiter
}

func NewHTTPAuth(cfg config.APIConfig) *HTTPAuth {
	return &HTTPAuth{
		cfg:     cfg,
		clients: cfg.Auth.APIKeys,
		limiter: newRateLimiter(cfg.RateLimit),
	}
}

// Wrap guards next. Probe endpoints are always open.
func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isProbe(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if a.cfg.Auth.Enabled {
			if err := a.checkAuth(r); err != nil {
				statusCode := http.StatusUnauthorized
				if errors.Is(err, errPermissionDenied) {
					statusCode = http.StatusForbidden
				}
				writeError(w, statusCode, err.Error())
				return
			}
		}

		if !a.limiter.allow(a.clientKey(r)) {
			writeError(w, http.StatusTooManyRequests, errRateLimited.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (a *HTTPAuth) headerName() string {
	h := strings.TrimSpace(strings.ToLower(a.cfg.Auth.HeaderAPIKey))
	if h == "" {
		return apiKeyHeaderDefault
	}
	return h
}

func (a *HTTPAuth) checkAuth(r *http.Request) error {
	apiKey := strings.TrimSpace(r.Header.Get(a.headerName()))
	if apiKey == "" {
		return errMissingAPIKey
	}

	client, ok := a.lookup(apiKey)
	if !ok {
		return errInvalidAPIKey
	}
	return checkPermissions(client, r)
}

// lookup compares against every configured key in constant time.
func (a *HTTPAuth) lookup(apiKey string) (config.APIClientKey, bool) {
	var found config.APIClientKey
	ok := false
	for _, c := range a.clients {
		if subtle.ConstantTimeCompare([]byte(c.Key), []byte(apiKey)) == 1 {
			found, ok = c, true
		}
	}
	return found, ok
}

// checkPermissions treats an empty permission list as allow-all.
func checkPermissions(client config.APIClientKey, r *http.Request) error {
	if len(client.Permissions) == 0 {
		return nil
	}
	required := requiredPermission(r)
	for _, p := range client.Permissions {
		if strings.TrimSpace(p) == required {
			return nil
		}
	}
	return errPermissionDenied
}

func requiredPermission(r *http.Request) string {
	if strings.HasSuffix(r.URL.Path, ".xlsx") {
		return permExport
	}
	// Login and logout change only the session, not the ledger.
	if r.Method == http.MethodGet || strings.HasPrefix(r.URL.Path, "/api/v1/auth/") {
		return permReadLedger
	}
	return permWriteLedger
}

func (a *HTTPAuth) clientKey(r *http.Request) string {
	if apiKey := strings.TrimSpace(r.Header.Get(a.headerName())); apiKey != "" {
		return apiKey
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return clientKeyUnknown
}

func isProbe(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type rateLimiter struct {
	limiters sync.Map // map[string]*rate.Limiter
	cfg      config.APIRateLimitConfig
}

func newRateLimiter(cfg config.APIRateLimitConfig) *rateLimiter {
	return &rateLimiter{cfg: cfg}
}

// allow is always true when no rate is configured.
func (l *rateLimiter) allow(key string) bool {
	if l.cfg.RPS <= 0 {
		return true
	}
	return l.getLimiter(key).Allow()
}

func (l *rateLimiter) getLimiter(key string) *rate.Limiter {
	if v, ok := l.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}

	burst := l.cfg.Burst
	if burst <= 0 {
		burst = defaultRateLimitBurst
	}

	lim := rate.NewLimiter(rate.Limit(l.cfg.RPS), burst)
	actual, _ := l.limiters.LoadOrStore(key, lim)
	return actual.(*rate.Limiter)
}

// loggingMiddleware tags every request with an id, logs it and counts it
// per route pattern.
func loggingMiddleware(logger *zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		endpoint := r.Pattern
		if endpoint == "" {
			endpoint = endpointUnmatched
		}
		metrics.IncHTTP(endpoint)

		logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("endpoint", endpoint).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
