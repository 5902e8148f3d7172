package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"hotel_booking/internal/adapters/observability"
)

func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler { return http.TimeoutHandler(next, d, "timeout") }
}

// ---- status-recording ResponseWriter ----

type srw struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (w *srw) WriteHeader(code int) {
	if !w.wrote {
		w.status = code
		w.wrote = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *srw) Write(b []byte) (int, error) {
	if !w.wrote {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *srw) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// ---- Metrics middleware ----

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &srw{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		observability.ObserveHTTP(routeOf(r), r.Method, sw.Status(), time.Since(start))
	})
}

// ---- Structured logging middleware ----

func Logger(l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &srw{ResponseWriter: w}
			next.ServeHTTP(sw, r)
			ev := l.Info()
			if sw.Status() >= http.StatusInternalServerError {
				ev = l.Error()
			}
			ev.
				Str("route", routeOf(r)).
				Str("method", r.Method).
				Int("status", sw.Status()).
				Dur("duration", time.Since(start)).
				Str("remote", remoteIP(r)).
				Str("ua", r.UserAgent()).
				Msg("http_request")
		})
	}
}

func routeOf(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// Picks first X-Forwarded-For IP, else X-Real-IP, else RemoteAddr host.
func remoteIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		return xrip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

// ---- Auth ----

const (
	RoleMaster     = "MASTER_ADMIN"
	RoleHotelAdmin = "HOTEL_ADMIN"
	RoleHotelStaff = "HOTEL_STAFF"
)

// Principal is the caller identified by the bearer token.
type Principal struct {
	Subject string
	Role    string
	HotelID int64 // 0 for master admins
}

// Claims are the token claims the API reads. Tokens are issued elsewhere.
type Claims struct {
	Role  string `json:"role"`
	Hotel int64  `json:"hotel,omitempty"`
	jwt.RegisteredClaims
}

type principalKey struct{}

func principalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// Auth verifies an HS256 bearer token and stores the Principal on the request.
func Auth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				writeProblem(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
				return
			}
			p, err := parseToken(strings.TrimSpace(raw), secret)
			if err != nil {
				writeProblem(w, http.StatusUnauthorized, "Unauthorized", "invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, p)))
		})
	}
}

func parseToken(raw string, secret []byte) (Principal, error) {
	var c Claims
	_, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return Principal{}, err
	}
	if c.Role == "" {
		c.Role = RoleHotelAdmin
	}
	switch c.Role {
	case RoleMaster:
	case RoleHotelAdmin, RoleHotelStaff:
		if c.Hotel <= 0 {
			return Principal{}, errors.New("hotel claim required")
		}
	default:
		return Principal{}, fmt.Errorf("unknown role %q", c.Role)
	}
	return Principal{Subject: c.Subject, Role: c.Role, HotelID: c.Hotel}, nil
}

// RequireRole lets the request through only for the listed roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := principalFrom(r.Context())
			if !ok {
				writeProblem(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
				return
			}
			if !slices.Contains(roles, p.Role) {
				writeProblem(w, http.StatusForbidden, "Forbidden", "role "+p.Role+" may not do this")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ---- Rate limiting ----

// limiterIdle is how long a caller's bucket survives without requests. A
// bucket idle that long is full again, so dropping it changes nothing.
const limiterIdle = 5 * time.Minute

type callerLimiter struct {
	lim  *rate.Limiter
	seen time.Time
}

// limiterSet holds one token bucket per caller and sweeps idle ones at most
// once per idle period.
type limiterSet struct {
	mu        sync.Mutex
	rps       int
	idle      time.Duration
	now       func() time.Time
	lastSweep time.Time
	callers   map[string]*callerLimiter
}

func newLimiterSet(rps int, idle time.Duration, now func() time.Time) *limiterSet {
	return &limiterSet{rps: rps, idle: idle, now: now, lastSweep: now(), callers: map[string]*callerLimiter{}}
}

func (s *limiterSet) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if now.Sub(s.lastSweep) >= s.idle {
		for k, c := range s.callers {
			if now.Sub(c.seen) >= s.idle {
				delete(s.callers, k)
			}
		}
		s.lastSweep = now
	}
	c, ok := s.callers[key]
	if !ok {
		c = &callerLimiter{lim: rate.NewLimiter(rate.Limit(s.rps), s.rps)}
		s.callers[key] = c
	}
	c.seen = now
	return c.lim
}

func (s *limiterSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.callers)
}

// RateLimit keeps one token bucket per caller (token subject, else client IP).
func RateLimit(rps int) func(http.Handler) http.Handler {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	set := newLimiterSet(rps, limiterIdle, time.Now)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := remoteIP(r)
			if p, ok := principalFrom(r.Context()); ok && p.Subject != "" {
				key = "sub:" + p.Subject
			}
			if !set.get(key).Allow() {
				w.Header().Set("Retry-After", "1")
				writeProblem(w, http.StatusTooManyRequests, "Too Many Requests", "booking rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
