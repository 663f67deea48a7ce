package v1

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/service"
	"github.com/dmehra2102/prod-golang-projects/neuroref/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	ctxUserKey      = "neuroref.user"
	ctxRequestIDKey = "neuroref.request_id"
	requestIDHeader = "X-Request-ID"
	userIDHeader    = "X-User-ID"
)

// RequestID tags the request with an id (the caller's, when it sent one)
// and stamps client address and id onto the request context for auditing.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(ctxRequestIDKey, id)
		c.Header(requestIDHeader, id)

		ctx := service.WithRequestMeta(c.Request.Context(), service.RequestMeta{
			IPAddress: c.ClientIP(),
			RequestID: id,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func AccessLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
			zap.String("request_id", c.GetString(ctxRequestIDKey)),
		}
		if u := currentUser(c); u != nil {
			fields = append(fields, zap.Uint("user_id", u.ID))
		}
		switch {
		case status >= http.StatusInternalServerError:
			log.Error("request failed", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("request rejected", fields...)
		default:
			log.Info("request served", fields...)
		}
	}
}

func Metrics(m *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.InFlightGauge.Inc()
		defer m.InFlightGauge.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.RequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.RequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

// ipLimiter keeps one token bucket per client address. Buckets idle for
// longer than ttl are swept lazily.
type ipLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	visitors  map[string]*visitor
	lastSweep time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(limit rate.Limit, burst int) *ipLimiter {
	return &ipLimiter{
		limit:     limit,
		burst:     burst,
		ttl:       10 * time.Minute,
		visitors:  make(map[string]*visitor),
		lastSweep: time.Now(),
	}
}

func (l *ipLimiter) allow(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > l.ttl {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) > l.ttl {
				delete(l.visitors, k)
			}
		}
		l.lastSweep = now
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func RateLimit(l *ipLimiter, scope string, m *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.allow(c.ClientIP(), time.Now()) {
			m.RateLimited.WithLabelValues(scope).Inc()
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error: "too many requests",
				Code:  "RATE_LIMITED",
			})
			return
		}
		c.Next()
	}
}

type identityResolver interface {
	Resolve(ctx context.Context, c service.IdentityClaims) (*domain.User, error)
}

type tokenValidator interface {
	ValidateAccessToken(token string) (*domain.Claims, error)
}

// Identity resolves the caller from the userId query parameter, the user id
// header and the bearer token, in that order, and aborts with 401 when none
// names an active user.
func Identity(resolver identityResolver, tokens tokenValidator, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := service.IdentityClaims{HeaderUserID: c.GetHeader(userIDHeader)}
		if claims.HeaderUserID == "" {
			claims.HeaderUserID = c.GetHeader("userId")
		}
		if raw := c.Query("userId"); raw != "" {
			if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
				v := uint(id)
				claims.ParamUserID = &v
			}
		}
		if token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok {
			tc, err := tokens.ValidateAccessToken(strings.TrimSpace(token))
			switch {
			case err != nil:
				log.Debug("ignoring invalid bearer token", zap.Error(err))
			case tc.UserID != 0:
				claims.Principal = strconv.FormatUint(uint64(tc.UserID), 10)
			default:
				claims.Principal = tc.Email
			}
		}

		u, err := resolver.Resolve(c.Request.Context(), claims)
		if err != nil {
			respondServiceError(c, err)
			c.Abort()
			return
		}
		c.Set(ctxUserKey, u)
		c.Next()
	}
}

func requireRoles(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := currentUser(c)
		if u == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
			return
		}
		if !slices.Contains(roles, u.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "access denied"})
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *domain.User {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*domain.User)
	return u
}
