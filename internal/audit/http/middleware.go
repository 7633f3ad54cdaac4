package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	auditDomain "github.com/kvhuynh79-oss/sda-management-sub004/internal/audit/domain"
	apperrors "github.com/kvhuynh79-oss/sda-management-sub004/internal/errors"
	"github.com/kvhuynh79-oss/sda-management-sub004/internal/httputil"
)

// Identity headers set by the upstream gateway.
const (
	HeaderOrganizationID = "X-Organization-ID"
	HeaderUserID         = "X-User-ID"
	HeaderUserEmail      = "X-User-Email"
	HeaderUserName       = "X-User-Name"
)

// IdentityMiddleware reads the caller identity from the gateway headers and stores it in the
// request context. The headers are trusted as-is; X-Organization-ID and X-User-ID are required.
//
// Returns:
//   - 401 Unauthorized: organization or user header missing
//   - Continues: identity stored in context
func IdentityMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := &Identity{
			OrganizationID: strings.TrimSpace(c.GetHeader(HeaderOrganizationID)),
			Actor: auditDomain.Actor{
				UserID:    strings.TrimSpace(c.GetHeader(HeaderUserID)),
				UserEmail: strings.TrimSpace(c.GetHeader(HeaderUserEmail)),
				UserName:  strings.TrimSpace(c.GetHeader(HeaderUserName)),
			},
		}

		if identity.OrganizationID == "" || identity.UserID == "" {
			httputil.HandleErrorGin(
				c,
				apperrors.Wrap(apperrors.ErrUnauthorized, "missing identity headers"),
				logger,
			)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), identity))
		c.Next()
	}
}

// rateLimiterStore holds per-organization rate limiters. Limiters idle for staleAfter are
// dropped during lookups, at most once per sweepInterval.
type rateLimiterStore struct {
	mu        sync.Mutex
	limiters  map[string]*rateLimiterEntry
	rps       float64
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

type rateLimiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

const (
	sweepInterval = 5 * time.Minute
	staleAfter    = time.Hour
)

// RateLimitMiddleware enforces per-organization rate limiting.
//
// MUST be used after IdentityMiddleware. Uses the token bucket algorithm of
// golang.org/x/time/rate; every organization gets an independent limiter.
//
// Returns:
//   - 429 Too Many Requests: rate limit exceeded (includes Retry-After header)
//   - Continues: request allowed within rate limit
func RateLimitMiddleware(rps float64, burst int, logger *slog.Logger) gin.HandlerFunc {
	store := newRateLimiterStore(rps, burst)

	return func(c *gin.Context) {
		identity, ok := GetIdentity(c.Request.Context())
		if !ok || identity == nil {
			logger.Error("rate limit middleware: no identity in context")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		limiter := store.getLimiter(identity.OrganizationID)
		if !limiter.Allow() {
			reservation := limiter.Reserve()
			retryAfter := int(reservation.Delay().Seconds()) + 1
			reservation.Cancel()

			logger.Debug("rate limit exceeded",
				slog.String("organization_id", identity.OrganizationID),
				slog.Int("retry_after", retryAfter))

			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": "Too many requests. Please retry after the specified delay.",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func newRateLimiterStore(rps float64, burst int) *rateLimiterStore {
	return &rateLimiterStore{
		limiters: make(map[string]*rateLimiterEntry),
		rps:      rps,
		burst:    burst,
		now:      time.Now,
	}
}

// getLimiter retrieves or creates the limiter of an organization.
func (s *rateLimiterStore) getLimiter(organizationID string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= sweepInterval {
		for id, entry := range s.limiters {
			if now.Sub(entry.lastAccess) >= staleAfter {
				delete(s.limiters, id)
			}
		}
		s.lastSweep = now
	}

	entry, ok := s.limiters[organizationID]
	if !ok {
		entry = &rateLimiterEntry{limiter: rate.NewLimiter(rate.Limit(s.rps), s.burst)}
		s.limiters[organizationID] = entry
	}
	entry.lastAccess = now
	return entry.limiter
}
