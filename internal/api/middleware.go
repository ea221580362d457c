package api

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"bizmanager/internal/auth"
	"bizmanager/internal/models"
)

const claimsKey = "claims"

// requireToken rejects requests without a valid bearer token and stores the
// claims for handlers.
func requireToken(tokens *auth.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			abortError(c, http.StatusUnauthorized, CodeUnauthorized, "Missing bearer token")
			return
		}
		claims, err := tokens.Parse(raw)
		if err != nil {
			abortError(c, http.StatusUnauthorized, CodeUnauthorized, "Invalid or expired token")
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// scopeBusiness refuses a business_id query parameter that names another
// tenant than the token.
func scopeBusiness() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.Query("business_id")
		if raw == "" {
			c.Next()
			return
		}
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || uint(id) != claimsFrom(c).BusinessID {
			abortError(c, http.StatusForbidden, CodeForbidden, "Business mismatch")
			return
		}
		c.Next()
	}
}

func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claimsFrom(c).Role != string(models.RoleAdmin) {
			abortError(c, http.StatusForbidden, CodeForbidden, "Admin access required")
			return
		}
		c.Next()
	}
}

func claimsFrom(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(claimsKey); ok {
		if cl, ok := v.(*auth.Claims); ok {
			return cl
		}
	}
	return &auth.Claims{}
}

// ipLimiter keeps one token bucket per client address.
type ipLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	ttl     time.Duration
	now     func() time.Time
	clients map[string]*client
}

type client struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(limit rate.Limit, burst int) *ipLimiter {
	return &ipLimiter{
		limit:   limit,
		burst:   burst,
		ttl:     10 * time.Minute,
		now:     time.Now,
		clients: map[string]*client{},
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, cl := range l.clients {
		if now.Sub(cl.lastSeen) > l.ttl {
			delete(l.clients, k)
		}
	}
	cl, ok := l.clients[ip]
	if !ok {
		cl = &client{lim: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = cl
	}
	cl.lastSeen = now
	return cl.lim.AllowN(now, 1)
}

func (l *ipLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.allow(c.ClientIP()) {
			abortError(c, http.StatusTooManyRequests, CodeRateLimited, "Too many login attempts, try again later")
			return
		}
		c.Next()
	}
}
