package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"arthings/internal/apperr"
	"arthings/internal/config"
	"arthings/internal/database"
	"arthings/internal/logger"
	"arthings/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"golang.org/x/time/rate"
)

const SessionCookie = "session_id"

// ipLimiter hands out one token bucket per client IP and forgets clients
// that have been idle for longer than idleTTL.
type ipLimiter struct {
	mu      sync.Mutex
	clients map[string]*rateLimiter
	every   time.Duration
	burst   int
	idleTTL time.Duration
}

type rateLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(every time.Duration, burst int, idleTTL time.Duration) *ipLimiter {
	return &ipLimiter{
		clients: make(map[string]*rateLimiter),
		every:   every,
		burst:   burst,
		idleTTL: idleTTL,
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	client, exists := l.clients[ip]
	if !exists {
		client = &rateLimiter{limiter: rate.NewLimiter(rate.Every(l.every), l.burst)}
		l.clients[ip] = client
	}
	client.lastSeen = now

	for key, c := range l.clients {
		if now.Sub(c.lastSeen) > l.idleTTL {
			delete(l.clients, key)
		}
	}

	return client.limiter.Allow()
}

func (l *ipLimiter) middleware(cfg *config.Config, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip rate limiting in development mode
		if cfg.IsDevelopment() {
			c.Next()
			return
		}

		if !l.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": message})
			return
		}
		c.Next()
	}
}

func RateLimit(cfg *config.Config) gin.HandlerFunc {
	return newIPLimiter(time.Second/20, 20, 10*time.Minute).middleware(cfg, "Rate limit exceeded")
}

// AuthRateLimit guards login and registration against credential stuffing.
func AuthRateLimit(cfg *config.Config) gin.HandlerFunc {
	return newIPLimiter(time.Minute, 5, 30*time.Minute).middleware(cfg, "Too many attempts, please try again later")
}

type clientTracker struct {
	errors404    []time.Time
	blockedUntil time.Time
	lastSeen     time.Time
}

// Blocker bans IPs that produce too many 404s in a short window.
type Blocker struct {
	mu        sync.Mutex
	trackers  map[string]*clientTracker
	window    time.Duration
	threshold int
	banFor    time.Duration
}

func NewBlocker() *Blocker {
	return &Blocker{
		trackers:  make(map[string]*clientTracker),
		window:    5 * time.Minute,
		threshold: 10,
		banFor:    15 * time.Minute,
	}
}

func (b *Blocker) blocked(ip string, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.trackers[ip]
	return ok && now.Before(t.blockedUntil)
}

func (b *Blocker) record404(ip string, now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.trackers[ip]
	if !ok {
		t = &clientTracker{}
		b.trackers[ip] = t
	}
	t.lastSeen = now

	cutoff := now.Add(-b.window)
	recent := t.errors404[:0]
	for _, at := range t.errors404 {
		if at.After(cutoff) {
			recent = append(recent, at)
		}
	}
	t.errors404 = append(recent, now)

	if len(t.errors404) >= b.threshold {
		t.blockedUntil = now.Add(b.banFor)
		logger.Warn("Blocked IP after repeated 404s", "ip", ip, "count", len(t.errors404), "duration", b.banFor.String())
		t.errors404 = nil
	}

	for key, other := range b.trackers {
		if now.Sub(other.lastSeen) > 30*time.Minute && now.After(other.blockedUntil) {
			delete(b.trackers, key)
		}
	}
}

func (b *Blocker) IPBlocker(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip IP blocking in development mode
		if cfg.IsDevelopment() {
			c.Next()
			return
		}

		if b.blocked(c.ClientIP(), time.Now()) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Your IP has been temporarily blocked due to excessive invalid requests",
			})
			return
		}
		c.Next()
	}
}

func (b *Blocker) Track404AndBlock(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if cfg.IsDevelopment() || c.Writer.Status() != http.StatusNotFound {
			return
		}
		b.record404(c.ClientIP(), time.Now())
	}
}

func CORS(allowedOrigins string) gin.HandlerFunc {
	origins := make(map[string]bool)
	for _, o := range strings.Split(allowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins[o] = true
		}
	}

	return func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origins[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Vary", "Origin")
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-CSRF-Token")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// CSRF requires a single-use token on state-changing requests from an
// authenticated user. It must run after AuthRequired.
func CSRF(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip CSRF validation in development mode
		if cfg.IsDevelopment() {
			c.Next()
			return
		}

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		token := c.GetHeader("X-CSRF-Token")
		if token == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "CSRF token required"})
			return
		}

		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		if err := database.ValidateCSRFToken(db, token, user.ID); err != nil {
			if !apperr.Is(err, apperr.KindForbidden) {
				logger.Error("Failed to validate CSRF token", "user_id", user.ID, "error", err)
			}
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Invalid CSRF token"})
			return
		}

		c.Next()
	}
}

// CurrentUser returns the authenticated user set by AuthRequired or AuthOptional.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get("user")
	if !exists {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}

func clearSessionCookie(c *gin.Context, cfg *config.Config) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", !cfg.IsDevelopment(), true)
}

// authenticate resolves the session cookie. A non-nil error is an
// infrastructure failure; a missing or stale session yields (nil, nil).
func authenticate(c *gin.Context, db *sqlx.DB, cfg *config.Config) (*models.User, error) {
	sessionID, err := c.Cookie(SessionCookie)
	if err != nil || sessionID == "" {
		return nil, nil
	}

	user, err := database.ValidateSession(db, sessionID, cfg.SessionDuration)
	if err != nil {
		if apperr.Is(err, apperr.KindUnauthorized) {
			clearSessionCookie(c, cfg)
			return nil, nil
		}
		return nil, err
	}

	c.Set("user", user)
	c.Set("user_id", user.ID)
	return user, nil
}

func AuthRequired(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := authenticate(c, db, cfg)
		if err != nil {
			logger.Error("Failed to validate session", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		c.Next()
	}
}

// AuthOptional attaches the user when a valid session is present and never
// rejects the request.
func AuthOptional(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := authenticate(c, db, cfg); err != nil {
			logger.Warn("Failed to validate optional session", "error", err)
		}
		c.Next()
	}
}

// AdminRequired must run after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		if !user.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}

func SecurityHeaders(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if !cfg.IsDevelopment() {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}

func LogRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(start).String(),
			"ip", c.ClientIP(),
		}
		if status >= http.StatusInternalServerError {
			logger.Error("Request failed", fields...)
			return
		}
		logger.Info("Request", fields...)
	}
}

// Recovery turns a panic into a logged 500 with a generic JSON body.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("Panic while handling request", "path", c.Request.URL.Path, "panic", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	})
}
