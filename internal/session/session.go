// Package session issues cookie-based login sessions. The cookie carries a
// signed HS256 token naming a session record kept in Redis; deleting the record
// ends the session even while the token is still unexpired.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/leafit/leafit-backend/internal/platform/access"
	"github.com/leafit/leafit-backend/internal/platform/logger"
	"github.com/redis/go-redis/v9"
)

const CookieName = "leafit_session"

var ErrNoSession = errors.New("no active session")

// Record is what the server remembers about a logged-in user.
type Record struct {
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

type claims struct {
	jwt.RegisteredClaims
}

type Manager struct {
	client *redis.Client
	prefix string
	secret []byte
	ttl    time.Duration
	secure bool
	log    *logger.Logger
}

// NewManager creates a session manager. secure switches the cookie to
// Secure + SameSite=None for cross-site production deployments.
func NewManager(client *redis.Client, prefix, secret string, ttl time.Duration, secure bool, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.Nop()
	}
	return &Manager{
		client: client,
		prefix: prefix,
		secret: []byte(secret),
		ttl:    ttl,
		secure: secure,
		log:    log.With("component", "session"),
	}
}

// Start creates a session record for the user and writes the cookie.
func (m *Manager) Start(c *gin.Context, userID, username string) error {
	ctx := c.Request.Context()
	sid := uuid.New().String()
	now := time.Now().UTC()

	data, err := json.Marshal(Record{UserID: userID, Username: username, CreatedAt: now})
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := m.client.Set(ctx, m.key(sid), data, m.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	token, err := m.sign(sid, userID, now)
	if err != nil {
		return err
	}
	m.setCookie(c, token, int(m.ttl.Seconds()))
	return nil
}

// Destroy removes the session record, if any, and clears the cookie.
func (m *Manager) Destroy(c *gin.Context) error {
	defer m.setCookie(c, "", -1)

	sid, _, err := m.parse(cookieValue(c))
	if err != nil {
		return nil
	}
	if err := m.client.Del(c.Request.Context(), m.key(sid)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Load resolves a cookie token to its live session record.
func (m *Manager) Load(ctx context.Context, token string) (*Record, error) {
	sid, sub, err := m.parse(token)
	if err != nil {
		return nil, ErrNoSession
	}

	data, err := m.client.Get(ctx, m.key(sid)).Bytes()
	if err == redis.Nil {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if rec.UserID != sub {
		return nil, ErrNoSession
	}
	return &rec, nil
}

// Middleware attaches the session actor to every request that carries a valid
// cookie. Requests without one continue anonymously.
func (m *Manager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := cookieValue(c)
		if token == "" {
			c.Next()
			return
		}

		rec, err := m.Load(c.Request.Context(), token)
		switch {
		case err == nil:
			SetActor(c, access.Actor{UserID: rec.UserID, Username: rec.Username})
		case !errors.Is(err, ErrNoSession):
			m.log.Warn("session lookup failed", "error", err)
		}
		c.Next()
	}
}

// RequireAuth rejects requests that have no session actor.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ActorFrom(c).Authenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		c.Next()
	}
}

func (m *Manager) sign(sid, userID string, now time.Time) (string, error) {
	cl := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sid,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, nil
}

func (m *Manager) parse(token string) (sid, sub string, err error) {
	if token == "" {
		return "", "", ErrNoSession
	}
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", "", err
	}
	cl, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid || cl.ID == "" || cl.Subject == "" {
		return "", "", ErrNoSession
	}
	return cl.ID, cl.Subject, nil
}

func (m *Manager) setCookie(c *gin.Context, value string, maxAge int) {
	if m.secure {
		c.SetSameSite(http.SameSiteNoneMode)
	} else {
		c.SetSameSite(http.SameSiteLaxMode)
	}
	c.SetCookie(CookieName, value, maxAge, "/", "", m.secure, true)
}

func (m *Manager) key(sid string) string {
	return fmt.Sprintf("%s:sess:%s", m.prefix, sid)
}

func cookieValue(c *gin.Context) string {
	v, err := c.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return v
}
