package session

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/safar/go-bookstore/internal/config"
	"github.com/safar/go-bookstore/internal/database"
	"github.com/safar/go-bookstore/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	contextKey = "session"
	moduleName = "session"

	loginRequired = "Por favor inicia sesión para continuar"
)

// Scope names one of the two identities a session can carry.
type Scope int

const (
	ScopeStaff Scope = iota
	ScopeCustomer
)

// LoginPath is where an unauthenticated request for the scope is sent.
func (s Scope) LoginPath() string {
	if s == ScopeCustomer {
		return "/login-cliente"
	}
	return "/login"
}

type Manager struct {
	store      Store
	cookieName string
	secret     []byte
	ttl        time.Duration
	secure     bool
	logger     *logrus.Logger
}

func NewManager(store Store, cfg *config.SessionConfig) *Manager {
	return &Manager{
		store:      store,
		cookieName: cfg.CookieName,
		secret:     []byte(cfg.Secret),
		ttl:        cfg.TTL,
		secure:     cfg.SecureCookie,
		logger:     config.GetLogger(),
	}
}

func (m *Manager) sign(token string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(token))
	return token + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (m *Manager) verify(value string) (string, bool) {
	token, sig, ok := strings.Cut(value, ".")
	if !ok || token == "" {
		return "", false
	}
	expected := m.sign(token)
	if !hmac.Equal([]byte(expected), []byte(token+"."+sig)) {
		return "", false
	}
	return token, true
}

// setCookie replaces any session cookie already queued on the response.
func (m *Manager) setCookie(c *gin.Context, token string) {
	header := c.Writer.Header()
	var kept []string
	for _, v := range header.Values("Set-Cookie") {
		if !strings.HasPrefix(v, m.cookieName+"=") {
			kept = append(kept, v)
		}
	}
	header.Del("Set-Cookie")
	for _, v := range kept {
		header.Add("Set-Cookie", v)
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     m.cookieName,
		Value:    m.sign(token),
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Middleware loads the session named by the signed cookie, or starts a new
// one, and persists it after the handler when it changed.
func (m *Manager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var sess *Session
		if value, err := c.Cookie(m.cookieName); err == nil {
			if token, ok := m.verify(value); ok {
				found, exists, err := m.store.Get(ctx, token)
				if err != nil {
					config.LogError(m.logger, moduleName, "Middleware", "load session", nil, err)
					c.AbortWithStatus(http.StatusServiceUnavailable)
					return
				}
				if exists {
					sess = found
				}
			}
		}

		if sess == nil {
			sess = &Session{Token: uuid.NewString()}
		}
		// Re-issued on every request; the store slides its expiry on read.
		m.setCookie(c, sess.Token)

		c.Set(contextKey, sess)
		c.Next()

		if !sess.Dirty() {
			return
		}
		if err := m.store.Save(context.WithoutCancel(ctx), sess); err != nil {
			config.LogError(m.logger, moduleName, "Middleware", "save session", sess.Token, err)
		}
	}
}

// Renew moves the session to a fresh token, discarding the old one. Called
// on login so a pre-auth token never becomes an authenticated one.
func (m *Manager) Renew(c *gin.Context) *Session {
	sess := FromContext(c)
	old := sess.Token

	sess.Token = uuid.NewString()
	sess.dirty = true
	m.setCookie(c, sess.Token)

	if err := m.store.Destroy(c.Request.Context(), old); err != nil {
		config.LogError(m.logger, moduleName, "Renew", "destroy old session", old, err)
	}
	return sess
}

// Destroy ends the session. The request continues on a fresh anonymous
// session so a goodbye flash can still be shown.
func (m *Manager) Destroy(c *gin.Context) *Session {
	sess := FromContext(c)
	if err := m.store.Destroy(c.Request.Context(), sess.Token); err != nil {
		config.LogError(m.logger, moduleName, "Destroy", "destroy session", sess.Token, err)
	}

	sess.Reset()
	sess.Token = uuid.NewString()
	m.setCookie(c, sess.Token)
	return sess
}

// FromContext returns the session loaded by Middleware. It never returns nil.
func FromContext(c *gin.Context) *Session {
	if v, ok := c.Get(contextKey); ok {
		if sess, ok := v.(*Session); ok {
			return sess
		}
	}
	sess := &Session{Token: uuid.NewString()}
	c.Set(contextKey, sess)
	return sess
}

// Require sends requests without the scope's identity to that scope's login.
// Asynchronous requests get a 401 instead of a redirect.
func Require(scope Scope) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := FromContext(c)
		if sess.Has(scope) {
			c.Next()
			return
		}

		if c.GetHeader("X-Requested-With") == "XMLHttpRequest" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": loginRequired,
				"error":   database.ErrUnauthenticated.Error(),
			})
			return
		}

		sess.AddFlash(FlashWarning, loginRequired)
		c.Redirect(http.StatusSeeOther, scope.LoginPath())
		c.Abort()
	}
}

// RequireRole additionally restricts a staff route to one role.
func RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := FromContext(c)
		if sess.StaffRole == role {
			c.Next()
			return
		}

		sess.AddFlash(FlashError, "No tienes permisos para acceder a esta sección")
		c.Redirect(http.StatusSeeOther, "/dashboard")
		c.Abort()
	}
}
