package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	"qprofile/internal/config"
	"qprofile/pkg/logging"
)

const userSessionKey = "user_session"

// TokenResolver maps bearer tokens to user sessions.
type TokenResolver struct {
	sessions map[string]UserSession
}

func NewTokenResolver(cfg config.AuthConfig) *TokenResolver {
	sessions := make(map[string]UserSession, len(cfg.Tokens))
	for _, t := range cfg.Tokens {
		sessions[t.Token] = NewUserSession(t.Login, t.Capabilities...)
	}
	return &TokenResolver{sessions: sessions}
}

func (r *TokenResolver) Resolve(token string) UserSession {
	if s, ok := r.sessions[token]; ok {
		return s
	}
	return Anonymous()
}

// Middleware attaches a UserSession to every request. Unknown or missing
// tokens produce an anonymous session; rejection is left to the operation.
func Middleware(resolver *TokenResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ""
		if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
			token = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		}

		session := resolver.Resolve(token)
		c.Set(userSessionKey, session)
		if session.IsLoggedIn() {
			c.Request = c.Request.WithContext(logging.WithUserLogin(c.Request.Context(), session.Login()))
		}
		c.Next()
	}
}

func FromGin(c *gin.Context) UserSession {
	if v, ok := c.Get(userSessionKey); ok {
		if s, ok := v.(UserSession); ok {
			return s
		}
	}
	return Anonymous()
}
