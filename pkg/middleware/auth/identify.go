package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/pkg/tokens"
)

const (
	CtxUserID     = "user_id"
	CtxRole       = "role"
	CtxAuthSource = "auth_source"

	SourceHeader = "header"
	SourceCookie = "cookie"

	AccessCookie = "accessToken"
	RoleAdmin    = "admin"
	RoleUser     = "user"
)

// Identifier resolves the caller from an access token. Requests without a
// usable token pass through anonymously; authorization happens later.
type Identifier struct {
	JWTSecret []byte
}

func NewIdentifier(secret []byte) *Identifier {
	return &Identifier{JWTSecret: secret}
}

func (m *Identifier) Identify(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw, source := tokenFromRequest(c)
		if raw == "" {
			return next(c)
		}

		claims, err := tokens.AccessClaimsFromToken(raw, m.JWTSecret)
		if err != nil || claims == nil || claims.Subject == "" {
			return next(c)
		}

		c.Set(CtxUserID, claims.Subject)
		c.Set(CtxRole, claims.Role)
		c.Set(CtxAuthSource, source)
		return next(c)
	}
}

// tokenFromRequest prefers the Authorization header over the cookie.
func tokenFromRequest(c echo.Context) (string, string) {
	if h := c.Request().Header.Get(echo.HeaderAuthorization); h != "" {
		if after, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(after), SourceHeader
		}
	}
	if ck, err := c.Cookie(AccessCookie); err == nil {
		return ck.Value, SourceCookie
	}
	return "", ""
}

func CreateCookie(name, value, path string, exp time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  exp,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

func DeleteCookie(name, path string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}
