// Package access decides, per endpoint policy and request method, whether a
// caller may proceed. The decision runs before any handler logic.
package access

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/pkg/logging"
	middleware "github.com/Skotchmaster/storefront/pkg/middleware/auth"
)

type Decision int

const (
	Allow Decision = iota
	DenyUnauthenticated
	DenyForbidden
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyUnauthenticated:
		return "deny_unauthenticated"
	case DenyForbidden:
		return "deny_forbidden"
	}
	return "unknown"
}

type Policy int

const (
	// Open lets anyone through.
	Open Policy = iota
	// AdminWrites opens safe methods and requires an administrator otherwise.
	AdminWrites
	// Authenticated requires any signed-in caller.
	Authenticated
	// AdminOnly requires an administrator for every method.
	AdminOnly
)

func Safe(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func Decide(policy Policy, method string, authenticated, staff bool) Decision {
	requireAdmin := func() Decision {
		if !authenticated {
			return DenyUnauthenticated
		}
		if !staff {
			return DenyForbidden
		}
		return Allow
	}

	switch policy {
	case Open:
		return Allow
	case AdminWrites:
		if Safe(method) {
			return Allow
		}
		return requireAdmin()
	case Authenticated:
		if !authenticated {
			return DenyUnauthenticated
		}
		return Allow
	default:
		return requireAdmin()
	}
}

type Principal struct {
	UserID uuid.UUID
	Role   string
}

func (p Principal) Authenticated() bool { return p.UserID != uuid.Nil }

func (p Principal) IsStaff() bool { return p.Authenticated() && p.Role == middleware.RoleAdmin }

func PrincipalFrom(c echo.Context) Principal {
	s, _ := c.Get(middleware.CtxUserID).(string)
	id, err := uuid.Parse(s)
	if err != nil {
		return Principal{}
	}
	role, _ := c.Get(middleware.CtxRole).(string)
	return Principal{UserID: id, Role: role}
}

func Guard(policy Policy) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := PrincipalFrom(c)
			d := Decide(policy, c.Request().Method, p.Authenticated(), p.IsStaff())

			switch d {
			case DenyUnauthenticated:
				logging.FromContext(c.Request().Context()).Warn("access_denied", "status", 401, "decision", d.String())
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication credentials were not provided")
			case DenyForbidden:
				logging.FromContext(c.Request().Context()).Warn("access_denied", "status", 403, "decision", d.String(), "user_id", p.UserID)
				return echo.NewHTTPError(http.StatusForbidden, "you do not have permission to perform this action")
			}
			return next(c)
		}
	}
}
