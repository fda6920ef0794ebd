package access

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	middleware "github.com/Skotchmaster/storefront/pkg/middleware/auth"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name          string
		policy        Policy
		method        string
		authenticated bool
		staff         bool
		want          Decision
	}{
		{"open anonymous get", Open, http.MethodGet, false, false, Allow},
		{"open anonymous post", Open, http.MethodPost, false, false, Allow},

		{"admin writes anonymous get", AdminWrites, http.MethodGet, false, false, Allow},
		{"admin writes anonymous head", AdminWrites, http.MethodHead, false, false, Allow},
		{"admin writes anonymous post", AdminWrites, http.MethodPost, false, false, DenyUnauthenticated},
		{"admin writes user post", AdminWrites, http.MethodPost, true, false, DenyForbidden},
		{"admin writes user put", AdminWrites, http.MethodPut, true, false, DenyForbidden},
		{"admin writes user patch", AdminWrites, http.MethodPatch, true, false, DenyForbidden},
		{"admin writes user delete", AdminWrites, http.MethodDelete, true, false, DenyForbidden},
		{"admin writes admin delete", AdminWrites, http.MethodDelete, true, true, Allow},

		{"authenticated anonymous get", Authenticated, http.MethodGet, false, false, DenyUnauthenticated},
		{"authenticated anonymous delete", Authenticated, http.MethodDelete, false, false, DenyUnauthenticated},
		{"authenticated user post", Authenticated, http.MethodPost, true, false, Allow},
		{"authenticated staff get", Authenticated, http.MethodGet, true, true, Allow},

		{"admin only user get", AdminOnly, http.MethodGet, true, false, DenyForbidden},
		{"admin only anonymous get", AdminOnly, http.MethodGet, false, false, DenyUnauthenticated},
		{"admin only admin get", AdminOnly, http.MethodGet, true, true, Allow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.policy, tt.method, tt.authenticated, tt.staff))
		})
	}
}

func TestPrincipalFrom(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.False(t, PrincipalFrom(c).Authenticated())

	c.Set(middleware.CtxUserID, "not-a-uuid")
	assert.False(t, PrincipalFrom(c).Authenticated())

	id := uuid.New()
	c.Set(middleware.CtxUserID, id.String())
	c.Set(middleware.CtxRole, middleware.RoleAdmin)
	p := PrincipalFrom(c)
	assert.Equal(t, id, p.UserID)
	assert.True(t, p.IsStaff())
}

func TestGuard(t *testing.T) {
	e := echo.New()
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), httptest.NewRecorder())
	err := Guard(AdminWrites)(ok)(c)
	he, isHTTP := err.(*echo.HTTPError)
	require.True(t, isHTTP, "expected HTTPError")
	assert.Equal(t, http.StatusUnauthorized, he.Code)

	c = e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), httptest.NewRecorder())
	c.Set(middleware.CtxUserID, uuid.NewString())
	c.Set(middleware.CtxRole, middleware.RoleUser)
	err = Guard(AdminWrites)(ok)(c)
	he, isHTTP = err.(*echo.HTTPError)
	require.True(t, isHTTP, "expected HTTPError")
	assert.Equal(t, http.StatusForbidden, he.Code)

	rec := httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, Guard(AdminWrites)(ok)(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}
