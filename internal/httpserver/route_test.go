package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/testdb"
	"github.com/Skotchmaster/storefront/internal/transport"
	middleware "github.com/Skotchmaster/storefront/pkg/middleware/auth"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

var testSecret = []byte("test-jwt-secret")

type testEnv struct {
	e    *echo.Echo
	repo *repo.GormRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	r := &repo.GormRepo{DB: testdb.Open(t)}

	e := echo.New()
	Register(e, &Deps{
		CatalogHandler: &CatalogHTTP{Svc: &service.CatalogService{Repo: r, Producer: mykafka.Nop{}}},
		OrderHandler:   &OrderHTTP{Svc: &service.OrderService{Repo: r, Producer: mykafka.Nop{}}},
		AuthHandler:    &AuthHTTP{Svc: &service.AuthService{Repo: r, JWTSecret: testSecret, AccessTTL: time.Minute}},
		JWTSecret:      testSecret,
	})
	return &testEnv{e: e, repo: r}
}

func bearer(t *testing.T, userID uuid.UUID, role string) string {
	t.Helper()
	tok, err := tokens.NewAccessToken(userID.String(), role, time.Now().Add(time.Hour), testSecret)
	require.NoError(t, err)
	return tok
}

func (env *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (env *testEnv) seed(t *testing.T, name, price string, stock int) models.Product {
	t.Helper()
	p := models.Product{Name: name, Description: name + " description", Price: decimal.RequireFromString(price), Stock: stock}
	require.NoError(t, env.repo.CreateProduct(t.Context(), &p))
	return p
}

func (env *testEnv) orderCount(t *testing.T) int64 {
	t.Helper()
	n, err := env.repo.CountOrders(t.Context())
	require.NoError(t, err)
	return n
}

func TestProducts_AdminCreateThenGet(t *testing.T) {
	env := newTestEnv(t)
	admin := bearer(t, uuid.New(), middleware.RoleAdmin)

	rec := env.do(t, http.MethodPost, "/products", admin, echo.Map{
		"name": "Kettle", "description": "steel", "price": "39.99", "stock": 4,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[models.Product](t, rec)
	assert.Equal(t, "Kettle", created.Name)
	assert.Equal(t, "steel", created.Description)
	assert.True(t, created.Price.Equal(decimal.RequireFromString("39.99")))
	assert.Equal(t, 4, created.Stock)

	rec = env.do(t, http.MethodGet, "/products/"+created.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[models.Product](t, rec)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.Name, got.Name)
	assert.Equal(t, created.Description, got.Description)
	assert.True(t, created.Price.Equal(got.Price))
	assert.Equal(t, created.Stock, got.Stock)
}

func TestProducts_WritePermissions(t *testing.T) {
	env := newTestEnv(t)
	p := env.seed(t, "Tea", "4.50", 3)
	customer := bearer(t, uuid.New(), middleware.RoleUser)
	body := echo.Map{"name": "X", "description": "x", "price": "1", "stock": 1}

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"anonymous create", http.MethodPost, "/products", "", http.StatusUnauthorized},
		{"customer create", http.MethodPost, "/products", customer, http.StatusForbidden},
		{"anonymous put", http.MethodPut, "/products/" + p.ID.String(), "", http.StatusUnauthorized},
		{"customer patch", http.MethodPatch, "/products/" + p.ID.String(), customer, http.StatusForbidden},
		{"customer delete", http.MethodDelete, "/products/" + p.ID.String(), customer, http.StatusForbidden},
		{"garbage token delete", http.MethodDelete, "/products/" + p.ID.String(), "not-a-jwt", http.StatusUnauthorized},
		{"anonymous list", http.MethodGet, "/products", "", http.StatusOK},
		{"anonymous detail", http.MethodGet, "/products/" + p.ID.String(), "", http.StatusOK},
		{"anonymous info", http.MethodGet, "/products/info", "", http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, tc.method, tc.path, tc.token, body)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}

	rec := env.do(t, http.MethodGet, "/products/"+p.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[models.Product](t, rec)
	assert.Equal(t, "Tea", got.Name)
	assert.Equal(t, 3, got.Stock)
	assert.True(t, got.Price.Equal(p.Price))

	rec = env.do(t, http.MethodGet, "/products", "", nil)
	page := decode[transport.Page[models.Product]](t, rec)
	assert.Equal(t, int64(1), page.Meta.Total)
}

func TestProducts_Validation(t *testing.T) {
	env := newTestEnv(t)
	admin := bearer(t, uuid.New(), middleware.RoleAdmin)

	rec := env.do(t, http.MethodPost, "/products", admin, echo.Map{
		"name": "Kettle", "description": "steel", "price": "-1", "stock": -2,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := decode[map[string][]string](t, rec)
	assert.Contains(t, fields, "price")
	assert.Contains(t, fields, "stock")

	for _, price := range []string{"1.005", "123456789012345.99"} {
		rec = env.do(t, http.MethodPost, "/products", admin, echo.Map{
			"name": "Kettle", "description": "steel", "price": price, "stock": 1,
		})
		require.Equal(t, http.StatusBadRequest, rec.Code, price)
		assert.Contains(t, decode[map[string][]string](t, rec), "price", price)
	}

	rec = env.do(t, http.MethodGet, "/products?price__gte=cheap", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[map[string][]string](t, rec), "price__gte")

	p := env.seed(t, "Tea", "4.50", 3)
	rec = env.do(t, http.MethodPut, "/products/"+p.ID.String(), admin, echo.Map{"name": "Only name"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPatch, "/products/"+p.ID.String(), admin, echo.Map{"stock": 0})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[models.Product](t, rec).Stock)
}

func TestProducts_NotFound(t *testing.T) {
	env := newTestEnv(t)
	admin := bearer(t, uuid.New(), middleware.RoleAdmin)
	missing := "/products/" + uuid.NewString()

	for _, method := range []string{http.MethodGet, http.MethodPatch, http.MethodDelete} {
		rec := env.do(t, method, missing, admin, echo.Map{})
		assert.Equal(t, http.StatusNotFound, rec.Code, method)
	}
	rec := env.do(t, http.MethodPut, missing, admin, echo.Map{"name": "a", "description": "b", "price": "1", "stock": 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/products/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProducts_ListFiltersAndOrdering(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "Green Tea", "4.50", 10)
	env.seed(t, "Black Tea", "3.00", 0)
	env.seed(t, "Coffee", "12.00", 3)
	env.seed(t, "Mug", "8.25", 0)

	rec := env.do(t, http.MethodGet, "/products?in_stock=true", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[transport.Page[models.Product]](t, rec)
	assert.Equal(t, int64(2), page.Meta.Total)
	for _, p := range page.Data {
		assert.Greater(t, p.Stock, 0)
	}

	rec = env.do(t, http.MethodGet, "/products?ordering=price,bogus", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page = decode[transport.Page[models.Product]](t, rec)
	require.Len(t, page.Data, 4)
	for i := 1; i < len(page.Data); i++ {
		assert.True(t, page.Data[i-1].Price.LessThanOrEqual(page.Data[i].Price))
	}

	rec = env.do(t, http.MethodGet, "/products/?search=tea&limit=1&offset=1&ordering=name", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page = decode[transport.Page[models.Product]](t, rec)
	assert.Equal(t, int64(2), page.Meta.Total)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Green Tea", page.Data[0].Name)
	assert.False(t, page.Meta.HasNext)
	assert.True(t, page.Meta.HasPrev)
}

func TestProducts_Info(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/products/info", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	empty := decode[map[string]any](t, rec)
	assert.EqualValues(t, 0, empty["count"])
	assert.Nil(t, empty["max_price"])
	assert.Equal(t, []any{}, empty["products"])

	env.seed(t, "Cup", "10", 1)
	env.seed(t, "Pot", "25", 1)

	rec = env.do(t, http.MethodGet, "/products/info", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	info := decode[transport.ProductInfoResponse](t, rec)
	assert.Equal(t, int64(2), info.Count)
	assert.Len(t, info.Products, 2)
	require.True(t, info.MaxPrice.Valid)
	assert.True(t, info.MaxPrice.Decimal.Equal(decimal.NewFromInt(25)))
}

func TestProducts_DeleteReferencedConflict(t *testing.T) {
	env := newTestEnv(t)
	admin := bearer(t, uuid.New(), middleware.RoleAdmin)
	p := env.seed(t, "Tea", "4.50", 3)

	rec := env.do(t, http.MethodPost, "/orders", bearer(t, uuid.New(), middleware.RoleUser), echo.Map{
		"items": []echo.Map{{"product_id": p.ID, "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodDelete, "/products/"+p.ID.String(), admin, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestOrders_RequireAuthentication(t *testing.T) {
	env := newTestEnv(t)
	id := uuid.NewString()

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/orders"},
		{http.MethodPost, "/orders"},
		{http.MethodGet, "/orders/" + id},
		{http.MethodPut, "/orders/" + id},
		{http.MethodPatch, "/orders/" + id},
		{http.MethodDelete, "/orders/" + id},
	} {
		rec := env.do(t, tc.method, tc.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, tc.method+" "+tc.path)
	}
}

func TestOrders_OwnerScoping(t *testing.T) {
	env := newTestEnv(t)
	p := env.seed(t, "Tea", "4.50", 3)
	owner := bearer(t, uuid.New(), middleware.RoleUser)
	stranger := bearer(t, uuid.New(), middleware.RoleUser)
	staff := bearer(t, uuid.New(), middleware.RoleAdmin)

	rec := env.do(t, http.MethodPost, "/orders", owner, echo.Map{
		"items": []echo.Map{{"product_id": p.ID, "quantity": 2}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[transport.OrderResponse](t, rec)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Tea", order.Items[0].ProductName)
	assert.True(t, order.TotalPrice.Equal(decimal.RequireFromString("9")))
	path := "/orders/" + order.OrderID.String()

	rec = env.do(t, http.MethodGet, path, stranger, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(t, http.MethodPut, path, stranger, echo.Map{"status": "cancelled"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(t, http.MethodDelete, path, stranger, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/orders", stranger, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[transport.Page[transport.OrderResponse]](t, rec)
	for _, o := range page.Data {
		assert.NotEqual(t, order.OrderID, o.OrderID)
	}
	assert.Zero(t, page.Meta.Total)

	rec = env.do(t, http.MethodGet, "/orders", staff, nil)
	page = decode[transport.Page[transport.OrderResponse]](t, rec)
	assert.Equal(t, int64(1), page.Meta.Total)

	rec = env.do(t, http.MethodGet, "/orders?status=pending", owner, nil)
	page = decode[transport.Page[transport.OrderResponse]](t, rec)
	assert.Equal(t, int64(1), page.Meta.Total)

	rec = env.do(t, http.MethodGet, "/orders?status=shipped", owner, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPatch, path, owner, echo.Map{"status": "confirmed"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.OrderStatusConfirmed, decode[transport.OrderResponse](t, rec).Status)

	rec = env.do(t, http.MethodDelete, path, owner, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, http.MethodGet, path, owner, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrders_CreateWithMissingProductPersistsNothing(t *testing.T) {
	env := newTestEnv(t)
	p := env.seed(t, "Tea", "4.50", 3)
	owner := bearer(t, uuid.New(), middleware.RoleUser)
	before := env.orderCount(t)

	rec := env.do(t, http.MethodPost, "/orders", owner, echo.Map{
		"items": []echo.Map{
			{"product_id": p.ID, "quantity": 1},
			{"product_id": uuid.New(), "quantity": 1},
		},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[map[string][]string](t, rec), "items[1].product_id")
	assert.Equal(t, before, env.orderCount(t))

	rec = env.do(t, http.MethodPost, "/orders", owner, echo.Map{"items": []echo.Map{}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[map[string][]string](t, rec), "items")

	rec = env.do(t, http.MethodPost, "/orders", owner, echo.Map{"items": "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, before, env.orderCount(t))
}

func TestAuth_RegisterLoginUseCookie(t *testing.T) {
	env := newTestEnv(t)
	creds := echo.Map{"username": "alice", "password": "s3cret"}

	rec := env.do(t, http.MethodPost, "/auth/register", "", creds)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "alice", decode[map[string]any](t, rec)["username"])

	rec = env.do(t, http.MethodPost, "/auth/register", "", creds)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/auth/login", "", echo.Map{"username": "alice", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/auth/login", "", creds)
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[transport.LoginResponse](t, rec)
	assert.False(t, login.IsAdmin)
	assert.NotEmpty(t, login.AccessToken)

	var cookie *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == middleware.AccessCookie {
			cookie = ck
		}
	}
	require.NotNil(t, cookie)

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.AddCookie(cookie)
	out := httptest.NewRecorder()
	env.e.ServeHTTP(out, req)
	require.Equal(t, http.StatusOK, out.Code)

	csrfToken := out.Header().Get("X-CSRF-Token")
	require.NotEmpty(t, csrfToken)
	p := env.seed(t, "Tea", "4.50", 3)
	post := func(withToken bool) int {
		body, err := json.Marshal(echo.Map{"items": []echo.Map{{"product_id": p.ID, "quantity": 1}}})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.AddCookie(cookie)
		req.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: csrfToken})
		if withToken {
			req.Header.Set("X-CSRF-Token", csrfToken)
		}
		rec := httptest.NewRecorder()
		env.e.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusForbidden, post(false))
	assert.Equal(t, http.StatusCreated, post(true))

	rec = env.do(t, http.MethodPost, "/auth/logout", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health/live", "", nil).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health/ready", "", nil).Code)
}
