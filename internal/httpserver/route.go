package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/storefront/internal/access"
	"github.com/Skotchmaster/storefront/internal/middleware/csrf"
	"github.com/Skotchmaster/storefront/pkg/logging"
	middleware "github.com/Skotchmaster/storefront/pkg/middleware/auth"
)

type Deps struct {
	CatalogHandler *CatalogHTTP
	OrderHandler   *OrderHTTP
	AuthHandler    *AuthHTTP
	JWTSecret      []byte
	// Ready reports whether backing stores are reachable; nil means always ready.
	Ready func(ctx context.Context) error
}

func Register(e *echo.Echo, d *Deps) {
	e.Pre(echomw.RemoveTrailingSlash())

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready == nil {
			return c.NoContent(http.StatusOK)
		}
		if err := d.Ready(c.Request().Context()); err != nil {
			logging.FromContext(c.Request().Context()).Error("not_ready", "status", 503, "error", err)
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})

	identify := middleware.NewIdentifier(d.JWTSecret).Identify
	csrfGuard := csrf.Middleware(csrf.DefaultConfig())

	auth := e.Group("/auth")
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/logout", d.AuthHandler.Logout)

	products := e.Group("/products", identify, csrfGuard)
	products.GET("/info", d.CatalogHandler.ProductInfo, access.Guard(access.Open))

	catalog := products.Group("", access.Guard(access.AdminWrites))
	catalog.GET("", d.CatalogHandler.GetProducts)
	catalog.POST("", d.CatalogHandler.CreateProduct)
	catalog.GET("/:id", d.CatalogHandler.GetProduct)
	catalog.PUT("/:id", d.CatalogHandler.ReplaceProduct)
	catalog.PATCH("/:id", d.CatalogHandler.PatchProduct)
	catalog.DELETE("/:id", d.CatalogHandler.DeleteProduct)

	orders := e.Group("/orders", identify, csrfGuard, access.Guard(access.Authenticated))
	orders.GET("", d.OrderHandler.GetOrders)
	orders.POST("", d.OrderHandler.CreateOrder)
	orders.GET("/:id", d.OrderHandler.GetOrder)
	orders.PUT("/:id", d.OrderHandler.ReplaceOrder)
	orders.PATCH("/:id", d.OrderHandler.PatchOrder)
	orders.DELETE("/:id", d.OrderHandler.DeleteOrder)
}
