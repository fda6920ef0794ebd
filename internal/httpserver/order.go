package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/access"
	"github.com/Skotchmaster/storefront/internal/filter"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type OrderHTTP struct {
	Svc *service.OrderService
}

func (h *OrderHTTP) GetOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get_orders")

	spec, err := filter.Parse(c.QueryParams(), filter.Orders)
	if err != nil {
		return fail(l, "get_orders_failed", err)
	}

	total, orders, err := h.Svc.ListOrders(ctx, access.PrincipalFrom(c), spec)
	if err != nil {
		return fail(l, "get_orders_failed", err)
	}

	return c.JSON(http.StatusOK, transport.Page[transport.OrderResponse]{
		Data: transport.NewOrderResponses(orders),
		Meta: transport.NewMeta(total, spec.Limit, spec.Offset),
	})
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get_order")

	id, err := pathID(c, l, "get_order_failed")
	if err != nil {
		return err
	}

	order, err := h.Svc.GetOrder(ctx, access.PrincipalFrom(c), id)
	if err != nil {
		return fail(l, "get_order_failed", err)
	}
	return c.JSON(http.StatusOK, transport.NewOrderResponse(*order))
}

func (h *OrderHTTP) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create_order")

	var req transport.CreateOrderRequest
	if err := bind(c, l, "create_order_failed", &req); err != nil {
		return err
	}

	order, err := h.Svc.CreateOrder(ctx, access.PrincipalFrom(c), req)
	if err != nil {
		return fail(l, "create_order_failed", err)
	}

	l.Info("create_order_success", "order_id", order.ID, "items", len(order.Items))
	return c.JSON(http.StatusCreated, transport.NewOrderResponse(*order))
}

func (h *OrderHTTP) ReplaceOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.replace_order")

	id, err := pathID(c, l, "replace_order_failed")
	if err != nil {
		return err
	}

	var req transport.UpdateOrderRequest
	if err := bind(c, l, "replace_order_failed", &req); err != nil {
		return err
	}

	order, err := h.Svc.ReplaceOrder(ctx, access.PrincipalFrom(c), id, req)
	if err != nil {
		return fail(l, "replace_order_failed", err)
	}

	l.Info("replace_order_success", "order_id", id)
	return c.JSON(http.StatusOK, transport.NewOrderResponse(*order))
}

func (h *OrderHTTP) PatchOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.patch_order")

	id, err := pathID(c, l, "patch_order_failed")
	if err != nil {
		return err
	}

	var req transport.PatchOrderRequest
	if err := bind(c, l, "patch_order_failed", &req); err != nil {
		return err
	}

	order, err := h.Svc.PatchOrder(ctx, access.PrincipalFrom(c), id, req)
	if err != nil {
		return fail(l, "patch_order_failed", err)
	}

	l.Info("patch_order_success", "order_id", id)
	return c.JSON(http.StatusOK, transport.NewOrderResponse(*order))
}

func (h *OrderHTTP) DeleteOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.delete_order")

	id, err := pathID(c, l, "delete_order_failed")
	if err != nil {
		return err
	}

	if err := h.Svc.DeleteOrder(ctx, access.PrincipalFrom(c), id); err != nil {
		return fail(l, "delete_order_failed", err)
	}

	l.Info("delete_order_success", "order_id", id)
	return c.NoContent(http.StatusNoContent)
}
