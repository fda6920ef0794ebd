package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/access"
	"github.com/Skotchmaster/storefront/internal/filter"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

// OrderService scopes every operation to the caller's own orders unless the
// caller is staff. Orders owned by someone else are reported as not found.
type OrderService struct {
	Repo     repo.Orders
	Producer mykafka.Publisher
	Topic    string
}

func scopeFor(p access.Principal) repo.Scope {
	if p.IsStaff() {
		return repo.Scope{All: true}
	}
	return repo.Scope{UserID: p.UserID}
}

func (s *OrderService) ListOrders(ctx context.Context, p access.Principal, spec filter.Spec) (int64, []models.Order, error) {
	return s.Repo.ListOrders(ctx, scopeFor(p), spec)
}

func (s *OrderService) GetOrder(ctx context.Context, p access.Principal, id uuid.UUID) (*models.Order, error) {
	order, err := s.Repo.GetOrder(ctx, scopeFor(p), id)
	if err != nil {
		return nil, notFound(err, "order "+id.String())
	}
	return order, nil
}

func (s *OrderService) CreateOrder(ctx context.Context, p access.Principal, req transport.CreateOrderRequest) (*models.Order, error) {
	if err := transport.Validate(req); err != nil {
		return nil, err
	}

	order := models.Order{UserID: p.UserID, Status: req.Status}
	if err := s.Repo.CreateOrder(ctx, &order, itemLines(req.Items)); err != nil {
		return nil, missingProduct(err)
	}

	s.publish(ctx, order, "order_created")
	return &order, nil
}

// ReplaceOrder requires status; items, when present, replace the whole set.
func (s *OrderService) ReplaceOrder(ctx context.Context, p access.Principal, id uuid.UUID, req transport.UpdateOrderRequest) (*models.Order, error) {
	if err := transport.Validate(req); err != nil {
		return nil, err
	}
	return s.update(ctx, p, id, req.Status, req.Items)
}

func (s *OrderService) PatchOrder(ctx context.Context, p access.Principal, id uuid.UUID, req transport.PatchOrderRequest) (*models.Order, error) {
	if err := transport.Validate(req); err != nil {
		return nil, err
	}
	return s.update(ctx, p, id, req.Status, req.Items)
}

func (s *OrderService) update(ctx context.Context, p access.Principal, id uuid.UUID, status *models.OrderStatus, items []transport.OrderItemInput) (*models.Order, error) {
	var lines []repo.ItemLine
	if items != nil {
		lines = itemLines(items)
	}

	order, err := s.Repo.UpdateOrder(ctx, scopeFor(p), id, func(o *models.Order) error {
		if status != nil {
			o.Status = *status
		}
		return nil
	}, lines)
	if err != nil {
		return nil, missingProduct(notFound(err, "order "+id.String()))
	}

	s.publish(ctx, *order, "order_updated")
	return order, nil
}

func (s *OrderService) DeleteOrder(ctx context.Context, p access.Principal, id uuid.UUID) error {
	if err := s.Repo.DeleteOrder(ctx, scopeFor(p), id); err != nil {
		return notFound(err, "order "+id.String())
	}

	s.publish(ctx, models.Order{ID: id, UserID: p.UserID}, "order_deleted")
	return nil
}

func itemLines(items []transport.OrderItemInput) []repo.ItemLine {
	lines := make([]repo.ItemLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, repo.ItemLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return lines
}

func missingProduct(err error) error {
	var mpe *repo.MissingProductError
	if errors.As(err, &mpe) {
		return transport.FieldError(
			fmt.Sprintf("items[%d].product_id", mpe.Index),
			fmt.Sprintf("Invalid pk %q - object does not exist.", mpe.ProductID.String()),
		)
	}
	return err
}

func (s *OrderService) publish(ctx context.Context, order models.Order, kind string) {
	if s.Producer == nil {
		return
	}
	event := map[string]any{
		"type":     kind,
		"order_id": order.ID,
		"user_id":  order.UserID,
	}
	if kind != "order_deleted" {
		event["status"] = order.Status
		event["total_price"] = transport.NewOrderResponse(order).TotalPrice
	}
	if err := s.Producer.PublishEvent(ctx, s.Topic, order.ID.String(), event); err != nil {
		logging.FromContext(ctx).Error("publish_event_failed", "topic", s.Topic, "type", kind, "error", err)
	}
}
