package transport

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/models"
)

type OrderItemInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity"   validate:"min=1"`
}

// CreateOrderRequest is write-only; it is never rendered back.
type CreateOrderRequest struct {
	Status models.OrderStatus `json:"status" validate:"omitempty,oneof=pending confirmed cancelled"`
	Items  []OrderItemInput   `json:"items"  validate:"required,min=1,dive"`
}

type UpdateOrderRequest struct {
	Status *models.OrderStatus `json:"status" validate:"required,oneof=pending confirmed cancelled"`
	Items  []OrderItemInput    `json:"items"  validate:"omitnil,min=1,dive"`
}

type PatchOrderRequest struct {
	Status *models.OrderStatus `json:"status" validate:"omitnil,oneof=pending confirmed cancelled"`
	Items  []OrderItemInput    `json:"items"  validate:"omitnil,min=1,dive"`
}

type OrderItemResponse struct {
	ID           uuid.UUID       `json:"id"`
	ProductID    uuid.UUID       `json:"product_id"`
	ProductName  string          `json:"product_name"`
	ProductPrice decimal.Decimal `json:"product_price"`
	Quantity     int             `json:"quantity"`
	ItemSubtotal decimal.Decimal `json:"item_subtotal"`
}

type OrderResponse struct {
	OrderID    uuid.UUID           `json:"order_id"`
	UserID     uuid.UUID           `json:"user_id"`
	Status     models.OrderStatus  `json:"status"`
	CreatedAt  time.Time           `json:"created_at"`
	Items      []OrderItemResponse `json:"items"`
	TotalPrice decimal.Decimal     `json:"total_price"`
}

// NewOrderResponse expects order.Items with Product preloaded.
func NewOrderResponse(order models.Order) OrderResponse {
	resp := OrderResponse{
		OrderID:    order.ID,
		UserID:     order.UserID,
		Status:     order.Status,
		CreatedAt:  order.CreatedAt,
		Items:      make([]OrderItemResponse, 0, len(order.Items)),
		TotalPrice: decimal.Zero,
	}
	for _, it := range order.Items {
		sub := it.Subtotal()
		resp.Items = append(resp.Items, OrderItemResponse{
			ID:           it.ID,
			ProductID:    it.ProductID,
			ProductName:  it.Product.Name,
			ProductPrice: it.UnitPrice,
			Quantity:     it.Quantity,
			ItemSubtotal: sub,
		})
		resp.TotalPrice = resp.TotalPrice.Add(sub)
	}
	return resp
}

func NewOrderResponses(orders []models.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, NewOrderResponse(o))
	}
	return out
}
