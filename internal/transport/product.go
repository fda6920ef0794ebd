package transport

import (
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/models"
)

// CreateProductRequest is the full representation required by POST and PUT.
type CreateProductRequest struct {
	Name        *string          `json:"name"        validate:"required,min=1,max=200"`
	Description *string          `json:"description" validate:"required"`
	Price       *decimal.Decimal `json:"price"       validate:"required,min=0,decimal_places=2,whole_digits=10"`
	Stock       *int             `json:"stock"       validate:"required,min=0"`
}

func (r CreateProductRequest) Apply(p *models.Product) {
	p.Name = *r.Name
	p.Description = *r.Description
	p.Price = *r.Price
	p.Stock = *r.Stock
}

type PatchProductRequest struct {
	Name        *string          `json:"name"        validate:"omitnil,min=1,max=200"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"       validate:"omitnil,min=0,decimal_places=2,whole_digits=10"`
	Stock       *int             `json:"stock"       validate:"omitnil,min=0"`
}

func (r PatchProductRequest) Apply(p *models.Product) {
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.Description != nil {
		p.Description = *r.Description
	}
	if r.Price != nil {
		p.Price = *r.Price
	}
	if r.Stock != nil {
		p.Stock = *r.Stock
	}
}

// ProductInfoResponse is read-only.
type ProductInfoResponse struct {
	Products []models.Product    `json:"products"`
	Count    int64               `json:"count"`
	MaxPrice decimal.NullDecimal `json:"max_price"`
}

type Meta struct {
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasNext bool  `json:"has_next"`
	HasPrev bool  `json:"has_prev"`
}

func NewMeta(total int64, limit, offset int) Meta {
	return Meta{
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasNext: int64(offset)+int64(limit) < total,
		HasPrev: offset > 0,
	}
}

type Page[T any] struct {
	Data []T  `json:"data"`
	Meta Meta `json:"meta"`
}
