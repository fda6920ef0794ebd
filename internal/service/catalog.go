package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/filter"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type CatalogService struct {
	Repo     repo.Catalog
	Producer mykafka.Publisher
	Topic    string
}

func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	prod, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, notFound(err, "product "+id.String())
	}
	return prod, nil
}

func (s *CatalogService) ListProducts(ctx context.Context, spec filter.Spec) (int64, []models.Product, error) {
	return s.Repo.ListProducts(ctx, spec)
}

func (s *CatalogService) CreateProduct(ctx context.Context, req transport.CreateProductRequest) (*models.Product, error) {
	if err := transport.Validate(req); err != nil {
		return nil, err
	}

	var prod models.Product
	req.Apply(&prod)
	if err := s.Repo.CreateProduct(ctx, &prod); err != nil {
		return nil, err
	}

	s.publish(ctx, prod.ID.String(), map[string]any{
		"type":       "product_created",
		"product_id": prod.ID,
		"name":       prod.Name,
		"price":      prod.Price,
	})
	return &prod, nil
}

// ReplaceProduct overwrites every writable field.
func (s *CatalogService) ReplaceProduct(ctx context.Context, id uuid.UUID, req transport.CreateProductRequest) (*models.Product, error) {
	if err := transport.Validate(req); err != nil {
		return nil, err
	}
	return s.update(ctx, id, req.Apply)
}

func (s *CatalogService) PatchProduct(ctx context.Context, id uuid.UUID, req transport.PatchProductRequest) (*models.Product, error) {
	if err := transport.Validate(req); err != nil {
		return nil, err
	}
	return s.update(ctx, id, req.Apply)
}

func (s *CatalogService) update(ctx context.Context, id uuid.UUID, apply func(*models.Product)) (*models.Product, error) {
	prod, err := s.Repo.UpdateProduct(ctx, id, func(p *models.Product) error {
		apply(p)
		return nil
	})
	if err != nil {
		return nil, notFound(err, "product "+id.String())
	}

	s.publish(ctx, prod.ID.String(), map[string]any{
		"type":       "product_updated",
		"product_id": prod.ID,
		"name":       prod.Name,
		"price":      prod.Price,
		"stock":      prod.Stock,
	})
	return prod, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.Repo.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, repo.ErrProductInUse) {
			return fmt.Errorf("%w: %w", ErrConflict, err)
		}
		return notFound(err, "product "+id.String())
	}

	s.publish(ctx, id.String(), map[string]any{
		"type":       "product_deleted",
		"product_id": id,
	})
	return nil
}

// ProductInfo lists every product together with the catalog count and
// maximum price, taken from the same snapshot as the list.
func (s *CatalogService) ProductInfo(ctx context.Context) (*transport.ProductInfoResponse, error) {
	info, err := s.Repo.ProductInfo(ctx)
	if err != nil {
		return nil, err
	}
	return &transport.ProductInfoResponse{
		Products: info.Products,
		Count:    info.Count,
		MaxPrice: info.MaxPrice,
	}, nil
}

func (s *CatalogService) publish(ctx context.Context, key string, event map[string]any) {
	if s.Producer == nil {
		return
	}
	if err := s.Producer.PublishEvent(ctx, s.Topic, key, event); err != nil {
		logging.FromContext(ctx).Error("publish_event_failed", "topic", s.Topic, "type", event["type"], "error", err)
	}
}
