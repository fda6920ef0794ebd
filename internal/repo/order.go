package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/filter"
	"github.com/Skotchmaster/storefront/internal/models"
)

// Scope restricts order queries to one owner unless All is set.
type Scope struct {
	UserID uuid.UUID
	All    bool
}

func (s Scope) apply(db *gorm.DB) *gorm.DB {
	if s.All {
		return db
	}
	return db.Where("user_id = ?", s.UserID)
}

type ItemLine struct {
	ProductID uuid.UUID
	Quantity  int
}

// MissingProductError reports the first order line whose product could not be resolved.
type MissingProductError struct {
	Index     int
	ProductID uuid.UUID
}

func (e *MissingProductError) Error() string {
	return fmt.Sprintf("item %d: product %s does not exist", e.Index, e.ProductID)
}

func (e *MissingProductError) Is(target error) bool { return target == ErrProductMissing }

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Items.Product")
}

func (r *GormRepo) ListOrders(ctx context.Context, scope Scope, spec filter.Spec) (int64, []models.Order, error) {
	where := spec.Where(nil)

	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Order{}).Scopes(scope.apply, where).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	orders := make([]models.Order, 0, spec.Limit)
	if err := r.DB.WithContext(ctx).Model(&models.Order{}).
		Scopes(scope.apply, where, spec.Page(), preloadItems).
		Find(&orders).Error; err != nil {
		return 0, nil, err
	}
	return total, orders, nil
}

func (r *GormRepo) GetOrder(ctx context.Context, scope Scope, id uuid.UUID) (*models.Order, error) {
	return r.getOrder(r.DB.WithContext(ctx), scope, id)
}

func (r *GormRepo) getOrder(db *gorm.DB, scope Scope, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := db.Scopes(scope.apply, preloadItems).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// CreateOrder writes the order and its items atomically, capturing current product prices.
func (r *GormRepo) CreateOrder(ctx context.Context, order *models.Order, lines []ItemLine) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items, err := resolveItems(tx, lines)
		if err != nil {
			return err
		}

		if err := tx.Omit(clause.Associations).Create(order).Error; err != nil {
			return err
		}
		if err := insertItems(tx, order.ID, items); err != nil {
			return err
		}
		order.Items = items
		return nil
	})
}

// UpdateOrder applies mutate to the scoped order and, when lines is non-nil,
// replaces its item set. Everything happens in one transaction.
func (r *GormRepo) UpdateOrder(ctx context.Context, scope Scope, id uuid.UUID, mutate func(*models.Order) error, lines []ItemLine) (*models.Order, error) {
	var out *models.Order
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Scopes(scope.apply).Where("id = ?", id).First(&order).Error; err != nil {
			return err
		}
		if err := mutate(&order); err != nil {
			return err
		}
		if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).Update("status", order.Status).Error; err != nil {
			return err
		}

		if lines != nil {
			items, err := resolveItems(tx, lines)
			if err != nil {
				return err
			}
			if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderItem{}).Error; err != nil {
				return err
			}
			if err := insertItems(tx, order.ID, items); err != nil {
				return err
			}
		}

		reloaded, err := r.getOrder(tx, Scope{All: true}, order.ID)
		if err != nil {
			return err
		}
		out = reloaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormRepo) DeleteOrder(ctx context.Context, scope Scope, id uuid.UUID) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Scopes(scope.apply).Where("id = ?", id).First(&order).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", order.ID).Delete(&models.Order{}).Error
	})
}

func (r *GormRepo) CountOrders(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Order{}).Count(&n).Error
	return n, err
}

func resolveItems(tx *gorm.DB, lines []ItemLine) ([]models.OrderItem, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}

	var products []models.Product
	if len(ids) > 0 {
		if err := tx.Where("id IN ?", ids).Find(&products).Error; err != nil {
			return nil, err
		}
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	items := make([]models.OrderItem, 0, len(lines))
	for i, l := range lines {
		p, ok := byID[l.ProductID]
		if !ok {
			return nil, &MissingProductError{Index: i, ProductID: l.ProductID}
		}
		items = append(items, models.OrderItem{
			ProductID: p.ID,
			Product:   p,
			Quantity:  l.Quantity,
			UnitPrice: p.Price,
		})
	}
	return items, nil
}

func insertItems(tx *gorm.DB, orderID uuid.UUID, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].OrderID = orderID
	}
	return tx.Omit("Product").Create(&items).Error
}
