package repo

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/filter"
	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *GormRepo) ListProducts(ctx context.Context, spec filter.Spec) (int64, []models.Product, error) {
	where := spec.Where(filter.Products.SearchColumns)

	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Product{}).Scopes(where).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Product, 0, spec.Limit)
	if err := r.DB.WithContext(ctx).Model(&models.Product{}).Scopes(where, spec.Page()).Find(&items).Error; err != nil {
		return 0, nil, err
	}

	return total, items, nil
}

func (r *GormRepo) CreateProduct(ctx context.Context, prod *models.Product) error {
	return r.DB.WithContext(ctx).Create(prod).Error
}

// UpdateProduct loads the product, lets mutate change it and saves it in one transaction.
func (r *GormRepo) UpdateProduct(ctx context.Context, id uuid.UUID, mutate func(*models.Product) error) (*models.Product, error) {
	var prod models.Product
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&prod).Error; err != nil {
			return err
		}
		if err := mutate(&prod); err != nil {
			return err
		}
		return tx.Save(&prod).Error
	})
	if err != nil {
		return nil, err
	}
	return &prod, nil
}

func (r *GormRepo) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var refs int64
		if err := tx.Model(&models.OrderItem{}).Where("product_id = ?", id).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return ErrProductInUse
		}

		res := tx.Where("id = ?", id).Delete(&models.Product{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// ProductInfo is every product in default order together with the catalog
// count and maximum price, all read from one snapshot.
type ProductInfo struct {
	Products []models.Product    `json:"products"`
	Count    int64               `json:"count"`
	MaxPrice decimal.NullDecimal `json:"max_price"`
}

func (r *GormRepo) ProductInfo(ctx context.Context) (ProductInfo, error) {
	info := ProductInfo{Products: []models.Product{}}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Product{}).
			Scopes(filter.Spec{Ordering: filter.Products.DefaultOrdering}.Order()).
			Order("id").
			Find(&info.Products).Error; err != nil {
			return err
		}
		return tx.Model(&models.Product{}).
			Select("COUNT(*) AS count, MAX(price) AS max_price").
			Row().
			Scan(&info.Count, &info.MaxPrice)
	}, r.snapshotTx())
	if err != nil {
		return ProductInfo{}, err
	}
	return info, nil
}

// snapshotTx makes postgres read both statements of a transaction from the
// same snapshot; sqlite transactions already do.
func (r *GormRepo) snapshotTx() *sql.TxOptions {
	if r.DB.Dialector.Name() == "postgres" {
		return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	return nil
}
