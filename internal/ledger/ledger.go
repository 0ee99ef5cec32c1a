// Package ledger is the only writer of Product.stock.
//
// Every adjustment is one conditional UPDATE (stock = stock + delta WHERE
// stock + delta >= 0), so concurrent callers can never both pass the floor check.
// Callers pass their transaction handle so the adjustment commits or rolls back
// together with the order write.
package ledger

import (
	"context"
	"errors"

	"storefront/internal/apperr"
	"storefront/internal/model"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Reserve takes qty units out of stock.
func Reserve(ctx context.Context, tx *gorm.DB, productID uint, qty int64) error {
	if qty <= 0 {
		return apperr.BadRequest("Valid quantity is required")
	}
	return Adjust(ctx, tx, productID, -qty)
}

// Release puts qty units back. There is no upper bound: releasing more than was
// reserved is accepted.
func Release(ctx context.Context, tx *gorm.DB, productID uint, qty int64) error {
	if qty <= 0 {
		return apperr.BadRequest("Valid quantity is required")
	}
	return Adjust(ctx, tx, productID, qty)
}

// Adjust applies a signed delta. A negative delta that would take stock below
// zero fails with InsufficientStock and leaves stock unchanged. Soft-deleted
// products are still adjusted; callers decide whether a product may be ordered.
func Adjust(ctx context.Context, tx *gorm.DB, productID uint, delta int64) error {
	if delta == 0 {
		return nil
	}

	res := tx.WithContext(ctx).
		Unscoped().
		Model(&model.Product{}).
		Where("id = ? AND stock + ? >= 0", productID, delta).
		UpdateColumn("stock", gorm.Expr("stock + ?", delta))
	if res.Error != nil {
		return apperr.Internal("adjust stock", res.Error)
	}

	if res.RowsAffected == 0 {
		var p model.Product
		err := tx.WithContext(ctx).Unscoped().Select("id", "name", "stock").First(&p, productID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("Product with ID %d not found", productID)
		}
		if err != nil {
			return apperr.Internal("load product", err)
		}
		return apperr.InsufficientStock(p.Name, p.Stock)
	}

	log.Debug().Uint("product_id", productID).Int64("delta", delta).Msg("stock adjusted")
	return nil
}
