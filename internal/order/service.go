// Package order owns Order rows and couples their quantity to product stock.
package order

import (
	"context"
	"errors"
	"strconv"
	"time"

	"storefront/internal/apperr"
	"storefront/internal/authz"
	"storefront/internal/config"
	"storefront/internal/events"
	"storefront/internal/ledger"
	"storefront/internal/model"
	"storefront/internal/store"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// View is an Order with the narrowed product projection clients see after a write.
type View struct {
	model.Order
	Product *model.ProductSummary `json:"Product,omitempty"`
}

func newView(o model.Order, p model.Product) *View {
	s := p.Summary()
	o.Product = nil
	return &View{Order: o, Product: &s}
}

type Service struct {
	db      *gorm.DB
	az      authz.Authorizer
	pub     events.Publisher
	pricing config.PricingPolicy
	now     func() time.Time
}

func NewService(db *gorm.DB, az authz.Authorizer, pub events.Publisher, pricing config.PricingPolicy) *Service {
	if pricing == "" {
		pricing = config.PricingLive
	}
	return &Service{
		db:      db,
		az:      az,
		pub:     pub,
		pricing: pricing,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create places an unpaid order for qty units and reserves the stock in the same transaction.
func (s *Service) Create(ctx context.Context, p authz.Principal, productID uint, qty int64) (*View, error) {
	if productID == 0 {
		return nil, apperr.BadRequest("Product ID is required")
	}
	if qty <= 0 {
		return nil, apperr.BadRequest("Valid quantity is required")
	}

	var (
		o    model.Order
		prod model.Product
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		prod, err = loadProduct(tx, productID)
		if err != nil {
			return err
		}
		if prod.Stock < qty {
			return apperr.InsufficientStock(prod.Name, prod.Stock)
		}

		o = model.Order{
			UserID:    p.ID,
			ProductID: prod.ID,
			Quantity:  qty,
			Price:     prod.Price,
			OrderDate: s.now(),
			Status:    model.OrderUnpaid,
		}
		if err := tx.Create(&o).Error; err != nil {
			return apperr.Internal("create order", err)
		}
		return ledger.Reserve(ctx, tx, prod.ID, qty)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Uint("order_id", o.ID).Uint("user_id", p.ID).Uint("product_id", prod.ID).
		Int64("quantity", qty).Msg("order created")
	s.emit(ctx, events.OrderCreated, o)
	return newView(o, prod), nil
}

// UpdateQuantity moves the order to newQty and adjusts stock by the difference.
// A nil or non-positive newQty changes nothing.
func (s *Service) UpdateQuantity(ctx context.Context, p authz.Principal, orderID uint, newQty *int64) (*View, error) {
	var (
		o    model.Order
		prod model.Product
	)
	changed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if o, err = loadOrder(tx, orderID); err != nil {
			return err
		}
		if err := s.az.Own(p, o.UserID, "You can only update your own orders"); err != nil {
			return err
		}
		if prod, err = loadProduct(store.WithDeleted(tx), o.ProductID); err != nil {
			return err
		}
		if newQty == nil || *newQty <= 0 {
			return nil
		}

		qty := *newQty
		availableIfReverted := prod.Stock + o.Quantity
		if availableIfReverted < qty {
			return apperr.InsufficientStock(prod.Name, availableIfReverted)
		}
		if err := ledger.Adjust(ctx, tx, prod.ID, o.Quantity-qty); err != nil {
			return err
		}
		prod.Stock = availableIfReverted - qty

		o.Quantity = qty
		if s.pricing == config.PricingLive {
			o.Price = prod.Price
		}
		err = tx.Model(&o).Updates(map[string]any{
			"quantity": o.Quantity,
			"price":    o.Price,
		}).Error
		if err != nil {
			return apperr.Internal("update order", err)
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		log.Info().Uint("order_id", o.ID).Int64("quantity", o.Quantity).Msg("order updated")
		s.emit(ctx, events.OrderUpdated, o)
	}
	return newView(o, prod), nil
}

// Delete restocks the order's quantity and removes it together with its details.
// Restock happens whatever the status, completed orders included.
func (s *Service) Delete(ctx context.Context, p authz.Principal, orderID uint) error {
	var o model.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if o, err = loadOrder(tx, orderID); err != nil {
			return err
		}
		if err := s.az.Own(p, o.UserID, "You can only delete your own orders"); err != nil {
			return err
		}
		if err := ledger.Release(ctx, tx, o.ProductID, o.Quantity); err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", o.ID).Delete(&model.OrderDetail{}).Error; err != nil {
			return apperr.Internal("delete order details", err)
		}
		if err := tx.Delete(&o).Error; err != nil {
			return apperr.Internal("delete order", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().Uint("order_id", o.ID).Int64("restocked", o.Quantity).Msg("order deleted")
	s.emit(ctx, events.OrderDeleted, o)
	return nil
}

// ListMine returns the caller's orders, newest first.
func (s *Service) ListMine(ctx context.Context, p authz.Principal) ([]model.Order, error) {
	var out []model.Order
	err := s.db.WithContext(ctx).
		Preload("Product", store.WithDeleted).
		Preload("Product.Category").
		Where("user_id = ?", p.ID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	if err != nil {
		return nil, apperr.Internal("list orders", err)
	}
	return out, nil
}

// ListAll returns every order with its buyer. Admin only.
func (s *Service) ListAll(ctx context.Context, p authz.Principal) ([]model.Order, error) {
	if err := s.az.ReadAll(p); err != nil {
		return nil, err
	}
	var out []model.Order
	err := s.db.WithContext(ctx).
		Preload("Product", store.WithDeleted).
		Preload("Product.Category").
		Preload("User", func(db *gorm.DB) *gorm.DB { return db.Select("id", "email", "role") }).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	if err != nil {
		return nil, apperr.Internal("list orders", err)
	}
	return out, nil
}

func (s *Service) emit(ctx context.Context, eventType string, o model.Order) {
	events.Emit(ctx, s.pub, eventType, strconv.FormatUint(uint64(o.UserID), 10), events.OrderPayload{
		OrderID:   o.ID,
		UserID:    o.UserID,
		ProductID: o.ProductID,
		Quantity:  o.Quantity,
		Price:     o.Price,
		Status:    string(o.Status),
	})
}

func loadOrder(tx *gorm.DB, id uint) (model.Order, error) {
	var o model.Order
	err := store.ForUpdate(tx).First(&o, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return o, apperr.NotFound("Order not found")
	}
	if err != nil {
		return o, apperr.Internal("load order", err)
	}
	return o, nil
}

func loadProduct(tx *gorm.DB, id uint) (model.Product, error) {
	var p model.Product
	err := store.ForUpdate(tx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return p, apperr.NotFound("Product with ID %d not found", id)
	}
	if err != nil {
		return p, apperr.Internal("load product", err)
	}
	return p, nil
}
