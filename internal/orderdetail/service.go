// Package orderdetail materializes invoice-like records for orders and derives
// revenue from them. Totals are recomputed from Order and Product on every read
// and write; the stored value is never trusted.
package orderdetail

import (
	"context"
	"errors"
	"strconv"

	"storefront/internal/apperr"
	"storefront/internal/authz"
	"storefront/internal/events"
	"storefront/internal/model"
	"storefront/internal/store"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CartResult is the outcome of CreateFromCart.
type CartResult struct {
	OrderDetails []model.OrderDetail `json:"orderDetails"`
	GrandTotal   decimal.Decimal     `json:"grandTotal"`
	OrderCount   int                 `json:"orderCount"`
}

// RevenueStats aggregates every detail. It scans the whole table.
type RevenueStats struct {
	TotalRevenue    decimal.Decimal     `json:"totalRevenue"`
	CompletedOrders int                 `json:"completedOrders"`
	PendingOrders   int                 `json:"pendingOrders"`
	TotalOrders     int                 `json:"totalOrders"`
	OrderDetails    []model.OrderDetail `json:"orderDetails"`
}

type Service struct {
	db  *gorm.DB
	az  authz.Authorizer
	pub events.Publisher
}

func NewService(db *gorm.DB, az authz.Authorizer, pub events.Publisher) *Service {
	return &Service{db: db, az: az, pub: pub}
}

// Create records a detail for one of the caller's orders. status defaults to pending.
func (s *Service) Create(ctx context.Context, p authz.Principal, orderID uint, orderNumber string, status model.DetailStatus) (*model.OrderDetail, error) {
	if orderID == 0 {
		return nil, apperr.BadRequest("Order ID is required")
	}
	if orderNumber == "" {
		return nil, apperr.BadRequest("Order Number is required")
	}
	if status == "" {
		status = model.DetailPending
	}
	if !status.Valid() {
		return nil, apperr.BadRequest("Invalid status")
	}

	var o model.Order
	err := s.db.WithContext(ctx).Preload("Product", store.WithDeleted).First(&o, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Order not found")
	}
	if err != nil {
		return nil, apperr.Internal("load order", err)
	}
	if err := s.az.Own(p, o.UserID, "You can only create order details for your own orders"); err != nil {
		return nil, err
	}

	d := model.OrderDetail{
		UserID:      p.ID,
		OrderID:     o.ID,
		OrderNumber: orderNumber,
		Status:      status,
		TotalAmount: o.LineTotal(),
	}
	if err := s.db.WithContext(ctx).Create(&d).Error; err != nil {
		return nil, apperr.Internal("create order detail", err)
	}
	d.Order = &o

	s.emit(ctx, p.ID, orderNumber, []uint{d.ID}, d.TotalAmount)
	return &d, nil
}

// CreateFromCart writes one pending detail per unpaid order of the caller, all or nothing.
func (s *Service) CreateFromCart(ctx context.Context, p authz.Principal, orderNumber string) (*CartResult, error) {
	if orderNumber == "" {
		return nil, apperr.BadRequest("Order Number is required")
	}

	res := &CartResult{GrandTotal: decimal.Zero}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var orders []model.Order
		err := tx.Preload("Product", store.WithDeleted).
			Where("user_id = ? AND status = ?", p.ID, model.OrderUnpaid).
			Order("id").
			Find(&orders).Error
		if err != nil {
			return apperr.Internal("load unpaid orders", err)
		}
		if len(orders) == 0 {
			return apperr.NotFound("No unpaid orders found")
		}

		details := make([]model.OrderDetail, 0, len(orders))
		for _, o := range orders {
			details = append(details, model.OrderDetail{
				UserID:      p.ID,
				OrderID:     o.ID,
				OrderNumber: orderNumber,
				Status:      model.DetailPending,
				TotalAmount: o.LineTotal(),
			})
		}
		if err := tx.Create(&details).Error; err != nil {
			return apperr.Internal("create order details", err)
		}

		for i := range details {
			o := orders[i]
			details[i].Order = &o
			res.GrandTotal = res.GrandTotal.Add(details[i].TotalAmount)
		}
		res.OrderDetails = details
		res.OrderCount = len(details)
		return nil
	})
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(res.OrderDetails))
	for _, d := range res.OrderDetails {
		ids = append(ids, d.ID)
	}
	log.Info().Uint("user_id", p.ID).Str("order_number", orderNumber).
		Int("count", res.OrderCount).Stringer("grand_total", res.GrandTotal).
		Msg("order details created from cart")
	s.emit(ctx, p.ID, orderNumber, ids, res.GrandTotal)
	return res, nil
}

// Update moves a detail to status and refreshes its total from the current order and product.
// An empty status keeps the current one and only refreshes the total.
func (s *Service) Update(ctx context.Context, p authz.Principal, id uint, status model.DetailStatus) (*model.OrderDetail, error) {
	var d model.OrderDetail
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if d, err = loadDetail(tx, id); err != nil {
			return err
		}
		if err := s.az.Own(p, d.UserID, "You can only update your own order details"); err != nil {
			return err
		}
		if status == "" {
			status = d.Status
		}
		if !status.Valid() {
			return apperr.BadRequest("Invalid status")
		}
		if !d.Status.CanTransition(status) {
			return apperr.BadRequest("invalid status transition")
		}

		d.Status = status
		d.Recompute()
		err = tx.Model(&d).Updates(map[string]any{
			"status":       d.Status,
			"total_amount": d.TotalAmount,
		}).Error
		if err != nil {
			return apperr.Internal("update order detail", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Delete removes a detail. Stock is never touched.
func (s *Service) Delete(ctx context.Context, p authz.Principal, id uint) error {
	var d model.OrderDetail
	err := s.db.WithContext(ctx).First(&d, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("Order detail not found")
	}
	if err != nil {
		return apperr.Internal("load order detail", err)
	}
	if err := s.az.Own(p, d.UserID, "You can only delete your own order details"); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&d).Error; err != nil {
		return apperr.Internal("delete order detail", err)
	}
	return nil
}

// Get returns one detail to its owner or an admin.
func (s *Service) Get(ctx context.Context, p authz.Principal, id uint) (*model.OrderDetail, error) {
	d, err := loadDetail(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if err := s.az.Own(p, d.UserID, "You can only view your own order details"); err != nil {
		if s.az.ReadAll(p) != nil {
			return nil, err
		}
	}
	d.Recompute()
	return &d, nil
}

// ListAll returns every detail. Admin only.
func (s *Service) ListAll(ctx context.Context, p authz.Principal) ([]model.OrderDetail, error) {
	if err := s.az.ReadAll(p); err != nil {
		return nil, err
	}
	return s.list(ctx, nil)
}

// ListMine returns the caller's details.
func (s *Service) ListMine(ctx context.Context, p authz.Principal) ([]model.OrderDetail, error) {
	return s.list(ctx, func(db *gorm.DB) *gorm.DB { return db.Where("user_id = ?", p.ID) })
}

// RevenueStats sums completed details and counts details by status. Admin only.
func (s *Service) RevenueStats(ctx context.Context, p authz.Principal) (*RevenueStats, error) {
	if err := s.az.ReadAll(p); err != nil {
		return nil, err
	}
	details, err := s.list(ctx, nil)
	if err != nil {
		return nil, err
	}

	out := &RevenueStats{TotalRevenue: decimal.Zero, OrderDetails: details, TotalOrders: len(details)}
	for _, d := range details {
		switch d.Status {
		case model.DetailCompleted:
			out.TotalRevenue = out.TotalRevenue.Add(d.TotalAmount)
			out.CompletedOrders++
		case model.DetailPending:
			out.PendingOrders++
		}
	}
	return out, nil
}

func (s *Service) list(ctx context.Context, scope func(*gorm.DB) *gorm.DB) ([]model.OrderDetail, error) {
	q := s.db.WithContext(ctx).Preload("Order.Product", store.WithDeleted).Order("created_at DESC, id DESC")
	if scope != nil {
		q = q.Scopes(scope)
	}
	var out []model.OrderDetail
	if err := q.Find(&out).Error; err != nil {
		return nil, apperr.Internal("list order details", err)
	}
	for i := range out {
		out[i].Recompute()
	}
	return out, nil
}

func (s *Service) emit(ctx context.Context, userID uint, orderNumber string, ids []uint, total decimal.Decimal) {
	events.Emit(ctx, s.pub, events.OrderDetailCreated, strconv.FormatUint(uint64(userID), 10), events.OrderDetailPayload{
		OrderNumber: orderNumber,
		UserID:      userID,
		DetailIDs:   ids,
		GrandTotal:  total,
	})
}

func loadDetail(db *gorm.DB, id uint) (model.OrderDetail, error) {
	var d model.OrderDetail
	err := db.Preload("Order.Product", store.WithDeleted).First(&d, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return d, apperr.NotFound("Order detail not found")
	}
	if err != nil {
		return d, apperr.Internal("load order detail", err)
	}
	return d, nil
}
