// Package payment bridges unpaid orders to the payment gateway: it prices and
// initiates a transaction, then resolves orders from signed gateway callbacks.
package payment

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/apperr"
	"storefront/internal/authz"
	"storefront/internal/events"
	"storefront/internal/model"
	"storefront/internal/store"
	rediskey "storefront/pkg/redis"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Deduper claims a webhook key once per TTL.
type Deduper interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

// Attempts remembers which orders an initiated payment covers.
type Attempts interface {
	Put(ctx context.Context, st rediskey.PaymentState) error
	Get(ctx context.Context, gatewayOrderID string) (rediskey.PaymentState, bool, error)
}

// Initiation is the result of Initiate. OrderCount == 0 means there was nothing to pay.
type Initiation struct {
	TransactionToken string `json:"transactionToken"`
	RedirectURL      string `json:"redirectUrl,omitempty"`
	OrderID          string `json:"orderId"`
	Amount           int64  `json:"amount"`
	OrderCount       int    `json:"-"`
}

func (i Initiation) Empty() bool { return i.OrderCount == 0 }

// Outcome describes what a notification did.
type Outcome struct {
	Status    model.OrderStatus
	Affected  int64
	Duplicate bool
	Ignored   bool
}

type Service struct {
	db        *gorm.DB
	gw        Gateway
	pub       events.Publisher
	az        authz.Authorizer
	serverKey string

	dedup    Deduper
	dedupTTL time.Duration
	attempts Attempts

	now func() time.Time
}

type Option func(*Service)

// WithDedup drops repeated notifications within ttl.
func WithDedup(d Deduper, ttl time.Duration) Option {
	return func(s *Service) {
		s.dedup = d
		s.dedupTTL = ttl
	}
}

// WithAttempts records initiated payments so notifications without custom_field3
// can still be scoped to the orders they paid for.
func WithAttempts(a Attempts) Option {
	return func(s *Service) { s.attempts = a }
}

func NewService(db *gorm.DB, gw Gateway, az authz.Authorizer, pub events.Publisher, serverKey string, opts ...Option) *Service {
	s := &Service{
		db:        db,
		gw:        gw,
		az:        az,
		pub:       pub,
		serverKey: serverKey,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initiate prices the caller's unpaid orders and opens a gateway transaction for them.
// It does not change any order. No unpaid orders yields an empty Initiation and no gateway call.
func (s *Service) Initiate(ctx context.Context, p authz.Principal) (*Initiation, error) {
	var orders []model.Order
	err := s.db.WithContext(ctx).Preload("Product", store.WithDeleted).
		Where("user_id = ? AND status = ?", p.ID, model.OrderUnpaid).
		Order("id").
		Find(&orders).Error
	if err != nil {
		return nil, apperr.Internal("load unpaid orders", err)
	}
	if len(orders) == 0 {
		return &Initiation{}, nil
	}

	total := decimal.Zero
	ids := make([]uint, 0, len(orders))
	for _, o := range orders {
		total = total.Add(o.LineTotal())
		ids = append(ids, o.ID)
	}
	amount := total.Round(0).IntPart()
	gatewayOrderID := fmt.Sprintf("ORDER-%d-%d", p.ID, s.now().UnixMilli())

	tx, err := s.gw.CreateTransaction(ctx, TransactionRequest{
		OrderID:  gatewayOrderID,
		Amount:   amount,
		Customer: Customer{Name: p.Name, Email: p.Email},
		UserID:   p.ID,
		OrderIDs: ids,
	})
	if err != nil {
		return nil, apperr.Internal("Failed to initiate payment", err)
	}

	if s.attempts != nil {
		err := s.attempts.Put(ctx, rediskey.PaymentState{
			OrderID:  gatewayOrderID,
			UserID:   p.ID,
			OrderIDs: ids,
			Amount:   amount,
			Status:   rediskey.PaymentPending,
		})
		if err != nil {
			log.Warn().Err(err).Str("gateway_order_id", gatewayOrderID).Msg("record payment attempt")
		}
	}

	log.Info().Uint("user_id", p.ID).Str("gateway_order_id", gatewayOrderID).
		Int64("amount", amount).Int("orders", len(ids)).Msg("payment initiated")
	events.Emit(ctx, s.pub, events.PaymentInitiated, gatewayOrderID, events.PaymentInitiatedPayload{
		GatewayOrderID: gatewayOrderID,
		UserID:         p.ID,
		OrderIDs:       ids,
		Amount:         amount,
	})

	return &Initiation{
		TransactionToken: tx.Token,
		RedirectURL:      tx.RedirectURL,
		OrderID:          gatewayOrderID,
		Amount:           amount,
		OrderCount:       len(ids),
	}, nil
}

// HandleNotification verifies and applies a gateway callback. Only the caller's
// unpaid orders move; with an order id list in custom_field3 (or a recorded
// attempt) the update is further restricted to those orders.
func (s *Service) HandleNotification(ctx context.Context, n Notification) (Outcome, error) {
	if !n.Verify(s.serverKey) {
		log.Warn().Str("gateway_order_id", n.OrderID).Msg("webhook signature mismatch")
		return Outcome{}, apperr.InvalidSignature("Invalid signature")
	}

	if s.dedup != nil {
		key := rediskey.WebhookDedupKey(n.OrderID, n.TransactionStatus, n.StatusCode)
		token, first, err := s.dedup.Claim(ctx, key, s.dedupTTL)
		switch {
		case err != nil:
			log.Warn().Err(err).Str("key", key).Msg("webhook dedup unavailable")
		case !first:
			log.Info().Str("gateway_order_id", n.OrderID).Str("transaction_status", n.TransactionStatus).
				Msg("duplicate webhook")
			return Outcome{Duplicate: true}, nil
		default:
			out, err := s.apply(ctx, n)
			if err != nil {
				if rerr := s.dedup.Release(ctx, key, token); rerr != nil {
					log.Warn().Err(rerr).Str("key", key).Msg("release webhook claim")
				}
			}
			return out, err
		}
	}
	return s.apply(ctx, n)
}

func (s *Service) apply(ctx context.Context, n Notification) (Outcome, error) {
	status, ok := ResolveStatus(n.TransactionStatus, n.FraudStatus)
	if !ok {
		log.Info().Str("gateway_order_id", n.OrderID).Str("transaction_status", n.TransactionStatus).
			Str("fraud_status", n.FraudStatus).Msg("webhook status not mapped, orders unchanged")
		return Outcome{Ignored: true}, nil
	}

	userID, orderIDs, err := s.correlate(ctx, n)
	if err != nil {
		return Outcome{}, err
	}

	q := s.db.WithContext(ctx).Model(&model.Order{}).
		Where("user_id = ? AND status = ?", userID, model.OrderUnpaid)
	if len(orderIDs) > 0 {
		q = q.Where("id IN ?", orderIDs)
	}
	res := q.Update("status", status)
	if res.Error != nil {
		return Outcome{}, apperr.Internal("update order status", res.Error)
	}

	if s.attempts != nil {
		st := rediskey.PaymentState{OrderID: n.OrderID, UserID: userID, OrderIDs: orderIDs, Status: string(status)}
		if prev, found, err := s.attempts.Get(ctx, n.OrderID); err == nil && found {
			st.Amount = prev.Amount
		}
		if err := s.attempts.Put(ctx, st); err != nil {
			log.Warn().Err(err).Str("gateway_order_id", n.OrderID).Msg("record payment outcome")
		}
	}

	log.Info().Str("gateway_order_id", n.OrderID).Uint("user_id", userID).
		Str("status", string(status)).Int64("affected", res.RowsAffected).Msg("webhook processed")
	events.Emit(ctx, s.pub, events.PaymentResolved, n.OrderID, events.PaymentResolvedPayload{
		GatewayOrderID:    n.OrderID,
		UserID:            userID,
		TransactionStatus: n.TransactionStatus,
		Status:            string(status),
		Affected:          res.RowsAffected,
		Source:            "webhook",
	})
	return Outcome{Status: status, Affected: res.RowsAffected}, nil
}

// correlate finds whose orders a notification is about.
func (s *Service) correlate(ctx context.Context, n Notification) (uint, []uint, error) {
	orderIDs, err := ParseOrderIDs(n.CustomField3)
	if err != nil {
		return 0, nil, apperr.BadRequest("Invalid order reference: %v", err)
	}

	var userID uint
	if n.CustomField1 != "" {
		if userID, err = parseUserID(n.CustomField1); err != nil {
			return 0, nil, apperr.BadRequest("Invalid user reference")
		}
	}

	if (userID == 0 || len(orderIDs) == 0) && s.attempts != nil {
		st, found, err := s.attempts.Get(ctx, n.OrderID)
		if err != nil {
			log.Warn().Err(err).Str("gateway_order_id", n.OrderID).Msg("load payment attempt")
		}
		if found {
			if userID == 0 {
				userID = st.UserID
			}
			if len(orderIDs) == 0 && st.UserID == userID {
				orderIDs = st.OrderIDs
			}
		}
	}

	if userID == 0 {
		return 0, nil, apperr.BadRequest("Missing user reference")
	}
	return userID, orderIDs, nil
}

// SetStatus is the manual override: every unpaid order of the caller moves to status.
func (s *Service) SetStatus(ctx context.Context, p authz.Principal, status model.OrderStatus) (int64, error) {
	if !status.Resolvable() {
		return 0, apperr.BadRequest("Invalid status. Allowed: completed, cancelled, pending")
	}

	res := s.db.WithContext(ctx).Model(&model.Order{}).
		Where("user_id = ? AND status = ?", p.ID, model.OrderUnpaid).
		Update("status", status)
	if res.Error != nil {
		return 0, apperr.Internal("update order status", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, apperr.NotFound("No unpaid orders found to update")
	}

	log.Info().Uint("user_id", p.ID).Str("status", string(status)).
		Int64("affected", res.RowsAffected).Msg("payment status set manually")
	events.Emit(ctx, s.pub, events.PaymentResolved, "", events.PaymentResolvedPayload{
		UserID:   p.ID,
		Status:   string(status),
		Affected: res.RowsAffected,
		Source:   "manual",
	})
	return res.RowsAffected, nil
}

// Attempt returns a recorded payment to its owner.
func (s *Service) Attempt(ctx context.Context, p authz.Principal, gatewayOrderID string) (*rediskey.PaymentState, error) {
	if s.attempts == nil {
		return nil, apperr.NotFound("Payment not found")
	}
	st, found, err := s.attempts.Get(ctx, gatewayOrderID)
	if err != nil {
		return nil, apperr.Internal("load payment attempt", err)
	}
	if !found {
		return nil, apperr.NotFound("Payment not found")
	}
	if err := s.az.Own(p, st.UserID, "You can only view your own payments"); err != nil {
		if s.az.ReadAll(p) != nil {
			return nil, err
		}
	}
	return &st, nil
}
