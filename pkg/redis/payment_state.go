package redis

import (
	"context"
	"strconv"
	"strings"
	"time"

	rd "github.com/redis/go-redis/v9"
)

const (
	// PaymentPending: token issued, waiting for the gateway.
	PaymentPending = "pending"
)

// PaymentState is what one initiated payment covers and where it stands.
type PaymentState struct {
	OrderID  string `json:"orderId"`
	UserID   uint   `json:"userId"`
	OrderIDs []uint `json:"orderIds"`
	Amount   int64  `json:"amount"`
	Status   string `json:"status"`
}

// PaymentStates keeps PaymentState hashes with a TTL.
type PaymentStates struct {
	rdb *rd.Client
	ttl time.Duration
}

func NewPaymentStates(rdb *rd.Client, ttl time.Duration) *PaymentStates {
	return &PaymentStates{rdb: rdb, ttl: ttl}
}

// Get looks up a payment. found=false means the key does not exist or expired.
func (s *PaymentStates) Get(ctx context.Context, gatewayOrderID string) (PaymentState, bool, error) {
	m, err := s.rdb.HGetAll(ctx, PaymentStateKey(gatewayOrderID)).Result()
	if err != nil {
		return PaymentState{}, false, err
	}
	if len(m) == 0 {
		return PaymentState{}, false, nil
	}

	out := PaymentState{
		OrderID:  gatewayOrderID,
		Status:   m["status"],
		OrderIDs: parseIDs(m["order_ids"]),
	}
	if v, err := strconv.ParseUint(m["user_id"], 10, 64); err == nil {
		out.UserID = uint(v)
	}
	if v, err := strconv.ParseInt(m["amount"], 10, 64); err == nil {
		out.Amount = v
	}
	if out.Status == "" {
		out.Status = PaymentPending
	}
	return out, true, nil
}

// Put writes the state and refreshes the TTL.
func (s *PaymentStates) Put(ctx context.Context, st PaymentState) error {
	key := PaymentStateKey(st.OrderID)
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key,
		"order_id", st.OrderID,
		"user_id", strconv.FormatUint(uint64(st.UserID), 10),
		"order_ids", formatIDs(st.OrderIDs),
		"amount", strconv.FormatInt(st.Amount, 10),
		"status", st.Status,
	)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func formatIDs(ids []uint) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatUint(uint64(id), 10))
	}
	return strings.Join(parts, ",")
}

func parseIDs(s string) []uint {
	var out []uint
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err == nil && v > 0 {
			out = append(out, uint(v))
		}
	}
	return out
}
