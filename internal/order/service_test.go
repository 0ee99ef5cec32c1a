package order

import (
	"context"
	"sync"
	"testing"

	"storefront/internal/apperr"
	"storefront/internal/authz"
	"storefront/internal/config"
	"storefront/internal/events"
	"storefront/internal/model"
	"storefront/internal/store/storetest"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	alice = authz.Principal{ID: 1, Name: "alice", Email: "alice@example.com", Role: model.RoleCustomer}
	bob   = authz.Principal{ID: 2, Name: "bob", Email: "bob@example.com", Role: model.RoleCustomer}
	root  = authz.Principal{ID: 9, Name: "root", Email: "root@example.com", Role: model.RoleAdmin}
)

func newTestService(t *testing.T, pricing config.PricingPolicy) (*Service, *gorm.DB, *events.Memory) {
	t.Helper()
	db := storetest.New(t)
	storetest.SeedUser(t, db, alice.ID, alice.Role)
	storetest.SeedUser(t, db, bob.ID, bob.Role)
	storetest.SeedUser(t, db, root.ID, root.Role)
	pub := &events.Memory{}
	return NewService(db, authz.Roles{}, pub, pricing), db, pub
}

func qty(n int64) *int64 { return &n }

func TestLifecycleScenario(t *testing.T) {
	svc, db, pub := newTestService(t, config.PricingLive)
	ctx := context.Background()
	p := storetest.SeedProduct(t, db, "kopi", 100, 10)

	created, err := svc.Create(ctx, alice, p.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, model.OrderUnpaid, created.Status)
	assert.True(t, created.Price.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, p.ID, created.Product.ID)
	assert.Equal(t, p.ImgURL, created.Product.ImgURL)
	assert.False(t, created.OrderDate.IsZero())
	assert.Equal(t, int64(7), storetest.Stock(t, db, p.ID))

	updated, err := svc.UpdateQuantity(ctx, alice, created.ID, qty(5))
	require.NoError(t, err)
	assert.Equal(t, int64(5), updated.Quantity)
	assert.True(t, updated.Price.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, int64(5), storetest.Stock(t, db, p.ID))

	require.NoError(t, svc.Delete(ctx, alice, created.ID))
	assert.Equal(t, int64(10), storetest.Stock(t, db, p.ID))

	var n int64
	require.NoError(t, db.Model(&model.Order{}).Count(&n).Error)
	assert.Zero(t, n)

	assert.Equal(t, []string{events.OrderCreated, events.OrderUpdated, events.OrderDeleted}, pub.Types())
}

func TestCreate_Validation(t *testing.T) {
	svc, db, _ := newTestService(t, config.PricingLive)
	ctx := context.Background()
	p := storetest.SeedProduct(t, db, "kopi", 100, 10)

	tests := []struct {
		name      string
		productID uint
		qty       int64
		kind      apperr.Kind
		msg       string
	}{
		{"missing_product", 0, 1, apperr.KindBadRequest, "Product ID is required"},
		{"zero_quantity", p.ID, 0, apperr.KindBadRequest, "Valid quantity is required"},
		{"negative_quantity", p.ID, -2, apperr.KindBadRequest, "Valid quantity is required"},
		{"unknown_product", 404, 1, apperr.KindNotFound, "Product with ID 404 not found"},
		{"insufficient", p.ID, 11, apperr.KindInsufficientStock, "Insufficient stock for kopi. Available: 10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, alice, tt.productID, tt.qty)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
			assert.Equal(t, tt.msg, apperr.MessageOf(err))
		})
	}

	assert.Equal(t, int64(10), storetest.Stock(t, db, p.ID))
	var n int64
	require.NoError(t, db.Model(&model.Order{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestCreate_ConcurrentDoesNotOversell(t *testing.T) {
	svc, db, _ := newTestService(t, config.PricingLive)
	p := storetest.SeedProduct(t, db, "flash", 100, 10)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, who := range []authz.Principal{alice, bob} {
		wg.Add(1)
		go func(i int, who authz.Principal) {
			defer wg.Done()
			_, errs[i] = svc.Create(context.Background(), who, p.ID, 6)
		}(i, who)
	}
	wg.Wait()

	var ok, short int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case apperr.KindOf(err) == apperr.KindInsufficientStock:
			short++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, short)
	assert.Equal(t, int64(4), storetest.Stock(t, db, p.ID))
}

func TestUpdateQuantity_PricingPolicy(t *testing.T) {
	tests := []struct {
		policy config.PricingPolicy
		want   int64
	}{
		{config.PricingLive, 150},
		{config.PricingSnapshot, 100},
	}
	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			svc, db, _ := newTestService(t, tt.policy)
			ctx := context.Background()
			p := storetest.SeedProduct(t, db, "teh", 100, 10)

			o, err := svc.Create(ctx, alice, p.ID, 2)
			require.NoError(t, err)
			require.NoError(t, db.Model(&model.Product{}).Where("id = ?", p.ID).
				Update("price", decimal.NewFromInt(150)).Error)

			updated, err := svc.UpdateQuantity(ctx, alice, o.ID, qty(4))
			require.NoError(t, err)
			assert.True(t, updated.Price.Equal(decimal.NewFromInt(tt.want)), "price %s", updated.Price)
			assert.Equal(t, int64(6), storetest.Stock(t, db, p.ID))
		})
	}
}

func TestUpdateQuantity_NoOp(t *testing.T) {
	svc, db, pub := newTestService(t, config.PricingLive)
	ctx := context.Background()
	p := storetest.SeedProduct(t, db, "teh", 100, 10)

	o, err := svc.Create(ctx, alice, p.ID, 2)
	require.NoError(t, err)

	for _, q := range []*int64{nil, qty(0), qty(-3)} {
		got, err := svc.UpdateQuantity(ctx, alice, o.ID, q)
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.Quantity)
	}
	assert.Equal(t, int64(8), storetest.Stock(t, db, p.ID))
	assert.Equal(t, []string{events.OrderCreated}, pub.Types())
}

func TestUpdateQuantity_Errors(t *testing.T) {
	svc, db, _ := newTestService(t, config.PricingLive)
	ctx := context.Background()
	p := storetest.SeedProduct(t, db, "teh", 100, 10)

	o, err := svc.Create(ctx, alice, p.ID, 3)
	require.NoError(t, err)

	_, err = svc.UpdateQuantity(ctx, alice, o.ID, qty(11))
	assert.ErrorIs(t, err, apperr.ErrInsufficientStock)
	assert.Equal(t, "Insufficient stock for teh. Available: 10", apperr.MessageOf(err))

	_, err = svc.UpdateQuantity(ctx, bob, o.ID, qty(1))
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.UpdateQuantity(ctx, alice, 999, qty(1))
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	// shrinking to exactly the reverted availability is fine
	got, err := svc.UpdateQuantity(ctx, alice, o.ID, qty(10))
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.Quantity)
	assert.Equal(t, int64(0), storetest.Stock(t, db, p.ID))
}

func TestDelete_RestocksRegardlessOfStatus(t *testing.T) {
	svc, db, _ := newTestService(t, config.PricingLive)
	ctx := context.Background()
	p := storetest.SeedProduct(t, db, "teh", 100, 10)

	o, err := svc.Create(ctx, alice, p.ID, 4)
	require.NoError(t, err)
	require.NoError(t, db.Model(&model.Order{}).Where("id = ?", o.ID).
		Update("status", model.OrderCompleted).Error)
	require.NoError(t, db.Create(&model.OrderDetail{
		UserID: alice.ID, OrderID: o.ID, OrderNumber: "INV-1", Status: model.DetailCompleted,
		TotalAmount: decimal.NewFromInt(400),
	}).Error)

	assert.ErrorIs(t, svc.Delete(ctx, bob, o.ID), apperr.ErrForbidden)
	require.NoError(t, svc.Delete(ctx, alice, o.ID))
	assert.Equal(t, int64(10), storetest.Stock(t, db, p.ID))

	var details int64
	require.NoError(t, db.Model(&model.OrderDetail{}).Count(&details).Error)
	assert.Zero(t, details)

	assert.ErrorIs(t, svc.Delete(ctx, alice, o.ID), apperr.ErrNotFound)
}

func TestOrders_OutliveTheirProduct(t *testing.T) {
	svc, db, _ := newTestService(t, config.PricingLive)
	ctx := context.Background()
	p := storetest.SeedProduct(t, db, "teh", 100, 10)

	kept, err := svc.Create(ctx, alice, p.ID, 2)
	require.NoError(t, err)
	dropped, err := svc.Create(ctx, alice, p.ID, 3)
	require.NoError(t, err)
	storetest.RemoveProduct(t, db, p.ID)

	_, err = svc.Create(ctx, alice, p.ID, 1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	updated, err := svc.UpdateQuantity(ctx, alice, kept.ID, qty(1))
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.Quantity)
	assert.Equal(t, int64(6), storetest.Stock(t, db, p.ID))

	require.NoError(t, svc.Delete(ctx, alice, dropped.ID))
	assert.Equal(t, int64(9), storetest.Stock(t, db, p.ID))

	var left int64
	require.NoError(t, db.Model(&model.Order{}).Where("id = ?", dropped.ID).Count(&left).Error)
	assert.Zero(t, left)

	mine, err := svc.ListMine(ctx, alice)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.NotNil(t, mine[0].Product)
	assert.Equal(t, "teh", mine[0].Product.Name)
	assert.True(t, mine[0].LineTotal().Equal(decimal.NewFromInt(100)))
}

func TestListMineAndAll(t *testing.T) {
	svc, db, _ := newTestService(t, config.PricingLive)
	ctx := context.Background()
	p := storetest.SeedProduct(t, db, "teh", 100, 10)

	first, err := svc.Create(ctx, alice, p.ID, 1)
	require.NoError(t, err)
	second, err := svc.Create(ctx, alice, p.ID, 1)
	require.NoError(t, err)
	_, err = svc.Create(ctx, bob, p.ID, 1)
	require.NoError(t, err)

	mine, err := svc.ListMine(ctx, alice)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)
	assert.Equal(t, first.ID, mine[1].ID)
	require.NotNil(t, mine[0].Product)
	require.NotNil(t, mine[0].Product.Category)
	assert.Equal(t, "general", mine[0].Product.Category.Name)

	_, err = svc.ListAll(ctx, alice)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	all, err := svc.ListAll(ctx, root)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.NotNil(t, all[0].User)
	assert.Equal(t, "user-2@example.com", all[0].User.Email)
}
