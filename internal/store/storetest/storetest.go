// Package storetest provides throwaway sqlite databases for tests.
package storetest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"storefront/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New returns a migrated in-memory database private to t.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
		Logger:  logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(model.All()...))
	return db
}

// SeedUser inserts a customer with the given id.
func SeedUser(t testing.TB, db *gorm.DB, id uint, role string) model.User {
	t.Helper()
	u := model.User{
		ID:    id,
		Name:  fmt.Sprintf("user-%d", id),
		Email: fmt.Sprintf("user-%d@example.com", id),
		Role:  role,
	}
	require.NoError(t, db.Create(&u).Error)
	return u
}

// SeedProduct inserts a product with price and stock.
func SeedProduct(t testing.TB, db *gorm.DB, name string, price int64, stock int64) model.Product {
	t.Helper()
	var cat model.Category
	require.NoError(t, db.Where(model.Category{Name: "general"}).FirstOrCreate(&cat).Error)

	p := model.Product{
		Name:       name,
		Price:      decimal.NewFromInt(price),
		Stock:      stock,
		ImgURL:     "https://img.example.com/" + name + ".png",
		CategoryID: cat.ID,
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

// RemoveProduct soft-deletes a product the way the catalog does.
func RemoveProduct(t testing.TB, db *gorm.DB, productID uint) {
	t.Helper()
	require.NoError(t, db.Delete(&model.Product{}, productID).Error)
}

// Stock reads the current stock of a product, soft-deleted or not.
func Stock(t testing.TB, db *gorm.DB, productID uint) int64 {
	t.Helper()
	var p model.Product
	require.NoError(t, db.Unscoped().Select("stock").First(&p, productID).Error)
	return p.Stock
}
