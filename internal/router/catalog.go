package router

import (
	"errors"
	"net/http"

	"storefront/internal/apperr"
	"storefront/internal/ledger"
	"storefront/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// listProducts returns the catalog with categories.
func listProducts(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var list []model.Product
		if err := db.WithContext(c.Request.Context()).Preload("Category").Order("id").Find(&list).Error; err != nil {
			writeError(c, apperr.Internal("list products", err))
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func getProduct(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var p model.Product
		err := db.WithContext(c.Request.Context()).Preload("Category").First(&p, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(c, apperr.NotFound("Product not found"))
			return
		}
		if err != nil {
			writeError(c, apperr.Internal("load product", err))
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

func listCategories(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var list []model.Category
		if err := db.WithContext(c.Request.Context()).Order("id").Find(&list).Error; err != nil {
			writeError(c, apperr.Internal("list categories", err))
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func getCategory(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var cat model.Category
		err := db.WithContext(c.Request.Context()).First(&cat, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(c, apperr.NotFound("Category not found"))
			return
		}
		if err != nil {
			writeError(c, apperr.Internal("load category", err))
			return
		}
		c.JSON(http.StatusOK, cat)
	}
}

type productRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int64           `json:"stock" binding:"min=0"`
	ImgURL      string          `json:"imgUrl"`
	CategoryID  uint            `json:"categoryId" binding:"required,min=1"`
}

// createProduct seeds a catalog item with its opening stock. Admin only.
func createProduct(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		var req productRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		if req.Price.IsNegative() {
			badRequest(c, "Price must not be negative")
			return
		}

		ctx := c.Request.Context()
		var cat model.Category
		if err := db.WithContext(ctx).First(&cat, req.CategoryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				writeError(c, apperr.NotFound("Category not found"))
				return
			}
			writeError(c, apperr.Internal("load category", err))
			return
		}

		prod := &model.Product{
			Name:        req.Name,
			Description: req.Description,
			Price:       req.Price,
			Stock:       req.Stock,
			ImgURL:      req.ImgURL,
			CategoryID:  cat.ID,
			UserID:      p.ID,
		}
		if err := db.WithContext(ctx).Create(prod).Error; err != nil {
			writeError(c, apperr.Internal("create product", err))
			return
		}
		c.JSON(http.StatusCreated, prod)
	}
}

// updateProduct edits descriptive fields and price. Stock only grows through
// restock, which goes through the ledger like every other stock change.
func updateProduct(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req struct {
			Name        *string          `json:"name"`
			Description *string          `json:"description"`
			Price       *decimal.Decimal `json:"price"`
			ImgURL      *string          `json:"imgUrl"`
			Restock     int64            `json:"restock" binding:"min=0"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		if req.Price != nil && req.Price.IsNegative() {
			badRequest(c, "Price must not be negative")
			return
		}

		ctx := c.Request.Context()
		var prod model.Product
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&prod, id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.NotFound("Product not found")
				}
				return apperr.Internal("load product", err)
			}

			updates := map[string]any{}
			if req.Name != nil {
				updates["name"] = *req.Name
			}
			if req.Description != nil {
				updates["description"] = *req.Description
			}
			if req.Price != nil {
				updates["price"] = *req.Price
			}
			if req.ImgURL != nil {
				updates["img_url"] = *req.ImgURL
			}
			if len(updates) > 0 {
				if err := tx.Model(&prod).Updates(updates).Error; err != nil {
					return apperr.Internal("update product", err)
				}
			}
			if req.Restock > 0 {
				if err := ledger.Release(ctx, tx, prod.ID, req.Restock); err != nil {
					return err
				}
			}
			return tx.First(&prod, id).Error
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Product updated successfully", "product": prod})
	}
}

func deleteProduct(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		res := db.WithContext(c.Request.Context()).Delete(&model.Product{}, id)
		if res.Error != nil {
			writeError(c, apperr.Internal("delete product", res.Error))
			return
		}
		if res.RowsAffected == 0 {
			writeError(c, apperr.NotFound("Product not found"))
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
	}
}
