package router

import (
	"net/http"

	"storefront/internal/model"
	"storefront/internal/orderdetail"

	"github.com/gin-gonic/gin"
)

func createOrderDetail(svc *orderdetail.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		var req struct {
			OrderID     uint               `json:"orderId"`
			OrderNumber string             `json:"orderNumber"`
			Status      model.DetailStatus `json:"status"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		d, err := svc.Create(c.Request.Context(), p, req.OrderID, req.OrderNumber, req.Status)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Order detail created successfully", "orderDetail": d})
	}
}

func createFromCart(svc *orderdetail.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		var req struct {
			OrderNumber string `json:"orderNumber"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		res, err := svc.CreateFromCart(c.Request.Context(), p, req.OrderNumber)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"message":      "Order details created successfully",
			"orderDetails": res.OrderDetails,
			"grandTotal":   res.GrandTotal,
			"orderCount":   res.OrderCount,
		})
	}
}

func updateOrderDetail(svc *orderdetail.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req struct {
			Status model.DetailStatus `json:"status"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		d, err := svc.Update(c.Request.Context(), p, id, req.Status)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Order detail updated successfully", "orderDetail": d})
	}
}

func deleteOrderDetail(svc *orderdetail.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		if err := svc.Delete(c.Request.Context(), p, id); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Order detail deleted successfully"})
	}
}

func getOrderDetail(svc *orderdetail.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		d, err := svc.Get(c.Request.Context(), p, id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, d)
	}
}

func listOrderDetails(svc *orderdetail.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		list, err := svc.ListAll(c.Request.Context(), p)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func listMyOrderDetails(svc *orderdetail.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		list, err := svc.ListMine(c.Request.Context(), p)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func revenueStats(svc *orderdetail.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		stats, err := svc.RevenueStats(c.Request.Context(), p)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}
