package router

import (
	"net/http"

	"storefront/internal/apperr"
	"storefront/internal/model"
	"storefront/internal/payment"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func initiatePayment(svc *payment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		res, err := svc.Initiate(c.Request.Context(), p)
		if err != nil {
			writeError(c, err)
			return
		}
		if res.Empty() {
			badRequest(c, "No pending orders found")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"transactionToken": res.TransactionToken,
			"redirectUrl":      res.RedirectURL,
			"orderId":          res.OrderID,
			"amount":           res.Amount,
			"message":          "Payment initiated successfully",
		})
	}
}

// handleNotification answers the gateway directly; errors never reach a generic handler.
func handleNotification(svc *payment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var n payment.Notification
		if err := c.ShouldBindJSON(&n); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Invalid notification payload"})
			return
		}

		out, err := svc.HandleNotification(c.Request.Context(), n)
		if err != nil {
			switch apperr.KindOf(err) {
			case apperr.KindInvalidSignature, apperr.KindBadRequest:
				c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": apperr.MessageOf(err)})
			default:
				log.Ctx(c.Request.Context()).Error().Err(err).Str("gateway_order_id", n.OrderID).Msg("webhook failed")
				c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Internal server error"})
			}
			return
		}

		msg := "Notification processed successfully"
		if out.Duplicate {
			msg = "Notification already processed"
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "message": msg})
	}
}

func setPaymentStatus(svc *payment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		var req struct {
			Status model.OrderStatus `json:"status"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		n, err := svc.SetStatus(c.Request.Context(), p, req.Status)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message":       "Payment status updated successfully",
			"affectedCount": n,
			"newStatus":     req.Status,
		})
	}
}

func paymentAttempt(svc *payment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		st, err := svc.Attempt(c.Request.Context(), p, c.Param("orderId"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, st)
	}
}
