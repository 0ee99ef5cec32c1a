package router

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"storefront/internal/apperr"
	"storefront/internal/authz"
	"storefront/internal/middleware"
	"storefront/internal/order"
	"storefront/internal/orderdetail"
	"storefront/internal/payment"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	rd "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps is everything the HTTP layer needs. Redis may be nil.
type Deps struct {
	DB       *gorm.DB
	Redis    *rd.Client
	Orders   *order.Service
	Details  *orderdetail.Service
	Payments *payment.Service

	JWTSecret  []byte
	RateLimit  int
	RateWindow time.Duration
}

// Setup registers every route.
func Setup(r *gin.Engine, d Deps) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"msg": "pong"})
	})

	// the gateway calls this without a token; the body is signature-checked instead
	r.POST("/payment/midtrans/notification", handleNotification(d.Payments))

	auth := r.Group("/", middleware.Authenticate(d.JWTSecret))
	admin := auth.Group("/", middleware.AdminOnly())
	limit := func(scope string) gin.HandlerFunc {
		return middleware.RedisRateLimit(d.Redis, scope, d.RateLimit, d.RateWindow)
	}

	// catalog
	auth.GET("/products", listProducts(d.DB))
	auth.GET("/products/:id", getProduct(d.DB))
	auth.GET("/categories", listCategories(d.DB))
	auth.GET("/categories/:id", getCategory(d.DB))
	admin.POST("/products", createProduct(d.DB))
	admin.PUT("/products/:id", updateProduct(d.DB))
	admin.DELETE("/products/:id", deleteProduct(d.DB))

	// orders
	auth.GET("/orders", listMyOrders(d.Orders))
	auth.POST("/orders", limit("orders"), createOrder(d.Orders))
	auth.PUT("/orders/:id", updateOrder(d.Orders))
	auth.DELETE("/orders/:id", deleteOrder(d.Orders))
	admin.GET("/admin/orders", listAllOrders(d.Orders))

	// order details
	auth.GET("/order-details", listOrderDetails(d.Details))
	auth.GET("/order-details/:id", getOrderDetail(d.Details))
	auth.GET("/my-order-details", listMyOrderDetails(d.Details))
	auth.POST("/order-details", createOrderDetail(d.Details))
	auth.POST("/order-details/from-cart", limit("from_cart"), createFromCart(d.Details))
	auth.PUT("/order-details/:id", updateOrderDetail(d.Details))
	auth.DELETE("/order-details/:id", deleteOrderDetail(d.Details))
	auth.GET("/revenue-stats", revenueStats(d.Details))

	// payment
	auth.GET("/payment/midtrans/initiate", limit("payment"), initiatePayment(d.Payments))
	auth.GET("/payment/midtrans/status/:orderId", paymentAttempt(d.Payments))
	auth.PUT("/payment/status", setPaymentStatus(d.Payments))
}

func statusFor(k apperr.Kind) int {
	switch k {
	case apperr.KindBadRequest, apperr.KindInsufficientStock, apperr.KindInvalidSignature:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"code","msg"}. Internal causes are logged, not returned.
func writeError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		log.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	_ = c.Error(err)

	body := gin.H{"code": status, "msg": apperr.MessageOf(err)}
	var ae *apperr.Error
	if kind == apperr.KindInsufficientStock && errors.As(err, &ae) {
		body["available"] = ae.Available
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "msg": msg})
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		badRequest(c, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func principal(c *gin.Context) (p authz.Principal, ok bool) {
	p, ok = middleware.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "msg": "Login First"})
	}
	return p, ok
}
