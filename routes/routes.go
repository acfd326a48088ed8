package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/checkout-service/controllers"
)

// RegisterCheckoutRoutes sets up payer-facing and gateway-facing routes.
// auth guards the payer routes; notifyLimit guards the gateway callbacks.
func RegisterCheckoutRoutes(r *gin.Engine, cc *controllers.CheckoutController, nc *controllers.NotificationController, auth, notifyLimit gin.HandlerFunc) {
	// Payer routes
	payer := r.Group("")
	payer.Use(auth)
	payer.POST("/checkout", cc.StartCheckout)
	payer.GET("/orders/:code/payment", cc.GetPaymentStatus)

	// Gateway routes, authenticated by payload signature
	gateway := r.Group("/payments/:provider")
	gateway.Use(notifyLimit)
	gateway.GET("/return", nc.Return)
	gateway.GET("/notify", nc.Notify)
	gateway.POST("/notify", nc.Notify)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "service": "checkout-service"})
	})
}
