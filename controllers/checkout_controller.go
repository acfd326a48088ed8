package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/checkout-service/common/middleware"
	"github.com/yashrajoria/checkout-service/services"
)

// CheckoutController handles payer-facing checkout requests.
type CheckoutController struct {
	service services.CheckoutService
}

func NewCheckoutController(service services.CheckoutService) *CheckoutController {
	registerValidators()
	return &CheckoutController{service: service}
}

// StartCheckout handles POST /checkout.
func (cc *CheckoutController) StartCheckout(ctx *gin.Context) {
	var req services.StartCheckoutRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	resp, svcErr := cc.service.StartCheckout(ctx.Request.Context(), middleware.GetUserID(ctx), ctx.ClientIP(), &req)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusCreated, resp)
}

// GetPaymentStatus handles GET /orders/:code/payment.
func (cc *CheckoutController) GetPaymentStatus(ctx *gin.Context) {
	code := ctx.Param("code")
	if !validOrderCode(code) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order code"})
		return
	}

	resp, svcErr := cc.service.GetPaymentStatus(ctx.Request.Context(), middleware.GetUserID(ctx), code)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, resp)
}
