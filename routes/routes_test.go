package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/yashrajoria/checkout-service/common/auth"
	"github.com/yashrajoria/checkout-service/common/middleware"
	"github.com/yashrajoria/checkout-service/controllers"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func TestRegisterCheckoutRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	limiter := middleware.NewRateLimiter(rate.Every(time.Hour), 1, time.Minute)
	RegisterCheckoutRoutes(r,
		controllers.NewCheckoutController(nil),
		controllers.NewNotificationController(nil, "https://shop.test", zap.NewNop()),
		middleware.AuthMiddleware(auth.NewTokenParser("secret"), false),
		limiter.Middleware(),
	)

	serve := func(method, path string) int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
		return w.Code
	}

	assert.Equal(t, http.StatusOK, serve(http.MethodGet, "/health"))
	assert.Equal(t, http.StatusUnauthorized, serve(http.MethodPost, "/checkout"))
	assert.Equal(t, http.StatusUnauthorized, serve(http.MethodGet, "/orders/ORD-1/payment"))

	// first call consumes the bucket; the malformed body never reaches the service
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/provider_b/notify", nil)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(http.MethodGet, "/payments/provider_a/return"))
}
