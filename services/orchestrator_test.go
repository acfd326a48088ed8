package services_test

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/checkout-service/models"
	"github.com/yashrajoria/checkout-service/providers"
	"github.com/yashrajoria/checkout-service/services"
)

func startCheckout(t *testing.T, h *harness, code string, provider models.Provider) *services.StartCheckoutResponse {
	t.Helper()
	resp, serr := h.checkout.StartCheckout(context.Background(), buyerID.String(), "10.0.0.1", &services.StartCheckoutRequest{
		OrderCode: code,
		Provider:  provider,
	})
	require.Nil(t, serr)
	return resp
}

func TestScenario_ORD1001_DuplicateNotification(t *testing.T) {
	h := newHarness(t)
	h.seedOrder(t, "ORD-1001", 160000, 20000, 10000)
	ctx := context.Background()

	resp := startCheckout(t, h, "ORD-1001", models.ProviderA)
	assert.Equal(t, models.OrderStatusPendingPayment, h.order(t, "ORD-1001").Status)

	u, err := url.Parse(resp.RedirectURL)
	require.NoError(t, err)
	assert.Equal(t, "15000000", u.Query().Get("pa_Amount"))
	assert.Equal(t, resp.RequestID, u.Query().Get("pa_TxnRef"))

	callback := providerACallback(resp.RequestID, 150000, "00")

	first, err := h.checkout.HandleNotification(ctx, models.ProviderA, callback, models.ChannelServerPush)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomePaid, first.Result.Outcome)
	assert.Equal(t, http.StatusOK, first.Ack.StatusCode)

	o := h.order(t, "ORD-1001")
	assert.Equal(t, models.PaymentStatusPaid, o.PaymentStatus)
	assert.Equal(t, models.OrderStatusProcessing, o.Status)
	assert.Equal(t, 1, h.mailer.count())

	// the same payload two seconds later
	second, err := h.checkout.HandleNotification(ctx, models.ProviderA, callback, models.ChannelServerPush)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAlreadyReconciled, second.Result.Outcome)
	assert.Equal(t, 1, h.mailer.count(), "no second email")

	// the browser return for the same payment lands on the success page
	ret, err := h.checkout.HandleNotification(ctx, models.ProviderA, callback, models.ChannelRedirect)
	require.NoError(t, err)
	assert.Equal(t, "https://shop.test/checkout/success?order=ORD-1001", ret.RedirectURL)
}

func TestScenario_ORD1002_AmountMismatch(t *testing.T) {
	h := newHarness(t)
	h.seedOrder(t, "ORD-1002", 150000, 0, 0)

	resp := startCheckout(t, h, "ORD-1002", models.ProviderA)
	res, err := h.checkout.HandleNotification(context.Background(), models.ProviderA,
		providerACallback(resp.RequestID, 140000, "00"), models.ChannelServerPush)
	require.NoError(t, err)

	assert.True(t, res.Verification.Verified)
	assert.Equal(t, models.OutcomeAmountMismatch, res.Result.Outcome)
	assert.Equal(t, models.PaymentStatusUnpaid, h.order(t, "ORD-1002").PaymentStatus)
	assert.Contains(t, res.RedirectURL, "/checkout/failure?")
	assert.Zero(t, h.mailer.count())
}

func TestHandleNotification_TamperedPayload(t *testing.T) {
	h := newHarness(t)
	h.seedOrder(t, "ORD-7", 150000, 0, 0)
	resp := startCheckout(t, h, "ORD-7", models.ProviderA)

	callback := providerACallback(resp.RequestID, 150000, "24")
	callback["pa_ResponseCode"] = "00"

	res, err := h.checkout.HandleNotification(context.Background(), models.ProviderA, callback, models.ChannelRedirect)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeInvalidSignature, res.Result.Outcome)
	assert.Equal(t, "97", res.Ack.Body.(gin.H)["RspCode"])
	assert.Contains(t, res.RedirectURL, "reason=verification_failed")
	assert.Equal(t, models.PaymentStatusUnpaid, h.order(t, "ORD-7").PaymentStatus)
}

func TestHandleNotification_ProviderB(t *testing.T) {
	h := newHarness(t)
	h.seedOrder(t, "ORD-B1", 99000, 0, 0)
	resp := startCheckout(t, h, "ORD-B1", models.ProviderB)

	raw := map[string]string{
		"partnerCode":  "PARTNER01",
		"orderId":      resp.RequestID,
		"requestId":    resp.RequestID,
		"amount":       strconv.Itoa(99000),
		"orderInfo":    "Payment for order ORD-B1",
		"orderType":    "momo_wallet",
		"transId":      "3000000001",
		"resultCode":   "0",
		"message":      "Successful.",
		"payType":      "qr",
		"responseTime": "1777629600000",
		"extraData":    base64.StdEncoding.EncodeToString([]byte(`{"order_code":"ORD-B1"}`)),
	}
	fields := map[string]string{"accessKey": "access-key"}
	for k, v := range raw {
		fields[k] = v
	}
	canonical := providers.Canonicalize(fields, []string{
		"accessKey", "amount", "extraData", "message", "orderId", "orderInfo",
		"orderType", "partnerCode", "payType", "requestId", "responseTime",
		"resultCode", "transId",
	}, providers.CanonicalOptions{})
	raw["signature"] = providers.Sign(canonical, []byte(secretB), providers.HashSHA256)

	res, err := h.checkout.HandleNotification(context.Background(), models.ProviderB, raw, models.ChannelServerPush)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomePaid, res.Result.Outcome)
	assert.Equal(t, http.StatusNoContent, res.Ack.StatusCode)
	assert.Equal(t, "3000000001", h.order(t, "ORD-B1").PaymentDetails.TransactionID)
}

func TestHandleNotification_UnknownProvider(t *testing.T) {
	h := newHarness(t)
	_, err := h.checkout.HandleNotification(context.Background(), "provider_z", map[string]string{}, models.ChannelServerPush)
	assert.ErrorIs(t, err, services.ErrUnknownProvider)
}

func TestStartCheckout_Errors(t *testing.T) {
	h := newHarness(t)
	h.seedOrder(t, "ORD-OK", 1000, 0, 0)
	h.seedOrder(t, "ORD-ZERO", 1000, 1000, 0)
	h.seedOrder(t, "ORD-PAID", 1000, 0, 0)
	_, err := h.reconciler.Reconcile(context.Background(), verifiedEvent("ORD-PAID", 1000, true, models.ChannelServerPush))
	require.NoError(t, err)

	cases := []struct {
		name     string
		userID   string
		clientIP string
		req      *services.StartCheckoutRequest
		status   int
	}{
		{"missing fields", buyerID.String(), "10.0.0.1", &services.StartCheckoutRequest{OrderCode: "ORD-OK"}, http.StatusBadRequest},
		{"unknown order", buyerID.String(), "10.0.0.1", &services.StartCheckoutRequest{OrderCode: "ORD-404", Provider: models.ProviderA}, http.StatusNotFound},
		{"foreign order", uuid.NewString(), "10.0.0.1", &services.StartCheckoutRequest{OrderCode: "ORD-OK", Provider: models.ProviderA}, http.StatusNotFound},
		{"unknown provider", buyerID.String(), "10.0.0.1", &services.StartCheckoutRequest{OrderCode: "ORD-OK", Provider: "provider_z"}, http.StatusBadRequest},
		{"missing client ip", buyerID.String(), "", &services.StartCheckoutRequest{OrderCode: "ORD-OK", Provider: models.ProviderA}, http.StatusBadRequest},
		{"zero amount", buyerID.String(), "10.0.0.1", &services.StartCheckoutRequest{OrderCode: "ORD-ZERO", Provider: models.ProviderA}, http.StatusUnprocessableEntity},
		{"already paid", buyerID.String(), "10.0.0.1", &services.StartCheckoutRequest{OrderCode: "ORD-PAID", Provider: models.ProviderA}, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, serr := h.checkout.StartCheckout(context.Background(), tc.userID, tc.clientIP, tc.req)
			assert.Nil(t, resp)
			require.NotNil(t, serr)
			assert.Equal(t, tc.status, serr.StatusCode)
		})
	}
}

func TestStartCheckout_FreshRequestIDPerAttempt(t *testing.T) {
	h := newHarness(t)
	h.seedOrder(t, "ORD-RETRY", 1000, 0, 0)

	first := startCheckout(t, h, "ORD-RETRY", models.ProviderA)
	second := startCheckout(t, h, "ORD-RETRY", models.ProviderA)
	assert.NotEqual(t, first.RequestID, second.RequestID)
	assert.Equal(t, "ORD-RETRY", models.OrderCodeFromRequestID(second.RequestID))
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), first.ExpiresAt, time.Minute)
}

func TestGetPaymentStatus(t *testing.T) {
	h := newHarness(t)
	h.seedOrder(t, "ORD-S", 1000, 0, 0)

	resp, serr := h.checkout.GetPaymentStatus(context.Background(), buyerID.String(), "ORD-S")
	require.Nil(t, serr)
	assert.Equal(t, models.PaymentStatusUnpaid, resp.PaymentStatus)

	_, serr = h.checkout.GetPaymentStatus(context.Background(), uuid.NewString(), "ORD-S")
	require.NotNil(t, serr)
	assert.Equal(t, http.StatusNotFound, serr.StatusCode)
}
