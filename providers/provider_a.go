package providers

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/checkout-service/models"
)

// Provider A is a query-string gateway: every pa_ field is signed in ascending
// key order with HMAC-SHA512, and amounts travel multiplied by 100.
const (
	paPrefix         = "pa_"
	paSecureHash     = "pa_SecureHash"
	paSecureHashType = "pa_SecureHashType"
	paAmountScale    = 100
	paDateLayout     = "20060102150405"
	paSuccessCode    = "00"
)

var providerAOptions = CanonicalOptions{SkipEmpty: true, EncodeValues: true}

var providerAResponseMessages = map[string]string{
	"00": "Transaction successful",
	"07": "Amount deducted, transaction flagged as suspicious",
	"09": "Card or account not enrolled in internet banking",
	"10": "Card or account authentication failed more than 3 times",
	"11": "Payment window expired",
	"12": "Card or account is locked",
	"13": "Incorrect one-time password",
	"24": "Transaction cancelled by customer",
	"51": "Insufficient balance",
	"65": "Daily transaction limit exceeded",
	"75": "Issuing bank under maintenance",
	"79": "Incorrect payment password entered too many times",
	"99": "Unknown error",
}

// ProviderAConfig holds merchant credentials and endpoints for provider A.
type ProviderAConfig struct {
	TmnCode    string
	HashSecret string
	PaymentURL string
	ReturnURL  string
	Version    string
	Location   *time.Location
}

// ProviderAAdapter implements GatewayAdapter for provider A.
type ProviderAAdapter struct {
	cfg    ProviderAConfig
	secret []byte
}

// NewProviderA creates a provider A adapter.
func NewProviderA(cfg ProviderAConfig) *ProviderAAdapter {
	if cfg.Version == "" {
		cfg.Version = "2.1.0"
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &ProviderAAdapter{cfg: cfg, secret: []byte(cfg.HashSecret)}
}

func (p *ProviderAAdapter) Tag() models.Provider { return models.ProviderA }

func (p *ProviderAAdapter) BuildRedirectURL(session *models.PaymentSession) (string, error) {
	if session == nil || session.RequestID == "" {
		return "", errors.New("provider_a: session without request id")
	}
	if session.Amount <= 0 {
		return "", errors.New("provider_a: amount must be positive")
	}

	locale := session.Locale
	if locale == "" {
		locale = "vn"
	}
	params := map[string]string{
		"pa_Version":    p.cfg.Version,
		"pa_Command":    "pay",
		"pa_TmnCode":    p.cfg.TmnCode,
		"pa_Amount":     strconv.FormatInt(session.Amount*paAmountScale, 10),
		"pa_CurrCode":   session.Currency,
		"pa_TxnRef":     session.RequestID,
		"pa_OrderInfo":  session.OrderInfo,
		"pa_OrderType":  "other",
		"pa_Locale":     locale,
		"pa_ReturnUrl":  p.cfg.ReturnURL,
		"pa_IpAddr":     session.ClientIP,
		"pa_CreateDate": session.CreatedAt.In(p.cfg.Location).Format(paDateLayout),
		"pa_ExpireDate": session.ExpiresAt.In(p.cfg.Location).Format(paDateLayout),
		"pa_BankCode":   session.BankCode,
	}

	canonical := Canonicalize(params, signedKeysA(params), providerAOptions)
	signature := Sign(canonical, p.secret, HashSHA512)
	return p.cfg.PaymentURL + "?" + canonical + "&" + paSecureHash + "=" + signature, nil
}

func (p *ProviderAAdapter) VerifyInbound(raw map[string]string) models.VerificationResult {
	res := models.VerificationResult{
		RequestID:     raw["pa_TxnRef"],
		OrderCode:     models.OrderCodeFromRequestID(raw["pa_TxnRef"]),
		TransactionID: raw["pa_TransactionNo"],
		ResponseCode:  raw["pa_ResponseCode"],
	}

	for _, key := range []string{paSecureHash, "pa_TxnRef", "pa_Amount", "pa_ResponseCode"} {
		if raw[key] == "" {
			res.ResponseMessage = "missing field " + key
			return res
		}
	}

	canonical := Canonicalize(raw, signedKeysA(raw), providerAOptions)
	if !Verify(canonical, p.secret, HashSHA512, raw[paSecureHash]) {
		res.ResponseMessage = "invalid signature"
		return res
	}
	if raw["pa_TmnCode"] != p.cfg.TmnCode {
		res.ResponseMessage = "merchant code mismatch"
		return res
	}
	amount, ok := fromScaledAmount(raw["pa_Amount"], paAmountScale)
	if !ok {
		res.ResponseMessage = "malformed amount"
		return res
	}

	res.Verified = true
	res.Amount = amount
	res.ResponseMessage = p.responseMessage(res.ResponseCode)
	status := raw["pa_TransactionStatus"]
	res.Success = res.ResponseCode == paSuccessCode && (status == "" || status == paSuccessCode)
	return res
}

func (p *ProviderAAdapter) Acknowledge(outcome models.ReconcileOutcome) Ack {
	code, msg := "99", "Unknown error"
	switch outcome {
	case models.OutcomePaid, models.OutcomeFailed, models.OutcomePending:
		code, msg = "00", "Confirm Success"
	case models.OutcomeAlreadyReconciled:
		code, msg = "02", "Order already confirmed"
	case models.OutcomeOrderNotFound:
		code, msg = "01", "Order not found"
	case models.OutcomeAmountMismatch:
		code, msg = "04", "Invalid amount"
	case models.OutcomeInvalidSignature:
		code, msg = "97", "Invalid signature"
	}
	return Ack{StatusCode: http.StatusOK, Body: gin.H{"RspCode": code, "Message": msg}}
}

func (p *ProviderAAdapter) responseMessage(code string) string {
	if msg, ok := providerAResponseMessages[code]; ok {
		return msg
	}
	return providerAResponseMessages["99"]
}

// signedKeysA returns every pa_ key except the signature fields, ascending.
func signedKeysA(params map[string]string) []string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if !strings.HasPrefix(k, paPrefix) || k == paSecureHash || k == paSecureHashType {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// fromScaledAmount converts a wire amount back to minor units, rejecting
// values that are not an exact multiple of scale.
func fromScaledAmount(s string, scale int64) (int64, bool) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < 0 || v%scale != 0 {
		return 0, false
	}
	return v / scale, true
}
