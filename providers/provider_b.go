package providers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/url"
	"strconv"

	"github.com/yashrajoria/checkout-service/models"
)

// Provider B signs a fixed, documented key order with HMAC-SHA256. Empty
// values still participate, and amounts are whole currency units.
var (
	providerBOutboundKeys = []string{
		"accessKey", "amount", "extraData", "ipnUrl", "orderId",
		"orderInfo", "partnerCode", "redirectUrl", "requestId", "requestType",
	}
	providerBInboundKeys = []string{
		"accessKey", "amount", "extraData", "message", "orderId", "orderInfo",
		"orderType", "partnerCode", "payType", "requestId", "responseTime",
		"resultCode", "transId",
	}
)

const (
	pbSignature   = "signature"
	pbSuccessCode = "0"
)

var providerBResultMessages = map[string]string{
	"0":    "Successful",
	"1000": "Transaction initiated, awaiting user confirmation",
	"1001": "Insufficient funds",
	"1002": "Rejected by issuer",
	"1003": "Transaction cancelled",
	"1004": "Amount exceeds payment limit",
	"1005": "Payment URL or QR code expired",
	"1006": "User denied the payment",
	"1007": "Account inactive",
	"1026": "Restricted by promotion rules",
	"1080": "Refund attempt failed",
	"7000": "Transaction is being processed",
	"7002": "Transaction is being processed by the issuer",
	"9000": "Transaction authorized",
	"99":   "Unknown error",
}

var providerBPendingCodes = map[string]bool{"1000": true, "7000": true, "7002": true}

// ProviderBConfig holds partner credentials and endpoints for provider B.
type ProviderBConfig struct {
	PartnerCode string
	AccessKey   string
	SecretKey   string
	Endpoint    string
	RedirectURL string
	IPNURL      string
	RequestType string
	Lang        string
}

// ProviderBAdapter implements GatewayAdapter for provider B.
type ProviderBAdapter struct {
	cfg    ProviderBConfig
	secret []byte
}

// NewProviderB creates a provider B adapter.
func NewProviderB(cfg ProviderBConfig) *ProviderBAdapter {
	if cfg.RequestType == "" {
		cfg.RequestType = "captureWallet"
	}
	if cfg.Lang == "" {
		cfg.Lang = "vi"
	}
	return &ProviderBAdapter{cfg: cfg, secret: []byte(cfg.SecretKey)}
}

func (p *ProviderBAdapter) Tag() models.Provider { return models.ProviderB }

func (p *ProviderBAdapter) BuildRedirectURL(session *models.PaymentSession) (string, error) {
	if session == nil || session.RequestID == "" {
		return "", errors.New("provider_b: session without request id")
	}
	if session.Amount <= 0 {
		return "", errors.New("provider_b: amount must be positive")
	}

	params := map[string]string{
		"accessKey":   p.cfg.AccessKey,
		"amount":      strconv.FormatInt(session.Amount, 10),
		"extraData":   encodeExtraData(session.OrderCode),
		"ipnUrl":      p.cfg.IPNURL,
		"orderId":     session.RequestID,
		"orderInfo":   session.OrderInfo,
		"partnerCode": p.cfg.PartnerCode,
		"redirectUrl": p.cfg.RedirectURL,
		"requestId":   session.RequestID,
		"requestType": p.cfg.RequestType,
	}
	signature := Sign(Canonicalize(params, providerBOutboundKeys, CanonicalOptions{}), p.secret, HashSHA256)

	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	q.Set(pbSignature, signature)
	q.Set("lang", p.cfg.Lang)
	return p.cfg.Endpoint + "?" + q.Encode(), nil
}

func (p *ProviderBAdapter) VerifyInbound(raw map[string]string) models.VerificationResult {
	requestID := raw["requestId"]
	if requestID == "" {
		requestID = raw["orderId"]
	}
	res := models.VerificationResult{
		RequestID:     requestID,
		OrderCode:     decodeExtraData(raw["extraData"]),
		TransactionID: raw["transId"],
		ResponseCode:  raw["resultCode"],
	}
	if res.OrderCode == "" {
		res.OrderCode = models.OrderCodeFromRequestID(raw["orderId"])
	}

	for _, key := range []string{pbSignature, "orderId", "amount", "resultCode"} {
		if raw[key] == "" {
			res.ResponseMessage = "missing field " + key
			return res
		}
	}

	// The gateway does not echo the access key; it is signed from our config.
	fields := make(map[string]string, len(raw)+1)
	for k, v := range raw {
		fields[k] = v
	}
	fields["accessKey"] = p.cfg.AccessKey

	canonical := Canonicalize(fields, providerBInboundKeys, CanonicalOptions{})
	if !Verify(canonical, p.secret, HashSHA256, raw[pbSignature]) {
		res.ResponseMessage = "invalid signature"
		return res
	}
	if raw["partnerCode"] != p.cfg.PartnerCode {
		res.ResponseMessage = "partner code mismatch"
		return res
	}
	amount, err := strconv.ParseInt(raw["amount"], 10, 64)
	if err != nil || amount < 0 {
		res.ResponseMessage = "malformed amount"
		return res
	}

	res.Verified = true
	res.Amount = amount
	res.Success = res.ResponseCode == pbSuccessCode
	res.Pending = providerBPendingCodes[res.ResponseCode]
	if msg, ok := providerBResultMessages[res.ResponseCode]; ok {
		res.ResponseMessage = msg
	} else if raw["message"] != "" {
		res.ResponseMessage = raw["message"]
	} else {
		res.ResponseMessage = providerBResultMessages["99"]
	}
	return res
}

// Acknowledge always answers 204: the gateway treats any 2xx as delivered.
func (p *ProviderBAdapter) Acknowledge(models.ReconcileOutcome) Ack {
	return noContentAck()
}

type extraData struct {
	OrderCode string `json:"order_code"`
}

func encodeExtraData(orderCode string) string {
	b, _ := json.Marshal(extraData{OrderCode: orderCode})
	return base64.StdEncoding.EncodeToString(b)
}

func decodeExtraData(s string) string {
	if s == "" {
		return ""
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return ""
	}
	var ed extraData
	if err := json.Unmarshal(b, &ed); err != nil {
		return ""
	}
	return ed.OrderCode
}
