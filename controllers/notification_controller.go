package controllers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/checkout-service/models"
	"github.com/yashrajoria/checkout-service/providers"
	"github.com/yashrajoria/checkout-service/services"
	"go.uber.org/zap"
)

const maxNotificationBody = 64 << 10

// NotificationController receives gateway callbacks on both channels.
type NotificationController struct {
	service     services.CheckoutService
	frontendURL string
	logger      *zap.Logger
}

func NewNotificationController(service services.CheckoutService, frontendURL string, logger *zap.Logger) *NotificationController {
	return &NotificationController{
		service:     service,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		logger:      logger,
	}
}

// Return handles GET /payments/:provider/return, where the payer's browser
// lands after the gateway page. The payer is always redirected.
func (nc *NotificationController) Return(ctx *gin.Context) {
	provider := models.Provider(ctx.Param("provider"))
	resp, err := nc.service.HandleNotification(ctx.Request.Context(), provider, firstValues(ctx.Request.URL.Query()), models.ChannelRedirect)
	if err != nil {
		nc.failRedirect(ctx, provider, err)
		return
	}
	ctx.Redirect(http.StatusFound, resp.RedirectURL)
}

// failRedirect sends the payer to the failure page; a browser never gets a
// JSON error body.
func (nc *NotificationController) failRedirect(ctx *gin.Context, provider models.Provider, err error) {
	reason := "error"
	if errors.Is(err, providers.ErrUnknownProvider) {
		reason = "unknown_provider"
	} else {
		nc.logger.Error("failed to handle payment return",
			zap.String("provider", string(provider)),
			zap.Error(err),
		)
	}
	q := url.Values{}
	q.Set("reason", reason)
	ctx.Redirect(http.StatusFound, nc.frontendURL+"/checkout/failure?"+q.Encode())
}

// Notify handles GET and POST /payments/:provider/notify, the gateway's
// server-to-server push. The reply format is chosen by the provider adapter.
func (nc *NotificationController) Notify(ctx *gin.Context) {
	provider := models.Provider(ctx.Param("provider"))
	raw, err := readParams(ctx)
	if err != nil {
		nc.logger.Warn("unreadable payment notification", zap.String("provider", string(provider)), zap.Error(err))
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification payload"})
		return
	}

	resp, err := nc.service.HandleNotification(ctx.Request.Context(), provider, raw, models.ChannelServerPush)
	if err != nil {
		nc.fail(ctx, provider, err)
		return
	}

	nc.logger.Info("payment notification handled",
		zap.String("provider", string(provider)),
		zap.String("order_code", resp.Result.OrderCode),
		zap.String("outcome", string(resp.Result.Outcome)),
	)
	if resp.Ack.Body == nil {
		ctx.Status(resp.Ack.StatusCode)
		return
	}
	ctx.JSON(resp.Ack.StatusCode, resp.Ack.Body)
}

func (nc *NotificationController) fail(ctx *gin.Context, provider models.Provider, err error) {
	if errors.Is(err, providers.ErrUnknownProvider) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Unknown payment provider"})
		return
	}
	nc.logger.Error("failed to handle payment notification",
		zap.String("provider", string(provider)),
		zap.Error(err),
	)
	// 5xx makes the gateway retry the push later
	ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process notification"})
}

// readParams flattens a notification into string parameters: the query string
// for GET, and a JSON object or form body for POST.
func readParams(ctx *gin.Context) (map[string]string, error) {
	if ctx.Request.Method == http.MethodGet {
		return firstValues(ctx.Request.URL.Query()), nil
	}

	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxNotificationBody)
	if strings.HasPrefix(ctx.ContentType(), "application/json") {
		body, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			return nil, err
		}
		return flattenJSON(body)
	}

	if err := ctx.Request.ParseForm(); err != nil {
		return nil, err
	}
	return firstValues(ctx.Request.PostForm), nil
}

func firstValues(values map[string][]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

// flattenJSON keeps numbers in their literal form so amounts and codes are
// signed exactly as the gateway sent them.
func flattenJSON(body []byte) (map[string]string, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var obj map[string]interface{}
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("decode notification body: %w", err)
	}

	out := make(map[string]string, len(obj))
	for k, v := range obj {
		switch val := v.(type) {
		case nil:
			out[k] = ""
		case string:
			out[k] = val
		case json.Number:
			out[k] = val.String()
		case bool:
			out[k] = strconv.FormatBool(val)
		default:
			b, err := json.Marshal(val)
			if err != nil {
				return nil, err
			}
			out[k] = string(b)
		}
	}
	return out, nil
}
