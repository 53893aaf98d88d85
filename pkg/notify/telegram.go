package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/linkit-hq/linkit-engine/pkg/logging"
	"github.com/linkit-hq/linkit-engine/pkg/metrics"
	"github.com/linkit-hq/linkit-engine/pkg/models"
	"github.com/linkit-hq/linkit-engine/pkg/retry"
)

const (
	// DefaultTimeout bounds one Bot API call.
	DefaultTimeout = 10 * time.Second

	maxTextLength    = 4096
	maxCaptionLength = 1024
	ellipsisLength   = 3
)

// TelegramConfig configures the Bot API dispatcher.
type TelegramConfig struct {
	APIURL        string
	BotToken      string
	RatePerSecond float64
	// Retry controls redelivery of rate-limited and 5xx responses. Nil uses retry.DeliveryConfig.
	Retry *retry.Config
}

// APIError is a non-OK Bot API response.
type APIError struct {
	StatusCode  int
	Description string
	retryAfter  time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram api status %d: %s", e.StatusCode, e.Description)
}

// IsRetryable reports whether the call may succeed later: rate limits and server errors.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// RetryAfter is the wait the server asked for on 429, zero otherwise.
func (e *APIError) RetryAfter() time.Duration {
	return e.retryAfter
}

// TelegramDispatcher sends messages through the Telegram Bot API.
type TelegramDispatcher struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	retry      *retry.Config
	logger     *zap.Logger
}

// NewTelegramDispatcher creates a Bot API dispatcher. The limiter is shared by every
// outbound call so bursts of notifications stay under the platform's global limit.
func NewTelegramDispatcher(cfg TelegramConfig, logger *zap.Logger) *TelegramDispatcher {
	retryCfg := cfg.Retry
	if retryCfg == nil {
		retryCfg = retry.DeliveryConfig()
	}
	burst := int(cfg.RatePerSecond)
	if burst < 1 {
		burst = 1
	}
	return &TelegramDispatcher{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		baseURL:    strings.TrimRight(cfg.APIURL, "/") + "/bot" + cfg.BotToken,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst),
		retry:      retryCfg,
		logger:     logger.Named("telegram"),
	}
}

var _ Dispatcher = (*TelegramDispatcher)(nil)

// Notify delivers msg and reports success. Failures are logged at debug level:
// recipients that blocked the bot are routine.
func (d *TelegramDispatcher) Notify(ctx context.Context, to models.ActorID, msg Message) bool {
	err := retry.DoIfRetryable(ctx, d.retry, func() error {
		if err := d.limiter.Wait(ctx); err != nil {
			return err
		}
		return d.send(ctx, to, msg)
	})

	metrics.NotificationsSent.WithLabelValues(metrics.Result(err == nil)).Inc()
	if err != nil {
		d.logger.Debug("Failed to deliver message",
			zap.Int64("to", int64(to)),
			zap.String("error", logging.SanitizeError(err)))
		return false
	}
	return true
}

type inlineKeyboard struct {
	InlineKeyboard [][]Button `json:"inline_keyboard"`
}

type sendPayload struct {
	ChatID      int64           `json:"chat_id"`
	Text        string          `json:"text,omitempty"`
	Photo       string          `json:"photo,omitempty"`
	Caption     string          `json:"caption,omitempty"`
	ReplyMarkup *inlineKeyboard `json:"reply_markup,omitempty"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters,omitempty"`
}

func (d *TelegramDispatcher) send(ctx context.Context, to models.ActorID, msg Message) error {
	method := "sendMessage"
	payload := sendPayload{ChatID: int64(to)}
	if msg.PhotoRef != "" {
		method = "sendPhoto"
		payload.Photo = msg.PhotoRef
		payload.Caption = logging.TruncateString(msg.Text, maxCaptionLength-ellipsisLength)
	} else {
		payload.Text = logging.TruncateString(msg.Text, maxTextLength-ellipsisLength)
	}
	if len(msg.Buttons) > 0 {
		payload.ReplyMarkup = &inlineKeyboard{InlineKeyboard: msg.Buttons}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call telegram: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var parsed apiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil && resp.StatusCode == http.StatusOK {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.StatusCode == http.StatusOK && parsed.OK {
		return nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode, Description: parsed.Description}
	if parsed.Parameters != nil && parsed.Parameters.RetryAfter > 0 {
		apiErr.retryAfter = time.Duration(parsed.Parameters.RetryAfter) * time.Second
	}
	return apiErr
}
