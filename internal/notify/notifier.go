package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"goldwatcher/internal/storage"
)

// mesqalToGram converts the source's quotation unit to grams.
var mesqalToGram = decimal.NewFromFloat(4.331802)

// Update 封装一次价格广播的上下文。
type Update struct {
	Record   storage.PriceRecord
	Previous *storage.PriceRecord
	Location *time.Location
}

// Notifier 定义价格广播接口。
type Notifier interface {
	Publish(ctx context.Context, update Update) error
}

// DeliveryError aggregates per-recipient failures of a single publish. A
// partial delivery still reports which recipients were missed.
type DeliveryError struct {
	Failures map[string]error
}

func (e *DeliveryError) Error() string {
	ids := make([]string, 0, len(e.Failures))
	for id := range e.Failures {
		ids = append(ids, id)
	}
	return fmt.Sprintf("delivery failed for %d recipient(s): %s", len(e.Failures), strings.Join(ids, ","))
}

// TelegramOptions 配置 Telegram 推送器。
type TelegramOptions struct {
	BotToken     string
	ChannelID    string
	AdminChatIDs []string
	BaseURL      string
	ProxyURL     string
	Timeout      time.Duration
}

// TelegramNotifier 通过 Telegram Bot API 推送消息。
type TelegramNotifier struct {
	opts    TelegramOptions
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// NewTelegramNotifier 构造 Telegram 推送器。
func NewTelegramNotifier(opts TelegramOptions, logger zerolog.Logger) (*TelegramNotifier, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.telegram.org"
	}

	client := &http.Client{Timeout: opts.Timeout}
	if opts.ProxyURL != "" {
		proxy, err := url.Parse(opts.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse telegram proxy url: %w", err)
		}
		client.Transport = &http.Transport{Proxy: http.ProxyURL(proxy)}
	}

	return &TelegramNotifier{
		opts:    opts,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		client:  client,
		logger:  logger.With().Str("component", "notify_telegram").Logger(),
	}, nil
}

// Publish 将价格更新推送到频道与管理员。Each recipient is attempted
// independently; failures are aggregated and never abort the remaining
// deliveries.
func (n *TelegramNotifier) Publish(ctx context.Context, update Update) error {
	text := renderMessage(update)

	recipients := make([]string, 0, 1+len(n.opts.AdminChatIDs))
	if n.opts.ChannelID != "" {
		recipients = append(recipients, n.opts.ChannelID)
	}
	recipients = append(recipients, n.opts.AdminChatIDs...)

	failures := make(map[string]error)
	for _, recipient := range recipients {
		if err := n.sendMessage(ctx, recipient, text); err != nil {
			failures[recipient] = err
			n.logger.Error().Err(err).Str("recipient", recipient).Msg("推送失败")
			continue
		}
		n.logger.Info().Str("recipient", recipient).Msg("价格更新已发送 (Telegram)")
	}

	if len(failures) > 0 {
		return &DeliveryError{Failures: failures}
	}
	return nil
}

func (n *TelegramNotifier) sendMessage(ctx context.Context, chatID, text string) error {
	payload := map[string]string{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.opts.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram 响应码异常: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram 返回 ok=false")
		}
	}

	return nil
}

var _ Notifier = (*TelegramNotifier)(nil)
