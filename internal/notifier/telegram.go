package notifier

import (
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"backend/internal/config"
)

// alertInterval throttles repeated outage alerts for the same condition.
const alertInterval = 10 * time.Minute

// Telegram sends ops alerts to a Telegram chat when the inference backend
// is unreachable. Disabled (nil) when not configured.
type Telegram struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger *zap.Logger

	mu       sync.Mutex
	lastSent time.Time
}

// New creates a Telegram notifier. Returns nil when notifications are
// disabled or no token is configured.
func New(cfg *config.Config, logger *zap.Logger) (*Telegram, error) {
	if !cfg.Notifications.Enabled || cfg.Notifications.TelegramBotToken == "" {
		logger.Info("Telegram notifier is disabled (notifications.enabled=false or token is empty)")
		return nil, nil
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Notifications.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot API: %w", err)
	}

	logger.Info("Telegram notifier authorized", zap.String("username", botAPI.Self.UserName))

	return &Telegram{
		api:    botAPI,
		chatID: cfg.Notifications.ChatID,
		logger: logger,
	}, nil
}

// BackendDown reports that the active inference backend refused or timed out
// a call. Alerts are rate-limited to one per alertInterval.
func (n *Telegram) BackendDown(variant string, err error) {
	if n == nil {
		return
	}

	n.mu.Lock()
	if time.Since(n.lastSent) < alertInterval {
		n.mu.Unlock()
		return
	}
	n.lastSent = time.Now()
	n.mu.Unlock()

	text := fmt.Sprintf("⚠️ Inference backend %q is not responding: %v", variant, err)
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, sendErr := n.api.Send(msg); sendErr != nil {
		n.logger.Error("Failed to send Telegram alert", zap.Error(sendErr))
	}
}
