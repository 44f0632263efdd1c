package services

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"sync"
	"time"

	"hydramind/config"
	"hydramind/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const alertThrottle = 15 * time.Second

// messageSender is the part of *tgbotapi.BotAPI the notifier uses
type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramService notifies operators when the alert flag or the SCADA link
// changes state. A new alert within alertThrottle of the last one is held
// back until the window has passed.
type TelegramService struct {
	bot    messageSender
	chatID int64
	logger *zap.Logger
	now    func() time.Time

	mu            sync.Mutex
	announced     bool
	lastOnline    bool
	seen          bool
	lastAlertSent time.Time
	offlineSince  time.Time
}

func NewTelegramService(cfg *config.Config, logger *zap.Logger) (*TelegramService, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("error creating telegram bot: %w", err)
	}

	chatID, err := strconv.ParseInt(cfg.TelegramChatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("error parsing chat ID: %w", err)
	}

	logger.Info("Telegram bot authorized", zap.String("username", bot.Self.UserName))

	return newTelegramService(bot, chatID, logger), nil
}

func newTelegramService(bot messageSender, chatID int64, logger *zap.Logger) *TelegramService {
	return &TelegramService{
		bot:    bot,
		chatID: chatID,
		logger: logger,
		now:    time.Now,
	}
}

func (ts *TelegramService) Name() string {
	return "telegram"
}

// Publish compares the snapshot with the previous one and sends a message on
// alert raise, alert clear, link loss and link recovery. Offline snapshots
// never raise or clear an alert.
func (ts *TelegramService) Publish(ctx context.Context, snapshot *models.Snapshot) error {
	if snapshot.Cause == models.CauseInitial {
		return nil
	}

	ts.mu.Lock()
	first := !ts.seen
	prevOnline := ts.lastOnline
	ts.seen = true
	ts.lastOnline = snapshot.Online
	now := ts.now()
	ts.mu.Unlock()

	switch {
	case snapshot.Cause == models.CauseOffline && (first || prevOnline):
		ts.mu.Lock()
		ts.offlineSince = now
		ts.mu.Unlock()
		return ts.send(formatLinkLostMessage(snapshot, now))

	case snapshot.Cause == models.CauseTelemetry && !first && !prevOnline:
		ts.mu.Lock()
		down := now.Sub(ts.offlineSince)
		ts.mu.Unlock()
		if err := ts.send(formatLinkRecoveredMessage(down, now)); err != nil {
			return err
		}
	}

	if snapshot.Cause != models.CauseTelemetry {
		return nil
	}

	ts.mu.Lock()
	announced := ts.announced
	ts.mu.Unlock()

	// An alert episode is announced once. A raise held back by the throttle
	// stays pending and is sent by a later alerting snapshot.
	if snapshot.Alert && !announced {
		if ts.shouldThrottleAlert(now) {
			ts.logger.Debug("Throttling alert", zap.Uint64("seq", snapshot.Seq))
			return nil
		}
		if err := ts.send(formatAlertMessage(snapshot)); err != nil {
			return err
		}
		ts.mu.Lock()
		ts.announced = true
		ts.lastAlertSent = now
		ts.mu.Unlock()
		ts.logger.Info("Sent alert notification",
			zap.Uint64("seq", snapshot.Seq),
			zap.Int("anomaly_count", len(snapshot.Anomalies)))
		return nil
	}

	// Only an announced episode gets a clear message
	if !snapshot.Alert && announced {
		if err := ts.send(formatAlertClearedMessage(snapshot)); err != nil {
			return err
		}
		ts.mu.Lock()
		ts.announced = false
		ts.mu.Unlock()
	}
	return nil
}

func (ts *TelegramService) shouldThrottleAlert(now time.Time) bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.lastAlertSent.IsZero() {
		return false
	}
	return now.Sub(ts.lastAlertSent) < alertThrottle
}

func (ts *TelegramService) send(text string) error {
	msg := tgbotapi.NewMessage(ts.chatID, text)
	msg.ParseMode = "HTML"
	msg.DisableWebPagePreview = true

	if _, err := ts.bot.Send(msg); err != nil {
		return fmt.Errorf("error sending telegram message: %w", err)
	}
	return nil
}

// SendStartupMessage announces the dashboard
func (ts *TelegramService) SendStartupMessage(baseURL string) error {
	var sb strings.Builder
	sb.WriteString("💧 <b>HYDRAMIND ETP MONITOR STARTED</b>\n\n")
	sb.WriteString(fmt.Sprintf("📡 <b>Telemetry source:</b> %s\n", html.EscapeString(baseURL)))
	sb.WriteString(fmt.Sprintf("🕐 <b>Time:</b> %s", ts.now().Format("2006-01-02 15:04:05")))
	return ts.send(sb.String())
}

func formatAlertMessage(snapshot *models.Snapshot) string {
	var sb strings.Builder
	m := snapshot.Metrics

	sb.WriteString("🚨 <b>HYDRAMIND ETP ALERT</b> 🚨\n\n")
	sb.WriteString(fmt.Sprintf("🕐 <b>Time:</b> %s\n", snapshot.UpdatedAt.Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("🏭 <b>Plant status:</b> %s\n\n", html.EscapeString(snapshot.Status)))

	sb.WriteString("📊 <b>Current Readings:</b>\n")
	sb.WriteString(fmt.Sprintf("pH: %.1f\n", m.PH))
	sb.WriteString(fmt.Sprintf("COD: %.0f mg/L\n", m.COD))
	sb.WriteString(fmt.Sprintf("Phenol: %.2f mg/L\n", m.Phenol))
	sb.WriteString(fmt.Sprintf("Oil &amp; Grease: %.1f mg/L\n", m.Oil))
	sb.WriteString(fmt.Sprintf("Dosage: %.2f mL/min\n\n", m.Dosage))

	sb.WriteString("⚠️ <b>Detected Issues:</b>\n")
	for _, anomaly := range snapshot.Anomalies {
		sb.WriteString(fmt.Sprintf("%s %s\n", anomaly.GetAnomalyEmoji(), html.EscapeString(anomaly.Description)))
	}

	sb.WriteString("\n🔴 <b>Status:</b> ATTENTION REQUIRED")
	return sb.String()
}

func formatAlertClearedMessage(snapshot *models.Snapshot) string {
	var sb strings.Builder
	sb.WriteString("✅ <b>ETP ALERT CLEARED</b>\n\n")
	sb.WriteString(fmt.Sprintf("🕐 <b>Time:</b> %s\n", snapshot.UpdatedAt.Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("🏭 <b>Plant status:</b> %s\n\n", html.EscapeString(snapshot.Status)))
	sb.WriteString("🟢 <b>Status:</b> WITHIN LIMITS")
	return sb.String()
}

func formatLinkLostMessage(snapshot *models.Snapshot, now time.Time) string {
	var sb strings.Builder
	sb.WriteString("⚠️ <b>SCADA LINK OFFLINE</b> ⚠️\n\n")
	sb.WriteString(fmt.Sprintf("🕐 <b>Time:</b> %s\n", now.Format("2006-01-02 15:04:05")))
	if !snapshot.UpdatedAt.IsZero() && len(snapshot.History) > 0 {
		last := snapshot.History[len(snapshot.History)-1]
		sb.WriteString(fmt.Sprintf("📊 <b>Last sample:</b> %s\n", last.Time))
	}
	sb.WriteString("\n💡 Telemetry reads are failing. The dashboard keeps showing the last known values.")
	return sb.String()
}

func formatLinkRecoveredMessage(down time.Duration, now time.Time) string {
	var sb strings.Builder
	sb.WriteString("✅ <b>SCADA LINK RESTORED</b> ✅\n\n")
	sb.WriteString(fmt.Sprintf("🕐 <b>Recovery Time:</b> %s\n", now.Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("⏱️ <b>Downtime:</b> %s", formatDuration(down)))
	return sb.String()
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}
