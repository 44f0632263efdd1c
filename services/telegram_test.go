package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"hydramind/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap/zaptest"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg.Text)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func newTestTelegram(t *testing.T) (*TelegramService, *fakeSender, *time.Time) {
	t.Helper()
	sender := &fakeSender{}
	ts := newTelegramService(sender, 42, zaptest.NewLogger(t))
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	ts.now = func() time.Time { return now }
	return ts, sender, &now
}

func telemetrySnap(seq uint64, alert bool) *models.Snapshot {
	status := models.StatusNormal
	var anomalies []*models.Anomaly
	if alert {
		status = models.StatusDesalterUpset
		anomalies = []*models.Anomaly{{Type: models.CriticalStatus, Description: "Plant reports upset"}}
	}
	return &models.Snapshot{
		Seq:       seq,
		Cause:     models.CauseTelemetry,
		Alert:     alert,
		Anomalies: anomalies,
		Status:    status,
		Online:    true,
		Metrics:   models.Metrics{PH: 7, COD: 900, Oil: 150},
		UpdatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func offlineSnap(seq uint64) *models.Snapshot {
	return &models.Snapshot{Seq: seq, Cause: models.CauseOffline, Status: models.StatusOffline}
}

func TestTelegramAlertsOnRisingAndFallingEdges(t *testing.T) {
	ts, sender, _ := newTestTelegram(t)
	ctx := context.Background()

	ts.Publish(ctx, telemetrySnap(1, false))
	ts.Publish(ctx, telemetrySnap(2, true))
	ts.Publish(ctx, telemetrySnap(3, true))
	ts.Publish(ctx, telemetrySnap(4, false))

	msgs := sender.messages()
	if len(msgs) != 2 {
		t.Fatalf("expected alert and cleared messages, got %d: %v", len(msgs), msgs)
	}
	if !strings.Contains(msgs[0], "HYDRAMIND ETP ALERT") || !strings.Contains(msgs[0], "Plant reports upset") {
		t.Fatalf("unexpected alert message %q", msgs[0])
	}
	if !strings.Contains(msgs[1], "ALERT CLEARED") {
		t.Fatalf("unexpected cleared message %q", msgs[1])
	}
}

func TestTelegramThrottlesRepeatedAlerts(t *testing.T) {
	ts, sender, now := newTestTelegram(t)
	ctx := context.Background()

	ts.Publish(ctx, telemetrySnap(1, true))
	ts.Publish(ctx, telemetrySnap(2, false))
	*now = now.Add(5 * time.Second)
	ts.Publish(ctx, telemetrySnap(3, true))

	alerts := 0
	for _, m := range sender.messages() {
		if strings.Contains(m, "HYDRAMIND ETP ALERT") {
			alerts++
		}
	}
	if alerts != 1 {
		t.Fatalf("expected second alert throttled, got %d alerts", alerts)
	}

	*now = now.Add(alertThrottle)
	ts.Publish(ctx, telemetrySnap(4, false))
	ts.Publish(ctx, telemetrySnap(5, true))

	alerts = 0
	for _, m := range sender.messages() {
		if strings.Contains(m, "HYDRAMIND ETP ALERT") {
			alerts++
		}
	}
	if alerts != 2 {
		t.Fatalf("expected alert after throttle window, got %d alerts", alerts)
	}
}

func countMessages(msgs []string, marker string) int {
	n := 0
	for _, m := range msgs {
		if strings.Contains(m, marker) {
			n++
		}
	}
	return n
}

func TestTelegramAnnouncesThrottledEpisodeLater(t *testing.T) {
	ts, sender, now := newTestTelegram(t)
	ctx := context.Background()

	ts.Publish(ctx, telemetrySnap(1, true))
	ts.Publish(ctx, telemetrySnap(2, false))
	*now = now.Add(5 * time.Second)
	ts.Publish(ctx, telemetrySnap(3, true))

	if got := countMessages(sender.messages(), "HYDRAMIND ETP ALERT"); got != 1 {
		t.Fatalf("expected re-raise inside the window to be held, got %d alerts", got)
	}

	var seq uint64 = 4
	for i := 0; i < 36; i++ {
		*now = now.Add(2 * time.Second)
		ts.Publish(ctx, telemetrySnap(seq, true))
		seq++
	}
	ts.Publish(ctx, telemetrySnap(seq, false))

	msgs := sender.messages()
	if got := countMessages(msgs, "HYDRAMIND ETP ALERT"); got != 2 {
		t.Fatalf("expected the long episode to be announced once the window passed, got %d alerts", got)
	}
	if got := countMessages(msgs, "ALERT CLEARED"); got != 2 {
		t.Fatalf("expected one clear per announced episode, got %d", got)
	}
}

func TestTelegramSkipsClearForUnannouncedEpisode(t *testing.T) {
	ts, sender, now := newTestTelegram(t)
	ctx := context.Background()

	ts.Publish(ctx, telemetrySnap(1, true))
	ts.Publish(ctx, telemetrySnap(2, false))
	*now = now.Add(3 * time.Second)
	ts.Publish(ctx, telemetrySnap(3, true))
	*now = now.Add(3 * time.Second)
	ts.Publish(ctx, telemetrySnap(4, false))

	msgs := sender.messages()
	if countMessages(msgs, "HYDRAMIND ETP ALERT") != 1 || countMessages(msgs, "ALERT CLEARED") != 1 {
		t.Fatalf("expected one alert and one clear, got %v", msgs)
	}
}

func TestTelegramLinkLossAndRecovery(t *testing.T) {
	ts, sender, now := newTestTelegram(t)
	ctx := context.Background()

	ts.Publish(ctx, telemetrySnap(1, false))
	ts.Publish(ctx, offlineSnap(2))
	ts.Publish(ctx, offlineSnap(3))
	*now = now.Add(90 * time.Second)
	ts.Publish(ctx, telemetrySnap(4, false))

	msgs := sender.messages()
	if len(msgs) != 2 {
		t.Fatalf("expected lost and restored messages, got %d: %v", len(msgs), msgs)
	}
	if !strings.Contains(msgs[0], "SCADA LINK OFFLINE") {
		t.Fatalf("unexpected link lost message %q", msgs[0])
	}
	if !strings.Contains(msgs[1], "SCADA LINK RESTORED") || !strings.Contains(msgs[1], "1m 30s") {
		t.Fatalf("unexpected recovery message %q", msgs[1])
	}
}

func TestTelegramIgnoresInitialSnapshot(t *testing.T) {
	ts, sender, _ := newTestTelegram(t)
	ts.Publish(context.Background(), &models.Snapshot{Cause: models.CauseInitial, Status: models.StatusConnecting})
	if len(sender.messages()) != 0 {
		t.Fatalf("expected no message for initial snapshot")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := map[time.Duration]string{
		45 * time.Second:             "45s",
		3*time.Minute + 5*time.Second: "3m 5s",
		2*time.Hour + 10*time.Minute:  "2h 10m",
	}
	for d, want := range tests {
		if got := formatDuration(d); got != want {
			t.Fatalf("formatDuration(%s) = %q, want %q", d, got, want)
		}
	}
}
