// Package notification delivers signal alerts to external channels
// (Telegram, generic webhooks). High-conviction signals are worth
// interrupting a human for; everything else stays in the logs.
package notification

import (
	"context"
	"fmt"
	"log"

	"quant-corev1/internal/model"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
}

// FromSignal formats an actionable signal as an alert. HIGH risk maps
// to WARNING so the receiving channel can route it differently.
func FromSignal(sig model.Signal) Alert {
	level := AlertInfo
	if sig.RiskLevel == model.RiskHigh {
		level = AlertWarning
	}
	return Alert{
		Level: level,
		Title: fmt.Sprintf("%s %s (%s)", sig.Action, sig.Symbol, sig.Strategy),
		Message: fmt.Sprintf("%s\nconfidence %.1f, risk %s", sig.Reason,
			sig.Confidence, sig.RiskLevel),
	}
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier is a simple notifier that logs alerts (useful for development).
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	log.Printf("[notify] [%s] %s: %s", alert.Level, alert.Title, alert.Message)
	return nil
}

// Multi fans one alert out to several backends. A failing backend is
// logged and skipped so one dead channel never silences the rest.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, alert Alert) error {
	for _, n := range m {
		if err := n.Send(ctx, alert); err != nil {
			log.Printf("[notify] delivery failed: %v", err)
		}
	}
	return nil
}
