// Package notification delivers trading alerts (actionable signals, fills,
// risk blocks) to external channels.
package notification

import (
	"context"
	"errors"
	"fmt"
	"log"

	"ibrobot/internal/execution"
	"ibrobot/internal/strategy"
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
	Level   AlertLevel       `json:"level"`
	Title   string           `json:"title"`
	Message string           `json:"message"`
	Symbol  string           `json:"symbol,omitempty"`
	Signal  *strategy.Signal `json:"signal,omitempty"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier logs alerts. It is the default when no channel is configured.
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	log.Printf("[notify] [%s] %s: %s", alert.Level, alert.Title, alert.Message)
	return nil
}

// Multi fans an alert out to every notifier. All are attempted; errors are
// joined.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SignalAlert describes an actionable signal.
func SignalAlert(sig strategy.Signal) Alert {
	return Alert{
		Level:  AlertInfo,
		Title:  fmt.Sprintf("%s %s", sig.Action, sig.Symbol),
		Symbol: sig.Symbol,
		Message: fmt.Sprintf("price=%.2f bid=%.2f ask=%.2f rsi=%.2f macd=%.4f signal=%.4f (%s)",
			sig.CurrentPrice, sig.BidPrice, sig.AskPrice, sig.RSI, sig.MACD, sig.MACDSignal, sig.Reason),
		Signal: &sig,
	}
}

// OrderAlert describes an order outcome. Rejections are warnings.
func OrderAlert(res execution.OrderResult) Alert {
	o := res.Order
	a := Alert{
		Level:  AlertInfo,
		Title:  fmt.Sprintf("%s %s %s", res.Status, o.Side, o.Symbol),
		Symbol: o.Symbol,
	}
	if fill := res.Fill; fill != nil {
		a.Message = fmt.Sprintf("filled %d @ %.2f (limit %.2f)", fill.Qty, fill.Price, o.Price)
	} else {
		a.Level = AlertWarning
		a.Message = res.Message
	}
	return a
}
