package notify

import (
	"fmt"
	"time"

	"github.com/rustyeddy/tradereplay/market"
)

// Notification is one dispatched signal. IDs increase monotonically per
// dispatcher.
type Notification struct {
	ID         int64             `json:"id"`
	Type       market.SignalType `json:"type"`
	Key        market.Key        `json:"timestamp"`
	Time       time.Time         `json:"time,omitempty"`
	Price      float64           `json:"price"`
	StrategyID string            `json:"strategy_id,omitempty"`
	Symbol     string            `json:"symbol,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

func (n Notification) Signal() market.Signal {
	return market.Signal{
		Type:       n.Type,
		Key:        n.Key,
		Time:       n.Time,
		Price:      n.Price,
		StrategyID: n.StrategyID,
		Symbol:     n.Symbol,
	}
}

// Title is the short heading used by toasts and platform notifications.
func (n Notification) Title() string {
	return fmt.Sprintf("%s signal: %s", n.Type, n.Symbol)
}

func (n Notification) Body() string {
	return fmt.Sprintf("%s at %.2f (%s)", n.Type, n.Price, n.Key)
}

// Permission mirrors the platform notification permission states.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

func ParsePermission(s string) (Permission, error) {
	switch Permission(s) {
	case "", PermissionDefault:
		return PermissionDefault, nil
	case PermissionGranted, PermissionDenied:
		return Permission(s), nil
	}
	return "", fmt.Errorf("unknown notification permission %q (default, granted, denied)", s)
}
