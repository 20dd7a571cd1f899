package market

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignalType marks a bar as carrying a buy or sell decision.
type SignalType int

const (
	None SignalType = iota
	Buy
	Sell
)

func (s SignalType) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "NONE"
	}
}

func (s SignalType) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts the simulator's inline -1/0/1 encoding as well as
// BUY/SELL/NONE strings in any case.
func (s *SignalType) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	v, err := ParseSignal(raw)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSignal converts the encodings the backend uses for a bar signal.
// Numbers follow the simulator convention: 1 buy, -1 sell, 0 none.
func ParseSignal(raw any) (SignalType, error) {
	switch v := raw.(type) {
	case nil:
		return None, nil
	case SignalType:
		return v, nil
	case bool:
		if v {
			return Buy, nil
		}
		return None, nil
	case float64:
		return signalFromInt(int(v))
	case int:
		return signalFromInt(v)
	case int64:
		return signalFromInt(int(v))
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return None, fmt.Errorf("signal %q: %w", v.String(), err)
		}
		return signalFromInt(int(n))
	case string:
		s := strings.ToUpper(strings.TrimSpace(v))
		switch s {
		case "", "NONE", "HOLD", "0":
			return None, nil
		case "BUY", "LONG", "1":
			return Buy, nil
		case "SELL", "SHORT", "-1":
			return Sell, nil
		}
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return signalFromInt(int(n))
		}
		return None, fmt.Errorf("unknown signal %q", v)
	default:
		return None, fmt.Errorf("unsupported signal type %T", raw)
	}
}

func signalFromInt(n int) (SignalType, error) {
	switch {
	case n > 0:
		return Buy, nil
	case n < 0:
		return Sell, nil
	default:
		return None, nil
	}
}

// Signal is a BUY or SELL derived from a single bar.
type Signal struct {
	Type       SignalType `json:"type"`
	Key        Key        `json:"timestamp"`
	Time       time.Time  `json:"time,omitempty"`
	Price      float64    `json:"price"`
	StrategyID string     `json:"strategy_id,omitempty"`
	Symbol     string     `json:"symbol,omitempty"`
}

// SignalFromBar builds the Signal carried by bar. ok is false for NONE bars.
func SignalFromBar(bar PriceBar, strategyID, symbol string) (sig Signal, ok bool) {
	if bar.Signal == None {
		return Signal{}, false
	}
	return Signal{
		Type:       bar.Signal,
		Key:        bar.Key,
		Time:       bar.Time,
		Price:      bar.Close,
		StrategyID: strategyID,
		Symbol:     symbol,
	}, true
}
