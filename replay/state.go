package replay

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// State is the playback state of a session.
type State int

const (
	Stopped State = iota
	Loading
	Running
	Paused
	Finished
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Loading:
		return "loading"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Finished:
		return "finished"
	}
	return "unknown"
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Speed is a playback multiplier. 1x plays one bar per second.
type Speed int

const (
	Speed1x Speed = 1
	Speed2x Speed = 2
	Speed4x Speed = 4
)

var speeds = []Speed{Speed1x, Speed2x, Speed4x}

const baseInterval = time.Second

// Interval is the wall-clock time between ticks: 1000, 500 or 250 ms.
func (s Speed) Interval() time.Duration {
	if !s.Valid() {
		return baseInterval
	}
	return baseInterval / time.Duration(s)
}

func (s Speed) Valid() bool {
	for _, v := range speeds {
		if s == v {
			return true
		}
	}
	return false
}

// Faster returns the next speed up, or s at the maximum.
func (s Speed) Faster() Speed {
	for i, v := range speeds {
		if v == s && i < len(speeds)-1 {
			return speeds[i+1]
		}
	}
	return s
}

// Slower returns the next speed down, or s at the minimum.
func (s Speed) Slower() Speed {
	for i, v := range speeds {
		if v == s && i > 0 {
			return speeds[i-1]
		}
	}
	return s
}

func (s Speed) String() string { return strconv.Itoa(int(s)) + "x" }

func (s Speed) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Speed) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	v, err := ParseSpeed(fmt.Sprint(raw))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSpeed accepts "1", "2x", "4X" and the like.
func ParseSpeed(s string) (Speed, error) {
	s = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "x")
	if s == "" {
		return Speed1x, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || !Speed(n).Valid() {
		return 0, fmt.Errorf("unsupported speed %q (1x, 2x, 4x)", s)
	}
	return Speed(n), nil
}
