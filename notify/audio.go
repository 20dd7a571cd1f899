package notify

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rustyeddy/tradereplay/market"
)

// Tone is one note of an audio cue.
type Tone struct {
	Freq     float64
	Duration time.Duration
}

// C5, E5, G5
var buyChord = []float64{523.25, 659.25, 783.99}

const toneLength = 150 * time.Millisecond

// Cue returns the tone sequence for a signal: ascending for BUY, descending
// for SELL, nothing otherwise.
func Cue(t market.SignalType) []Tone {
	var freqs []float64
	switch t {
	case market.Buy:
		freqs = buyChord
	case market.Sell:
		freqs = make([]float64, len(buyChord))
		for i, f := range buyChord {
			freqs[len(buyChord)-1-i] = f
		}
	default:
		return nil
	}

	tones := make([]Tone, len(freqs))
	for i, f := range freqs {
		tones[i] = Tone{Freq: f, Duration: toneLength}
	}
	return tones
}

// Player renders a tone sequence.
type Player interface {
	Play(ctx context.Context, tones []Tone) error
}

// BellPlayer rings the terminal bell once per tone. A bell has no pitch, so
// the gap before each bell is the tone length scaled by the pitch step: a
// rising cue speeds up and a falling cue slows down.
type BellPlayer struct {
	W io.Writer
}

func (p BellPlayer) Play(ctx context.Context, tones []Tone) error {
	w := p.W
	if w == nil {
		w = os.Stderr
	}
	gaps := BellGaps(tones)
	for i := range tones {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\a"); err != nil {
			return err
		}
		if i < len(tones)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(gaps[i]):
			}
		}
	}
	return nil
}

// BellGaps returns the pause after each bell of a BellPlayer cue. The last
// bell has none.
func BellGaps(tones []Tone) []time.Duration {
	if len(tones) < 2 {
		return nil
	}
	gaps := make([]time.Duration, len(tones)-1)
	for i := range gaps {
		gaps[i] = tones[i].Duration
		if next := tones[i+1].Freq; next > 0 && tones[i].Freq > 0 {
			gaps[i] = time.Duration(float64(tones[i].Duration) * tones[i].Freq / next)
		}
	}
	return gaps
}

// AudioSink plays the cue for every notification.
type AudioSink struct {
	Player Player
}

func NewAudioSink(p Player) *AudioSink {
	if p == nil {
		p = BellPlayer{}
	}
	return &AudioSink{Player: p}
}

func (s *AudioSink) Name() string { return "audio" }

func (s *AudioSink) Notify(ctx context.Context, n Notification) error {
	tones := Cue(n.Type)
	if len(tones) == 0 {
		return nil
	}
	return s.Player.Play(ctx, tones)
}
