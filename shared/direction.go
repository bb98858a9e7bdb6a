package shared

import "fmt"

// Direction represents market direction.
type Direction int

const (
	Neutral Direction = iota
	Bullish
	Bearish
)

// String stringifies the provided direction.
func (d Direction) String() string {
	switch d {
	case Neutral:
		return "neutral"
	case Bullish:
		return "bullish"
	case Bearish:
		return "bearish"
	default:
		return "unknown"
	}
}

// Sign returns +1 for bullish, -1 for bearish and 0 otherwise.
func (d Direction) Sign() float64 {
	switch d {
	case Bullish:
		return 1
	case Bearish:
		return -1
	default:
		return 0
	}
}

// Opposes returns whether the provided direction is the non-neutral opposite
// of the direction.
func (d Direction) Opposes(other Direction) bool {
	return (d == Bullish && other == Bearish) || (d == Bearish && other == Bullish)
}

// DirectionFromScore returns the direction denoted by the sign of the
// provided score, an exact zero is neutral.
func DirectionFromScore(score float64) Direction {
	switch {
	case score > 0:
		return Bullish
	case score < 0:
		return Bearish
	default:
		return Neutral
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(text []byte) error {
	switch string(text) {
	case "neutral":
		*d = Neutral
	case "bullish":
		*d = Bullish
	case "bearish":
		*d = Bearish
	default:
		return fmt.Errorf("unknown direction provided: %s", string(text))
	}

	return nil
}
