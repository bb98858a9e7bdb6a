package shared

import (
	"time"
)

// Agreement describes how the timeframes of a fused signal relate to each other.
type Agreement int

const (
	// NoAgreement denotes fusion over neutral timeframes only.
	NoAgreement Agreement = iota
	// SingleTimeframe denotes fusion over exactly one directional timeframe.
	SingleTimeframe
	// Unanimous denotes directional timeframes that all agree.
	Unanimous
	// Mixed denotes directional timeframes that disagree.
	Mixed
	// Conflict denotes the two highest weighted timeframes opposing each other.
	Conflict
)

// String stringifies the provided agreement.
func (a Agreement) String() string {
	switch a {
	case NoAgreement:
		return "none"
	case SingleTimeframe:
		return "single"
	case Unanimous:
		return "unanimous"
	case Mixed:
		return "mixed"
	case Conflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Strength labels the confidence of a fused signal.
type Strength int

const (
	Weak Strength = iota
	Medium
	Strong
)

// String stringifies the provided strength.
func (s Strength) String() string {
	switch s {
	case Weak:
		return "weak"
	case Medium:
		return "medium"
	case Strong:
		return "strong"
	default:
		return "unknown"
	}
}

// StrengthFromConfidence labels the provided confidence. Confidence above
// 0.8 is strong, above 0.65 medium and weak otherwise.
func StrengthFromConfidence(confidence float64) Strength {
	switch {
	case confidence > 0.8:
		return Strong
	case confidence > 0.65:
		return Medium
	default:
		return Weak
	}
}

// TakeProfit represents a take profit level and the likelihood of reaching it.
type TakeProfit struct {
	Level       float64
	Probability float64
}

// Vote represents an indicator's directional vote on a timeframe.
type Vote struct {
	Indicator string
	Direction Direction
	Weight    float64
}

// TimeframeSignal represents the directional outcome of scoring a single timeframe.
type TimeframeSignal struct {
	Timeframe  Timeframe
	Direction  Direction
	Confidence float64
	// Score is the normalized weighted vote sum in [-1, 1].
	Score float64
	Votes []Vote
	// Close is the latest close of the scored series.
	Close float64
	// At is the open time of the latest candle of the scored series.
	At time.Time
	// Support and Resistance are the nearest levels around the close, zero when absent.
	Support    float64
	Resistance float64
	// Target is the projected price of a detected chart pattern, zero when absent.
	Target float64
}

// TimeframeBreakdown represents a timeframe's contribution to a fused signal.
type TimeframeBreakdown struct {
	Timeframe    Timeframe
	Direction    Direction
	Confidence   float64
	Weight       float64
	Contribution float64
}

// FusedSignal represents the overall signal for an asset across timeframes.
type FusedSignal struct {
	Asset      string
	Direction  Direction
	Confidence float64
	Score      float64
	Agreement  Agreement
	Strength   Strength
	Breakdown  []TimeframeBreakdown
	Price      float64
	// StopLoss and TakeProfit are only set for directional signals.
	StopLoss   float64
	TakeProfit []TakeProfit
	Timestamp  time.Time
}

// Clone returns a deep copy of the fused signal.
func (s *FusedSignal) Clone() FusedSignal {
	clone := *s
	if s.Breakdown != nil {
		clone.Breakdown = make([]TimeframeBreakdown, len(s.Breakdown))
		copy(clone.Breakdown, s.Breakdown)
	}
	if s.TakeProfit != nil {
		clone.TakeProfit = make([]TakeProfit, len(s.TakeProfit))
		copy(clone.TakeProfit, s.TakeProfit)
	}

	return clone
}
