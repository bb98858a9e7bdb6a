package indicator

import (
	"fmt"
	"strings"
)

// Kind represents a supported indicator variant.
type Kind int

const (
	SMA Kind = iota
	EMACross
	MACD
	RSI
	Stochastic
	Bollinger
	ATR
	OBV
	VWAP
	Volume
	CandlePattern
	Levels
	HeadShoulders
	ChartPattern
)

// Kinds lists every supported indicator in evaluation order.
var Kinds = []Kind{SMA, EMACross, MACD, RSI, Stochastic, Bollinger, ATR, OBV, VWAP, Volume, CandlePattern, Levels,
	HeadShoulders, ChartPattern}

// String stringifies the provided indicator kind.
func (k Kind) String() string {
	switch k {
	case SMA:
		return "sma"
	case EMACross:
		return "ema_cross"
	case MACD:
		return "macd"
	case RSI:
		return "rsi"
	case Stochastic:
		return "stochastic"
	case Bollinger:
		return "bollinger"
	case ATR:
		return "atr"
	case OBV:
		return "obv"
	case VWAP:
		return "vwap"
	case Volume:
		return "volume"
	case CandlePattern:
		return "candle_pattern"
	case Levels:
		return "levels"
	case HeadShoulders:
		return "head_shoulders"
	case ChartPattern:
		return "chart_pattern"
	default:
		return "unknown"
	}
}

// Lookback returns the minimum number of candles the indicator requires
// with the provided params.
func (k Kind) Lookback(p *Params) int {
	switch k {
	case SMA:
		// The extra candle provides the previous average for the slope.
		return p.SMAPeriod + 1
	case EMACross:
		return max(p.EMAFast, p.EMASlow)
	case MACD:
		return p.MACDSlow + p.MACDSignal
	case RSI:
		return p.RSIPeriod + 1
	case Stochastic:
		return p.StochFastK + p.StochSlowK + p.StochSlowD - 2
	case Bollinger:
		return p.BollingerPeriod
	case ATR:
		return p.ATRPeriod + 1
	case OBV:
		return p.OBVSlopePeriod
	case VWAP:
		return p.VWAPPeriod
	case Volume:
		// The average excludes the candle being confirmed.
		return p.VolumePeriod + 1
	case CandlePattern:
		return patternCandles
	case Levels:
		return p.LevelsPeriod
	case HeadShoulders, ChartPattern:
		return p.PatternPeriod
	default:
		return 0
	}
}

// ParseKind parses the provided indicator name.
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, kind := range Kinds {
		if kind.String() == name {
			return kind, nil
		}
	}

	return 0, fmt.Errorf("unknown indicator %q", name)
}

// ParseKinds parses the provided indicator names, rejecting unknown and
// duplicate entries.
func ParseKinds(names []string) ([]Kind, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("no indicators provided")
	}

	kinds := make([]Kind, 0, len(names))
	seen := make(map[Kind]struct{}, len(names))
	for _, name := range names {
		kind, err := ParseKind(name)
		if err != nil {
			return nil, err
		}

		if _, ok := seen[kind]; ok {
			return nil, fmt.Errorf("duplicate indicator %q", kind.String())
		}

		seen[kind] = struct{}{}
		kinds = append(kinds, kind)
	}

	return kinds, nil
}
