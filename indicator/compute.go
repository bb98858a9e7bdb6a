package indicator

import (
	"github.com/markcheno/go-talib"
)

// last returns the final entry of the provided set.
func last(set []float64) float64 {
	return set[len(set)-1]
}

// compute dispatches the computation of the provided indicator kind.
func (b *Bank) compute(kind Kind, run *RunContext) map[string]float64 {
	switch kind {
	case SMA:
		return b.computeSMA(run)
	case EMACross:
		return b.computeEMACross(run)
	case MACD:
		return b.computeMACD(run)
	case RSI:
		return b.computeRSI(run)
	case Stochastic:
		return b.computeStochastic(run)
	case Bollinger:
		return b.computeBollinger(run)
	case ATR:
		return b.computeATR(run)
	case OBV:
		return b.computeOBV(run)
	case VWAP:
		return b.computeVWAP(run)
	case Volume:
		return b.computeVolume(run)
	case CandlePattern:
		return b.computeCandlePattern(run)
	case Levels:
		return b.computeLevels(run)
	case HeadShoulders:
		return b.computeHeadShoulders(run)
	case ChartPattern:
		return b.computeChartPattern(run)
	default:
		return map[string]float64{}
	}
}

func (b *Bank) computeSMA(run *RunContext) map[string]float64 {
	sma := run.SMA(b.params.SMAPeriod)
	return map[string]float64{
		"close":    last(run.Closes()),
		"sma":      last(sma),
		"prev_sma": sma[len(sma)-2],
	}
}

func (b *Bank) computeEMACross(run *RunContext) map[string]float64 {
	return map[string]float64{
		"fast": last(run.EMA(b.params.EMAFast)),
		"slow": last(run.EMA(b.params.EMASlow)),
	}
}

func (b *Bank) computeMACD(run *RunContext) map[string]float64 {
	macd, signal, hist := talib.Macd(run.Closes(), b.params.MACDFast,
		b.params.MACDSlow, b.params.MACDSignal)
	return map[string]float64{
		"macd":      last(macd),
		"signal":    last(signal),
		"histogram": last(hist),
	}
}

func (b *Bank) computeRSI(run *RunContext) map[string]float64 {
	return map[string]float64{
		"rsi": last(talib.Rsi(run.Closes(), b.params.RSIPeriod)),
	}
}

func (b *Bank) computeStochastic(run *RunContext) map[string]float64 {
	k, d := talib.Stoch(run.Highs(), run.Lows(), run.Closes(), b.params.StochFastK,
		b.params.StochSlowK, talib.SMA, b.params.StochSlowD, talib.SMA)
	return map[string]float64{
		"k": last(k),
		"d": last(d),
	}
}

func (b *Bank) computeBollinger(run *RunContext) map[string]float64 {
	upper, middle, lower := talib.BBands(run.Closes(), b.params.BollingerPeriod,
		b.params.BollingerDeviation, b.params.BollingerDeviation, talib.SMA)
	return map[string]float64{
		"close":  last(run.Closes()),
		"upper":  last(upper),
		"middle": last(middle),
		"lower":  last(lower),
	}
}

func (b *Bank) computeATR(run *RunContext) map[string]float64 {
	closes := run.Closes()
	atr := talib.Atr(run.Highs(), run.Lows(), closes, b.params.ATRPeriod)
	return map[string]float64{
		"atr":    last(atr),
		"change": closes[len(closes)-1] - closes[len(closes)-2],
	}
}

func (b *Bank) computeOBV(run *RunContext) map[string]float64 {
	obv := talib.Obv(run.Closes(), run.Volumes())
	slope := talib.LinearRegSlope(obv, b.params.OBVSlopePeriod)
	return map[string]float64{
		"obv":   last(obv),
		"slope": last(slope),
	}
}

func (b *Bank) computeVWAP(run *RunContext) map[string]float64 {
	series := run.Series()
	generator := NewVWAPGenerator(b.params.VWAPPeriod)
	for idx := range series.Len() {
		candle := series.At(idx)
		generator.Update(&candle)
	}

	price := series.Last().Close
	vwap := price
	if point := generator.Current(); point != nil {
		vwap = point.Value
	}

	return map[string]float64{
		"close": price,
		"vwap":  vwap,
	}
}

func (b *Bank) computeVolume(run *RunContext) map[string]float64 {
	volumes := run.Volumes()
	n := len(volumes)

	var sum float64
	for _, volume := range volumes[n-1-b.params.VolumePeriod : n-1] {
		sum += volume
	}
	average := sum / float64(b.params.VolumePeriod)

	var ratio float64
	if average > 0 {
		ratio = volumes[n-1] / average
	}

	candle := run.Series().Last()
	return map[string]float64{
		"volume":    volumes[n-1],
		"average":   average,
		"ratio":     ratio,
		"sentiment": candle.FetchSentiment().Sign(),
	}
}

func (b *Bank) computeCandlePattern(run *RunContext) map[string]float64 {
	series := run.Series()
	n := series.Len()
	return detectPatterns(series.At(n-3), series.At(n-2), series.At(n-1))
}

func (b *Bank) computeLevels(run *RunContext) map[string]float64 {
	series := run.Series()
	n := series.Len()
	start := n - b.params.LevelsPeriod

	return findLevels(run.Highs()[start:], run.Lows()[start:], run.Volumes()[start:],
		series.Last().Close, b.params.LevelTolerance, b.params.LevelMinTouches)
}

func (b *Bank) computeHeadShoulders(run *RunContext) map[string]float64 {
	start := run.Series().Len() - b.params.PatternPeriod
	return detectHeadShoulders(run.Highs()[start:], run.Lows()[start:], run.Closes()[start:],
		run.Volumes()[start:], b.params.PatternLength, b.params.ShoulderTolerance)
}

func (b *Bank) computeChartPattern(run *RunContext) map[string]float64 {
	start := run.Series().Len() - b.params.PatternPeriod
	return detectChartPatterns(run.Highs()[start:], run.Lows()[start:], run.Closes()[start:],
		b.params.PatternLength, b.params.PatternTolerance)
}
