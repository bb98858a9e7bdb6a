package indicator

import (
	"github.com/dnldd/screener/market"
	"github.com/markcheno/go-talib"
)

// RunContext memoizes price columns and moving averages of a single series
// for one analysis run. It must not be shared across goroutines.
type RunContext struct {
	series  *market.CandleSeries
	opens   []float64
	highs   []float64
	lows    []float64
	closes  []float64
	volumes []float64
	smas    map[int][]float64
	emas    map[int][]float64
}

// NewRunContext initializes a run context for the provided series.
func NewRunContext(series *market.CandleSeries) *RunContext {
	return &RunContext{
		series: series,
		smas:   make(map[int][]float64),
		emas:   make(map[int][]float64),
	}
}

// Series returns the series the context is bound to.
func (r *RunContext) Series() *market.CandleSeries {
	return r.series
}

// Opens returns the cached open prices.
func (r *RunContext) Opens() []float64 {
	if r.opens == nil {
		r.opens = r.series.Opens()
	}
	return r.opens
}

// Highs returns the cached high prices.
func (r *RunContext) Highs() []float64 {
	if r.highs == nil {
		r.highs = r.series.Highs()
	}
	return r.highs
}

// Lows returns the cached low prices.
func (r *RunContext) Lows() []float64 {
	if r.lows == nil {
		r.lows = r.series.Lows()
	}
	return r.lows
}

// Closes returns the cached close prices.
func (r *RunContext) Closes() []float64 {
	if r.closes == nil {
		r.closes = r.series.Closes()
	}
	return r.closes
}

// Volumes returns the cached volumes.
func (r *RunContext) Volumes() []float64 {
	if r.volumes == nil {
		r.volumes = r.series.Volumes()
	}
	return r.volumes
}

// SMA returns the cached simple moving average of closes for the period.
func (r *RunContext) SMA(period int) []float64 {
	sma, ok := r.smas[period]
	if !ok {
		sma = talib.Sma(r.Closes(), period)
		r.smas[period] = sma
	}
	return sma
}

// EMA returns the cached exponential moving average of closes for the period.
func (r *RunContext) EMA(period int) []float64 {
	ema, ok := r.emas[period]
	if !ok {
		ema = talib.Ema(r.Closes(), period)
		r.emas[period] = ema
	}
	return ema
}
