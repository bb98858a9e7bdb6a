package indicator

import (
	"github.com/dnldd/screener/shared"
)

const (
	// engulfingRatio is the minimum body ratio of an engulfing candle to the
	// candle it engulfs.
	engulfingRatio = 1.1
	// starBodyRatio is the maximum body ratio of a star's middle candle to
	// the first candle.
	starBodyRatio = 0.3
)

// isHammer checks whether the candle has a long lower wick and no upper wick.
func isHammer(c *shared.Candlestick) bool {
	body := c.Body()
	return body > 0 && c.LowerWick() > 2*body && c.UpperWick() < 0.1*body
}

// isShootingStar checks whether the bearish candle has a long upper wick and
// no lower wick.
func isShootingStar(c *shared.Candlestick) bool {
	body := c.Body()
	return c.FetchSentiment() == shared.Bearish &&
		c.UpperWick() > 2*body && c.LowerWick() < 0.1*body
}

// engulfing returns the direction of an engulfing pattern formed by the
// provided candles, neutral if there is none.
func engulfing(prev, curr *shared.Candlestick) shared.Direction {
	if curr.Body() <= engulfingRatio*prev.Body() {
		return shared.Neutral
	}

	prevSentiment := prev.FetchSentiment()
	currSentiment := curr.FetchSentiment()

	switch {
	case prevSentiment == shared.Bullish && currSentiment != shared.Bullish &&
		curr.Open > prev.Close && curr.Close < prev.Open:
		return shared.Bearish
	case prevSentiment != shared.Bullish && currSentiment == shared.Bullish &&
		curr.Open < prev.Close && curr.Close > prev.Open:
		return shared.Bullish
	default:
		return shared.Neutral
	}
}

// star returns the direction of a morning or evening star formed by the
// provided candles, neutral if there is none.
func star(first, second, third *shared.Candlestick) shared.Direction {
	if second.Body() >= first.Body()*starBodyRatio {
		return shared.Neutral
	}

	midpoint := (first.Open + first.Close) / 2
	switch {
	case first.FetchSentiment() == shared.Bearish &&
		third.FetchSentiment() == shared.Bullish && third.Close > midpoint:
		return shared.Bullish
	case first.FetchSentiment() == shared.Bullish &&
		third.FetchSentiment() == shared.Bearish && third.Close < midpoint:
		return shared.Bearish
	default:
		return shared.Neutral
	}
}

// detectPatterns detects the candlestick patterns formed by the three most
// recent candles. Detected patterns are flagged and tallied by direction.
func detectPatterns(first, second, third shared.Candlestick) map[string]float64 {
	values := map[string]float64{
		"bullish": 0,
		"bearish": 0,
	}

	flag := func(name string, direction shared.Direction) {
		values[name] = 1
		switch direction {
		case shared.Bullish:
			values["bullish"]++
		case shared.Bearish:
			values["bearish"]++
		}
	}

	if isHammer(&third) {
		flag("hammer", shared.Bullish)
	}
	if isShootingStar(&third) {
		flag("shooting_star", shared.Bearish)
	}
	switch third.FetchKind() {
	case shared.Doji:
		flag("doji", shared.Neutral)
	case shared.Marubozu:
		flag("marubozu", third.FetchSentiment())
	}

	switch engulfing(&second, &third) {
	case shared.Bullish:
		flag("bullish_engulfing", shared.Bullish)
	case shared.Bearish:
		flag("bearish_engulfing", shared.Bearish)
	}

	switch star(&first, &second, &third) {
	case shared.Bullish:
		flag("morning_star", shared.Bullish)
	case shared.Bearish:
		flag("evening_star", shared.Bearish)
	}

	return values
}
