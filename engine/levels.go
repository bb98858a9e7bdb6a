package engine

import (
	"github.com/dnldd/screener/shared"
)

const (
	// levelStopBuffer is the relative distance a stop loss is placed beyond
	// the protecting level.
	levelStopBuffer = 0.005
	// fallbackStopDistance is the relative stop loss distance without a
	// protecting level.
	fallbackStopDistance = 0.03
	// fallbackProfitDistance is the relative take profit distance without
	// a level or pattern target.
	fallbackProfitDistance = 0.05
	// levelProfitProbability is the likelihood of reaching a level or the
	// fallback take profit.
	levelProfitProbability = 0.7
	// targetProfitProbability is the likelihood of reaching a pattern target.
	targetProfitProbability = 0.6
)

// tradeLevels derives the stop loss and take profits of a directional
// signal entered at price from the nearest support and resistance and the
// projected pattern target. Zero levels are treated as absent.
func tradeLevels(direction shared.Direction, price, support, resistance, target float64) (float64, []shared.TakeProfit) {
	takeProfit := []shared.TakeProfit{}

	switch direction {
	case shared.Bullish:
		stopLoss := price * (1 - fallbackStopDistance)
		if support > 0 && support < price {
			stopLoss = support * (1 - levelStopBuffer)
		}
		if resistance > price {
			takeProfit = append(takeProfit, shared.TakeProfit{Level: resistance, Probability: levelProfitProbability})
		}
		if target > price {
			takeProfit = append(takeProfit, shared.TakeProfit{Level: target, Probability: targetProfitProbability})
		}
		if len(takeProfit) == 0 {
			takeProfit = append(takeProfit, shared.TakeProfit{
				Level:       price * (1 + fallbackProfitDistance),
				Probability: levelProfitProbability,
			})
		}
		return stopLoss, takeProfit

	case shared.Bearish:
		stopLoss := price * (1 + fallbackStopDistance)
		if resistance > price {
			stopLoss = resistance * (1 + levelStopBuffer)
		}
		if support > 0 && support < price {
			takeProfit = append(takeProfit, shared.TakeProfit{Level: support, Probability: levelProfitProbability})
		}
		if target > 0 && target < price {
			takeProfit = append(takeProfit, shared.TakeProfit{Level: target, Probability: targetProfitProbability})
		}
		if len(takeProfit) == 0 {
			takeProfit = append(takeProfit, shared.TakeProfit{
				Level:       price * (1 - fallbackProfitDistance),
				Probability: levelProfitProbability,
			})
		}
		return stopLoss, takeProfit

	default:
		return 0, nil
	}
}
