package memory

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// zeroSpread is the std or range below which rescaling is skipped.
const zeroSpread = 1e-12

// Compute fills in the discounted return of every record of a finished
// episode and returns them in step order.
func (m *Memory) Compute(episode int) ([]float64, error) {
	ep, ok := m.episodes[episode]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownEpisode, episode)
	}
	if ep.computed {
		return nil, fmt.Errorf("%w: %d", ErrReturnsComputed, episode)
	}

	records := m.machine[ep.start:ep.end]
	rewards := make([]float64, len(records))
	for i, rec := range records {
		rewards[i] = rec.Reward
	}
	returns := DiscountedReturns(rewards, m.cfg.Discount)

	mean, std := stat.PopMeanStdDev(returns, nil)
	m.logger.Info().
		Int("episode", episode).
		Float64("total", floats.Sum(returns)).
		Float64("mean", mean).
		Msg("returns before scaling")
	m.logger.Debug().Int("episode", episode).Float64("std", std).Msg("returns before scaling")

	if m.processReturns(returns) {
		m.logger.Warn().
			Int("episode", episode).
			Str("process_return", m.cfg.ProcessReturn.String()).
			Msg("episode returns have no spread, division skipped")
	}
	if floats.HasNaN(returns) {
		return nil, fmt.Errorf("%w: returns of episode %d", ErrNaN, episode)
	}

	m.logger.Info().
		Int("episode", episode).
		Float64("total", floats.Sum(returns)).
		Float64("mean", stat.Mean(returns, nil)).
		Msg("returns after scaling")

	for i := range records {
		records[i].Return = returns[i]
		records[i].HasReturn = true
	}
	ep.computed = true
	return append([]float64(nil), returns...), nil
}

// DiscountedReturns runs R <- r + discount*R backwards from R = 0.
func DiscountedReturns(rewards []float64, discount float64) []float64 {
	returns := make([]float64, len(rewards))
	var r float64
	for i := len(rewards) - 1; i >= 0; i-- {
		r = rewards[i] + discount*r
		returns[i] = r
	}
	return returns
}

// processReturns rescales returns in place and reports whether the division
// was skipped because the episode had no spread.
func (m *Memory) processReturns(returns []float64) bool {
	if len(returns) == 0 {
		return false
	}
	switch m.cfg.ProcessReturn {
	case ReturnPassthrough:
		return false
	case ReturnScaleOnly:
		_, std := stat.PopMeanStdDev(returns, nil)
		if std < zeroSpread || math.IsNaN(std) {
			return true
		}
		floats.Scale(1/std, returns)
		return false
	case ReturnMeanScale:
		mean, std := stat.PopMeanStdDev(returns, nil)
		floats.AddConst(-mean, returns)
		if std < zeroSpread || math.IsNaN(std) {
			return true
		}
		floats.Scale(1/std, returns)
		return false
	case ReturnMinMax:
		lo, hi := floats.Min(returns), floats.Max(returns)
		floats.AddConst(-lo, returns)
		if hi-lo < zeroSpread || math.IsNaN(hi-lo) {
			return true
		}
		floats.Scale(1/(hi-lo), returns)
		return false
	}
	return false
}
