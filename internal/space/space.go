// Package space describes the bounds of observation, action and reward
// spaces and maps raw values into bounded ranges.
package space

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

var (
	ErrDimension = errors.New("vector length does not match space")
	ErrBounds    = errors.New("space bounds are invalid")
)

// Space is a box with one [Low, High] interval per dimension.
type Space struct {
	Low  []float64
	High []float64
}

func New(low, high []float64) (Space, error) {
	if len(low) == 0 || len(low) != len(high) {
		return Space{}, fmt.Errorf("%w: %d lows, %d highs", ErrBounds, len(low), len(high))
	}
	for i := range low {
		if !(high[i] > low[i]) {
			return Space{}, fmt.Errorf("%w: dim %d has low %v >= high %v", ErrBounds, i, low[i], high[i])
		}
	}
	return Space{
		Low:  append([]float64(nil), low...),
		High: append([]float64(nil), high...),
	}, nil
}

// Uniform builds a space of dim dimensions sharing one interval.
func Uniform(dim int, low, high float64) (Space, error) {
	lows := make([]float64, dim)
	highs := make([]float64, dim)
	for i := 0; i < dim; i++ {
		lows[i] = low
		highs[i] = high
	}
	return New(lows, highs)
}

func (s Space) Len() int {
	return len(s.Low)
}

// Scaler maps a raw vector from its space into a bounded range.
type Scaler interface {
	Scale(x []float64, s Space) ([]float64, error)
}

// MinMaxScaler maps each dimension linearly from [Low, High] to [0, 1].
type MinMaxScaler struct{}

func (MinMaxScaler) Scale(x []float64, s Space) ([]float64, error) {
	if len(x) != s.Len() {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimension, len(x), s.Len())
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = Normalize(v, s.Low[i], s.High[i])
	}
	return out, nil
}

// SymmetricScaler maps each dimension linearly from [Low, High] to [-1, 1].
type SymmetricScaler struct{}

func (SymmetricScaler) Scale(x []float64, s Space) ([]float64, error) {
	out, err := MinMaxScaler{}.Scale(x, s)
	if err != nil {
		return nil, err
	}
	floats.Scale(2, out)
	floats.AddConst(-1, out)
	return out, nil
}

// Normalize maps v from [low, high] to [0, 1]. Values outside the interval
// land outside [0, 1]; no clipping is applied.
func Normalize(v, low, high float64) float64 {
	return (v - low) / (high - low)
}
