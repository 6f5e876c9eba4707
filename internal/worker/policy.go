package worker

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"experience-memory/internal/memory"
)

const numActions = 2

type PolicyWeights struct {
	W  [][]float64 `json:"w"`  // shape: [2][obs dim]
	B  []float64   `json:"b"`  // shape: [2]
	VW []float64   `json:"vw"` // shape: [obs dim]
	VB float64     `json:"vb"`
}

type Policy struct {
	Weights PolicyWeights
}

func DefaultWeights(obsDim int) PolicyWeights {
	w := PolicyWeights{
		W:  make([][]float64, numActions),
		B:  make([]float64, numActions),
		VW: make([]float64, obsDim),
	}
	for i := range w.W {
		w.W[i] = make([]float64, obsDim)
		sign := 1.0
		if i == 1 {
			sign = -1
		}
		for j := range w.W[i] {
			w.W[i][j] = 0.01 * sign
		}
	}
	return w
}

func NewPolicy(weights PolicyWeights) *Policy {
	return &Policy{
		Weights: weights,
	}
}

// Action returns chosen action, log-probability, and value estimate
func (p *Policy) Action(state []float64, rng *rand.Rand) (int, float64, float64) {
	probs := p.probs(state)
	choice := sampleCategorical(probs, rng)
	logProb := math.Log(probs[choice] + 1e-8)
	return choice, logProb, p.Value(state)
}

func (p *Policy) Value(state []float64) float64 {
	return p.Weights.VB + floats.Dot(p.Weights.VW, state)
}

func (p *Policy) probs(state []float64) []float64 {
	logits := make([]float64, numActions)
	for i := range logits {
		logits[i] = p.Weights.B[i] + floats.Dot(p.Weights.W[i], state)
	}
	return softmax(logits)
}

// ReinforceUpdate takes one policy-gradient step over a whole episode. The
// batch must carry raw actions, i.e. the action indices actually taken.
func (p *Policy) ReinforceUpdate(batch *memory.EpisodeBatch, lr float64) {
	n, _ := batch.Observations.Dims()
	for t := 0; t < n; t++ {
		state := mat.Row(nil, t, batch.Observations)
		action := int(batch.Actions.At(t, 0))
		ret := batch.Returns.At(t, 0)
		probs := p.probs(state)
		for i := range probs {
			indicator := 0.0
			if i == action {
				indicator = 1
			}
			g := lr * ret * (indicator - probs[i])
			floats.AddScaled(p.Weights.W[i], g, state)
			p.Weights.B[i] += g
		}
	}
}

// ValueUpdate fits the value estimate to one-step TD targets and returns the
// mean squared TD error before the update.
func (p *Policy) ValueUpdate(batch *memory.RandomBatch, discount, lr float64) float64 {
	n := batch.Len()
	if n == 0 {
		return 0
	}
	var loss float64
	for i := 0; i < n; i++ {
		state := mat.Row(nil, i, batch.Observations)
		target := batch.Rewards.At(i, 0)
		if !batch.Terminal[i] {
			target += discount * p.Value(mat.Row(nil, i, batch.NextObservations))
		}
		delta := target - p.Value(state)
		loss += delta * delta
		floats.AddScaled(p.Weights.VW, lr*delta, state)
		p.Weights.VB += lr * delta
	}
	return loss / float64(n)
}

func softmax(logits []float64) []float64 {
	maxLogit := floats.Max(logits)
	values := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		values[i] = math.Exp(v - maxLogit)
		sum += values[i]
	}
	floats.Scale(1/sum, values)
	return values
}

func sampleCategorical(probs []float64, rng *rand.Rand) int {
	threshold := rng.Float64()
	var cumulativeProb float64
	for i, prob := range probs {
		cumulativeProb += prob
		if threshold <= cumulativeProb {
			return i
		}
	}
	return len(probs) - 1
}
