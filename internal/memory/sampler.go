package memory

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// EpisodeBatch holds every step of one episode in order.
type EpisodeBatch struct {
	Observations *mat.Dense // n x obs dim, scaled
	Actions      *mat.Dense // n x act dim, scaled or raw
	Returns      *mat.Dense // n x 1
}

// RandomBatch holds transitions sampled from the trailing window.
// Rows of NextObservations for terminal transitions are zero and flagged in
// Terminal.
type RandomBatch struct {
	Observations     *mat.Dense
	Actions          *mat.Dense
	Rewards          *mat.Dense
	NextObservations *mat.Dense
	Terminal         []bool
	// Indices are the absolute log positions that were sampled.
	Indices []int
}

func (b *RandomBatch) Len() int {
	return len(b.Indices)
}

// EpisodeBatch returns the observations, actions and returns of one
// episode. Raw actions are used unless scaledActions is set, since policy
// gradients need the log-probability of the action actually taken.
func (m *Memory) EpisodeBatch(episode int, scaledActions bool) (*EpisodeBatch, error) {
	ep, ok := m.episodes[episode]
	if !ok || ep.len() == 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnknownEpisode, episode)
	}
	if !ep.computed {
		return nil, fmt.Errorf("%w: %d", ErrReturnsPending, episode)
	}

	n := ep.len()
	obsDim, actDim := m.spaces.Observation.Len(), m.spaces.Action.Len()
	obs := make([]float64, 0, n*obsDim)
	acts := make([]float64, 0, n*actDim)
	rets := make([]float64, 0, n)
	for i := ep.start; i < ep.end; i++ {
		mach := m.machine[i]
		obs = append(obs, mach.Observation...)
		if scaledActions {
			acts = append(acts, mach.Action...)
		} else {
			acts = append(acts, m.experiences[i].Action...)
		}
		rets = append(rets, mach.Return)
	}

	if err := checkRows(n, column{obs, obsDim}, column{acts, actDim}, column{rets, 1}); err != nil {
		return nil, fmt.Errorf("episode %d: %w", episode, err)
	}
	return &EpisodeBatch{
		Observations: mat.NewDense(n, obsDim, obs),
		Actions:      mat.NewDense(n, actDim, acts),
		Returns:      mat.NewDense(n, 1, rets),
	}, nil
}

// RandomBatch samples min(batchSize, window) transitions uniformly from the
// most recent MemoryLength records. Older records stay in the logs.
//
// The size is capped by the window, not by the total record count. The two
// differ only once the log outgrows MemoryLength, and the window cap keeps
// WithoutReplacement drawable.
func (m *Memory) RandomBatch(batchSize int) (*RandomBatch, error) {
	if batchSize <= 0 {
		return nil, ErrBatchSize
	}
	total := len(m.machine)
	if total == 0 {
		return nil, ErrEmpty
	}
	offset := 0
	if total > m.cfg.MemoryLength {
		offset = total - m.cfg.MemoryLength
	}
	window := total - offset
	n := batchSize
	if window < n {
		n = window
	}

	indices := make([]int, n)
	if m.cfg.WithoutReplacement {
		for i, j := range m.rng.Perm(window)[:n] {
			indices[i] = offset + j
		}
	} else {
		for i := range indices {
			indices[i] = offset + m.rng.Intn(window)
		}
	}

	obsDim, actDim := m.spaces.Observation.Len(), m.spaces.Action.Len()
	obs := make([]float64, 0, n*obsDim)
	acts := make([]float64, 0, n*actDim)
	rewards := make([]float64, 0, n)
	next := make([]float64, 0, n*obsDim)
	terminal := make([]bool, n)
	for i, idx := range indices {
		mach := m.machine[idx]
		obs = append(obs, mach.Observation...)
		acts = append(acts, mach.Action...)
		rewards = append(rewards, mach.Reward)
		if mach.Next.IsTerminal() {
			next = append(next, make([]float64, obsDim)...)
			terminal[i] = true
		} else {
			next = append(next, mach.Next.Values()...)
		}
	}

	if err := checkRows(n, column{obs, obsDim}, column{acts, actDim}, column{rewards, 1}, column{next, obsDim}); err != nil {
		return nil, err
	}
	return &RandomBatch{
		Observations:     mat.NewDense(n, obsDim, obs),
		Actions:          mat.NewDense(n, actDim, acts),
		Rewards:          mat.NewDense(n, 1, rewards),
		NextObservations: mat.NewDense(n, obsDim, next),
		Terminal:         terminal,
		Indices:          indices,
	}, nil
}

type column struct {
	data []float64
	cols int
}

// checkRows verifies every column holds exactly n rows and no NaN.
func checkRows(n int, columns ...column) error {
	for i, c := range columns {
		if len(c.data) != n*c.cols {
			return fmt.Errorf("%w: array %d has %d values, want %d rows of %d", ErrShapeMismatch, i, len(c.data), n, c.cols)
		}
		if floats.HasNaN(c.data) {
			return fmt.Errorf("%w: array %d", ErrNaN, i)
		}
	}
	return nil
}
