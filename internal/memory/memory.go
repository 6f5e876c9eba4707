// Package memory records agent experience, computes Monte-Carlo returns per
// episode and serves batches to a learner.
//
// A Memory is not safe for concurrent use. Callers sharing one instance
// across goroutines must serialise Add and Compute themselves.
package memory

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"experience-memory/internal/space"
)

var (
	ErrLengthMismatch  = errors.New("raw and machine logs differ in length")
	ErrEpisodeOrder    = errors.New("episode ids must be non-decreasing")
	ErrNegativeIndex   = errors.New("episode and step must be non-negative")
	ErrEpisodeClosed   = errors.New("episode returns already computed")
	ErrUnknownEpisode  = errors.New("episode not in memory")
	ErrReturnsComputed = errors.New("returns already computed for episode")
	ErrReturnsPending  = errors.New("returns not computed for episode")
	ErrNaN             = errors.New("batch contains NaN")
	ErrShapeMismatch   = errors.New("batch arrays differ in row count")
	ErrBatchSize       = errors.New("batch size must be > 0")
	ErrEmpty           = errors.New("memory is empty")
)

// span is the half-open index range [start, end) of one episode in the logs.
type span struct {
	start, end int
	computed   bool
}

func (s span) len() int {
	return s.end - s.start
}

type Memory struct {
	cfg         Config
	spaces      Spaces
	transformer Transformer
	rng         *rand.Rand
	logger      zerolog.Logger

	runID       string
	experiences []Experience
	machine     []MachineExperience
	episodes    map[int]*span
	order       []int
	stats       map[string][]float64
}

type Option func(*Memory)

func WithLogger(logger zerolog.Logger) Option {
	return func(m *Memory) {
		m.logger = logger
	}
}

// WithScaler replaces the default min-max scaler.
func WithScaler(scaler space.Scaler) Option {
	return func(m *Memory) {
		m.transformer.Scaler = scaler
	}
}

func WithRand(rng *rand.Rand) Option {
	return func(m *Memory) {
		m.rng = rng
	}
}

func New(cfg Config, spaces Spaces, opts ...Option) (*Memory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := spaces.validate(); err != nil {
		return nil, err
	}
	m := &Memory{
		cfg:    cfg,
		spaces: spaces,
		transformer: Transformer{
			Spaces: spaces,
			Scaler: space.MinMaxScaler{},
			Reward: cfg.ProcessReward,
		},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	m.logger = m.logger.With().Str("component", "experience_memory").Logger()
	m.Reset()
	return m, nil
}

// Reset empties both logs and the statistics and starts a new run.
func (m *Memory) Reset() {
	m.runID = uuid.New().String()
	m.experiences = nil
	m.machine = nil
	m.episodes = make(map[int]*span)
	m.order = nil
	m.stats = make(map[string][]float64)

	m.logger.Info().
		Str("run_id", m.runID).
		Float64("discount", m.cfg.Discount).
		Int("memory_length", m.cfg.MemoryLength).
		Str("process_reward", m.cfg.ProcessReward.String()).
		Str("process_return", m.cfg.ProcessReturn.String()).
		Msg("memory reset")
}

// Add appends one transition to both logs.
func (m *Memory) Add(exp Experience) error {
	m.logger.Debug().Int("episode", exp.Episode).Int("step", exp.Step).Msg("adding experience")

	if exp.Episode < 0 || exp.Step < 0 {
		return fmt.Errorf("%w: episode %d step %d", ErrNegativeIndex, exp.Episode, exp.Step)
	}
	if n := len(m.order); n > 0 {
		last := m.order[n-1]
		if exp.Episode < last {
			return fmt.Errorf("%w: got %d after %d", ErrEpisodeOrder, exp.Episode, last)
		}
		if exp.Episode == last && m.episodes[last].computed {
			return fmt.Errorf("%w: episode %d", ErrEpisodeClosed, last)
		}
	}

	raw := exp.clone()
	mach, err := m.transformer.Transform(raw)
	if err != nil {
		return fmt.Errorf("episode %d step %d: %w", exp.Episode, exp.Step, err)
	}

	idx := len(m.machine)
	m.experiences = append(m.experiences, raw)
	m.machine = append(m.machine, mach)

	ep, ok := m.episodes[exp.Episode]
	if !ok {
		ep = &span{start: idx, end: idx}
		m.episodes[exp.Episode] = ep
		m.order = append(m.order, exp.Episode)
	}
	ep.end = idx + 1

	if len(m.experiences) != len(m.machine) {
		return fmt.Errorf("%w: %d raw, %d machine", ErrLengthMismatch, len(m.experiences), len(m.machine))
	}
	return nil
}

// RecordStat appends value to the named statistic, creating it on first use.
func (m *Memory) RecordStat(name string, value float64) {
	m.stats[name] = append(m.stats[name], value)
}

func (m *Memory) Stats() map[string][]float64 {
	out := make(map[string][]float64, len(m.stats))
	for k, v := range m.stats {
		out[k] = cloneVec(v)
	}
	return out
}

func (m *Memory) Len() int {
	return len(m.machine)
}

func (m *Memory) RunID() string {
	return m.runID
}

func (m *Memory) Config() Config {
	return m.cfg
}

func (m *Memory) Spaces() Spaces {
	return m.spaces
}

// Episodes lists the episode ids in the order they were first added.
func (m *Memory) Episodes() []int {
	return append([]int(nil), m.order...)
}

func (m *Memory) EpisodeLen(episode int) int {
	ep, ok := m.episodes[episode]
	if !ok {
		return 0
	}
	return ep.len()
}

// Experiences returns a copy of the raw log.
func (m *Memory) Experiences() []Experience {
	out := make([]Experience, len(m.experiences))
	for i, e := range m.experiences {
		out[i] = e.clone()
	}
	return out
}

// MachineExperiences returns a copy of the machine log.
func (m *Memory) MachineExperiences() []MachineExperience {
	out := make([]MachineExperience, len(m.machine))
	for i, e := range m.machine {
		out[i] = e.clone()
	}
	return out
}
