// Package report flattens an experience memory into step and episode tables
// for offline analysis.
package report

import (
	"fmt"
	"math"

	"experience-memory/internal/memory"
)

// Source is the read side of an experience memory.
type Source interface {
	Experiences() []memory.Experience
	MachineExperiences() []memory.MachineExperience
	Stats() map[string][]float64
}

// StepRow holds the raw and scaled columns of one logged transition.
type StepRow struct {
	Episode         int
	Step            int
	Observation     []float64
	Action          []float64
	Reward          float64
	NextObservation []float64
	Terminal        bool

	ScaledObservation     []float64
	ScaledAction          []float64
	ScaledReward          float64
	ScaledNextObservation []float64
	DiscountedReturn      float64
	HasReturn             bool
}

// EpisodeRow sums the numeric step columns of one episode.
type EpisodeRow struct {
	Episode          int
	Steps            int
	Reward           float64
	ScaledReward     float64
	DiscountedReturn float64
	// CumMaxReward is the best summed reward of this or any earlier episode.
	CumMaxReward float64
	// RollingMean is the centred rolling mean of Reward.
	RollingMean float64
}

type Series struct {
	Name   string
	Values []float64
}

type Report struct {
	Steps    []StepRow
	Episodes []EpisodeRow
	Stats    map[string]Series
}

func Build(src Source) (*Report, error) {
	raw := src.Experiences()
	mach := src.MachineExperiences()
	if len(raw) != len(mach) {
		return nil, fmt.Errorf("%w: %d raw, %d machine", memory.ErrLengthMismatch, len(raw), len(mach))
	}

	rep := &Report{
		Steps: make([]StepRow, len(raw)),
		Stats: make(map[string]Series),
	}
	for i := range raw {
		e, m := raw[i], mach[i]
		rep.Steps[i] = StepRow{
			Episode:               e.Episode,
			Step:                  e.Step,
			Observation:           e.Observation,
			Action:                e.Action,
			Reward:                e.Reward,
			NextObservation:       e.Next.Values(),
			Terminal:              e.Next.IsTerminal(),
			ScaledObservation:     m.Observation,
			ScaledAction:          m.Action,
			ScaledReward:          m.Reward,
			ScaledNextObservation: m.Next.Values(),
			DiscountedReturn:      m.Return,
			HasReturn:             m.HasReturn,
		}
	}

	rep.Episodes = episodeRows(rep.Steps)

	for name, values := range src.Stats() {
		rep.Stats[name] = Series{Name: name, Values: values}
	}
	return rep, nil
}

func episodeRows(steps []StepRow) []EpisodeRow {
	var rows []EpisodeRow
	for _, s := range steps {
		if len(rows) == 0 || rows[len(rows)-1].Episode != s.Episode {
			rows = append(rows, EpisodeRow{Episode: s.Episode})
		}
		row := &rows[len(rows)-1]
		row.Steps++
		row.Reward += s.Reward
		row.ScaledReward += s.ScaledReward
		row.DiscountedReturn += s.DiscountedReturn
	}
	if len(rows) == 0 {
		return rows
	}

	best := math.Inf(-1)
	rewards := make([]float64, len(rows))
	for i := range rows {
		best = math.Max(best, rows[i].Reward)
		rows[i].CumMaxReward = best
		rewards[i] = rows[i].Reward
	}

	window := len(rows) / 10
	if window < 2 {
		window = 2
	}
	for i, v := range CenteredRollingMean(rewards, window) {
		rows[i].RollingMean = v
	}
	return rows
}

// CenteredRollingMean averages each value with its neighbours in a window of
// the given size centred on it. For even sizes the window reaches one further
// forward than back. The window is truncated at both ends.
func CenteredRollingMean(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	offset := window / 2
	for i := range values {
		lo := i - window + 1 + offset
		hi := i + offset
		if lo < 0 {
			lo = 0
		}
		if hi > len(values)-1 {
			hi = len(values) - 1
		}
		var sum float64
		for _, v := range values[lo : hi+1] {
			sum += v
		}
		out[i] = sum / float64(hi-lo+1)
	}
	return out
}
