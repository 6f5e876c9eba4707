package report

import (
	"bytes"
	"errors"
	"math"
	"math/rand"
	"reflect"
	"strings"
	"testing"

	"experience-memory/internal/memory"
	"experience-memory/internal/space"
)

func newMemory(t *testing.T) *memory.Memory {
	t.Helper()
	obs, _ := space.Uniform(1, 0, 10)
	act, _ := space.Uniform(1, 0, 1)
	rew, _ := space.Uniform(1, 0, 10)
	m, err := memory.New(
		memory.Config{Discount: 1, MemoryLength: 100, ProcessReward: memory.RewardNormalize},
		memory.Spaces{Observation: obs, Action: act, Reward: rew},
		memory.WithRand(rand.New(rand.NewSource(1))),
	)
	if err != nil {
		t.Fatalf("memory.New: %v", err)
	}
	return m
}

// fill adds one episode per entry of rewards and computes its returns.
func fill(t *testing.T, m *memory.Memory, rewards ...[]float64) {
	t.Helper()
	for ep, rs := range rewards {
		for step, r := range rs {
			next := memory.Observed([]float64{float64(step + 1)})
			if step == len(rs)-1 {
				next = memory.Terminal()
			}
			err := m.Add(memory.Experience{
				Observation: []float64{float64(step)},
				Action:      []float64{1},
				Reward:      r,
				Next:        next,
				Step:        step,
				Episode:     ep,
			})
			if err != nil {
				t.Fatalf("Add: %v", err)
			}
		}
		if _, err := m.Compute(ep); err != nil {
			t.Fatalf("Compute: %v", err)
		}
	}
}

func TestBuild_StepRows(t *testing.T) {
	m := newMemory(t)
	fill(t, m, []float64{2, 4}, []float64{6})

	rep, err := Build(m)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(rep.Steps) != 3 {
		t.Fatalf("step rows = %d, want 3", len(rep.Steps))
	}
	first := rep.Steps[0]
	if first.Episode != 0 || first.Step != 0 || first.Reward != 2 {
		t.Errorf("first row = %+v", first)
	}
	if first.ScaledReward != 0.2 {
		t.Errorf("scaled reward = %v, want 0.2", first.ScaledReward)
	}
	if !first.HasReturn || math.Abs(first.DiscountedReturn-0.6) > 1e-12 {
		t.Errorf("return = %v (set %v), want 0.6", first.DiscountedReturn, first.HasReturn)
	}
	if first.Terminal || first.ScaledNextObservation[0] != 0.1 {
		t.Errorf("next observation = %v terminal=%v", first.ScaledNextObservation, first.Terminal)
	}
	last := rep.Steps[2]
	if !last.Terminal || last.NextObservation != nil || last.ScaledNextObservation != nil {
		t.Errorf("terminal row = %+v", last)
	}
}

func TestBuild_EpisodeRows(t *testing.T) {
	m := newMemory(t)
	fill(t, m, []float64{1, 1}, []float64{5}, []float64{2, 1}, []float64{4})

	rep, err := Build(m)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	wantReward := []float64{2, 5, 3, 4}
	wantSteps := []int{2, 1, 2, 1}
	wantCumMax := []float64{2, 5, 5, 5}
	// window = max(4/10, 2) = 2, covering the current and next episode
	wantRolling := []float64{3.5, 4, 3.5, 4}
	if len(rep.Episodes) != 4 {
		t.Fatalf("episode rows = %d, want 4", len(rep.Episodes))
	}
	for i, e := range rep.Episodes {
		if e.Episode != i || e.Steps != wantSteps[i] {
			t.Errorf("row %d episode/steps = %d/%d", i, e.Episode, e.Steps)
		}
		if e.Reward != wantReward[i] {
			t.Errorf("row %d reward = %v, want %v", i, e.Reward, wantReward[i])
		}
		if e.CumMaxReward != wantCumMax[i] {
			t.Errorf("row %d cum max = %v, want %v", i, e.CumMaxReward, wantCumMax[i])
		}
		if math.Abs(e.RollingMean-wantRolling[i]) > 1e-12 {
			t.Errorf("row %d rolling mean = %v, want %v", i, e.RollingMean, wantRolling[i])
		}
		if math.Abs(e.ScaledReward-e.Reward/10) > 1e-12 {
			t.Errorf("row %d scaled reward = %v", i, e.ScaledReward)
		}
	}
}

func TestCenteredRollingMean(t *testing.T) {
	values := []float64{1, 2, 3, 4}
	cases := []struct {
		window int
		want   []float64
	}{
		{2, []float64{1.5, 2.5, 3.5, 4}},
		{3, []float64{1.5, 2, 3, 3.5}},
		{4, []float64{2, 2.5, 3, 3.5}},
		{10, []float64{2.5, 2.5, 2.5, 2.5}},
	}
	for _, tc := range cases {
		got := CenteredRollingMean(values, tc.window)
		for i := range tc.want {
			if math.Abs(got[i]-tc.want[i]) > 1e-12 {
				t.Errorf("window %d: got %v, want %v", tc.window, got, tc.want)
				break
			}
		}
	}
}

func TestBuild_RollingWindowGrowsWithEpisodes(t *testing.T) {
	m := newMemory(t)
	rewards := make([][]float64, 40)
	for i := range rewards {
		rewards[i] = []float64{float64(i) * 0.25}
	}
	fill(t, m, rewards...)

	rep, err := Build(m)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(rep.Episodes) != 40 {
		t.Fatalf("episode rows = %d, want 40", len(rep.Episodes))
	}
	// window = 40/10 = 4, spanning episodes i-1 to i+2
	for i := 1; i < 38; i++ {
		want := (float64(i) + 0.5) * 0.25
		if got := rep.Episodes[i].RollingMean; math.Abs(got-want) > 1e-12 {
			t.Errorf("row %d rolling mean = %v, want %v", i, got, want)
		}
	}
	edges := map[int]float64{0: 0.25, 38: 9.5, 39: 9.625}
	for i, want := range edges {
		if got := rep.Episodes[i].RollingMean; math.Abs(got-want) > 1e-12 {
			t.Errorf("row %d rolling mean = %v, want %v", i, got, want)
		}
	}
}

func TestBuild_StatsSeries(t *testing.T) {
	m := newMemory(t)
	fill(t, m, []float64{1})
	m.RecordStat("loss", 0.5)
	m.RecordStat("loss", 0.25)
	m.RecordStat("epsilon", 1)

	rep, err := Build(m)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if s := rep.Stats["loss"]; s.Name != "loss" || len(s.Values) != 2 {
		t.Errorf("loss series = %+v", s)
	}
	if s := rep.Stats["epsilon"]; len(s.Values) != 1 {
		t.Errorf("epsilon series = %+v", s)
	}
}

func TestBuild_Idempotent(t *testing.T) {
	m := newMemory(t)
	fill(t, m, []float64{1, 2, 3}, []float64{0.5})
	m.RecordStat("loss", 1)

	a, err := Build(m)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	b, err := Build(m)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("two builds differ")
	}
}

type skewedSource struct{ *memory.Memory }

func (s skewedSource) MachineExperiences() []memory.MachineExperience {
	return s.Memory.MachineExperiences()[1:]
}

func TestBuild_LengthMismatch(t *testing.T) {
	m := newMemory(t)
	fill(t, m, []float64{1, 2})
	if _, err := Build(skewedSource{m}); !errors.Is(err, memory.ErrLengthMismatch) {
		t.Errorf("err = %v, want ErrLengthMismatch", err)
	}
}

func TestBuild_Empty(t *testing.T) {
	rep, err := Build(newMemory(t))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(rep.Steps) != 0 || len(rep.Episodes) != 0 {
		t.Errorf("empty memory produced rows")
	}
}

func TestWriteEpisodeTable(t *testing.T) {
	m := newMemory(t)
	fill(t, m, []float64{1, 1}, []float64{3})
	rep, err := Build(m)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteEpisodeTable(&buf, rep, false); err != nil {
		t.Fatalf("WriteEpisodeTable: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "rolling_mean") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[2], "3.000") {
		t.Errorf("row = %q, want reward 3.000", lines[2])
	}
	if len(lines[1]) != len(lines[2]) {
		t.Errorf("rows not aligned: %q vs %q", lines[1], lines[2])
	}
}

func TestWriteStats(t *testing.T) {
	m := newMemory(t)
	m.RecordStat("value_loss", 0.5)
	m.RecordStat("episode_reward", 9)
	rep, err := Build(m)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteStats(&buf, rep, false); err != nil {
		t.Fatalf("WriteStats: %v", err)
	}
	want := "episode_reward n=1 last=9.000\nvalue_loss n=1 last=0.500\n"
	if buf.String() != want {
		t.Errorf("stats = %q, want %q", buf.String(), want)
	}
}

func TestRenderChart(t *testing.T) {
	m := newMemory(t)
	fill(t, m, []float64{1}, []float64{2})
	rep, err := Build(m)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	var buf bytes.Buffer
	if err := RenderChart(&buf, rep, "cartpole run"); err != nil {
		t.Fatalf("RenderChart: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"cartpole run", "rolling_mean", "cum_max_reward"} {
		if !strings.Contains(out, want) {
			t.Errorf("chart missing %q", want)
		}
	}
}
