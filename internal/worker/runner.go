package worker

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/rs/zerolog"

	"experience-memory/internal/cartpole"
	"experience-memory/internal/memory"
	"experience-memory/internal/space"
)

// Runner plays cart-pole episodes, records them in Memory and trains a
// linear policy from the stored experience.
type Runner struct {
	Memory       *memory.Memory
	Episodes     int
	BatchSize    int
	LearningRate float64
	Seed         int64
	Scaler       space.Scaler
	Logger       zerolog.Logger
}

func (r *Runner) Run(ctx context.Context) ([]EpisodeResult, error) {
	if r.Memory == nil {
		return nil, errors.New("runner needs a memory")
	}
	if r.Episodes <= 0 {
		return nil, errors.New("episodes must be > 0")
	}
	batchSize := r.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}
	lr := r.LearningRate
	if lr <= 0 {
		lr = 0.01
	}
	scaler := r.Scaler
	if scaler == nil {
		scaler = space.MinMaxScaler{}
	}
	logger := r.Logger.With().Str("component", "runner").Str("run_id", r.Memory.RunID()).Logger()

	rng := rand.New(rand.NewSource(r.Seed))
	env := cartpole.NewEnv(rng)
	obsSpace := r.Memory.Spaces().Observation
	policy := NewPolicy(DefaultWeights(obsSpace.Len()))
	discount := r.Memory.Config().Discount

	first := 0
	if seen := r.Memory.Episodes(); len(seen) > 0 {
		first = seen[len(seen)-1] + 1
	}

	results := make([]EpisodeResult, 0, r.Episodes)
	for episodeID := first; episodeID < first+r.Episodes; episodeID++ {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		state := env.Reset()
		episodeReward := 0.0
		steps := 0
		for {
			obs := state.Vector()
			scaled, err := scaler.Scale(obs, obsSpace)
			if err != nil {
				return results, fmt.Errorf("scale observation: %w", err)
			}
			action, _, _ := policy.Action(scaled, rng)
			nextState, reward, done := env.Step(action)

			next := memory.Observed(nextState.Vector())
			if done {
				next = memory.Terminal()
			}
			err = r.Memory.Add(memory.Experience{
				Observation: obs,
				Action:      []float64{float64(action)},
				Reward:      reward,
				Next:        next,
				Step:        steps,
				Episode:     episodeID,
			})
			if err != nil {
				return results, err
			}

			episodeReward += reward
			steps++
			state = nextState
			if done {
				break
			}
		}

		if _, err := r.Memory.Compute(episodeID); err != nil {
			return results, err
		}
		episode, err := r.Memory.EpisodeBatch(episodeID, false)
		if err != nil {
			return results, err
		}
		policy.ReinforceUpdate(episode, lr)

		sample, err := r.Memory.RandomBatch(batchSize)
		if err != nil {
			return results, err
		}
		valueLoss := policy.ValueUpdate(sample, discount, lr)

		r.Memory.RecordStat(StatEpisodeReward, episodeReward)
		r.Memory.RecordStat(StatEpisodeLength, float64(steps))
		r.Memory.RecordStat(StatValueLoss, valueLoss)

		logger.Info().
			Int("episode", episodeID).
			Int("steps", steps).
			Float64("reward", episodeReward).
			Float64("value_loss", valueLoss).
			Msg("episode finished")

		results = append(results, EpisodeResult{
			Episode:   episodeID,
			Steps:     steps,
			Reward:    episodeReward,
			ValueLoss: valueLoss,
		})
	}
	return results, nil
}
