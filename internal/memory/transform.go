package memory

import (
	"fmt"

	"experience-memory/internal/space"
)

// Spaces groups the descriptors of one environment.
type Spaces struct {
	Observation space.Space
	Action      space.Space
	Reward      space.Space
}

func (s Spaces) validate() error {
	if s.Observation.Len() == 0 || s.Action.Len() == 0 {
		return fmt.Errorf("%w: observation and action spaces are required", ErrConfig)
	}
	if s.Reward.Len() != 1 {
		return fmt.Errorf("%w: reward space must have one dimension, has %d", ErrConfig, s.Reward.Len())
	}
	return nil
}

// Transformer turns raw experience into its machine representation.
type Transformer struct {
	Spaces Spaces
	Scaler space.Scaler
	Reward RewardMode
}

// Transform leaves the return unset; it is only known at episode end.
func (t Transformer) Transform(exp Experience) (MachineExperience, error) {
	obs, err := t.Scaler.Scale(exp.Observation, t.Spaces.Observation)
	if err != nil {
		return MachineExperience{}, fmt.Errorf("scale observation: %w", err)
	}
	act, err := t.Scaler.Scale(exp.Action, t.Spaces.Action)
	if err != nil {
		return MachineExperience{}, fmt.Errorf("scale action: %w", err)
	}

	var reward float64
	switch t.Reward {
	case RewardNormalize:
		reward = space.Normalize(exp.Reward, t.Spaces.Reward.Low[0], t.Spaces.Reward.High[0])
	case RewardPassthrough:
		reward = exp.Reward
	}

	next := Terminal()
	if !exp.Next.IsTerminal() {
		scaled, err := t.Scaler.Scale(exp.Next.Values(), t.Spaces.Observation)
		if err != nil {
			return MachineExperience{}, fmt.Errorf("scale next observation: %w", err)
		}
		next = Observed(scaled)
	}

	return MachineExperience{
		Observation: obs,
		Action:      act,
		Reward:      reward,
		Next:        next,
		Step:        exp.Step,
		Episode:     exp.Episode,
	}, nil
}
