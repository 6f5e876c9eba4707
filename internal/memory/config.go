package memory

import (
	"errors"
	"fmt"
)

var (
	ErrConfig      = errors.New("invalid memory config")
	ErrUnknownMode = errors.New("unknown processing mode")
)

// RewardMode selects how rewards are processed before learning.
type RewardMode int

const (
	RewardPassthrough RewardMode = iota
	RewardNormalize
)

func (m RewardMode) String() string {
	switch m {
	case RewardNormalize:
		return "normalize"
	default:
		return "passthrough"
	}
}

// ParseRewardMode returns RewardPassthrough together with ErrUnknownMode for
// unrecognised names so callers can decide between lenient and strict use.
func ParseRewardMode(s string) (RewardMode, error) {
	switch s {
	case "normalize":
		return RewardNormalize, nil
	case "", "none", "passthrough":
		return RewardPassthrough, nil
	default:
		return RewardPassthrough, fmt.Errorf("%w: reward %q", ErrUnknownMode, s)
	}
}

// ReturnMode selects how per-episode discounted returns are rescaled.
type ReturnMode int

const (
	ReturnPassthrough ReturnMode = iota
	ReturnScaleOnly
	ReturnMeanScale
	ReturnMinMax
)

func (m ReturnMode) String() string {
	switch m {
	case ReturnScaleOnly:
		return "scale_only"
	case ReturnMeanScale:
		return "mean_scale"
	case ReturnMinMax:
		return "min_max"
	default:
		return "passthrough"
	}
}

// ParseReturnMode behaves like ParseRewardMode.
func ParseReturnMode(s string) (ReturnMode, error) {
	switch s {
	case "scale_only":
		return ReturnScaleOnly, nil
	case "mean_scale":
		return ReturnMeanScale, nil
	case "min_max":
		return ReturnMinMax, nil
	case "", "none", "passthrough":
		return ReturnPassthrough, nil
	default:
		return ReturnPassthrough, fmt.Errorf("%w: return %q", ErrUnknownMode, s)
	}
}

type Config struct {
	// Discount is the per-step decay of future rewards, in [0, 1].
	Discount float64
	// MemoryLength bounds the trailing window used by RandomBatch.
	MemoryLength  int
	ProcessReward RewardMode
	ProcessReturn ReturnMode
	// WithoutReplacement makes RandomBatch draw distinct records.
	WithoutReplacement bool
}

func DefaultConfig() Config {
	return Config{
		Discount:     0.99,
		MemoryLength: 10000,
	}
}

func (c Config) Validate() error {
	if c.Discount < 0 || c.Discount > 1 {
		return fmt.Errorf("%w: discount %v outside [0, 1]", ErrConfig, c.Discount)
	}
	if c.MemoryLength <= 0 {
		return fmt.Errorf("%w: memory length must be > 0", ErrConfig)
	}
	switch c.ProcessReward {
	case RewardPassthrough, RewardNormalize:
	default:
		return fmt.Errorf("%w: reward mode %d", ErrConfig, int(c.ProcessReward))
	}
	switch c.ProcessReturn {
	case ReturnPassthrough, ReturnScaleOnly, ReturnMeanScale, ReturnMinMax:
	default:
		return fmt.Errorf("%w: return mode %d", ErrConfig, int(c.ProcessReturn))
	}
	return nil
}
