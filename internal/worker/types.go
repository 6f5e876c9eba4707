package worker

// EpisodeResult summarises one finished episode.
type EpisodeResult struct {
	Episode   int     `json:"episode"`
	Steps     int     `json:"steps"`
	Reward    float64 `json:"reward"`
	ValueLoss float64 `json:"value_loss"`
}

// Stat names recorded in the memory for every episode.
const (
	StatEpisodeReward = "episode_reward"
	StatEpisodeLength = "episode_length"
	StatValueLoss     = "value_loss"
)
