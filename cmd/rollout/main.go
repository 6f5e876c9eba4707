package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"experience-memory/internal/cartpole"
	"experience-memory/internal/memory"
	"experience-memory/internal/report"
	"experience-memory/internal/worker"
)

const (
	defaultEpisodes     = 50
	defaultBatchSize    = 64
	defaultMemoryLength = 10000
)

func main() {
	_ = godotenv.Load(".env")

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger().
		Level(parseLevel(getenv("LOG_LEVEL", "info")))

	if err := run(logger); err != nil {
		logger.Fatal().Err(err).Msg("rollout failed")
	}
}

func run(logger zerolog.Logger) error {
	strict := getenvBool("STRICT_CONFIG", false)
	rewardMode, err := memory.ParseRewardMode(getenv("PROCESS_REWARD", ""))
	if err := checkMode(logger, strict, err); err != nil {
		return err
	}
	returnMode, err := memory.ParseReturnMode(getenv("PROCESS_RETURN", "mean_scale"))
	if err := checkMode(logger, strict, err); err != nil {
		return err
	}

	cfg := memory.Config{
		Discount:           getenvFloat("DISCOUNT", 0.99),
		MemoryLength:       getenvInt("MEMORY_LENGTH", defaultMemoryLength),
		ProcessReward:      rewardMode,
		ProcessReturn:      returnMode,
		WithoutReplacement: getenvBool("WITHOUT_REPLACEMENT", false),
	}
	seed := getenvInt64("SEED", time.Now().UnixNano())

	mem, err := memory.New(cfg, memory.Spaces{
		Observation: cartpole.ObservationSpace(),
		Action:      cartpole.ActionSpace(),
		Reward:      cartpole.RewardSpace(),
	},
		memory.WithLogger(logger),
		memory.WithRand(rand.New(rand.NewSource(seed+1))),
	)
	if err != nil {
		return fmt.Errorf("memory config: %w", err)
	}

	runner := &worker.Runner{
		Memory:       mem,
		Episodes:     getenvInt("EPISODES", defaultEpisodes),
		BatchSize:    getenvInt("BATCH_SIZE", defaultBatchSize),
		LearningRate: getenvFloat("LEARNING_RATE", 0.01),
		Seed:         seed,
		Logger:       logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	rep, err := report.Build(mem)
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}
	colors := isatty.IsTerminal(os.Stdout.Fd())
	if err := report.WriteEpisodeTable(os.Stdout, rep, colors); err != nil {
		return fmt.Errorf("write episode table: %w", err)
	}
	if err := report.WriteStats(os.Stdout, rep, colors); err != nil {
		return fmt.Errorf("write stats: %w", err)
	}

	if path := getenv("REPORT_CHART", ""); path != "" {
		if err := writeChart(path, rep, "cartpole "+mem.RunID()); err != nil {
			return err
		}
		logger.Info().Str("path", path).Msg("chart written")
	}
	return nil
}

func writeChart(path string, rep *report.Report, title string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}
	if err := report.RenderChart(f, rep, title); err != nil {
		f.Close()
		return fmt.Errorf("render chart: %w", err)
	}
	return f.Close()
}

// checkMode falls back to passthrough on unknown mode names unless strict,
// in which case the parse error is returned.
func checkMode(logger zerolog.Logger, strict bool, err error) error {
	if err == nil {
		return nil
	}
	if strict {
		return fmt.Errorf("config: %w", err)
	}
	logger.Warn().Err(err).Msg("using passthrough processing")
	return nil
}

func parseLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(s)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvInt64(key string, fallback int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
