package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"sprintgym/internal/distributor"
	"sprintgym/internal/episode"
	"sprintgym/internal/logging"
	"sprintgym/internal/scenario"
)

var (
	// Global flags
	verbose   bool
	workspace string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "gym",
	Short: "sprintgym - RL environment over a multi-agent sprint simulator",
	Long: `sprintgym runs reinforcement-learning episodes against a simulated
software team: scenarios are generated from a frozen catalog of 13 episode
types, agents work a sprint through its ceremonies, and every episode yields
traces, a behavioral score, and a multi-channel reward.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logging.Initialize(workspace)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

// scenariosCmd lists the episode-type catalog
var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "List the episode-type catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		stage, _ := cmd.Flags().GetInt("stage")
		catalog := scenario.NewCatalog()
		for _, name := range catalog.ListEpisodeTypes(stage) {
			def := scenario.EpisodeTypes[name]
			fmt.Printf("%-16s stage %d  %3d min  %v\n", name, def.Stage, def.DurationMinutes, def.Phases)
			fmt.Printf("%-16s %s\n", "", def.Description)
		}
		return nil
	},
}

// runCmd runs a single episode
var runCmd = &cobra.Command{
	Use:   "run [episode-type]",
	Short: "Run one episode and print its result as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		difficulty, _ := cmd.Flags().GetFloat64("difficulty")
		seed, _ := cmd.Flags().GetInt64("seed")
		targetSlot, _ := cmd.Flags().GetString("target-slot")
		checkpointEvery, _ := cmd.Flags().GetBool("checkpoint-every-phase")
		runtimeType, _ := cmd.Flags().GetString("runtime")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		runner := episode.NewRunner(workspace)
		logger.Info("running episode",
			zap.String("type", args[0]),
			zap.Float64("difficulty", difficulty),
			zap.Int64("seed", seed))

		res, err := runner.RunEpisode(ctx, episode.Params{
			EpisodeType:          args[0],
			Difficulty:           difficulty,
			TargetSlot:           targetSlot,
			Seed:                 seed,
			CheckpointEveryPhase: checkpointEvery,
			RuntimeType:          runtimeType,
		})
		if err != nil {
			return err
		}

		logger.Info("episode complete",
			zap.String("episode_id", res.EpisodeID),
			zap.Float64("reward", res.Reward.Total),
			zap.Float64("behavioral", res.BehavioralScore.Score))

		out, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to serialize episode result: %w", err)
		}
		fmt.Println(string(out))
		return nil
	},
}

// curriculumCmd runs a stage curriculum, episodes in parallel
var curriculumCmd = &cobra.Command{
	Use:   "curriculum",
	Short: "Run a curriculum of episodes for one training stage",
	RunE: func(cmd *cobra.Command, args []string) error {
		stage, _ := cmd.Flags().GetInt("stage")
		numEpisodes, _ := cmd.Flags().GetInt("episodes")
		seed, _ := cmd.Flags().GetInt64("seed")
		parallel, _ := cmd.Flags().GetInt("parallel")
		runtimeType, _ := cmd.Flags().GetString("runtime")

		catalog := scenario.NewCatalog()
		curriculum, err := catalog.GenerateCurriculum(stage, numEpisodes, seed)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(parallel)

		results := make([]*episode.Result, len(curriculum))
		for i, sc := range curriculum {
			i, sc := i, sc
			g.Go(func() error {
				// Each episode gets its own runner and workspace subtree.
				runner := episode.NewRunner(workspace)
				res, err := runner.RunEpisode(ctx, episode.Params{
					EpisodeType: sc.EpisodeType,
					Difficulty:  sc.Difficulty,
					TargetSlot:  sc.TargetSlot,
					Seed:        sc.Seed,
					RuntimeType: runtimeType,
				})
				if err != nil {
					return fmt.Errorf("episode %d (%s): %w", i, sc.EpisodeType, err)
				}
				results[i] = res
				logger.Info("curriculum episode complete",
					zap.Int("index", i),
					zap.String("type", sc.EpisodeType),
					zap.Float64("reward", res.Reward.Total))
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		total := 0.0
		for _, res := range results {
			fmt.Printf("%-10s %-16s difficulty=%.2f reward=%.4f behavioral=%.2f\n",
				res.EpisodeID, res.Scenario.EpisodeType, res.Scenario.Difficulty,
				res.Reward.Total, res.BehavioralScore.Score)
			total += res.Reward.Total
		}
		fmt.Printf("mean reward over %d episodes: %.4f\n", len(results), total/float64(len(results)))
		return nil
	},
}

// distributeCmd routes a story file across team profiles
var distributeCmd = &cobra.Command{
	Use:   "distribute [stories.yaml] [teams.json]",
	Short: "Assign portfolio stories to teams with the capability heuristic",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read stories %s: %w", args[0], err)
		}
		var pool struct {
			Stories []scenario.Story `yaml:"stories"`
		}
		if err := yaml.Unmarshal(raw, &pool); err != nil {
			return fmt.Errorf("failed to parse stories %s: %w", args[0], err)
		}

		data, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("failed to read team profiles %s: %w", args[1], err)
		}
		var teams []distributor.TeamCapabilityProfile
		if err := json.Unmarshal(data, &teams); err != nil {
			return fmt.Errorf("failed to parse team profiles %s: %w", args[1], err)
		}

		assignments := distributor.HeuristicDistribute(pool.Stories, teams)
		sort.Slice(assignments, func(i, j int) bool { return assignments[i].StoryID < assignments[j].StoryID })
		for _, a := range assignments {
			fmt.Printf("%-12s -> %-16s (score %.1f)\n", a.StoryID, a.TeamID, a.Score)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", ".gym", "Workspace root for episodes, checkpoints, and logs")

	scenariosCmd.Flags().Int("stage", 0, "Filter by training stage (1-4, 0 for all)")

	runCmd.Flags().Float64("difficulty", 0.5, "Scenario difficulty in [0,1]")
	runCmd.Flags().Int64("seed", 0, "Scenario seed")
	runCmd.Flags().String("target-slot", "", "Agent slot to mark as training candidate")
	runCmd.Flags().Bool("checkpoint-every-phase", false, "Save a checkpoint after every phase")
	runCmd.Flags().String("runtime", "", "Force every agent onto one runtime type")

	curriculumCmd.Flags().Int("stage", 1, "Training stage to draw episode types from")
	curriculumCmd.Flags().Int("episodes", 8, "Number of episodes to run")
	curriculumCmd.Flags().Int64("seed", 0, "Curriculum seed")
	curriculumCmd.Flags().Int("parallel", 2, "Max episodes in flight")
	curriculumCmd.Flags().String("runtime", "", "Force every agent onto one runtime type")

	rootCmd.AddCommand(scenariosCmd, runCmd, curriculumCmd, distributeCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
