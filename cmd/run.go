package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/verifit/interview-runner/internal/ai"
	"github.com/verifit/interview-runner/internal/ai/gemini"
	"github.com/verifit/interview-runner/internal/interview"
	"github.com/verifit/interview-runner/internal/kb"
	"github.com/verifit/interview-runner/internal/logger"
	"github.com/verifit/interview-runner/internal/secrets"
	"github.com/verifit/interview-runner/internal/store"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"

	strategyHeuristic = "heuristic"
	strategyJudged    = "judged"
)

var prompt = promptui.Select{
	Label: "Evaluate all applications of this posting?",
	Items: []string{PromptYes, PromptNo},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the interview and evaluation batch for a job posting",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("posting", "p", "", "job posting id to evaluate (required)")
	runCmd.Flags().BoolP("auto-aprove", "y", false, "do not ask for confirmation before starting the batch")

	if err := runCmd.MarkFlagRequired("posting"); err != nil {
		log.Fatalf("marking posting flag required: %v", err)
	}
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	logg, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logg.Fatal("getting a config", zap.Error(err))
	}

	logg.Info("starting the interview-runner", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logg.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config == nil {
		logg.Fatal("config is required")
	}

	if config.Database == nil || config.Database.DSN == "" {
		logg.Fatal("database dsn is required under database.dsn")
	}

	postingID := cmd.Flag("posting").Value.String()

	db, err := store.Open(config.Database.DSN, logg)
	if err != nil {
		logg.Fatal("opening the store", zap.Error(err))
	}

	posting, err := db.Posting(ctx, postingID)
	if err != nil {
		logg.Fatal("loading the job posting", zap.Error(err))
	}

	apps, err := db.Applications(ctx, postingID)
	if err != nil {
		logg.Fatal("listing applications", zap.Error(err))
	}

	logg.Info("found applications to evaluate",
		zap.String(logger.FieldPosting, posting.ID),
		zap.String("title", posting.Title),
		zap.Int("count", len(apps)),
	)

	if cmd.Flag("auto-aprove").Value.String() == "false" {
		_, action, err := prompt.Run()
		if err != nil {
			logg.Fatal("exiting", zap.Error(err))
		}
		if action == PromptNo {
			logg.Info("exiting", zap.String("reason", "got no from prompt"))
			return
		}
	}

	coordinator, err := buildCoordinator(ctx, config, db, logg)
	if err != nil {
		logg.Fatal("building the pipeline", zap.Error(err))
	}

	summary, err := coordinator.Run(ctx, postingID)
	if err != nil {
		logg.Fatal("running the batch", zap.Error(err))
	}

	for _, failure := range summary.Failures {
		logg.Warn("application was not evaluated",
			zap.String(logger.FieldApplication, failure.ApplicationID),
			zap.String("reason", failure.Reason),
		)
	}

	logg.Info("done",
		zap.Int("total", summary.Total),
		zap.Int("evaluated", summary.Evaluated),
		zap.Int("failed", len(summary.Failures)),
	)
}

func buildCoordinator(ctx context.Context, config *Config, db *store.Store, logg *zap.Logger) (*interview.Coordinator, error) {
	interviewer, err := newInterviewer(ctx, config.AI, logg)
	if err != nil {
		return nil, err
	}

	icfg := config.Interview
	if icfg == nil {
		icfg = &InterviewConfig{}
	}

	policy, err := newPolicy(icfg.Strategy, interviewer)
	if err != nil {
		return nil, err
	}

	driver := interview.NewDriver(interviewer, policy, icfg.AnswerTimeout, logg)
	questions := interview.NewQuestionProvider(interviewer, db, icfg.QuestionTimeout, logg)
	aggregator := interview.NewAggregator(interviewer, icfg.ScoringTimeout, logg)

	ingestor, err := newIngestor(config.KB, logg)
	if err != nil {
		return nil, err
	}

	return interview.NewCoordinator(db, questions, driver, aggregator, ingestor, icfg.Concurrency, logg), nil
}

func newPolicy(strategy string, judge interview.Judge) (interview.Policy, error) {
	switch strings.TrimSpace(strings.ToLower(strategy)) {
	case "", strategyHeuristic:
		return interview.NewHeuristicPolicy(), nil
	case strategyJudged:
		return interview.NewJudgedPolicy(judge), nil
	default:
		return nil, fmt.Errorf("unsupported interview strategy: %s", strategy)
	}
}

func newInterviewer(ctx context.Context, cfg *AIConfig, logg *zap.Logger) (*gemini.Interviewer, error) {
	generator, err := newGenerator(ctx, cfg, logg)
	if err != nil {
		return nil, err
	}

	genLogger := logger.WithFields(logg, logger.CommonFields("gemini", generator.Model())...)

	return gemini.NewInterviewer(generator, cfg.Gemini.MaxLogLength, genLogger), nil
}

func newGenerator(ctx context.Context, cfg *AIConfig, logg *zap.Logger) (ai.Generator, error) {
	if cfg == nil || cfg.Gemini == nil {
		return nil, errors.New("gemini configuration is required under ai.gemini")
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
		Env:  "GEMINI_API_KEY_FILE",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	genLogger := logger.WithFields(logg, logger.CommonFields("gemini", cfg.Gemini.Model)...)

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)
	if err != nil {
		return nil, err
	}

	return generator, nil
}

func newIngestor(cfg *KBConfig, logg *zap.Logger) (interview.Ingestor, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	if cfg.URL == "" || cfg.Queue == "" {
		return nil, errors.New("kb.url and kb.queue are required when kb is enabled")
	}

	publisher, err := kb.NewPublisher(cfg.URL, cfg.Queue, logg)
	if err != nil {
		return nil, fmt.Errorf("building kb publisher: %w", err)
	}

	return publisher, nil
}
