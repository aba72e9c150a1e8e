package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/supportloop/supportloop/internal/config"
	"github.com/supportloop/supportloop/internal/llm"
	"github.com/supportloop/supportloop/internal/logging"
	"github.com/supportloop/supportloop/internal/pipeline"
	"github.com/supportloop/supportloop/internal/retry"
)

// RunCommand returns the run command, which executes the full batch:
// ingest, reconstruct, enrich, recommend, export.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run the full support pipeline over the message table",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "input",
				Aliases: []string{"i"},
				Usage:   "Message table CSV (overrides paths.input_csv)",
			},
			&cli.StringFlag{
				Name:  "store",
				Usage: "Conversation store JSON (overrides paths.store)",
			},
			&cli.StringFlag{
				Name:    "export",
				Aliases: []string{"e"},
				Usage:   "Recommendation export CSV (overrides paths.export_csv)",
			},
			&cli.BoolFlag{
				Name:  "evaluate",
				Usage: "Score this run's recommendations for usefulness",
			},
			&cli.BoolFlag{
				Name:  "no-llm",
				Usage: "Run without the collaborator, using deterministic defaults",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Action: runPipeline,
	}
}

func runPipeline(c *cli.Context) error {
	logging.Setup(c.Bool("verbose"))

	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	opts := optionsFromConfig(cfg, c)
	opts.Evaluate = cfg.Pipeline.Evaluate || c.Bool("evaluate")

	ctx := context.Background()

	if !c.Bool("no-llm") && cfg.AI.Gemini.APIKey != "" {
		client, err := buildClient(ctx, cfg)
		if err != nil {
			return err
		}
		opts.Client = client
	} else {
		log.Warn().Msg("no collaborator configured, running in degraded mode")
	}

	report, err := pipeline.Run(ctx, opts)
	if err != nil {
		return fmt.Errorf("pipeline run failed: %w", err)
	}

	fmt.Printf("Run %s complete: %d messages, %d new + %d extended conversations, %d tagged, %d recommendations\n",
		report.RunID, report.MessagesLoaded,
		report.Merge.NewConversations, report.Merge.ExtendedConversations,
		report.Tagged, report.Recommendations)
	return nil
}

func optionsFromConfig(cfg *config.Config, c *cli.Context) pipeline.Options {
	opts := pipeline.Options{
		InputCSV:  cfg.Paths.InputCSV,
		StorePath: cfg.Paths.Store,
		ExportCSV: cfg.Paths.ExportCSV,
		EvalJSON:  cfg.Paths.EvalJSON,
		RunLogDir: cfg.Paths.RunLogDir,
	}
	if v := c.String("input"); v != "" {
		opts.InputCSV = v
	}
	if v := c.String("store"); v != "" {
		opts.StorePath = v
	}
	if v := c.String("export"); v != "" {
		opts.ExportCSV = v
	}
	return opts
}

func buildClient(ctx context.Context, cfg *config.Config) (llm.Client, error) {
	gemini, err := llm.NewGemini(ctx, llm.GeminiConfig{
		APIKey:            cfg.AI.Gemini.APIKey,
		Model:             cfg.AI.Gemini.Model,
		Temperature:       cfg.AI.Gemini.Temperature,
		MaxTokens:         cfg.AI.Gemini.MaxTokens,
		RequestsPerMinute: cfg.AI.Gemini.RequestsPerMinute,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create collaborator client: %w", err)
	}

	retryCfg := retry.CollaboratorConfig()
	if cfg.Pipeline.MaxRetries > 0 {
		retryCfg.MaxRetries = cfg.Pipeline.MaxRetries
	}
	return llm.NewResilient(gemini, cfg.Pipeline.CallTimeout, retryCfg), nil
}
