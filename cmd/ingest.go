package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/supportloop/supportloop/internal/config"
	"github.com/supportloop/supportloop/internal/logging"
	"github.com/supportloop/supportloop/internal/pipeline"
)

// IngestCommand returns the ingest command: reconstruct conversations from
// the message table and persist them without enrichment or recommendations.
func IngestCommand() *cli.Command {
	return &cli.Command{
		Name:  "ingest",
		Usage: "Reconstruct conversations from the message table without tagging them",
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
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Action: runIngest,
	}
}

func runIngest(c *cli.Context) error {
	logging.Setup(c.Bool("verbose"))

	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	opts := optionsFromConfig(cfg, c)
	report, err := pipeline.Ingest(opts)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	fmt.Printf("Ingested %d messages: %d new conversations, %d extended, %d already seen\n",
		report.MessagesLoaded, report.Merge.NewConversations,
		report.Merge.ExtendedConversations, report.Merge.PreviouslySeen)
	return nil
}
