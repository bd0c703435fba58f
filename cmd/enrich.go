package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/seedscout/seedscout-cli/internal/enrich"
	"github.com/seedscout/seedscout-cli/internal/record"
	"github.com/seedscout/seedscout-cli/pkg/anthropic"
)

var enrichLimit int

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Run one enrichment batch over records needing it",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cfg.Anthropic.Key == "" {
			return eris.New("anthropic.key is required for enrichment")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		client := anthropic.NewClient(cfg.Anthropic.Key)
		lookups := []enrich.Lookup{
			enrich.NewFounderLookup(client, cfg.Anthropic.Models),
			enrich.NewCompanyLookup(client, cfg.Anthropic.Models),
		}

		o := enrich.NewOrchestrator(
			st,
			record.NewMerger(st),
			lookups,
			time.Duration(cfg.Enrich.RecordDelayMillis)*time.Millisecond,
		)

		limit := enrichLimit
		if limit <= 0 {
			limit = cfg.Enrich.BatchSize
		}
		report, err := o.RunBatch(ctx, limit)
		if err != nil {
			return err
		}
		return json.NewEncoder(os.Stdout).Encode(report)
	},
}

func init() {
	enrichCmd.Flags().IntVar(&enrichLimit, "limit", 0, "batch size (default from config)")
	rootCmd.AddCommand(enrichCmd)
}
