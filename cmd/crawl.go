package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/seedscout/seedscout-cli/internal/crawler"
	"github.com/seedscout/seedscout-cli/internal/extract"
	"github.com/seedscout/seedscout-cli/internal/record"
	"github.com/seedscout/seedscout-cli/internal/schedule"
	"github.com/seedscout/seedscout-cli/internal/store"
	"github.com/seedscout/seedscout-cli/pkg/anthropic"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Run one gated crawl of the funding listing",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		renderer := crawler.NewChromedpRenderer(cfg.Crawler.UserAgent)
		defer renderer.Close()

		c, err := newCrawler(st, renderer)
		if err != nil {
			return err
		}

		report, err := c.Run(ctx)
		if err != nil {
			return err
		}
		return json.NewEncoder(os.Stdout).Encode(report)
	},
}

// newCrawler wires the crawl pipeline. Without an Anthropic key the
// extraction engine runs on the deterministic pattern library alone.
func newCrawler(st store.Store, renderer crawler.Renderer) (*crawler.Crawler, error) {
	var strategies []extract.Strategy
	if cfg.Anthropic.Key != "" {
		client := anthropic.NewClient(cfg.Anthropic.Key)
		strategies = append(strategies, extract.NewLLMExtractor(client, cfg.Anthropic.Models))
	}

	gate := schedule.New(
		time.Duration(cfg.Schedule.MinIntervalMins)*time.Minute,
		cfg.Schedule.ActiveHourStart,
		cfg.Schedule.ActiveHourEnd,
	)

	return crawler.New(
		st,
		renderer,
		extract.NewEngine(strategies...),
		record.NewMerger(st),
		gate,
		cfg.Crawler,
	)
}

func init() {
	rootCmd.AddCommand(crawlCmd)
}
