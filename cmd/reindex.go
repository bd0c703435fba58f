package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/seedscout/seedscout-cli/internal/indexer"
	"github.com/seedscout/seedscout-cli/pkg/openai"
	"github.com/seedscout/seedscout-cli/pkg/pinecone"
)

var reindexLimit int

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Embed and upsert records missing a vector",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cfg.OpenAI.Key == "" || cfg.Pinecone.Key == "" || cfg.Pinecone.IndexHost == "" {
			return eris.New("openai.key, pinecone.key and pinecone.index_host are required for reindex")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		ix := indexer.New(
			st,
			openai.NewClient(cfg.OpenAI.Key, openai.WithModel(cfg.OpenAI.Model)),
			pinecone.NewClient(cfg.Pinecone.Key, cfg.Pinecone.IndexHost),
			cfg.Pinecone.Namespace,
		)

		indexed, err := ix.Reindex(ctx, reindexLimit)
		if err != nil {
			return err
		}
		fmt.Printf("indexed %d records\n", indexed)
		return nil
	},
}

func init() {
	reindexCmd.Flags().IntVar(&reindexLimit, "limit", 100, "max records to index")
	rootCmd.AddCommand(reindexCmd)
}
