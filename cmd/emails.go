package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/seedscout/seedscout-cli/internal/emails"
	"github.com/seedscout/seedscout-cli/pkg/mailverify"
)

var emailsLimit int

var emailsCmd = &cobra.Command{
	Use:   "emails",
	Short: "Discover founder emails for records with names but no address",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cfg.MailVerify.Key == "" {
			return eris.New("mailverify.key is required for email discovery")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		verifier := mailverify.NewClient(cfg.MailVerify.Key, mailverify.WithBaseURL(cfg.MailVerify.BaseURL))
		runner := emails.NewRunner(
			st,
			emails.NewDiscovery(verifier),
			time.Duration(cfg.Enrich.RecordDelayMillis)*time.Millisecond,
		)

		checked, found, err := runner.Run(ctx, emailsLimit)
		if err != nil {
			return err
		}
		fmt.Printf("checked %d records, found %d addresses\n", checked, found)
		return nil
	},
}

func init() {
	emailsCmd.Flags().IntVar(&emailsLimit, "limit", 50, "max records to process")
	rootCmd.AddCommand(emailsCmd)
}
