package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxreply/internal/mail"
	"github.com/teemow/inboxreply/internal/tools/email_tools"
)

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <address>...",
		Short: "Classify sender addresses as automated or personal",
		Long: `Match each From value against the automated sender patterns
(noreply, newsletter, notifications, ...) and print the verdict. No mailbox
access is needed.`,
		Example: `  inboxreply classify "GitHub <notifications@github.com>" alice@example.com`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results := make([]mail.Classification, len(args))
			for i, from := range args {
				results[i] = mail.Classify(from)
			}
			fmt.Fprintln(cmd.OutOrStdout(), email_tools.FormatClassifications(results))
			return nil
		},
	}
}
