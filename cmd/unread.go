package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxreply/internal/mailbox"
	"github.com/teemow/inboxreply/internal/tools/email_tools"
)

func newUnreadCmd() *cobra.Command {
	var (
		folder string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "unread",
		Short: "Print unread emails",
		Long: `Fetch the unread emails of the configured mailbox and print them in the
same format the get_unread_emails tool returns. Messages are not marked as read.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg, "", "", false)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			service, err := newMailboxService(ctx, cfg, logger, nil)
			if err != nil {
				return err
			}

			emails, err := service.FetchUnread(ctx, folder, limit)
			if err != nil {
				return fmt.Errorf("failed to fetch unread emails: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), email_tools.FormatEmails(emails))
			return nil
		},
	}

	cmd.Flags().StringVar(&folder, "folder", "", "Mailbox folder or Gmail label (default: INBOX)")
	cmd.Flags().IntVar(&limit, "limit", mailbox.DefaultLimit, fmt.Sprintf("Maximum number of emails to fetch (1-%d)", mailbox.MaxLimit))
	return cmd
}
