package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the inboxreply application
var rootCmd = &cobra.Command{
	Use:   "inboxreply",
	Short: "Reads unread mail and drafts threaded replies",
	Long: `inboxreply reads unread mail from a Gmail or IMAP mailbox, drafts replies
that stay in the original thread, and flags automated senders.

It can run as:
  - An MCP (Model Context Protocol) server for AI assistants (default)
  - A small CLI for listing unread mail and classifying senders`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// configPath is the optional YAML config file shared by all commands.
var configPath string

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "inboxreply version %s\n" .Version}}`)

	// Without a subcommand, start the MCP server on stdio
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file. Environment variables override its values. Can also use INBOXREPLY_CONFIG env var.")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newUnreadCmd())
	rootCmd.AddCommand(newClassifyCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}

func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return os.Getenv("INBOXREPLY_CONFIG")
}
