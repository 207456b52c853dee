package cmd

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"
	"unicode"

	"github.com/spf13/cobra"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxreply/internal/server"
	"github.com/teemow/inboxreply/internal/tools/email_tools"
)

func newGenerateDocsCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate MCP tool documentation",
		Long: `Generate markdown documentation for all available MCP tools.
The tools are registered without a mailbox, so no credentials are needed.
Each tool is listed under the safety mode that first exposes it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			markdown, err := buildToolsMarkdown()
			if err != nil {
				return err
			}
			if outputFile == "" {
				fmt.Fprint(cmd.OutOrStdout(), markdown)
				return nil
			}
			if err := os.WriteFile(outputFile, []byte(markdown), 0o644); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Documentation written to: %s\n", outputFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

const (
	sectionReadOnly = "Read-Only Mode"
	sectionYolo     = "Requires --yolo"
)

// toolSection pairs a heading with the tools registered under it.
type toolSection struct {
	title string
	tools []mcp.Tool
}

// buildToolsMarkdown registers the tool set twice, once read-only and once
// with sending enabled, and documents each tool under the first mode that
// exposes it.
func buildToolsMarkdown() (string, error) {
	safe, err := registeredTools(true)
	if err != nil {
		return "", err
	}
	all, err := registeredTools(false)
	if err != nil {
		return "", err
	}
	return generateToolsMarkdown(splitByMode(safe, all)), nil
}

func registeredTools(readOnly bool) ([]mcp.Tool, error) {
	serverContext := server.NewServerContext(context.Background(), nil, server.WithReadOnly(readOnly))
	defer func() {
		_ = serverContext.Shutdown()
	}()

	mcpSrv := mcpserver.NewMCPServer("inboxreply", version,
		mcpserver.WithToolCapabilities(true),
	)
	if err := email_tools.RegisterEmailTools(mcpSrv, serverContext); err != nil {
		return nil, fmt.Errorf("failed to register email tools: %w", err)
	}

	tools := make([]mcp.Tool, 0)
	for _, serverTool := range mcpSrv.ListTools() {
		tools = append(tools, serverTool.Tool)
	}
	return tools, nil
}

// splitByMode puts every tool of all that safe lacks into the --yolo section.
func splitByMode(safe, all []mcp.Tool) []toolSection {
	available := make(map[string]bool, len(safe))
	for _, tool := range safe {
		available[tool.Name] = true
	}
	var gated []mcp.Tool
	for _, tool := range all {
		if !available[tool.Name] {
			gated = append(gated, tool)
		}
	}
	sections := []toolSection{{title: sectionReadOnly, tools: safe}, {title: sectionYolo, tools: gated}}
	for i := range sections {
		slices.SortFunc(sections[i].tools, func(a, b mcp.Tool) int { return strings.Compare(a.Name, b.Name) })
	}
	return sections
}

func generateToolsMarkdown(sections []toolSection) string {
	var sb strings.Builder

	sb.WriteString("# MCP Tools Reference\n\n")
	sb.WriteString("Tools exposed by `inboxreply serve`, generated from the registered tool definitions.\n\n")

	sb.WriteString("## Table of Contents\n\n")
	for _, section := range sections {
		fmt.Fprintf(&sb, "- [%s](#%s)\n", section.title, sectionAnchor(section.title))
	}
	sb.WriteString("\n")

	for _, section := range sections {
		fmt.Fprintf(&sb, "## %s\n\n", section.title)
		switch section.title {
		case sectionReadOnly:
			sb.WriteString("Registered on every server. Drafts are saved but never sent.\n\n")
		case sectionYolo:
			sb.WriteString("Registered only when the server runs with `--yolo`. These tools send mail.\n\n")
		}
		if len(section.tools) == 0 {
			sb.WriteString("None.\n\n")
		}
		for _, tool := range section.tools {
			sb.WriteString(generateToolMarkdown(tool, toolLabel(tool, section.title)))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// sectionAnchor mirrors GitHub heading anchors for the section titles used here.
func sectionAnchor(title string) string {
	anchor := strings.ToLower(strings.ReplaceAll(title, " ", "-"))
	return strings.Map(func(r rune) rune {
		if r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, anchor)
}

func toolLabel(tool mcp.Tool, section string) string {
	switch {
	case section == sectionYolo:
		return "write"
	case tool.Annotations.ReadOnlyHint != nil && *tool.Annotations.ReadOnlyHint:
		return "read-only"
	default:
		return "draft"
	}
}

func generateToolMarkdown(tool mcp.Tool, label string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "### %s\n\n*%s*\n\n", tool.Name, label)
	if tool.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", tool.Description)
	}

	props := tool.InputSchema.Properties
	if len(props) == 0 {
		return sb.String()
	}
	sb.WriteString("**Arguments:**\n")
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		prop, ok := props[name].(map[string]any)
		if !ok {
			continue
		}
		presence := "optional"
		if slices.Contains(tool.InputSchema.Required, name) {
			presence = "required"
		}
		fmt.Fprintf(&sb, "- `%s` (%s): %s\n", name, presence, propertyDescription(prop))
	}
	sb.WriteString("\n")
	return sb.String()
}

// propertyDescription falls back to the JSON schema type when a property has
// no description.
func propertyDescription(prop map[string]any) string {
	if desc, ok := prop["description"].(string); ok && desc != "" {
		return desc
	}
	kind, ok := prop["type"].(string)
	if !ok {
		kind = "any"
	}
	return kind + " parameter"
}
