package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxreply/internal/mail"
	"github.com/teemow/inboxreply/internal/server"
)

const (
	AccountURI          = "mailbox://account"
	SenderPatternsURI   = "mailbox://classifier/patterns"
	jsonMIMEType        = "application/json"
	accountDescription  = "Mailbox served by this instance"
	patternsDescription = "Substrings that mark a sender as automated"
)

// AccountInfo is the body of the account resource.
type AccountInfo struct {
	Backend     string `json:"backend"`
	Address     string `json:"address,omitempty"`
	ReadOnly    bool   `json:"readOnly"`
	Description string `json:"description"`
}

// SenderPatterns is the body of the classifier patterns resource.
type SenderPatterns struct {
	Patterns    []string `json:"patterns"`
	Description string   `json:"description"`
}

// RegisterMailboxResources registers the account and classifier resources.
func RegisterMailboxResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	account := mcp.NewResource(
		AccountURI,
		"Mailbox Account",
		mcp.WithResourceDescription("The configured mail backend, the owner address and whether sending is enabled"),
		mcp.WithMIMEType(jsonMIMEType),
	)
	s.AddResource(account, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleAccount(ctx, request, sc)
	})

	patterns := mcp.NewResource(
		SenderPatternsURI,
		"Automated Sender Patterns",
		mcp.WithResourceDescription("Case-insensitive substrings of the From header that classify_senders flags as automated"),
		mcp.WithMIMEType(jsonMIMEType),
	)
	s.AddResource(patterns, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return jsonContents(request.Params.URI, SenderPatterns{
			Patterns:    mail.AutomatedSenderPatterns(),
			Description: patternsDescription,
		})
	})

	return nil
}

func handleAccount(_ context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	svc, err := sc.Mailbox()
	if err != nil {
		return nil, err
	}
	return jsonContents(request.Params.URI, AccountInfo{
		Backend:     svc.BackendName(),
		Address:     svc.SelfAddress(),
		ReadOnly:    sc.ReadOnly(),
		Description: accountDescription,
	})
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: jsonMIMEType,
			Text:     string(data),
		},
	}, nil
}
