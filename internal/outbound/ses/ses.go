// Package ses delivers raw messages through the AWS SES v2 API.
package ses

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/teemow/inboxreply/internal/instrumentation"
	"github.com/teemow/inboxreply/internal/outbound"
)

// Config selects the region and, optionally, static credentials. Without
// static credentials the default AWS chain applies.
type Config struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	ConfigurationSetName string
}

// SendEmailAPI is the one SES v2 call the sender needs.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Sender is an outbound.Sender backed by SES.
type Sender struct {
	client    SendEmailAPI
	configSet string
}

var _ outbound.Sender = (*Sender)(nil)

func New(ctx context.Context, cfg Config) (*Sender, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &Sender{client: sesv2.NewFromConfig(awsCfg), configSet: cfg.ConfigurationSetName}, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client SendEmailAPI) *Sender {
	return &Sender{client: client}
}

func (s *Sender) Name() string { return instrumentation.TransportSES }

// Send hands raw to SES unchanged. The envelope recipients go in
// Destination so Bcc addresses, absent from the headers, still receive it.
func (s *Sender) Send(ctx context.Context, from string, rcpts []string, raw []byte) error {
	if len(rcpts) == 0 {
		return outbound.ErrNoRecipients
	}
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination:      &types.Destination{ToAddresses: rcpts},
		Content: &types.EmailContent{
			Raw: &types.RawMessage{Data: raw},
		},
	}
	if s.configSet != "" {
		input.ConfigurationSetName = aws.String(s.configSet)
	}
	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	return nil
}
