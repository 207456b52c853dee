// Package config loads settings from an optional YAML file and the
// environment. Environment variables always win over file values.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	gomail "github.com/emersion/go-message/mail"
	"gopkg.in/yaml.v3"
)

// Backends.
const (
	BackendGmail = "gmail"
	BackendIMAP  = "imap"
)

// Outbound transports for the IMAP backend. TransportNone leaves the
// backend able to read and draft but not send.
const (
	TransportNone = ""
	TransportSMTP = "smtp"
	TransportSES  = "ses"
)

// Config is the complete application configuration.
type Config struct {
	Backend string `yaml:"backend"`
	// From is the address written on outgoing mail.
	From string `yaml:"from"`

	Google   GoogleConfig   `yaml:"google"`
	IMAP     IMAPConfig     `yaml:"imap"`
	Outbound OutboundConfig `yaml:"outbound"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type GoogleConfig struct {
	CredentialsPath string `yaml:"credentials_path"`
	TokenPath       string `yaml:"token_path"`
}

type IMAPConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	Username      string `yaml:"username"`
	Password      string `yaml:"password"`
	TLS           string `yaml:"tls"`
	DraftsMailbox string `yaml:"drafts_mailbox"`
	SentMailbox   string `yaml:"sent_mailbox"`
	// Debug logs the redacted IMAP protocol exchange at debug level.
	Debug bool `yaml:"debug"`
}

type OutboundConfig struct {
	Transport string     `yaml:"transport"`
	SMTP      SMTPConfig `yaml:"smtp"`
	SES       SESConfig  `yaml:"ses"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	TLS      string `yaml:"tls"`
}

type SESConfig struct {
	Region           string `yaml:"region"`
	AccessKeyID      string `yaml:"access_key_id"`
	SecretAccessKey  string `yaml:"secret_access_key"`
	ConfigurationSet string `yaml:"configuration_set"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load returns defaults overridden by the environment. A non-empty path
// adds the YAML file as the layer in between.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := defaults()
		cfg.applyEnv(os.LookupEnv)
		return cfg, nil
	}
	return LoadFromFile(path)
}

// LoadFromFile reads path as the base layer. A missing file is an error.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	cfg.applyEnv(os.LookupEnv)
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Backend: BackendGmail,
		Google: GoogleConfig{
			CredentialsPath: "credentials.json",
			TokenPath:       "token.json",
		},
		IMAP: IMAPConfig{
			TLS:           "tls",
			DraftsMailbox: "Drafts",
		},
		Outbound: OutboundConfig{
			SMTP: SMTPConfig{TLS: "starttls"},
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

type lookupFunc func(key string) (string, bool)

// applyEnv overrides fields from non-empty variables. Unparseable numbers
// and booleans are ignored.
func (c *Config) applyEnv(lookup lookupFunc) {
	strs := map[string]*string{
		"INBOXREPLY_BACKEND":      &c.Backend,
		"MAIL_FROM":               &c.From,
		"GOOGLE_CREDENTIALS_PATH": &c.Google.CredentialsPath,
		"GOOGLE_TOKEN_PATH":       &c.Google.TokenPath,
		"IMAP_HOST":               &c.IMAP.Host,
		"IMAP_USERNAME":           &c.IMAP.Username,
		"IMAP_PASSWORD":           &c.IMAP.Password,
		"IMAP_TLS":                &c.IMAP.TLS,
		"IMAP_DRAFTS_MAILBOX":     &c.IMAP.DraftsMailbox,
		"IMAP_SENT_MAILBOX":       &c.IMAP.SentMailbox,
		"OUTBOUND_TRANSPORT":      &c.Outbound.Transport,
		"SMTP_HOST":               &c.Outbound.SMTP.Host,
		"SMTP_USERNAME":           &c.Outbound.SMTP.Username,
		"SMTP_PASSWORD":           &c.Outbound.SMTP.Password,
		"SMTP_TLS":                &c.Outbound.SMTP.TLS,
		"SES_REGION":              &c.Outbound.SES.Region,
		"SES_ACCESS_KEY_ID":       &c.Outbound.SES.AccessKeyID,
		"SES_SECRET_ACCESS_KEY":   &c.Outbound.SES.SecretAccessKey,
		"SES_CONFIGURATION_SET":   &c.Outbound.SES.ConfigurationSet,
		"LOG_LEVEL":               &c.Logging.Level,
		"LOG_FORMAT":              &c.Logging.Format,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"IMAP_PORT": &c.IMAP.Port,
		"SMTP_PORT": &c.Outbound.SMTP.Port,
	}
	for key, dst := range ints {
		if v, ok := lookup(key); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	bools := map[string]*bool{
		"IMAP_DEBUG": &c.IMAP.Debug,
	}
	for key, dst := range bools {
		if v, ok := lookup(key); ok && v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	c.Backend = strings.ToLower(c.Backend)
	c.Outbound.Transport = strings.ToLower(c.Outbound.Transport)
	c.Logging.Level = strings.ToLower(c.Logging.Level)
}

// Validate checks that the selected backend has what it needs.
func (c *Config) Validate() error {
	var errs []error
	switch c.Backend {
	case BackendGmail:
		if c.Google.CredentialsPath == "" {
			errs = append(errs, errors.New("google.credentials_path is required for the gmail backend"))
		}
		if c.Google.TokenPath == "" {
			errs = append(errs, errors.New("google.token_path is required for the gmail backend"))
		}
	case BackendIMAP:
		if c.IMAP.Host == "" {
			errs = append(errs, errors.New("imap.host is required for the imap backend"))
		}
		if c.IMAP.Username == "" {
			errs = append(errs, errors.New("imap.username is required for the imap backend"))
		} else if _, err := gomail.ParseAddress(c.Sender()); err != nil {
			errs = append(errs, fmt.Errorf("from address %q is not an email address; set from (MAIL_FROM) when the imap username is not one", c.Sender()))
		}
		errs = append(errs, c.validateOutbound()...)
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendGmail, BackendIMAP))
	}
	if err := validPort("imap.port", c.IMAP.Port); err != nil {
		errs = append(errs, err)
	}
	if err := validPort("outbound.smtp.port", c.Outbound.SMTP.Port); err != nil {
		errs = append(errs, err)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}

func (c *Config) validateOutbound() []error {
	var errs []error
	switch c.Outbound.Transport {
	case TransportNone:
	case TransportSMTP:
		if c.Outbound.SMTP.Host == "" {
			errs = append(errs, errors.New("outbound.smtp.host is required for the smtp transport"))
		}
	case TransportSES:
		if (c.Outbound.SES.AccessKeyID == "") != (c.Outbound.SES.SecretAccessKey == "") {
			errs = append(errs, errors.New("outbound.ses access key id and secret must be set together"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown outbound transport %q", c.Outbound.Transport))
	}
	return errs
}

func validPort(name string, port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("%s %d out of range", name, port)
	}
	return nil
}

// Sender returns the From address, falling back to the IMAP username.
func (c *Config) Sender() string {
	if c.From != "" {
		return c.From
	}
	if c.Backend == BackendIMAP {
		return c.IMAP.Username
	}
	return ""
}
