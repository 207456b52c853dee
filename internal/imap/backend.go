// Package imap is a mailbox backend for any IMAP4rev1/rev2 server. Outgoing
// mail leaves through an outbound.Sender.
package imap

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"slices"
	"strconv"
	"time"

	goimap "github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/teemow/inboxreply/internal/compose"
	"github.com/teemow/inboxreply/internal/instrumentation"
	"github.com/teemow/inboxreply/internal/logging"
	"github.com/teemow/inboxreply/internal/mail"
	"github.com/teemow/inboxreply/internal/mailbox"
	"github.com/teemow/inboxreply/internal/outbound"
)

// Security modes.
const (
	ModeTLS      = "tls"
	ModeStartTLS = "starttls"
	ModeNone     = "none"
)

const (
	DefaultDraftsMailbox = "Drafts"
	defaultDialTimeout   = 30 * time.Second
)

// ErrNoSender is returned by Send when no outbound transport is configured.
var ErrNoSender = errors.New("no outbound transport configured")

// Config describes the server and account.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	Mode     string

	// From is the From header and envelope sender of outgoing mail.
	From string

	DraftsMailbox string
	// SentMailbox, when set, receives a copy of every sent message.
	SentMailbox string

	// Debug logs the protocol exchange at debug level. Credentials and
	// literal payloads are redacted.
	Debug     bool
	TLSConfig *tls.Config
}

// Backend opens one authenticated connection per operation, so it is safe
// for concurrent use.
type Backend struct {
	cfg    Config
	sender outbound.Sender
	logger *slog.Logger
}

var _ mailbox.Backend = (*Backend)(nil)

// New validates cfg. sender may be nil, which disables Send.
func New(cfg Config, sender outbound.Sender, logger *slog.Logger) (*Backend, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("imap host is required")
	}
	if cfg.Username == "" {
		return nil, fmt.Errorf("imap username is required")
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeTLS
	}
	switch cfg.Mode {
	case ModeTLS, ModeStartTLS, ModeNone:
	default:
		return nil, fmt.Errorf("unknown imap security mode %q", cfg.Mode)
	}
	if cfg.Port == 0 {
		cfg.Port = 993
		if cfg.Mode != ModeTLS {
			cfg.Port = 143
		}
	}
	if cfg.DraftsMailbox == "" {
		cfg.DraftsMailbox = DefaultDraftsMailbox
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if _, err := compose.EnvelopeFrom(cfg.From); err != nil {
		return nil, fmt.Errorf("imap from address: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		cfg:    cfg,
		sender: sender,
		logger: logging.WithBackend(logger, instrumentation.BackendIMAP),
	}, nil
}

func (b *Backend) Name() string { return instrumentation.BackendIMAP }

func (b *Backend) addr() string {
	return net.JoinHostPort(b.cfg.Host, strconv.Itoa(b.cfg.Port))
}

func (b *Backend) dial() (*imapclient.Client, error) {
	opts := &imapclient.Options{
		TLSConfig: b.cfg.TLSConfig,
		Dialer:    &net.Dialer{Timeout: defaultDialTimeout},
	}
	if b.cfg.Debug {
		opts.DebugWriter = newWireRedactor(logging.NewLineWriter(b.logger))
	}
	switch b.cfg.Mode {
	case ModeStartTLS:
		return imapclient.DialStartTLS(b.addr(), opts)
	case ModeNone:
		return imapclient.DialInsecure(b.addr(), opts)
	default:
		return imapclient.DialTLS(b.addr(), opts)
	}
}

// session dials, logs in and, when folder is non-empty, selects it before
// running fn. Cancelling ctx closes the connection.
func (b *Backend) session(ctx context.Context, folder string, readOnly bool, fn func(c *imapclient.Client) error) error {
	c, err := b.dial()
	if err != nil {
		return fmt.Errorf("connect to %s: %w", b.addr(), err)
	}
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer func() {
		stop()
		if err := c.Logout().Wait(); err != nil {
			_ = c.Close()
		}
	}()

	if err := c.Login(b.cfg.Username, b.cfg.Password).Wait(); err != nil {
		return fmt.Errorf("login as %s: %w", b.cfg.Username, err)
	}
	if folder != "" {
		if _, err := c.Select(folder, &goimap.SelectOptions{ReadOnly: readOnly}).Wait(); err != nil {
			return fmt.Errorf("select %s: %w", folder, err)
		}
	}
	if err := fn(c); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

func (b *Backend) ListUnread(ctx context.Context, folder string, limit int) ([]string, error) {
	var refs []string
	err := b.session(ctx, folderOrDefault(folder), true, func(c *imapclient.Client) error {
		data, err := c.UIDSearch(unreadCriteria(), nil).Wait()
		if err != nil {
			return fmt.Errorf("search unread: %w", err)
		}
		refs = newestFirst(data.AllUIDs(), limit)
		return nil
	})
	if err != nil {
		return nil, err
	}
	b.logger.DebugContext(ctx, "listed unread", logging.Folder(folder), slog.Int("count", len(refs)))
	return refs, nil
}

// FetchMessage loads the full message with BODY.PEEK[] so the \Seen flag
// is left alone. The thread id of an IMAP message is its own UID.
func (b *Backend) FetchMessage(ctx context.Context, folder, ref string) (*mailbox.RawMessage, error) {
	uid, err := parseUID(ref)
	if err != nil {
		return nil, err
	}
	section := &goimap.FetchItemBodySection{Peek: true}

	var raw []byte
	err = b.session(ctx, folderOrDefault(folder), true, func(c *imapclient.Client) error {
		bufs, err := c.Fetch(goimap.UIDSetNum(uid), &goimap.FetchOptions{
			UID:         true,
			BodySection: []*goimap.FetchItemBodySection{section},
		}).Collect()
		if err != nil {
			return fmt.Errorf("fetch uid %d: %w", uid, err)
		}
		if len(bufs) == 0 {
			return fmt.Errorf("uid %d: %w", uid, mailbox.ErrNotFound)
		}
		raw = bufs[0].FindBodySection(section)
		return nil
	})
	if err != nil {
		return nil, err
	}

	msg := &mailbox.RawMessage{ID: ref, ThreadID: ref}
	headers, root, err := parseMessage(raw)
	msg.Headers = headers
	if err != nil {
		b.logger.WarnContext(ctx, "undecodable message body", logging.MessageID(ref), logging.Err(err))
	} else {
		msg.Root = root
	}
	return msg, nil
}

// ThreadHistory returns the message threadID names followed by every later
// message in the folder whose References header cites it, in UID order.
func (b *Backend) ThreadHistory(ctx context.Context, folder, threadID string) ([]mail.HeaderSet, error) {
	rootUID, err := parseUID(threadID)
	if err != nil {
		return nil, err
	}
	section := &goimap.FetchItemBodySection{Specifier: goimap.PartSpecifierHeader, Peek: true}
	fetchHeaders := func(c *imapclient.Client, uids []goimap.UID) (map[goimap.UID]mail.HeaderSet, error) {
		bufs, err := c.Fetch(goimap.UIDSetNum(uids...), &goimap.FetchOptions{
			UID:         true,
			BodySection: []*goimap.FetchItemBodySection{section},
		}).Collect()
		if err != nil {
			return nil, fmt.Errorf("fetch headers: %w", err)
		}
		out := make(map[goimap.UID]mail.HeaderSet, len(bufs))
		for _, buf := range bufs {
			h, err := parseHeaderBlock(buf.FindBodySection(section))
			if err != nil {
				return nil, fmt.Errorf("uid %d: %w", buf.UID, err)
			}
			out[buf.UID] = h
		}
		return out, nil
	}

	var history []mail.HeaderSet
	err = b.session(ctx, folderOrDefault(folder), true, func(c *imapclient.Client) error {
		roots, err := fetchHeaders(c, []goimap.UID{rootUID})
		if err != nil {
			return err
		}
		root, ok := roots[rootUID]
		if !ok {
			return fmt.Errorf("thread %s: %w", threadID, mailbox.ErrNotFound)
		}
		history = append(history, root)

		messageID := root.Get(mail.HeaderMessageID)
		if messageID == "" {
			return nil
		}
		data, err := c.UIDSearch(repliesCriteria(messageID), nil).Wait()
		if err != nil {
			return fmt.Errorf("search replies: %w", err)
		}
		replies := laterUIDs(data.AllUIDs(), rootUID)
		if len(replies) == 0 {
			return nil
		}
		found, err := fetchHeaders(c, replies)
		if err != nil {
			return err
		}
		for _, uid := range replies {
			if h, ok := found[uid]; ok {
				history = append(history, h)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return history, nil
}

// SaveDraft appends the message to the drafts mailbox flagged \Draft. The
// Bcc header is kept so the user's client can send it later.
func (b *Backend) SaveDraft(ctx context.Context, req mailbox.DraftRequest) (*mailbox.DraftResult, error) {
	raw, err := compose.Message(b.cfg.From, req.Message, compose.WithBccHeader())
	if err != nil {
		return nil, err
	}
	uid, err := b.appendMessage(ctx, b.cfg.DraftsMailbox, raw, goimap.FlagDraft, goimap.FlagSeen)
	if err != nil {
		return nil, err
	}
	result := &mailbox.DraftResult{ThreadID: req.Message.ThreadID}
	if uid != 0 {
		result.DraftID = formatUID(uid)
	}
	return result, nil
}

func (b *Backend) Send(ctx context.Context, msg mailbox.Outgoing) (*mailbox.SendResult, error) {
	if b.sender == nil {
		return nil, ErrNoSender
	}
	raw, err := compose.Message(b.cfg.From, msg)
	if err != nil {
		return nil, err
	}
	rcpts, err := compose.Envelope(msg)
	if err != nil {
		return nil, err
	}
	from, err := compose.EnvelopeFrom(b.cfg.From)
	if err != nil {
		return nil, err
	}
	if err := b.sender.Send(ctx, from, rcpts, raw); err != nil {
		return nil, fmt.Errorf("deliver via %s: %w", b.sender.Name(), err)
	}

	if b.cfg.SentMailbox != "" {
		if _, err := b.appendMessage(ctx, b.cfg.SentMailbox, raw, goimap.FlagSeen); err != nil {
			// The message is already out; only log.
			b.logger.WarnContext(ctx, "failed to file sent copy",
				logging.Folder(b.cfg.SentMailbox), logging.Err(err))
		}
	}
	return &mailbox.SendResult{MessageID: messageIDOf(raw), ThreadID: msg.ThreadID}, nil
}

func (b *Backend) appendMessage(ctx context.Context, mbox string, raw []byte, flags ...goimap.Flag) (goimap.UID, error) {
	var uid goimap.UID
	err := b.session(ctx, "", false, func(c *imapclient.Client) error {
		cmd := c.Append(mbox, int64(len(raw)), &goimap.AppendOptions{Flags: flags, Time: time.Now()})
		if _, err := cmd.Write(raw); err != nil {
			_ = cmd.Close()
			return fmt.Errorf("append to %s: %w", mbox, err)
		}
		if err := cmd.Close(); err != nil {
			return fmt.Errorf("append to %s: %w", mbox, err)
		}
		data, err := cmd.Wait()
		if err != nil {
			return fmt.Errorf("append to %s: %w", mbox, err)
		}
		uid = data.UID
		return nil
	})
	return uid, err
}

func folderOrDefault(folder string) string {
	if folder == "" {
		return mailbox.DefaultFolder
	}
	return folder
}

// laterUIDs returns the uids greater than root, ascending.
func laterUIDs(uids []goimap.UID, root goimap.UID) []goimap.UID {
	var out []goimap.UID
	for _, uid := range uids {
		if uid > root {
			out = append(out, uid)
		}
	}
	slices.Sort(out)
	return out
}
