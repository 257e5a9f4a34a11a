// Package notify e-mails reviewers when a review task is assigned to them.
package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	mail "github.com/go-mail/mail/v2"
	"github.com/goliatone/go-reviewers/pkg/types"
	"github.com/google/uuid"
)

const defaultSMTPPort = 587

var (
	// ErrMissingSender indicates no SMTP sender was configured.
	ErrMissingSender = errors.New("go-reviewers: notifier requires a sender")
	// ErrMissingRecipients indicates no recipient resolver was configured.
	ErrMissingRecipients = errors.New("go-reviewers: notifier requires a recipient resolver")
	// ErrMissingFrom indicates the From address is empty.
	ErrMissingFrom = errors.New("go-reviewers: notifier requires a from address")
)

// Sender delivers composed messages. *mail.Dialer satisfies it.
type Sender interface {
	DialAndSend(messages ...*mail.Message) error
}

// RecipientResolver maps a reviewer to a mailbox. An empty address skips the
// notification.
type RecipientResolver interface {
	EmailOf(ctx context.Context, userID uuid.UUID) (string, error)
}

// RecipientFunc adapts a function to RecipientResolver.
type RecipientFunc func(ctx context.Context, userID uuid.UUID) (string, error)

// EmailOf implements RecipientResolver.
func (fn RecipientFunc) EmailOf(ctx context.Context, userID uuid.UUID) (string, error) {
	return fn(ctx, userID)
}

// SMTPConfig describes the outgoing mail server.
type SMTPConfig struct {
	Host          string
	Port          int
	Username      string
	Password      string
	SkipTLSVerify bool
}

// NewDialer builds a STARTTLS dialer for the server.
func NewDialer(cfg SMTPConfig) *mail.Dialer {
	port := cfg.Port
	if port == 0 {
		port = defaultSMTPPort
	}
	d := mail.NewDialer(cfg.Host, port, cfg.Username, cfg.Password)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{
		ServerName:         cfg.Host,
		InsecureSkipVerify: cfg.SkipTLSVerify,
	}
	return d
}

// Config wires the notifier.
type Config struct {
	From       string
	Sender     Sender
	Recipients RecipientResolver
	// BaseURL, when set, is used to link the task in the message body.
	BaseURL string
	Logger  types.Logger
}

// Notifier sends one message per newly created assignment.
type Notifier struct {
	from       string
	sender     Sender
	recipients RecipientResolver
	baseURL    string
	logger     types.Logger
}

// New constructs a Notifier.
func New(cfg Config) (*Notifier, error) {
	switch {
	case cfg.Sender == nil:
		return nil, ErrMissingSender
	case cfg.Recipients == nil:
		return nil, ErrMissingRecipients
	case strings.TrimSpace(cfg.From) == "":
		return nil, ErrMissingFrom
	}
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &Notifier{
		from:       strings.TrimSpace(cfg.From),
		sender:     cfg.Sender,
		recipients: cfg.Recipients,
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		logger:     logger,
	}, nil
}

// Notify mails the reviewer if the change is a new assignment. Transitions
// are ignored.
func (n *Notifier) Notify(ctx context.Context, change types.AssignmentChange) error {
	if !isCreation(change) {
		return nil
	}
	to, err := n.recipients.EmailOf(ctx, change.Assignment.ReviewerID)
	if err != nil {
		return fmt.Errorf("resolve reviewer %s: %w", change.Assignment.ReviewerID, err)
	}
	to = strings.TrimSpace(to)
	if to == "" {
		n.logger.Debug("review notification skipped", "reviewer_id", change.Assignment.ReviewerID)
		return nil
	}
	if err := n.sender.DialAndSend(n.message(to, change.Assignment)); err != nil {
		return fmt.Errorf("send assignment notification: %w", err)
	}
	n.logger.Info("review notification sent", "assignment_id", change.Assignment.ID, "reviewer_id", change.Assignment.ReviewerID)
	return nil
}

// Hook returns an AfterAssignmentChange callback. Delivery failures are
// logged and never reach the assignment workflow.
func (n *Notifier) Hook() func(context.Context, types.AssignmentChange) {
	return func(ctx context.Context, change types.AssignmentChange) {
		if err := n.Notify(ctx, change); err != nil {
			n.logger.Error("review notification failed", err, "assignment_id", change.Assignment.ID)
		}
	}
}

// Attach chains the notifier after any AfterAssignmentChange already set on
// hooks.
func (n *Notifier) Attach(hooks types.Hooks) types.Hooks {
	previous := hooks.AfterAssignmentChange
	notify := n.Hook()
	hooks.AfterAssignmentChange = func(ctx context.Context, change types.AssignmentChange) {
		if previous != nil {
			previous(ctx, change)
		}
		notify(ctx, change)
	}
	return hooks
}

func (n *Notifier) message(to string, assignment types.Assignment) *mail.Message {
	m := mail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", fmt.Sprintf("Review assigned: %s task %s", assignment.ReviewType, shortID(assignment.ReviewTaskID)))
	m.SetBody("text/plain", n.body(assignment))
	return m
}

func (n *Notifier) body(assignment types.Assignment) string {
	var b strings.Builder
	b.WriteString("A review task has been assigned to you.\n\n")
	fmt.Fprintf(&b, "Task: %s\n", assignment.ReviewTaskID)
	fmt.Fprintf(&b, "Review type: %s\n", assignment.ReviewType)
	if assignment.AutoAssigned {
		b.WriteString("Assigned by: system\n")
	}
	if assignment.ExpectedCompletionTime != nil {
		fmt.Fprintf(&b, "Expected completion: %s\n", assignment.ExpectedCompletionTime.UTC().Format(time.RFC1123))
	}
	if assignment.AssignmentReason != "" {
		fmt.Fprintf(&b, "Reason: %s\n", assignment.AssignmentReason)
	}
	if n.baseURL != "" {
		fmt.Fprintf(&b, "\n%s/reviews/assignments/%s\n", n.baseURL, assignment.ID)
	}
	return b.String()
}

func isCreation(change types.AssignmentChange) bool {
	return change.Event.FromStatus == "" && change.Assignment.Status == types.AssignmentStatusActive
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
