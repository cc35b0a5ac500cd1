package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/pathway-tracker/internal/types"
	"go.uber.org/zap"
)

// Validation failures for outgoing messages.
var (
	ErrEmptyContent = errors.New("message content is required")
	ErrNoRecipient  = errors.New("member has no address for this channel")
	ErrBadChannel   = errors.New("unsupported channel")
)

// Sender delivers a message to a member.
type Sender interface {
	Send(ctx context.Context, to types.Member, msg types.MessageLog) error
}

// LogSender logs messages instead of delivering them.
type LogSender struct {
	Logger *zap.Logger
	Delay  time.Duration
}

// Send waits for Delay (or ctx) and logs the message.
func (s *LogSender) Send(ctx context.Context, to types.Member, msg types.MessageLog) error {
	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	if s.Logger != nil {
		s.Logger.Info("message sent",
			zap.String("member_id", to.ID),
			zap.String("channel", string(msg.Channel)),
			zap.String("recipient", Recipient(to, msg.Channel)),
			zap.String("subject", msg.Subject),
			zap.Int("length", len(msg.Content)),
		)
	}
	return nil
}

// Outgoing is a message a user asked to send.
type Outgoing struct {
	Channel types.Channel
	Subject string
	Content string
	SentBy  string
	Author  string
}

// Recipient returns the member's address on the channel.
func Recipient(m types.Member, ch types.Channel) string {
	if ch == types.ChannelSMS {
		return strings.TrimSpace(m.Phone)
	}
	return strings.TrimSpace(m.Email)
}

// Send delivers the message and returns the member with the message logged
// and a MESSAGE note appended. The input member is not modified.
func Send(ctx context.Context, sender Sender, m types.Member, out Outgoing, now time.Time) (types.Member, error) {
	if !out.Channel.Valid() {
		return m, fmt.Errorf("%w: %q", ErrBadChannel, out.Channel)
	}
	if strings.TrimSpace(out.Content) == "" {
		return m, ErrEmptyContent
	}
	to := Recipient(m, out.Channel)
	if to == "" {
		return m, fmt.Errorf("%w: %s", ErrNoRecipient, out.Channel)
	}

	entry := types.MessageLog{
		ID:        uuid.NewString(),
		Channel:   out.Channel,
		Direction: types.DirectionOutbound,
		Subject:   strings.TrimSpace(out.Subject),
		Content:   out.Content,
		Timestamp: now,
		SentByID:  out.SentBy,
	}
	if out.Channel == types.ChannelSMS {
		entry.Subject = ""
	}
	if err := sender.Send(ctx, m, entry); err != nil {
		return m, fmt.Errorf("failed to send %s to %s: %w", out.Channel, to, err)
	}

	updated := m.Clone()
	updated.MessageLog = append(updated.MessageLog, entry)
	author := out.Author
	if author == "" {
		author = types.SystemAuthor
	}
	text := fmt.Sprintf("Sent SMS to %s", to)
	if out.Channel == types.ChannelEmail {
		text = fmt.Sprintf("Sent email to %s", to)
		if entry.Subject != "" {
			text += fmt.Sprintf(": %q", entry.Subject)
		}
	}
	updated.AppendNote(types.NewNote(types.NoteMessage, author, text, now))
	return updated, nil
}
