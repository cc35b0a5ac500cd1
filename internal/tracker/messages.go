package tracker

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonathan/pathway-tracker/internal/messaging"
	"github.com/jonathan/pathway-tracker/internal/permissions"
	"github.com/jonathan/pathway-tracker/internal/types"
)

// MessageInput is a message a user sends to a member.
type MessageInput struct {
	Channel types.Channel `json:"channel" validate:"required"`
	Subject string        `json:"subject"`
	Content string        `json:"content" validate:"required"`
}

// DraftInput asks for an AI draft.
type DraftInput struct {
	Channel types.Channel `json:"channel" validate:"required"`
	Purpose string        `json:"purpose"`
}

// SendMessage delivers a message and records it in the member's log.
func (s *Service) SendMessage(ctx context.Context, p permissions.Principal, memberID string, in MessageInput) (*types.Member, error) {
	if err := permissions.Require(p, permissions.MessageSend); err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	m, err := s.memberInScope(ctx, p, memberID)
	if err != nil {
		return nil, err
	}

	updated, err := messaging.Send(ctx, s.sender, *m, messaging.Outgoing{
		Channel: in.Channel,
		Subject: in.Subject,
		Content: in.Content,
		SentBy:  p.UserID,
		Author:  s.authorName(ctx, p),
	}, s.now())
	switch {
	case errors.Is(err, messaging.ErrBadChannel):
		return nil, invalid("channel", "unknown channel %q", in.Channel)
	case errors.Is(err, messaging.ErrEmptyContent):
		return nil, invalid("content", "is required")
	case errors.Is(err, messaging.ErrNoRecipient):
		return nil, invalid("channel", "member has no %s address", in.Channel)
	case err != nil:
		return nil, err
	}

	if err := s.store.SaveMember(ctx, &updated); err != nil {
		return nil, fmt.Errorf("failed to save member: %w", err)
	}
	return &updated, nil
}

// DraftMessage proposes a message for the member with the language model.
func (s *Service) DraftMessage(ctx context.Context, p permissions.Principal, memberID string, in DraftInput) (*messaging.Draft, error) {
	if err := permissions.Require(p, permissions.MessageAIDraft); err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if !in.Channel.Valid() {
		return nil, invalid("channel", "unknown channel %q", in.Channel)
	}
	m, err := s.memberInScope(ctx, p, memberID)
	if err != nil {
		return nil, err
	}

	stageName := m.CurrentStageID
	if st, err := s.store.GetStage(ctx, m.CurrentStageID); err == nil && st != nil {
		stageName = st.Name
	}

	draft, err := s.drafter.Draft(ctx, messaging.DraftRequest{
		Member:    *m,
		StageName: stageName,
		Channel:   in.Channel,
		Purpose:   in.Purpose,
		Sender:    s.authorName(ctx, p),
	})
	if err != nil {
		s.metrics.DraftFailed()
		return nil, err
	}
	return draft, nil
}
