// Package messaging drafts and records communications with members.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/pathway-tracker/internal/llm"
	"github.com/jonathan/pathway-tracker/internal/prompts"
	"github.com/jonathan/pathway-tracker/internal/types"
)

const promptFile = "messaging.json"

// DraftRemediation is shown to users when AI drafting fails.
const DraftRemediation = "AI drafting is unavailable right now; please write the message manually."

// DraftError wraps any failure to produce an AI draft.
type DraftError struct {
	Message string
	Cause   error
}

func (e *DraftError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("draft failed: %s: %v", e.Message, e.Cause)
	}
	return "draft failed: " + e.Message
}

func (e *DraftError) Unwrap() error {
	return e.Cause
}

// UserMessage returns the text to show in place of a draft.
func (e *DraftError) UserMessage() string {
	return DraftRemediation
}

// DraftRequest describes the message to draft.
type DraftRequest struct {
	Member    types.Member
	StageName string
	Channel   types.Channel
	Purpose   string
	Sender    string
}

// Draft is a proposed message. Subject is empty for SMS.
type Draft struct {
	Channel types.Channel `json:"channel"`
	Subject string        `json:"subject,omitempty"`
	Body    string        `json:"body"`
}

// Drafter writes message drafts with a language model.
type Drafter struct {
	client llm.Client
}

// NewDrafter returns a Drafter. A nil client makes every draft fail with a DraftError.
func NewDrafter(client llm.Client) *Drafter {
	return &Drafter{client: client}
}

// Draft asks the model for a message to the member.
func (d *Drafter) Draft(ctx context.Context, req DraftRequest) (*Draft, error) {
	if d == nil || d.client == nil {
		return nil, &DraftError{Message: "no language model configured"}
	}
	if !req.Channel.Valid() {
		return nil, &DraftError{Message: fmt.Sprintf("unsupported channel %q", req.Channel)}
	}

	key, tier := "draft-email", llm.TierStandard
	if req.Channel == types.ChannelSMS {
		key, tier = "draft-sms", llm.TierLite
	}
	template, err := prompts.Get(promptFile, key)
	if err != nil {
		return nil, &DraftError{Message: "prompt unavailable", Cause: err}
	}

	prompt := prompts.Format(template, promptData(req))
	raw, err := d.client.GenerateJSON(ctx, prompt, tier)
	if err != nil {
		return nil, &DraftError{Message: "model request failed", Cause: err}
	}

	var out Draft
	if err := json.Unmarshal([]byte(llm.CleanJSONBlock(raw)), &out); err != nil {
		return nil, &DraftError{Message: "model returned malformed output", Cause: err}
	}
	out.Body = strings.TrimSpace(out.Body)
	if out.Body == "" {
		return nil, &DraftError{Message: "model returned an empty message"}
	}
	out.Channel = req.Channel
	if req.Channel == types.ChannelSMS {
		out.Subject = ""
	}
	return &out, nil
}

func promptData(req DraftRequest) map[string]string {
	purpose := strings.TrimSpace(req.Purpose)
	if purpose == "" {
		purpose = "a friendly check-in"
	}
	sender := strings.TrimSpace(req.Sender)
	if sender == "" {
		sender = "the connection team"
	}
	source := req.Member.Source
	if source == "" {
		source = "a Sunday service"
	}
	stage := req.StageName
	if stage == "" {
		stage = "first"
	}
	return map[string]string{
		"FirstName": req.Member.FirstName,
		"LastName":  req.Member.LastName,
		"Pathway":   req.Member.Pathway.Label(),
		"Stage":     stage,
		"Source":    source,
		"Purpose":   purpose,
		"Sender":    sender,
	}
}
