// Package session keeps a multi-turn conversation with one vendor.
//
// A Session is a value. Send never changes its receiver: it returns the
// session that includes the new turn, so a failed turn leaves the caller with
// the transcript and token tallies it already had.
package session

import (
	"context"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"llm-bridge/internal/models"
	"llm-bridge/internal/request"
	"llm-bridge/internal/response"
	"llm-bridge/internal/tool"
)

// Config holds the request parameters applied to every turn. A zero Model or
// MaxTokens falls back to the request defaults.
type Config struct {
	Model        string
	MaxTokens    uint32
	Temperature  float64
	SystemPrompt string
	Tools        []tool.Tool
}

// Session is a transcript plus cumulative token usage.
type Session struct {
	id      string
	sender  request.Sender
	config  Config
	history []models.Message
	usage   models.Usage
}

// New starts an empty session.
func New(sender request.Sender, cfg Config) Session {
	cfg.Tools = slices.Clone(cfg.Tools)
	return Session{
		id:     uuid.NewString(),
		sender: sender,
		config: cfg,
	}
}

// Send appends text as a user turn, sends the whole transcript and records
// the reply. On error the returned session is the receiver, unchanged.
func (s Session) Send(ctx context.Context, text string) (Session, *response.Message, error) {
	history := slices.Clone(s.history)
	history = append(history, models.UserMessage(text))

	msg, err := s.newRequest(history).Send(ctx)
	if err != nil {
		slog.Debug("chat turn failed", "session", s.id, "turn", s.Turns()+1, "error", err)
		return s, nil, err
	}

	role := msg.Role()
	if role == "" {
		role = models.RoleAssistant
	}

	next := s
	next.history = append(history, models.Message{Role: role, Content: msg.FirstMessage()})
	next.usage = s.usage.Add(msg.Usage())

	slog.Debug("chat turn complete",
		"session", s.id,
		"turn", next.Turns(),
		"stop_reason", msg.StopReason(),
		"input_tokens", next.usage.InputTokens,
		"output_tokens", next.usage.OutputTokens,
	)
	return next, msg, nil
}

func (s Session) newRequest(history []models.Message) *request.Builder {
	b := request.New(s.sender).Temperature(s.config.Temperature)
	if s.config.Model != "" {
		b.Model(s.config.Model)
	}
	if s.config.MaxTokens > 0 {
		b.MaxTokens(s.config.MaxTokens)
	}
	if s.config.SystemPrompt != "" {
		b.SystemPrompt(s.config.SystemPrompt)
	}
	for _, t := range s.config.Tools {
		b.AddTool(t)
	}
	for _, m := range history {
		b.AddMessage(m)
	}
	return b
}

// Reset returns an empty session with the same sender and configuration.
func (s Session) Reset() Session {
	return New(s.sender, s.config)
}

func (s Session) ID() string { return s.id }

// History returns a copy of the transcript.
func (s Session) History() []models.Message { return slices.Clone(s.history) }

// Len is the number of messages in the transcript.
func (s Session) Len() int { return len(s.history) }

// Turns is the number of completed exchanges.
func (s Session) Turns() int { return len(s.history) / 2 }

func (s Session) InputTokens() int { return s.usage.InputTokens }
func (s Session) OutputTokens() int { return s.usage.OutputTokens }
func (s Session) Usage() models.Usage { return s.usage }

// Config returns the per-turn parameters.
func (s Session) Config() Config {
	cfg := s.config
	cfg.Tools = slices.Clone(cfg.Tools)
	return cfg
}
