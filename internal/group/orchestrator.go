// Package group produces an ordered multi-persona exchange from one model call.
package group

import (
	"context"
	"time"

	"github.com/baodaydungsone/chai/internal/codec"
	"github.com/baodaydungsone/chai/internal/credential"
	"github.com/baodaydungsone/chai/internal/llm"
	"github.com/baodaydungsone/chai/internal/prompt"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	historyLimit = 20
	// memoryLimit is the size of each member's private history snippet.
	memoryLimit = 6
)

// HistoryReader reads a persona's one-on-one history, oldest first.
type HistoryReader interface {
	RecentMessages(ctx context.Context, chatID string, limit int) ([]llm.Message, error)
}

type Request struct {
	Pool     credential.Pool
	Features llm.Features
	Group    *llm.Group
	Members  []*llm.Persona
	History  []llm.Message
	Text     string
	Image    *llm.Image
	Policy   llm.ContentPolicy
	User     llm.UserProfile
	At       *time.Time
}

var replySchema = &llm.Schema{
	Type: "array",
	Items: &llm.Schema{
		Type: "object",
		Properties: map[string]*llm.Schema{
			"characterId": {Type: "string"},
			"response":    {Type: "string"},
		},
		Required:         []string{"characterId", "response"},
		PropertyOrdering: []string{"characterId", "response"},
	},
}

type Orchestrator struct {
	exec     *credential.Executor
	codec    *codec.Codec
	history  HistoryReader
	location *time.Location
	log      zerolog.Logger
}

// NewOrchestrator builds an orchestrator. history may be nil, which disables
// group memory.
func NewOrchestrator(exec *credential.Executor, c *codec.Codec, history HistoryReader, loc *time.Location, log zerolog.Logger) *Orchestrator {
	if c == nil {
		c = codec.Nop()
	}
	return &Orchestrator{
		exec:     exec,
		codec:    c,
		history:  history,
		location: loc,
		log:      log.With().Str("component", "group").Logger(),
	}
}

// Generate runs one group turn. Replies keep the order the model produced.
func (o *Orchestrator) Generate(ctx context.Context, req Request) ([]llm.GroupReply, error) {
	if len(req.Members) == 0 {
		return nil, errors.Wrap(llm.ErrValidation, "group has no members to generate a response")
	}
	for _, m := range req.Members {
		if err := m.Validate(); err != nil {
			return nil, err
		}
	}

	system := prompt.Group(prompt.GroupInput{
		Members:  o.members(ctx, req),
		User:     req.User,
		Policy:   req.Policy,
		Features: req.Features,
		History:  llm.Tail(req.History, historyLimit),
		At:       req.At,
		Location: o.location,
	})

	text := req.Text
	if req.Policy.Enabled {
		text = o.codec.Encode(text)
	}
	parts := []llm.Part{{Text: text}}
	if req.Image != nil {
		parts = append(parts, llm.Part{Image: req.Image})
	}

	call := llm.Request{
		SystemInstruction: system,
		Contents:          []llm.Turn{{Role: llm.RoleUser, Parts: parts}},
		JSON:              true,
		Schema:            replySchema,
	}
	replies, err := credential.Execute(ctx, o.exec, req.Pool, func(ctx context.Context, c llm.Client) ([]llm.GroupReply, error) {
		res, err := c.Generate(ctx, call)
		if err != nil {
			return nil, err
		}
		replies, err := Parse(res.Text)
		if err != nil {
			o.log.Error().Err(err).Str("raw", res.Text).Msg("failed to parse group reply")
		}
		return replies, err
	})
	if err != nil {
		return nil, err
	}

	if req.Policy.Enabled {
		for i := range replies {
			replies[i].Response = o.codec.Decode(replies[i].Response)
		}
	}
	return replies, nil
}

// members pairs each persona with its private history snippet when group
// memory is on. Snippets that fail to load are skipped.
func (o *Orchestrator) members(ctx context.Context, req Request) []prompt.Member {
	out := make([]prompt.Member, len(req.Members))
	for i, p := range req.Members {
		out[i] = prompt.Member{Persona: p}
	}
	if !req.Features.GroupMemory || o.history == nil {
		return out
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, p := range req.Members {
		g.Go(func() error {
			msgs, err := o.history.RecentMessages(gctx, p.ID, memoryLimit)
			if err != nil {
				o.log.Warn().Err(err).Str("persona", p.Name).Msg("could not load private history for group memory")
				return nil
			}
			out[i].Memory = msgs
			return nil
		})
	}
	_ = g.Wait()
	return out
}
