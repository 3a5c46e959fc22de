// Package chat generates one persona reply for a one-on-one conversation.
package chat

import (
	"context"
	"time"

	"github.com/baodaydungsone/chai/internal/codec"
	"github.com/baodaydungsone/chai/internal/credential"
	"github.com/baodaydungsone/chai/internal/llm"
	"github.com/baodaydungsone/chai/internal/prompt"
	"github.com/rs/zerolog"
)

// HistoryLimit is the number of prior messages sent as conversation turns.
const HistoryLimit = 20

type Request struct {
	Pool     credential.Pool
	Features llm.Features
	Persona  *llm.Persona
	History  []llm.Message
	Text     string
	Image    *llm.Image
	Policy   llm.ContentPolicy
	User     llm.UserProfile
	Emotion  *llm.Emotion
	Memories []string
	At       *time.Time
}

type Generator struct {
	exec     *credential.Executor
	codec    *codec.Codec
	location *time.Location
	log      zerolog.Logger
}

func NewGenerator(exec *credential.Executor, c *codec.Codec, loc *time.Location, log zerolog.Logger) *Generator {
	if c == nil {
		c = codec.Nop()
	}
	return &Generator{exec: exec, codec: c, location: loc, log: log.With().Str("component", "chat").Logger()}
}

// Generate produces the persona's reply to req.Text.
func (g *Generator) Generate(ctx context.Context, req Request) (*llm.Response, error) {
	if err := req.Persona.Validate(); err != nil {
		return nil, err
	}

	system := prompt.Compile(prompt.Input{
		Persona:  req.Persona,
		User:     req.User,
		Policy:   req.Policy,
		Features: req.Features,
		Memories: req.Memories,
		Emotion:  req.Emotion,
		At:       req.At,
		Location: g.location,
	})

	newTurn := g.userParts(req.Text, req.Image, req.Policy.Enabled)
	if len(newTurn) == 0 {
		return &llm.Response{}, nil
	}

	base := llm.Request{
		SystemInstruction: system,
		Contents:          g.window(req.History, req.Policy.Enabled),
		WebSearch:         req.Features.WebSearch,
	}

	g.log.Debug().Str("persona", req.Persona.Name).Int("turns", len(base.Contents)).Bool("web_search", base.WebSearch).Msg("generating reply")
	res, err := credential.Execute(ctx, g.exec, req.Pool, func(ctx context.Context, c llm.Client) (*llm.Response, error) {
		res, err := sessionPath(ctx, c, base, newTurn)
		if err == nil || llm.IsRetryable(err) {
			return res, err
		}
		g.log.Warn().Err(err).Str("persona", req.Persona.Name).Msg("chat session failed, retrying as a single request")
		return statelessPath(ctx, c, base, newTurn)
	})
	if err != nil {
		return nil, err
	}

	out := &llm.Response{Text: res.Text, Attributions: res.Attributions}
	if req.Policy.Enabled {
		out.Text = g.codec.Decode(out.Text)
	}
	if !req.Features.WebSearch {
		out.Attributions = nil
	}
	return out, nil
}

// sessionPath opens a chat seeded with the history and sends the new turn.
func sessionPath(ctx context.Context, c llm.Client, base llm.Request, parts []llm.Part) (*llm.Response, error) {
	session, err := c.StartChat(ctx, base)
	if err != nil {
		return nil, err
	}
	return session.Send(ctx, parts)
}

// statelessPath sends history and the new turn as one request.
func statelessPath(ctx context.Context, c llm.Client, base llm.Request, parts []llm.Part) (*llm.Response, error) {
	req := base
	req.Contents = append(append([]llm.Turn(nil), base.Contents...), llm.Turn{Role: llm.RoleUser, Parts: parts})
	return c.Generate(ctx, req)
}

func (g *Generator) window(history []llm.Message, encode bool) []llm.Turn {
	msgs := llm.Tail(history, HistoryLimit)
	turns := make([]llm.Turn, 0, len(msgs))
	for _, m := range msgs {
		turn := llm.Turn{Role: llm.RoleModel}
		if m.Sender == llm.SenderUser {
			turn = llm.Turn{Role: llm.RoleUser, Parts: g.userParts(m.Content, m.Image, encode)}
		} else if m.Content != "" {
			turn.Parts = []llm.Part{{Text: m.Content}}
		}
		// the provider rejects turns without parts
		if len(turn.Parts) > 0 {
			turns = append(turns, turn)
		}
	}
	return turns
}

func (g *Generator) userParts(text string, img *llm.Image, encode bool) []llm.Part {
	var parts []llm.Part
	if encode {
		text = g.codec.Encode(text)
	}
	if text != "" {
		parts = append(parts, llm.Part{Text: text})
	}
	if img != nil {
		parts = append(parts, llm.Part{Image: img})
	}
	return parts
}
