// Package conversation runs one-on-one chat turns: memory extraction, the
// persona reply and the emotion update.
package conversation

import (
	"context"
	"strings"
	"time"

	"github.com/baodaydungsone/chai/internal/chat"
	"github.com/baodaydungsone/chai/internal/credential"
	"github.com/baodaydungsone/chai/internal/emotion"
	"github.com/baodaydungsone/chai/internal/llm"
	"github.com/baodaydungsone/chai/internal/memory"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Pipeline bundles the passes shared by every conversation.
type Pipeline struct {
	Memory  *memory.Extractor
	Chat    *chat.Generator
	Emotion *emotion.Classifier
	Log     zerolog.Logger
}

// Settings are the per-turn knobs read from user settings.
type Settings struct {
	Pool     credential.Pool
	Features llm.Features
	Policy   llm.ContentPolicy
	User     llm.UserProfile
}

type Conversation struct {
	ChatID         string
	Persona        *llm.Persona
	History        []llm.Message
	Memories       []string
	CurrentEmotion *llm.Emotion
	pipeline       *Pipeline
}

// Turn is the outcome of one user message.
type Turn struct {
	User     llm.Message
	Reply    llm.Message
	Memories []string
	Emotion  *llm.Emotion
}

func New(chatID string, persona *llm.Persona, history []llm.Message, pipeline *Pipeline) (*Conversation, error) {
	if chatID == "" {
		return nil, errors.Wrap(llm.ErrValidation, "no chat id provided")
	}
	if err := persona.Validate(); err != nil {
		return nil, err
	}
	if pipeline == nil || pipeline.Chat == nil {
		return nil, errors.Wrap(llm.ErrConfiguration, "no pipeline provided")
	}

	return &Conversation{
		ChatID:   chatID,
		Persona:  persona,
		History:  history,
		Memories: []string{},
		pipeline: pipeline,
	}, nil
}

// State is the mutable part of a conversation.
type State struct {
	History        []llm.Message
	Memories       []string
	CurrentEmotion *llm.Emotion
}

// Snapshot copies the conversation state so a failed turn can be undone.
func (c *Conversation) Snapshot() State {
	return State{
		History:        append([]llm.Message(nil), c.History...),
		Memories:       c.Memories,
		CurrentEmotion: c.CurrentEmotion,
	}
}

func (c *Conversation) Restore(s State) {
	c.History, c.Memories, c.CurrentEmotion = s.History, s.Memories, s.CurrentEmotion
}

// ProcessUserMessage runs one turn and appends both messages to History.
// Callers serialise turns for the same chat.
func (c *Conversation) ProcessUserMessage(ctx context.Context, s Settings, text string, img *llm.Image, at time.Time) (*Turn, error) {
	if strings.TrimSpace(text) == "" && img == nil {
		return nil, errors.Wrap(llm.ErrValidation, "message has no text and no image")
	}

	userMsg := llm.Message{
		ChatID:    c.ChatID,
		Sender:    llm.SenderUser,
		Content:   text,
		Image:     img,
		Timestamp: at,
	}

	if c.pipeline.Memory != nil {
		c.Memories = c.pipeline.Memory.Extract(ctx, s.Pool, s.Features, c.Persona, s.User, c.History, userMsg)
	}

	res, err := c.pipeline.Chat.Generate(ctx, chat.Request{
		Pool:     s.Pool,
		Features: s.Features,
		Persona:  c.Persona,
		History:  c.History,
		Text:     text,
		Image:    img,
		Policy:   s.Policy,
		User:     s.User,
		Emotion:  c.CurrentEmotion,
		Memories: c.Memories,
		At:       &at,
	})
	if err != nil {
		return nil, err
	}

	reply := llm.Message{
		ChatID:       c.ChatID,
		Sender:       llm.SenderModel,
		PersonaID:    c.Persona.ID,
		Content:      res.Text,
		Timestamp:    at,
		Attributions: res.Attributions,
	}
	c.History = append(c.History, userMsg, reply)

	if c.pipeline.Emotion != nil {
		if e := c.pipeline.Emotion.Classify(ctx, s.Pool, s.Features, c.Persona, s.User, c.History); e != nil {
			c.CurrentEmotion = e
		}
	}

	c.pipeline.Log.Debug().
		Str("chat", c.ChatID).
		Int("memories", len(c.Memories)).
		Interface("emotion", c.CurrentEmotion).
		Msg("turn processed")

	return &Turn{User: userMsg, Reply: reply, Memories: c.Memories, Emotion: c.CurrentEmotion}, nil
}
