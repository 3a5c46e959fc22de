// Package engine wires the generation passes to persistence. It is the
// entry point used by the HTTP server and the CLI.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/baodaydungsone/chai/internal/character"
	"github.com/baodaydungsone/chai/internal/chat"
	"github.com/baodaydungsone/chai/internal/codec"
	"github.com/baodaydungsone/chai/internal/config"
	"github.com/baodaydungsone/chai/internal/conversation"
	"github.com/baodaydungsone/chai/internal/credential"
	"github.com/baodaydungsone/chai/internal/emotion"
	"github.com/baodaydungsone/chai/internal/group"
	"github.com/baodaydungsone/chai/internal/llm"
	"github.com/baodaydungsone/chai/internal/memory"
	"github.com/baodaydungsone/chai/internal/store"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

type Engine struct {
	cfg       *config.Config
	store     store.Store
	factory   llm.ClientFactory
	pipeline  *conversation.Pipeline
	group     *group.Orchestrator
	assistant *character.Assistant
	log       zerolog.Logger
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
	epoch    uint64
	loads    singleflight.Group
}

// session is a live conversation plus the lock serialising its turns.
type session struct {
	mu      sync.Mutex
	conv    *conversation.Conversation
	dropped bool
}

func New(cfg *config.Config, st store.Store, factory llm.ClientFactory, log zerolog.Logger) (*Engine, error) {
	c := codec.Nop()
	if cfg.CodecPath != "" {
		var err error
		if c, err = codec.Load(cfg.CodecPath); err != nil {
			return nil, errors.Wrap(llm.ErrConfiguration, err.Error())
		}
		log.Info().Int("entries", c.Len()).Msg("codec dictionary loaded")
	} else if cfg.Policy().Enabled {
		log.Warn().Msg("content policy enabled without a codec dictionary; set CHAI_CODEC_PATH to encode terms")
	}

	exec := credential.NewExecutor(factory, log)
	loc := cfg.Location()
	return &Engine{
		cfg:     cfg,
		store:   st,
		factory: factory,
		pipeline: &conversation.Pipeline{
			Memory:  memory.NewExtractor(exec, log),
			Chat:    chat.NewGenerator(exec, c, loc, log),
			Emotion: emotion.NewClassifier(exec, log),
			Log:     log.With().Str("component", "conversation").Logger(),
		},
		group:     group.NewOrchestrator(exec, c, st, loc, log),
		assistant: character.NewAssistant(exec, log),
		log:       log.With().Str("component", "engine").Logger(),
		now:       time.Now,
		sessions:  make(map[string]*session),
	}, nil
}

// Settings returns the process-wide defaults for a turn.
func (e *Engine) Settings() conversation.Settings {
	return conversation.Settings{
		Pool:     e.cfg.Pool(),
		Features: e.cfg.Features(),
		Policy:   e.cfg.Policy(),
		User:     e.cfg.User(),
	}
}

func (e *Engine) Store() store.Store { return e.store }

func (e *Engine) Assistant() *character.Assistant { return e.assistant }

// ValidateKey probes key with a trivial request.
func (e *Engine) ValidateKey(ctx context.Context, key string) bool {
	return credential.ValidateKey(ctx, e.factory, key, e.log)
}

// session returns the cached conversation for a persona, loading its
// history on first use. Loads run outside e.mu and are shared between
// concurrent callers. A load that races with Forget is discarded.
func (e *Engine) session(ctx context.Context, personaID string) (*session, error) {
	for {
		e.mu.Lock()
		if s, ok := e.sessions[personaID]; ok {
			e.mu.Unlock()
			return s, nil
		}
		epoch := e.epoch
		e.mu.Unlock()

		v, err, _ := e.loads.Do(personaID, func() (any, error) {
			return e.load(ctx, personaID)
		})
		if err != nil {
			return nil, err
		}

		e.mu.Lock()
		if e.epoch != epoch {
			e.mu.Unlock()
			continue
		}
		s, ok := e.sessions[personaID]
		if !ok {
			s = &session{conv: v.(*conversation.Conversation)}
			e.sessions[personaID] = s
		}
		e.mu.Unlock()
		return s, nil
	}
}

// load reads a persona and its recent history. A chat with no history
// starts with the greeting.
func (e *Engine) load(ctx context.Context, personaID string) (*conversation.Conversation, error) {
	persona, err := e.store.GetPersona(ctx, personaID)
	if err != nil {
		return nil, err
	}
	history, err := e.store.RecentMessages(ctx, personaID, chat.HistoryLimit)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 && persona.Greeting != "" {
		history, err = e.store.AppendMessages(ctx, llm.Message{
			ChatID:    personaID,
			Sender:    llm.SenderModel,
			PersonaID: personaID,
			Content:   persona.Greeting,
			Timestamp: e.now(),
		})
		if err != nil {
			return nil, err
		}
	}
	return conversation.New(personaID, persona, history, e.pipeline)
}

// acquire returns the live session for a persona with its lock held.
func (e *Engine) acquire(ctx context.Context, personaID string) (*session, error) {
	for {
		s, err := e.session(ctx, personaID)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		if !s.dropped {
			return s, nil
		}
		s.mu.Unlock()
	}
}

// Forget drops the cached conversation so the next turn reloads it. It waits
// for a turn in flight on that conversation to finish.
func (e *Engine) Forget(personaID string) {
	e.mu.Lock()
	s, ok := e.sessions[personaID]
	e.mu.Unlock()
	if ok {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.dropped = true
	}

	e.mu.Lock()
	delete(e.sessions, personaID)
	e.loads.Forget(personaID)
	e.epoch++
	e.mu.Unlock()
}

// History returns the chat with a persona, starting it if needed.
func (e *Engine) History(ctx context.Context, personaID string) ([]llm.Message, error) {
	s, err := e.acquire(ctx, personaID)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return append([]llm.Message(nil), s.conv.History...), nil
}

// Send runs one one-on-one turn and persists both messages. The cached
// conversation is left untouched when the turn or its persistence fails.
func (e *Engine) Send(ctx context.Context, settings conversation.Settings, personaID, text string, img *llm.Image) (*conversation.Turn, error) {
	s, err := e.acquire(ctx, personaID)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	snap := s.conv.Snapshot()
	turn, err := s.conv.ProcessUserMessage(ctx, settings, text, img, e.now())
	if err != nil {
		s.conv.Restore(snap)
		return nil, err
	}
	stored, err := e.store.AppendMessages(ctx, turn.User, turn.Reply)
	if err != nil {
		s.conv.Restore(snap)
		return nil, err
	}
	turn.User, turn.Reply = stored[0], stored[1]
	n := len(s.conv.History)
	s.conv.History[n-2], s.conv.History[n-1] = stored[0], stored[1]
	s.conv.History = llm.Tail(s.conv.History, chat.HistoryLimit)
	return turn, nil
}

// SendGroup runs one group turn and persists the user message followed by
// every reply from a known member. Replies naming an unknown character are
// dropped.
func (e *Engine) SendGroup(ctx context.Context, settings conversation.Settings, groupID, text string, img *llm.Image) ([]llm.Message, error) {
	g, err := e.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	members := make([]*llm.Persona, 0, len(g.MemberIDs))
	for _, id := range g.MemberIDs {
		p, err := e.store.GetPersona(ctx, id)
		if err != nil {
			e.log.Warn().Err(err).Str("group", groupID).Str("persona", id).Msg("skipping missing group member")
			continue
		}
		members = append(members, p)
	}
	history, err := e.store.RecentMessages(ctx, groupID, chat.HistoryLimit)
	if err != nil {
		return nil, err
	}

	at := e.now()
	replies, err := e.group.Generate(ctx, group.Request{
		Pool:     settings.Pool,
		Features: settings.Features,
		Group:    g,
		Members:  members,
		History:  history,
		Text:     text,
		Image:    img,
		Policy:   settings.Policy,
		User:     settings.User,
		At:       &at,
	})
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(members))
	for _, m := range members {
		known[m.ID] = true
	}
	msgs := []llm.Message{{ChatID: groupID, Sender: llm.SenderUser, Content: text, Image: img, Timestamp: at}}
	for _, r := range replies {
		if !known[r.CharacterID] {
			e.log.Warn().Str("group", groupID).Str("character", r.CharacterID).Msg("dropping reply from unknown character")
			continue
		}
		msgs = append(msgs, llm.Message{
			ChatID:    groupID,
			Sender:    llm.SenderModel,
			PersonaID: r.CharacterID,
			Content:   r.Response,
			Timestamp: at,
		})
	}
	return e.store.AppendMessages(ctx, msgs...)
}

// SuggestReply proposes the user's next message in a one-on-one chat.
func (e *Engine) SuggestReply(ctx context.Context, settings conversation.Settings, personaID string) (string, error) {
	history, err := e.History(ctx, personaID)
	if err != nil {
		return "", err
	}
	persona, err := e.store.GetPersona(ctx, personaID)
	if err != nil {
		return "", err
	}
	return e.assistant.SuggestReply(ctx, settings.Pool, settings.Features, persona, history, settings.User)
}

// Nudge writes and persists a proactive check-in from the persona.
func (e *Engine) Nudge(ctx context.Context, settings conversation.Settings, personaID string) (*llm.Message, error) {
	s, err := e.acquire(ctx, personaID)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	text, err := e.assistant.ProactiveMessage(ctx, settings.Pool, s.conv.Persona, settings.User, s.conv.History)
	if err != nil {
		return nil, err
	}
	stored, err := e.store.AppendMessages(ctx, llm.Message{
		ChatID:    personaID,
		Sender:    llm.SenderModel,
		PersonaID: personaID,
		Content:   text,
		Timestamp: e.now(),
	})
	if err != nil {
		return nil, err
	}
	s.conv.History = append(s.conv.History, stored[0])
	return &stored[0], nil
}
