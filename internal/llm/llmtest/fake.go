// Package llmtest provides a scriptable llm.Client for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/baodaydungsone/chai/internal/llm"
)

// Call records one request seen by a fake client.
type Call struct {
	Key     string
	Session bool
	Request llm.Request
	Parts   []llm.Part
}

// Fake is shared by every client its Factory builds.
type Fake struct {
	// GenerateFunc answers stateless calls. Nil returns an empty response.
	GenerateFunc func(key string, req llm.Request) (*llm.Response, error)
	// SendFunc answers chat-session sends. Nil falls through to GenerateFunc
	// with the parts appended as a user turn.
	SendFunc func(key string, req llm.Request, parts []llm.Part) (*llm.Response, error)
	// FactoryErr, when set, is returned for the matching key by Factory.
	FactoryErr map[string]error

	mu    sync.Mutex
	calls []Call
	keys  []string
}

// Reply returns a GenerateFunc that always answers text.
func Reply(text string) func(string, llm.Request) (*llm.Response, error) {
	return func(string, llm.Request) (*llm.Response, error) {
		return &llm.Response{Text: text}, nil
	}
}

func (f *Fake) Factory(_ context.Context, apiKey string) (llm.Client, error) {
	f.mu.Lock()
	f.keys = append(f.keys, apiKey)
	f.mu.Unlock()
	if err, ok := f.FactoryErr[apiKey]; ok {
		return nil, err
	}
	return &client{fake: f, key: apiKey}, nil
}

// Keys lists the keys clients were built for, in order.
func (f *Fake) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...)
}

func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

func (f *Fake) record(c Call) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
}

type client struct {
	fake *Fake
	key  string
}

func (c *client) Generate(_ context.Context, req llm.Request) (*llm.Response, error) {
	c.fake.record(Call{Key: c.key, Request: req})
	if c.fake.GenerateFunc == nil {
		return &llm.Response{}, nil
	}
	return c.fake.GenerateFunc(c.key, req)
}

func (c *client) StartChat(_ context.Context, req llm.Request) (llm.ChatSession, error) {
	return &session{client: c, req: req}, nil
}

type session struct {
	client *client
	req    llm.Request
}

func (s *session) Send(ctx context.Context, parts []llm.Part) (*llm.Response, error) {
	f := s.client.fake
	f.record(Call{Key: s.client.key, Session: true, Request: s.req, Parts: parts})
	if f.SendFunc != nil {
		return f.SendFunc(s.client.key, s.req, parts)
	}
	req := s.req
	req.Contents = append(append([]llm.Turn(nil), req.Contents...), llm.Turn{Role: llm.RoleUser, Parts: parts})
	if f.GenerateFunc == nil {
		return &llm.Response{}, nil
	}
	return f.GenerateFunc(s.client.key, req)
}
