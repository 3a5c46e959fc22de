// Package store persists personas, groups and chat messages.
package store

import (
	"context"

	"github.com/baodaydungsone/chai/internal/llm"
	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("not found")

// Store is the persistence collaborator of the engine. One-on-one chats are
// keyed by persona id and group chats by group id.
type Store interface {
	PutPersona(ctx context.Context, p *llm.Persona) (*llm.Persona, error)
	GetPersona(ctx context.Context, id string) (*llm.Persona, error)
	ListPersonas(ctx context.Context) ([]*llm.Persona, error)
	DeletePersona(ctx context.Context, id string) error

	PutGroup(ctx context.Context, g *llm.Group) (*llm.Group, error)
	GetGroup(ctx context.Context, id string) (*llm.Group, error)
	ListGroups(ctx context.Context) ([]*llm.Group, error)
	DeleteGroup(ctx context.Context, id string) error

	// AppendMessages stores msgs in order, assigning ids to those without one.
	AppendMessages(ctx context.Context, msgs ...llm.Message) ([]llm.Message, error)
	// RecentMessages returns at most limit messages of a chat, oldest first.
	// limit <= 0 returns the whole chat.
	RecentMessages(ctx context.Context, chatID string, limit int) ([]llm.Message, error)
	ClearMessages(ctx context.Context, chatID string) error

	Close() error
}
