package llm

import "context"

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Part is either text or an inline binary attachment.
type Part struct {
	Text  string
	Image *Image
}

type Turn struct {
	Role  Role
	Parts []Part
}

// TextTurn is a turn holding a single text part.
func TextTurn(role Role, text string) Turn {
	return Turn{Role: role, Parts: []Part{{Text: text}}}
}

// Schema is the subset of a response schema the engine asks the provider for.
type Schema struct {
	Type             string // "object", "array", "string"
	Properties       map[string]*Schema
	Items            *Schema
	Enum             []string
	Required         []string
	PropertyOrdering []string
}

type Request struct {
	SystemInstruction string
	Contents          []Turn
	Temperature       *float32
	JSON              bool
	Schema            *Schema
	WebSearch         bool
}

type Response struct {
	Text         string        `json:"text"`
	Attributions []Attribution `json:"attributions,omitempty"`
}

// Client is one provider connection bound to a single credential.
type Client interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	// StartChat opens a session seeded with req.Contents as history.
	StartChat(ctx context.Context, req Request) (ChatSession, error)
}

type ChatSession interface {
	Send(ctx context.Context, parts []Part) (*Response, error)
}

// ClientFactory builds a Client bound to apiKey.
type ClientFactory func(ctx context.Context, apiKey string) (Client, error)

// Temperature returns a pointer for Request.Temperature.
func Temperature(t float32) *float32 {
	return &t
}
