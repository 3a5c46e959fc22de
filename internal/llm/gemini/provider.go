package gemini

import (
	"context"

	"github.com/baodaydungsone/chai/internal/llm"
	"github.com/pkg/errors"
	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.5-flash"

// Client is an llm.Client bound to one API key.
type Client struct {
	client *genai.Client
	model  string
}

func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if model == "" {
		model = DefaultModel
	}
	genClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, tag(errors.Wrap(err, "create genai client"))
	}

	return &Client{
		client: genClient,
		model:  model,
	}, nil
}

// Factory returns an llm.ClientFactory producing clients for model.
func Factory(model string) llm.ClientFactory {
	return func(ctx context.Context, apiKey string) (llm.Client, error) {
		return NewClient(ctx, apiKey, model)
	}
}

func (c *Client) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	res, err := c.client.Models.GenerateContent(ctx, c.model, toContents(req.Contents), toConfig(req))
	if err != nil {
		return nil, tag(err)
	}
	return fromResponse(res)
}

func (c *Client) StartChat(ctx context.Context, req llm.Request) (llm.ChatSession, error) {
	chat, err := c.client.Chats.Create(ctx, c.model, toConfig(req), toContents(req.Contents))
	if err != nil {
		return nil, tag(err)
	}

	return &ChatSession{
		chat: chat,
	}, nil
}
