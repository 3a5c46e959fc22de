package gemini

import (
	"context"

	"github.com/baodaydungsone/chai/internal/llm"
	"google.golang.org/genai"
)

type ChatSession struct {
	chat *genai.Chat
}

func (s *ChatSession) Send(ctx context.Context, parts []llm.Part) (*llm.Response, error) {
	genParts := make([]genai.Part, 0, len(parts))
	for _, p := range toParts(parts) {
		genParts = append(genParts, *p)
	}

	res, err := s.chat.SendMessage(ctx, genParts...)
	if err != nil {
		return nil, tag(err)
	}
	return fromResponse(res)
}
