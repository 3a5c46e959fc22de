// Package memory condenses recent history into a few durable facts that the
// next prompt can carry.
package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/baodaydungsone/chai/internal/credential"
	"github.com/baodaydungsone/chai/internal/llm"
	"github.com/rs/zerolog"
)

const (
	historyWindow = 5
	// MaxFacts bounds the snippet returned by one extraction.
	MaxFacts = 4
)

type Extractor struct {
	exec *credential.Executor
	log  zerolog.Logger
}

func NewExtractor(exec *credential.Executor, log zerolog.Logger) *Extractor {
	return &Extractor{exec: exec, log: log.With().Str("component", "memory").Logger()}
}

// Extract returns up to MaxFacts facts. It never fails: a disabled feature,
// an empty prior history or any provider error yields an empty list.
func (e *Extractor) Extract(ctx context.Context, pool credential.Pool, f llm.Features, persona *llm.Persona,
	user llm.UserProfile, prior []llm.Message, latest llm.Message) []string {
	if !f.Memory || len(prior) == 0 {
		return []string{}
	}

	req := llm.Request{
		Contents:    []llm.Turn{llm.TextTurn(llm.RoleUser, buildPrompt(persona, user, prior, latest))},
		Temperature: llm.Temperature(0.3),
	}
	e.log.Debug().Str("persona", persona.Name).Int("history", len(prior)).Msg("extracting memories")

	text, err := credential.Execute(ctx, e.exec, pool, func(ctx context.Context, c llm.Client) (string, error) {
		res, err := c.Generate(ctx, req)
		if err != nil {
			return "", err
		}
		return res.Text, nil
	})
	if err != nil {
		e.log.Error().Err(err).Str("persona", persona.Name).Msg("memory extraction failed")
		return []string{}
	}
	return Parse(text)
}

// Parse reads the hyphen-list reply format. "NONE" or an empty reply is an
// empty list.
func Parse(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" || strings.EqualFold(text, "NONE") {
		return []string{}
	}
	facts := []string{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "-" {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "- "))
		if line == "" {
			continue
		}
		facts = append(facts, line)
		if len(facts) == MaxFacts {
			break
		}
	}
	return facts
}

func buildPrompt(p *llm.Persona, user llm.UserProfile, prior []llm.Message, latest llm.Message) string {
	speaker := func(llm.Message) string { return p.Name }
	history := llm.Transcript(llm.Tail(prior, historyWindow), user, speaker)
	latestLine := llm.Transcript([]llm.Message{latest}, user, speaker)

	return fmt.Sprintf(`You are an assistant helping an AI character named %q remember key details from a conversation.
Character's Personality: %q
User's Name: %q (User's Bio: %q)

Review the following recent chat history and the latest user message:
--- CHAT HISTORY ---
%s
--- LATEST USER MESSAGE ---
%s
---

Identify up to 3-4 crucial pieces of information that %q should explicitly remember to keep the conversation continuous and personal in THE NEXT response. Focus on:
- The user's stated preferences, plans or personal details (name, likes, dislikes, past events they shared).
- Important decisions made or significant events in the conversation.
- Questions the user asked that are still relevant.
- Details about the relationship between the user and the character.

List each piece of information as a concise, self-contained statement.
If nothing new and important needs to be remembered, or the history is too short, respond with the single word "NONE".
Otherwise put each piece of information on its own line, starting with a hyphen (-).
Example Response Format:
- The user mentioned they like coffee.
- The user's cat is named Whiskers.
- The user is planning a trip next week.`,
		p.Name, p.Personality, user.DisplayName(), user.DisplayBio(), history, latestLine, p.Name)
}
