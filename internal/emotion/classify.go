// Package emotion labels a persona's affect after each completed exchange.
package emotion

import (
	"context"
	"fmt"
	"strings"

	"github.com/baodaydungsone/chai/internal/credential"
	"github.com/baodaydungsone/chai/internal/llm"
	"github.com/rs/zerolog"
)

const contextWindow = 4

type Classifier struct {
	exec *credential.Executor
	log  zerolog.Logger
}

func NewClassifier(exec *credential.Executor, log zerolog.Logger) *Classifier {
	return &Classifier{exec: exec, log: log.With().Str("component", "emotion").Logger()}
}

// Classify returns the persona's emotion after the last (user, model)
// exchange in history. It returns nil when the feature is off, the history
// does not end with that exchange, or the provider call fails. A reply
// outside the vocabulary yields Neutral.
func (c *Classifier) Classify(ctx context.Context, pool credential.Pool, f llm.Features, persona *llm.Persona,
	user llm.UserProfile, history []llm.Message) *llm.Emotion {
	if !f.Emotions || len(history) < 2 {
		return nil
	}
	lastUser, lastModel := history[len(history)-2], history[len(history)-1]
	if lastUser.Sender != llm.SenderUser || lastModel.Sender != llm.SenderModel {
		c.log.Warn().Str("persona", persona.Name).Msg("last exchange is not user then model, skipping emotion")
		return nil
	}

	earlier := llm.Tail(history[:len(history)-2], contextWindow)
	req := llm.Request{
		Contents:    []llm.Turn{llm.TextTurn(llm.RoleUser, buildPrompt(persona, user, lastUser, lastModel, earlier))},
		Temperature: llm.Temperature(0.5),
	}

	text, err := credential.Execute(ctx, c.exec, pool, func(ctx context.Context, client llm.Client) (string, error) {
		res, err := client.Generate(ctx, req)
		if err != nil {
			return "", err
		}
		return res.Text, nil
	})
	if err != nil {
		c.log.Error().Err(err).Str("persona", persona.Name).Msg("emotion classification failed")
		return nil
	}

	e, ok := llm.ParseEmotion(text)
	if !ok {
		c.log.Warn().Str("reply", text).Msg("invalid emotion label, defaulting to Neutral")
		e = llm.Neutral
	}
	return &e
}

func buildPrompt(p *llm.Persona, user llm.UserProfile, lastUser, lastModel llm.Message, earlier []llm.Message) string {
	userName := user.DisplayName()
	userLine := lastUser.Content
	if lastUser.Image != nil {
		userLine += " [User sent an image]"
	}
	modelLine := lastModel.Content
	if lastModel.Image != nil {
		modelLine += " [AI sent an image]"
	}
	ctxLines := llm.Transcript(earlier, user, func(llm.Message) string { return p.Name })
	if ctxLines == "" {
		ctxLines = "No further context."
	}

	return fmt.Sprintf(`You are playing the role of an AI character named %q with the personality: %q.
The user you are interacting with is named %q (User's bio: %q).

Consider the very last exchange in your conversation:
%s said: %q
You (as %s) responded: %q

(For broader context, here are a few previous messages:
%s
)

Based on this interaction and your personality, what is your (as %s) dominant emotional state right now?
This emotion should subtly influence the tone and style of your next response.
Choose ONE emotion label from the following:
%s.

Respond with ONLY the chosen emotion label (e.g. "Happy").`,
		p.Name, p.Personality, userName, user.DisplayBio(),
		userName, userLine, p.Name, modelLine,
		ctxLines, p.Name, strings.Join(llm.GetEmotionList(), ", "))
}
