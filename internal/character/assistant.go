// Package character holds the creative helpers around persona authoring and
// re-engagement: concept generation, field suggestions, reply suggestions
// and proactive check-in messages.
package character

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/baodaydungsone/chai/internal/credential"
	"github.com/baodaydungsone/chai/internal/llm"
	"github.com/baodaydungsone/chai/internal/prompt"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const creativeSystem = "You are a creative assistant helping a user design an AI chat character or suggest chat replies. Provide creative and relevant suggestions."

const languageHint = "Respond in the language of the provided context; default to English. Be concise and natural."

var conceptSchema = &llm.Schema{
	Type: "object",
	Properties: map[string]*llm.Schema{
		"name":             {Type: "string"},
		"personality":      {Type: "string"},
		"greetingMessage":  {Type: "string"},
		"voiceTone":        {Type: "string"},
		"exampleResponses": {Type: "string"},
	},
	PropertyOrdering: []string{"name", "personality", "greetingMessage", "voiceTone", "exampleResponses"},
}

type Field string

const (
	FieldName        Field = "name"
	FieldPersonality Field = "personality"
	FieldGreeting    Field = "greeting"
	FieldVoiceTone   Field = "voiceTone"
	FieldExample     Field = "example"
)

type Assistant struct {
	exec *credential.Executor
	log  zerolog.Logger
}

func NewAssistant(exec *credential.Executor, log zerolog.Logger) *Assistant {
	return &Assistant{exec: exec, log: log.With().Str("component", "character").Logger()}
}

func (a *Assistant) generate(ctx context.Context, pool credential.Pool, req llm.Request) (string, error) {
	return credential.Execute(ctx, a.exec, pool, func(ctx context.Context, c llm.Client) (string, error) {
		res, err := c.Generate(ctx, req)
		if err != nil {
			return "", err
		}
		return res.Text, nil
	})
}

// BuildConcept invents a complete persona, optionally steered by a theme and
// an initial idea.
func (a *Assistant) BuildConcept(ctx context.Context, pool credential.Pool, theme, idea string) (*llm.Persona, error) {
	buildMessage := `Generate a complete AI chat character concept.
The output MUST be a JSON object with the fields "name", "personality", "greetingMessage", "voiceTone" and "exampleResponses" (one User/Character dialogue pair formatted as "User: ...\nCharacter: ...").`
	if theme != "" {
		buildMessage += "\nTheme/Type: " + theme
	}
	if idea != "" {
		buildMessage += "\nInitial Idea: " + idea
	}
	buildMessage += "\nRespond ONLY with the JSON object."

	return a.concept(ctx, pool, buildMessage)
}

// ExtractFromText pulls persona fields out of free text. Missing fields stay empty.
func (a *Assistant) ExtractFromText(ctx context.Context, pool credential.Pool, text string) (*llm.Persona, error) {
	buildMessage := fmt.Sprintf(`From the following text, extract character details.
The output MUST be a JSON object with the fields "name", "personality", "greetingMessage", "voiceTone" and "exampleResponses".
If a detail is not found, use an empty string.
Text to analyze:
---
%s
---
Respond ONLY with the JSON object.`, text)

	return a.concept(ctx, pool, buildMessage)
}

func (a *Assistant) concept(ctx context.Context, pool credential.Pool, buildMessage string) (*llm.Persona, error) {
	text, err := a.generate(ctx, pool, llm.Request{
		Contents: []llm.Turn{llm.TextTurn(llm.RoleUser, buildMessage)},
		JSON:     true,
		Schema:   conceptSchema,
	})
	if err != nil {
		return nil, err
	}

	var charData llm.Persona
	if err := json.Unmarshal([]byte(llm.UnwrapFence(text)), &charData); err != nil {
		a.log.Error().Err(err).Str("raw", text).Msg("character concept is not valid JSON")
		return nil, errors.Wrapf(llm.ErrProtocol, "character concept: %v", err)
	}
	return &charData, nil
}

// SuggestField proposes a value for one persona field given the current draft.
func (a *Assistant) SuggestField(ctx context.Context, pool credential.Pool, field Field, draft llm.Persona) (string, error) {
	var b strings.Builder
	switch field {
	case FieldName:
		b.WriteString("Suggest a unique and interesting name for an AI chat character. Be creative.")
		if draft.Personality != "" {
			fmt.Fprintf(&b, " The character's personality is: %s.", draft.Personality)
		}
		fmt.Fprintf(&b, " %s Respond with ONLY the name, nothing else. Maximum 5 words.", languageHint)
	case FieldPersonality:
		b.WriteString("Describe a unique and engaging personality for an AI chat character in 1-2 concise paragraphs.")
		if draft.Name != "" {
			fmt.Fprintf(&b, " The character's name is %s.", draft.Name)
		}
		fmt.Fprintf(&b, " %s Respond with ONLY the personality description.", languageHint)
	case FieldGreeting:
		b.WriteString("Write a creative, in-character greeting message for an AI chat character (1-2 sentences).")
		writeDraft(&b, draft)
		fmt.Fprintf(&b, " %s Respond with ONLY the greeting message.", languageHint)
	case FieldVoiceTone:
		b.WriteString("Describe the voice, tone and speaking style for an AI chat character in a short phrase or sentence.")
		if draft.Name != "" {
			fmt.Fprintf(&b, " The character's name is %s.", draft.Name)
		}
		if draft.Personality != "" {
			fmt.Fprintf(&b, " Their personality is: %q.", draft.Personality)
		}
		fmt.Fprintf(&b, " %s Examples: 'Calm and wise', 'Energetic and playful'. Respond with ONLY the voice/tone description.", languageHint)
	case FieldExample:
		b.WriteString("Generate a short, illustrative example dialogue pair (User and Character).")
		writeDraft(&b, draft)
		if draft.ExampleDialogue != "" {
			fmt.Fprintf(&b, "\nAvoid repeating patterns from these existing examples:\n%s", draft.ExampleDialogue)
		}
		fmt.Fprintf(&b, "\n%s Format as:\nUser: [example user message]\nCharacter: [example character response]\nRespond with ONLY this pair.", languageHint)
	default:
		return "", errors.Wrapf(llm.ErrValidation, "unknown suggestion field %q", field)
	}

	text, err := a.generate(ctx, pool, llm.Request{
		SystemInstruction: creativeSystem,
		Contents:          []llm.Turn{llm.TextTurn(llm.RoleUser, b.String())},
	})
	return strings.TrimSpace(text), err
}

func writeDraft(b *strings.Builder, draft llm.Persona) {
	if draft.Name != "" {
		fmt.Fprintf(b, " The character's name is %s.", draft.Name)
	}
	if draft.Personality != "" {
		fmt.Fprintf(b, " Their personality is: %q.", draft.Personality)
	}
	if draft.VoiceTone != "" {
		fmt.Fprintf(b, " Their voice/tone is: %q.", draft.VoiceTone)
	}
}

// SuggestReply proposes one message the user could send next.
func (a *Assistant) SuggestReply(ctx context.Context, pool credential.Pool, f llm.Features, persona *llm.Persona,
	history []llm.Message, user llm.UserProfile) (string, error) {
	if err := persona.Validate(); err != nil {
		return "", err
	}
	system := prompt.Compile(prompt.Input{Persona: persona, User: user, Features: f})

	userName := user.DisplayName()
	promptContent := fmt.Sprintf(`You are roleplaying as %s. Bio: %q.
You are chatting with %s.
Based on the current chat context and your persona (%s), suggest ONE concise, natural and engaging reply (1-2 sentences) that you (%s) could send to %s.
Respond with ONLY the suggested reply text, nothing else.`, userName, user.DisplayBio(), persona.Name, userName, userName, persona.Name)

	contents := make([]llm.Turn, 0, 11)
	for _, m := range llm.Tail(history, 10) {
		if m.Content == "" {
			continue
		}
		role := llm.RoleModel
		if m.Sender == llm.SenderUser {
			role = llm.RoleUser
		}
		contents = append(contents, llm.TextTurn(role, m.Content))
	}
	contents = append(contents, llm.TextTurn(llm.RoleUser, promptContent))

	text, err := a.generate(ctx, pool, llm.Request{
		SystemInstruction: system,
		Contents:          contents,
		Temperature:       llm.Temperature(0.8),
		WebSearch:         f.WebSearch,
	})
	return strings.TrimSpace(text), err
}

// ProactiveMessage writes a short in-character check-in for a user who has
// gone quiet.
func (a *Assistant) ProactiveMessage(ctx context.Context, pool credential.Pool, persona *llm.Persona,
	user llm.UserProfile, history []llm.Message) (string, error) {
	if err := persona.Validate(); err != nil {
		return "", err
	}
	snippet := llm.Transcript(llm.Tail(history, 4), user, func(llm.Message) string { return persona.Name })
	if snippet == "" {
		snippet = "No recent messages to reference. Just send a general friendly greeting."
	}

	msg := fmt.Sprintf(`You are the AI character %q whose personality is: %q.
You haven't heard from the user, %q, in a while.
Send a SHORT, friendly, in-character message to check in on them and re-engage them in conversation.

To make your message relevant, here are the last few messages from your conversation:
--- RECENT CHAT HISTORY ---
%s
--- END HISTORY ---

Choose ONE of the following styles:
1. A curious follow-up question based on the last messages.
2. A simple greeting appropriate for the time of day.
3. A general, warm check-in.

IMPORTANT RULES:
- Your message MUST be very short (under 25 words).
- Do NOT use action descriptions like *smiles* or any other formatting.
- Respond with ONLY the message text itself.`, persona.Name, persona.Personality, user.DisplayName(), snippet)

	text, err := a.generate(ctx, pool, llm.Request{
		Contents:    []llm.Turn{llm.TextTurn(llm.RoleUser, msg)},
		Temperature: llm.Temperature(0.9),
	})
	if err != nil {
		return "", err
	}
	return strings.NewReplacer(`"`, "", "*", "").Replace(strings.TrimSpace(text)), nil
}
