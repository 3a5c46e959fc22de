package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/baodaydungsone/chai/internal/llm"
	"github.com/stretchr/testify/assert"
)

func lan() *llm.Persona {
	return &llm.Persona{
		ID:          "lan",
		Name:        "Lan",
		Personality: "cheerful tutor",
		Greeting:    "Hi there!",
		VoiceTone:   "warm",
	}
}

func TestCompileSectionOrder(t *testing.T) {
	happy := llm.Happy
	at := time.Date(2024, 7, 26, 22, 30, 0, 0, time.UTC)
	out := Compile(Input{
		Persona:  lan(),
		User:     llm.UserProfile{Name: "Minh", Bio: "likes tea"},
		Features: llm.Features{Memory: true, Emotions: true, TimeAwareness: true, DateAwareness: true},
		Memories: []string{"User likes coffee."},
		Emotion:  &happy,
		At:       &at,
		Location: time.UTC,
	})

	order := []string{
		"Stay in character",
		"--- USER INFORMATION ---",
		"--- CHARACTER DEFINITION ---",
		"--- KEY REMEMBERED INFORMATION",
		"--- YOUR CURRENT EMOTIONAL STATE",
		"--- DATE & TIME CONTEXT ---",
		"--- Content Guidelines ---",
		"--- END OF DEFINITIONS ---",
		"You are now in character as Lan",
	}
	last := -1
	for _, marker := range order {
		idx := strings.Index(out, marker)
		if assert.GreaterOrEqual(t, idx, 0, marker) {
			assert.Greater(t, idx, last, marker)
			last = idx
		}
	}
	assert.Contains(t, out, `"Minh"`)
	assert.Contains(t, out, "- User likes coffee.")
	assert.Contains(t, out, "Feeling: Happy")
	assert.Contains(t, out, "sent at 22:30. It is currently night.")
	assert.Contains(t, out, "Friday, July 26, 2024")
	assert.Contains(t, out, "Voice/Tone: warm")
}

func TestCompileOptionalSectionsGated(t *testing.T) {
	happy := llm.Happy
	at := time.Now()
	out := Compile(Input{
		Persona:  lan(),
		Features: llm.Features{},
		Memories: []string{"User likes coffee."},
		Emotion:  &happy,
		At:       &at,
	})
	assert.NotContains(t, out, "REMEMBERED")
	assert.NotContains(t, out, "EMOTIONAL STATE")
	assert.NotContains(t, out, "DATE & TIME")

	out = Compile(Input{Persona: lan(), Features: llm.Features{Memory: true, Emotions: true, TimeAwareness: true}})
	assert.NotContains(t, out, "REMEMBERED")
	assert.NotContains(t, out, "EMOTIONAL STATE")
	assert.NotContains(t, out, "DATE & TIME")
	assert.Contains(t, out, `"`+llm.DefaultUserName+`"`)
}

func TestCompileTemporalToggles(t *testing.T) {
	at := time.Date(2024, 7, 26, 9, 5, 0, 0, time.UTC)
	out := Compile(Input{Persona: lan(), Features: llm.Features{DateAwareness: true}, At: &at, Location: time.UTC})
	assert.Contains(t, out, "Today's date is")
	assert.NotContains(t, out, "sent at")

	out = Compile(Input{Persona: lan(), Features: llm.Features{TimeAwareness: true}, At: &at, Location: time.UTC})
	assert.Contains(t, out, "sent at 09:05. It is currently morning.")
	assert.NotContains(t, out, "Today's date is")
}

func TestCompilePolicy(t *testing.T) {
	out := Compile(Input{Persona: lan()})
	assert.Contains(t, out, "STRICTLY PROHIBITED")

	out = Compile(Input{Persona: lan(), Policy: llm.ContentPolicy{
		Enabled:     true,
		Erotica:     llm.LevelNone,
		Violence:    llm.LevelHigh,
		DarkContent: llm.LevelMedium,
		Style:       "gothic",
	}})
	assert.NotContains(t, out, "PROHIBITED")
	assert.Contains(t, out, "- Violence Level: high")
	assert.Contains(t, out, "- Dark Content Level: medium")
	assert.Contains(t, out, "- Custom Style: gothic")
	assert.NotContains(t, out, "Erotica Level")
}

func TestCompileOverrideWins(t *testing.T) {
	p := lan()
	p.SystemPrompt = "You are a pirate."
	assert.Equal(t, "You are a pirate.", Compile(Input{Persona: p}))

	p.SystemPrompt = "   "
	assert.Contains(t, Compile(Input{Persona: p}), "CHARACTER DEFINITION")
}

func TestCompileLongerReply(t *testing.T) {
	out := Compile(Input{Persona: lan(), Features: llm.Features{LongerReply: true}})
	assert.Contains(t, out, "Special Instructions for this Reply")
}

func TestTimeOfDay(t *testing.T) {
	at := func(h int) time.Time { return time.Date(2024, 1, 1, h, 0, 0, 0, time.UTC) }
	assert.Equal(t, "night", TimeOfDay(at(4)))
	assert.Equal(t, "morning", TimeOfDay(at(5)))
	assert.Equal(t, "afternoon", TimeOfDay(at(12)))
	assert.Equal(t, "evening", TimeOfDay(at(17)))
	assert.Equal(t, "night", TimeOfDay(at(21)))
}

func TestGroupPrompt(t *testing.T) {
	a := &llm.Persona{ID: "a", Name: "Ann", Personality: "calm"}
	b := &llm.Persona{ID: "b", Name: "Bo", Personality: "loud", VoiceTone: "brash"}
	user := llm.UserProfile{Name: "Minh"}
	history := []llm.Message{
		{Sender: llm.SenderUser, Content: "hey all"},
		{Sender: llm.SenderModel, PersonaID: "b", Content: "yo"},
	}
	memory := []llm.Message{{Sender: llm.SenderUser, Content: "secret plan"}}

	out := Group(GroupInput{
		Members:  []Member{{Persona: a, Memory: memory}, {Persona: b}},
		User:     user,
		History:  history,
		Features: llm.Features{GroupMemory: true},
	})
	assert.Contains(t, out, "ID: a")
	assert.Contains(t, out, "Voice/Tone: brash")
	assert.Contains(t, out, "Minh: secret plan")
	assert.Contains(t, out, "Bo: yo")
	assert.Contains(t, out, `"characterId"`)
	assert.Contains(t, out, "STRICTLY PROHIBITED")
	assert.Less(t, strings.Index(out, "ID: a"), strings.Index(out, "ID: b"))

	out = Group(GroupInput{Members: []Member{{Persona: a, Memory: memory}}, User: user})
	assert.NotContains(t, out, "secret plan")
}
