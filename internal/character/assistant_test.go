package character

import (
	"context"
	"testing"

	"github.com/baodaydungsone/chai/internal/credential"
	"github.com/baodaydungsone/chai/internal/llm"
	"github.com/baodaydungsone/chai/internal/llm/llmtest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAssistant(fake *llmtest.Fake) *Assistant {
	return NewAssistant(credential.NewExecutor(fake.Factory, zerolog.Nop()), zerolog.Nop())
}

var pool = credential.Custom("k")

func TestBuildConcept(t *testing.T) {
	fake := &llmtest.Fake{GenerateFunc: llmtest.Reply("```json\n" +
		`{"name":"Mai","personality":"shy florist","greetingMessage":"Oh, hello.","voiceTone":"soft","exampleResponses":"User: hi\nCharacter: h-hello"}` +
		"\n```")}
	a := newAssistant(fake)

	p, err := a.BuildConcept(context.Background(), pool, "slice of life", "a florist")
	require.NoError(t, err)
	assert.Equal(t, "Mai", p.Name)
	assert.Equal(t, "shy florist", p.Personality)
	assert.Equal(t, "Oh, hello.", p.Greeting)
	assert.Equal(t, "soft", p.VoiceTone)

	req := fake.Calls()[0].Request
	assert.True(t, req.JSON)
	assert.Equal(t, "object", req.Schema.Type)
	assert.Contains(t, req.Contents[0].Parts[0].Text, "Theme/Type: slice of life")
}

func TestExtractFromTextBadJSON(t *testing.T) {
	fake := &llmtest.Fake{GenerateFunc: llmtest.Reply("not json")}
	a := newAssistant(fake)

	_, err := a.ExtractFromText(context.Background(), pool, "Mai is a shy florist.")
	assert.ErrorIs(t, err, llm.ErrProtocol)
}

func TestSuggestField(t *testing.T) {
	fake := &llmtest.Fake{GenerateFunc: llmtest.Reply("  Calm and wise \n")}
	a := newAssistant(fake)

	out, err := a.SuggestField(context.Background(), pool, FieldVoiceTone, llm.Persona{Name: "Mai", Personality: "shy"})
	require.NoError(t, err)
	assert.Equal(t, "Calm and wise", out)
	assert.Contains(t, fake.Calls()[0].Request.Contents[0].Parts[0].Text, "The character's name is Mai.")

	_, err = a.SuggestField(context.Background(), pool, Field("avatar"), llm.Persona{})
	assert.ErrorIs(t, err, llm.ErrValidation)
}

func TestSuggestReply(t *testing.T) {
	fake := &llmtest.Fake{GenerateFunc: llmtest.Reply("How was your day?")}
	a := newAssistant(fake)
	persona := &llm.Persona{Name: "Lan", Personality: "cheerful tutor"}
	history := []llm.Message{
		{Sender: llm.SenderUser, Content: "hi"},
		{Sender: llm.SenderModel, Content: "hello!"},
	}

	out, err := a.SuggestReply(context.Background(), pool, llm.Features{WebSearch: true}, persona, history, llm.UserProfile{Name: "Minh"})
	require.NoError(t, err)
	assert.Equal(t, "How was your day?", out)

	req := fake.Calls()[0].Request
	require.Len(t, req.Contents, 3)
	assert.Equal(t, llm.RoleModel, req.Contents[1].Role)
	assert.Contains(t, req.SystemInstruction, "STRICTLY PROHIBITED")
	assert.True(t, req.WebSearch)
	assert.Equal(t, float32(0.8), *req.Temperature)
}

func TestProactiveMessageStripsFormatting(t *testing.T) {
	fake := &llmtest.Fake{GenerateFunc: llmtest.Reply(`"Hey, *waves* how are you?"`)}
	a := newAssistant(fake)

	out, err := a.ProactiveMessage(context.Background(), pool, &llm.Persona{Name: "Lan", Personality: "cheerful"}, llm.UserProfile{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hey, waves how are you?", out)
	assert.Contains(t, fake.Calls()[0].Request.Contents[0].Parts[0].Text, "general friendly greeting")

	_, err = a.ProactiveMessage(context.Background(), pool, &llm.Persona{Name: "Lan"}, llm.UserProfile{}, nil)
	assert.ErrorIs(t, err, llm.ErrValidation)
}
