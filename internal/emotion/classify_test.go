package emotion

import (
	"context"
	"errors"
	"testing"

	"github.com/baodaydungsone/chai/internal/credential"
	"github.com/baodaydungsone/chai/internal/llm"
	"github.com/baodaydungsone/chai/internal/llm/llmtest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var persona = &llm.Persona{ID: "lan", Name: "Lan", Personality: "cheerful tutor"}

func classify(fake *llmtest.Fake, f llm.Features, history []llm.Message) *llm.Emotion {
	c := NewClassifier(credential.NewExecutor(fake.Factory, zerolog.Nop()), zerolog.Nop())
	return c.Classify(context.Background(), credential.Custom("k"), f, persona, llm.UserProfile{Name: "Minh"}, history)
}

func exchange() []llm.Message {
	return []llm.Message{
		{Sender: llm.SenderUser, Content: "I passed my exam!"},
		{Sender: llm.SenderModel, Content: "That's wonderful news!"},
	}
}

func TestClassifyCanonicalises(t *testing.T) {
	fake := &llmtest.Fake{GenerateFunc: llmtest.Reply("  excited\n")}

	got := classify(fake, llm.DefaultFeatures(), exchange())
	require.NotNil(t, got)
	assert.Equal(t, llm.Excited, *got)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	prompt := calls[0].Request.Contents[0].Parts[0].Text
	assert.Contains(t, prompt, `Minh said: "I passed my exam!"`)
	assert.Contains(t, prompt, "No further context.")
}

func TestClassifyUnknownLabelIsNeutral(t *testing.T) {
	fake := &llmtest.Fake{GenerateFunc: llmtest.Reply("Ecstatic")}

	got := classify(fake, llm.DefaultFeatures(), exchange())
	require.NotNil(t, got)
	assert.Equal(t, llm.Neutral, *got)
}

func TestClassifyRequiresUserThenModel(t *testing.T) {
	fake := &llmtest.Fake{GenerateFunc: llmtest.Reply("Happy")}
	h := exchange()

	assert.Nil(t, classify(fake, llm.DefaultFeatures(), []llm.Message{h[1], h[0]}))
	assert.Nil(t, classify(fake, llm.DefaultFeatures(), []llm.Message{h[0], h[0]}))
	assert.Nil(t, classify(fake, llm.DefaultFeatures(), h[:1]))
	assert.Nil(t, classify(fake, llm.Features{}, h))
	assert.Empty(t, fake.Calls())
}

func TestClassifyErrorIsNil(t *testing.T) {
	fake := &llmtest.Fake{GenerateFunc: func(string, llm.Request) (*llm.Response, error) {
		return nil, &llm.ProviderError{Kind: llm.KindTransient, Err: errors.New("unavailable")}
	}}
	assert.Nil(t, classify(fake, llm.DefaultFeatures(), exchange()))
}

func TestClassifyUsesEarlierContext(t *testing.T) {
	fake := &llmtest.Fake{GenerateFunc: llmtest.Reply("Curious")}
	h := append([]llm.Message{
		{Sender: llm.SenderUser, Content: "one"},
		{Sender: llm.SenderModel, Content: "two"},
	}, exchange()...)

	got := classify(fake, llm.DefaultFeatures(), h)
	require.NotNil(t, got)
	assert.Equal(t, llm.Curious, *got)
	prompt := fake.Calls()[0].Request.Contents[0].Parts[0].Text
	assert.Contains(t, prompt, "Minh: one\nLan: two")
}
