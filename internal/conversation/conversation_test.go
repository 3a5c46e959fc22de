package conversation

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/baodaydungsone/chai/internal/chat"
	"github.com/baodaydungsone/chai/internal/credential"
	"github.com/baodaydungsone/chai/internal/emotion"
	"github.com/baodaydungsone/chai/internal/llm"
	"github.com/baodaydungsone/chai/internal/llm/llmtest"
	"github.com/baodaydungsone/chai/internal/memory"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipeline(fake *llmtest.Fake) *Pipeline {
	exec := credential.NewExecutor(fake.Factory, zerolog.Nop())
	return &Pipeline{
		Memory:  memory.NewExtractor(exec, zerolog.Nop()),
		Chat:    chat.NewGenerator(exec, nil, time.UTC, zerolog.Nop()),
		Emotion: emotion.NewClassifier(exec, zerolog.Nop()),
		Log:     zerolog.Nop(),
	}
}

func scripted() *llmtest.Fake {
	return &llmtest.Fake{
		GenerateFunc: func(_ string, req llm.Request) (*llm.Response, error) {
			text := req.Contents[len(req.Contents)-1].Parts[0].Text
			switch {
			case strings.Contains(text, "remember key details"):
				return &llm.Response{Text: "- The user likes tea."}, nil
			case strings.Contains(text, "dominant emotional state"):
				return &llm.Response{Text: "happy"}, nil
			}
			return &llm.Response{}, nil
		},
		SendFunc: func(string, llm.Request, []llm.Part) (*llm.Response, error) {
			return &llm.Response{Text: "Tea sounds lovely."}, nil
		},
	}
}

var persona = &llm.Persona{ID: "p1", Name: "Lan", Personality: "cheerful tutor"}

func TestNewValidates(t *testing.T) {
	_, err := New("", persona, nil, pipeline(scripted()))
	assert.ErrorIs(t, err, llm.ErrValidation)

	_, err = New("c1", &llm.Persona{Name: "Lan"}, nil, pipeline(scripted()))
	assert.ErrorIs(t, err, llm.ErrValidation)

	_, err = New("c1", persona, nil, nil)
	assert.ErrorIs(t, err, llm.ErrConfiguration)
}

func TestProcessUserMessage(t *testing.T) {
	fake := scripted()
	history := []llm.Message{
		{Sender: llm.SenderModel, PersonaID: "p1", Content: "Hi there!"},
	}
	c, err := New("c1", persona, history, pipeline(fake))
	require.NoError(t, err)

	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	turn, err := c.ProcessUserMessage(context.Background(), Settings{
		Pool:     credential.Custom("k"),
		Features: llm.DefaultFeatures(),
	}, "I love tea", nil, at)
	require.NoError(t, err)

	assert.Equal(t, "Tea sounds lovely.", turn.Reply.Content)
	assert.Equal(t, llm.SenderModel, turn.Reply.Sender)
	assert.Equal(t, "p1", turn.Reply.PersonaID)
	assert.Equal(t, []string{"The user likes tea."}, turn.Memories)
	require.NotNil(t, turn.Emotion)
	assert.Equal(t, llm.Happy, *turn.Emotion)
	assert.Len(t, c.History, 3)
	assert.Equal(t, "I love tea", c.History[1].Content)

	var reply llmtest.Call
	for _, call := range fake.Calls() {
		if call.Session {
			reply = call
		}
	}
	assert.Contains(t, reply.Request.SystemInstruction, "The user likes tea.")
}

func TestProcessUserMessageEmotionCarriesForward(t *testing.T) {
	fake := scripted()
	c, err := New("c1", persona, nil, pipeline(fake))
	require.NoError(t, err)
	s := Settings{Pool: credential.Custom("k"), Features: llm.DefaultFeatures()}

	_, err = c.ProcessUserMessage(context.Background(), s, "hello", nil, time.Now())
	require.NoError(t, err)
	_, err = c.ProcessUserMessage(context.Background(), s, "again", nil, time.Now())
	require.NoError(t, err)

	calls := fake.Calls()
	var last llmtest.Call
	for _, call := range calls {
		if call.Session {
			last = call
		}
	}
	assert.Contains(t, last.Request.SystemInstruction, "Feeling: Happy")
}

func TestProcessUserMessageRejectsEmpty(t *testing.T) {
	fake := scripted()
	c, err := New("c1", persona, nil, pipeline(fake))
	require.NoError(t, err)

	_, err = c.ProcessUserMessage(context.Background(), Settings{Pool: credential.Custom("k")}, "  ", nil, time.Now())
	assert.ErrorIs(t, err, llm.ErrValidation)
	assert.Empty(t, fake.Calls())
}

func TestProcessUserMessageKeepsHistoryOnFailure(t *testing.T) {
	c, err := New("c1", persona, nil, pipeline(&llmtest.Fake{}))
	require.NoError(t, err)

	_, err = c.ProcessUserMessage(context.Background(), Settings{}, "hello", nil, time.Now())
	assert.ErrorIs(t, err, llm.ErrConfiguration)
	assert.Empty(t, c.History)
}

func TestRestoreUndoesTurn(t *testing.T) {
	c, err := New("c1", persona, nil, pipeline(scripted()))
	require.NoError(t, err)

	snap := c.Snapshot()
	_, err = c.ProcessUserMessage(context.Background(), Settings{
		Pool:     credential.Custom("k"),
		Features: llm.DefaultFeatures(),
	}, "I like tea", nil, time.Now())
	require.NoError(t, err)
	require.Len(t, c.History, 2)
	require.NotNil(t, c.CurrentEmotion)

	c.Restore(snap)
	assert.Empty(t, c.History)
	assert.Empty(t, c.Memories)
	assert.Nil(t, c.CurrentEmotion)
}
