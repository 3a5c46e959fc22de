package group

import (
	"testing"

	"github.com/baodaydungsone/chai/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const raw = `[{"characterId":"a","response":"Hi"},{"characterId":"b","response":"*waves*"}]`

func TestParseFencedAndRawIdentically(t *testing.T) {
	want := []llm.GroupReply{{CharacterID: "a", Response: "Hi"}, {CharacterID: "b", Response: "*waves*"}}

	for _, in := range []string{
		raw,
		"  " + raw + "\n",
		"```json\n" + raw + "\n```",
		"```\n" + raw + "\n```",
		"```JSON " + raw + "```",
	} {
		got, err := Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestParseEmptyArray(t *testing.T) {
	got, err := Parse(`[]`)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseRejectsNonArrays(t *testing.T) {
	for _, in := range []string{
		`{"characterId":"a","response":"Hi"}`,
		`"hello"`,
		`42`,
		`null`,
		"```json\n{}\n```",
		`Sure! Here you go: ` + raw,
		`[1, 2]`,
		``,
		`[{}]`,
		`[null]`,
		`[{"characterId":"","response":"x"}]`,
		`[{"characterId":1,"response":"x"}]`,
		`[{"characterId":"a"}]`,
		`[{"characterId":"a","response":"Hi"},{"response":"orphan"}]`,
	} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, llm.ErrProtocol, in)
	}
}
