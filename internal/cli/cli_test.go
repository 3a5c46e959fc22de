package cli

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"serve"},
		{"chat"},
		{"group"},
		{"keys", "validate"},
		{"character", "concept"},
		{"character", "create"},
		{"character", "list"},
	} {
		cmd, rest, err := RootCmd.Find(path)
		require.NoError(t, err, path)
		assert.Empty(t, rest, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	require.NoError(t, printJSON(cmd, map[string]string{"name": "Lan"}))
	assert.Equal(t, "{\n  \"name\": \"Lan\"\n}\n", buf.String())
}

func TestChatRequiresPersona(t *testing.T) {
	assert.Error(t, chatCmd.Args(chatCmd, nil))
	assert.Error(t, groupCmd.Args(groupCmd, []string{"g1"}))
	assert.NoError(t, groupCmd.Args(groupCmd, []string{"g1", "hi"}))
}
