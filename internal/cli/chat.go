package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat <persona-id> [message]",
	Short: "Chat with a persona; without a message, read lines from stdin",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		personaID := args[0]
		send := func(text string) error {
			turn, err := a.engine.Send(ctx, a.engine.Settings(), personaID, text, nil)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), turn.Reply.Content)
			for _, at := range turn.Reply.Attributions {
				fmt.Fprintf(cmd.OutOrStdout(), "  [%s](%s)\n", at.Title, at.URI)
			}
			return nil
		}

		if len(args) > 1 {
			return send(strings.Join(args[1:], " "))
		}

		history, err := a.engine.History(ctx, personaID)
		if err != nil {
			return err
		}
		for _, m := range history {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", m.Sender, m.Content)
		}
		sc := bufio.NewScanner(cmd.InOrStdin())
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			if err := send(line); err != nil {
				return err
			}
		}
		return sc.Err()
	},
}

var groupCmd = &cobra.Command{
	Use:   "group <group-id> <message>",
	Short: "Send a message to a group chat",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.Close()

		msgs, err := a.engine.SendGroup(cmd.Context(), a.engine.Settings(), args[0], strings.Join(args[1:], " "), nil)
		if err != nil {
			return err
		}
		names := map[string]string{}
		for _, m := range msgs[1:] {
			if _, ok := names[m.PersonaID]; !ok {
				p, err := a.store.GetPersona(cmd.Context(), m.PersonaID)
				if err != nil {
					return err
				}
				names[m.PersonaID] = p.Name
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", names[m.PersonaID], m.Content)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(chatCmd, groupCmd)
}
