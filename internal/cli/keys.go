package cli

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage Gemini API keys",
}

var keysValidateCmd = &cobra.Command{
	Use:   "validate [key...]",
	Short: "Probe keys; without arguments, probe the configured pool",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.Close()

		keys := args
		if len(keys) == 0 {
			keys = a.cfg.Pool().Keys
		}
		failed := 0
		for i, key := range keys {
			ok := a.engine.ValidateKey(cmd.Context(), key)
			status := "valid"
			if !ok {
				status = "invalid"
				failed++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "key %d: %s\n", i+1, status)
		}
		if failed > 0 {
			return errors.Errorf("%d of %d keys failed validation", failed, len(keys))
		}
		return nil
	},
}

func init() {
	keysCmd.AddCommand(keysValidateCmd)
	RootCmd.AddCommand(keysCmd)
}
