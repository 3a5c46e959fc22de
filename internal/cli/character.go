package cli

import (
	"github.com/baodaydungsone/chai/internal/llm"
	"github.com/spf13/cobra"
)

var (
	conceptTheme string
	conceptIdea  string
	conceptSave  bool

	createName        string
	createPersonality string
	createGreeting    string
	createVoice       string
)

var characterCmd = &cobra.Command{
	Use:   "character",
	Short: "Create and list personas",
}

var characterConceptCmd = &cobra.Command{
	Use:   "concept",
	Short: "Generate a persona concept",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.engine.Assistant().BuildConcept(cmd.Context(), a.engine.Settings().Pool, conceptTheme, conceptIdea)
		if err != nil {
			return err
		}
		if conceptSave {
			if p, err = a.store.PutPersona(cmd.Context(), p); err != nil {
				return err
			}
		}
		return printJSON(cmd, p)
	},
}

var characterCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Store a persona",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.store.PutPersona(cmd.Context(), &llm.Persona{
			Name:        createName,
			Personality: createPersonality,
			Greeting:    createGreeting,
			VoiceTone:   createVoice,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd, p)
	},
}

var characterListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored personas",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.Close()

		personas, err := a.store.ListPersonas(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd, personas)
	},
}

func init() {
	characterConceptCmd.Flags().StringVar(&conceptTheme, "theme", "", "Theme or type of character")
	characterConceptCmd.Flags().StringVar(&conceptIdea, "idea", "", "Initial idea")
	characterConceptCmd.Flags().BoolVar(&conceptSave, "save", false, "Store the generated persona")

	characterCreateCmd.Flags().StringVar(&createName, "name", "", "Persona name")
	characterCreateCmd.Flags().StringVar(&createPersonality, "personality", "", "Persona personality")
	characterCreateCmd.Flags().StringVar(&createGreeting, "greeting", "", "Greeting message")
	characterCreateCmd.Flags().StringVar(&createVoice, "voice", "", "Voice and tone")

	characterCmd.AddCommand(characterConceptCmd, characterCreateCmd, characterListCmd)
	RootCmd.AddCommand(characterCmd)
}
