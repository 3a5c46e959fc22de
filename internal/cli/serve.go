package cli

import (
	"fmt"

	"github.com/baodaydungsone/chai/server"
	"github.com/spf13/cobra"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.Close()

		port := a.cfg.HTTPPort
		if servePort != 0 {
			port = servePort
		}
		a.log.Info().Int("port", port).Msg("starting server")
		return server.NewServer(a.engine, a.log).Start(fmt.Sprintf(":%d", port))
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Listen port (default: $CHAI_HTTP_PORT or 1323)")
	RootCmd.AddCommand(serveCmd)
}
