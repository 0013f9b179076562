package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abhisek/triplehelix/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the record server",
	Long: "Runs the HTTP store of record that sessions sync their scheduling\n" +
		"state into. The server is passive: it persists and serves state, it\n" +
		"never makes scheduling decisions.",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return server.New(cfg.Server.Addr, st, log).Run(ctx)
	},
}
