package cmd

import (
	"fmt"

	"github.com/nixxel-company-limited/escpos-dispatch/config"
	"github.com/spf13/cobra"
)

var printersCmd = &cobra.Command{
	Use:   "printers",
	Short: "List the printers known to the bridge",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(v)
		if err != nil {
			return err
		}

		session, err := newClient(cfg).Connect(cmd.Context())
		if err != nil {
			return err
		}
		defer session.Close()

		printers, err := session.Printers(cmd.Context())
		if err != nil {
			return err
		}
		for _, name := range printers {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}
