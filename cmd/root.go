// Package cmd is the escpos-dispatch command line: print a test job through
// a bridge, list the bridge's printers, or run the bridge itself.
package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nixxel-company-limited/escpos-dispatch/bridge"
	"github.com/nixxel-company-limited/escpos-dispatch/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var v = config.New()

var rootCmd = &cobra.Command{
	Use:           "escpos-dispatch",
	Short:         "Send raw ESC/POS jobs through a printer bridge",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI and exits non-zero on failure
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Printf("Error: %v", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("bridge-mode", v.GetString(config.KeyBridgeMode), "bridge backend: tcp or usb")
	flags.String("bridge-address", v.GetString(config.KeyBridgeAddress), "address of the tcp bridge")
	flags.Duration("dial-timeout", v.GetDuration(config.KeyBridgeDialTimeout), "tcp bridge connect timeout")
	flags.String("printer", v.GetString(config.KeyPrinterName), "destination printer name")
	flags.StringSlice("bridge-printers", nil, "printer names served by the tcp bridge (default: --printer)")

	bindFlags(v, rootCmd, map[string]string{
		config.KeyBridgeMode:        "bridge-mode",
		config.KeyBridgeAddress:     "bridge-address",
		config.KeyBridgeDialTimeout: "dial-timeout",
		config.KeyPrinterName:       "printer",
		config.KeyBridgePrinters:    "bridge-printers",
	})

	rootCmd.AddCommand(printCmd, printersCmd, serveCmd)
}

// bindFlags makes a flag win over the environment only when it is set
func bindFlags(v *viper.Viper, cmd *cobra.Command, keys map[string]string) {
	for key, name := range keys {
		flag := cmd.PersistentFlags().Lookup(name)
		if flag == nil {
			flag = cmd.Flags().Lookup(name)
		}
		if err := v.BindPFlag(key, flag); err != nil {
			panic(err)
		}
	}
}

// newClient builds the bridge client selected by cfg
func newClient(cfg *config.Config) bridge.Client {
	if cfg.BridgeMode == config.ModeUSB {
		return bridge.NewUSBClient()
	}
	c := bridge.NewTCPClient(cfg.BridgeAddress, cfg.BridgePrinters...)
	c.DialTimeout = cfg.BridgeDialTimeout
	return c
}
