package cmd

import (
	"fmt"
	"log"

	"github.com/nixxel-company-limited/escpos-dispatch/adapter"
	"github.com/nixxel-company-limited/escpos-dispatch/config"
	"github.com/nixxel-company-limited/escpos-dispatch/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a raw-port bridge that forwards jobs to a USB or serial printer",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(v)
		if err != nil {
			return err
		}

		device, err := newAdapter(cfg)
		if err != nil {
			return err
		}
		defer device.Close()

		log.Printf("Server will listen on: %s", cfg.ServerAddress)
		svr := server.New(device, cfg.ServerAddress)

		if err := svr.StartAsync(); err != nil {
			return err
		}
		<-cmd.Context().Done()
		return svr.Stop()
	},
}

func newAdapter(cfg *config.Config) (adapter.Adapter, error) {
	switch cfg.PrinterDevice {
	case config.DeviceSerial:
		return adapter.NewSerialAdapter(cfg.SerialPort, cfg.SerialBaud), nil
	default:
		device, err := adapter.NewUSBAdapter(cfg.USBVendorID, cfg.USBProductID)
		if err != nil {
			return nil, fmt.Errorf("usb printer: %w", err)
		}
		return device, nil
	}
}

func init() {
	flags := serveCmd.Flags()
	flags.String("listen", v.GetString(config.KeyServerAddress), "address the bridge listens on")
	flags.String("device", v.GetString(config.KeyPrinterDevice), "printer transport: usb or serial")
	flags.String("serial-port", v.GetString(config.KeySerialPort), "serial port name")
	flags.Int("baud", v.GetInt(config.KeySerialBaud), "serial baud rate")

	bindFlags(v, serveCmd, map[string]string{
		config.KeyServerAddress: "listen",
		config.KeyPrinterDevice: "device",
		config.KeySerialPort:    "serial-port",
		config.KeySerialBaud:    "baud",
	})
}
