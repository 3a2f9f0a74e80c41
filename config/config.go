package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Keys double as environment variable names
const (
	KeyServerAddress     = "SERVER_ADDRESS"
	KeyBridgeMode        = "BRIDGE_MODE"
	KeyBridgeAddress     = "BRIDGE_ADDRESS"
	KeyBridgeDialTimeout = "BRIDGE_DIAL_TIMEOUT"
	KeyPrinterName       = "PRINTER_NAME"
	KeyPrintText         = "PRINT_TEXT"
	KeyBridgePrinters    = "BRIDGE_PRINTERS"
	KeyPrintImage        = "PRINT_IMAGE"
	KeyPrinterWidth      = "PRINTER_WIDTH"
	KeyFeedLines         = "FEED_LINES"
	KeyPrinterDevice     = "PRINTER_DEVICE"
	KeyUSBVendorID       = "USB_VENDOR_ID"
	KeyUSBProductID      = "USB_PRODUCT_ID"
	KeySerialPort        = "SERIAL_PORT"
	KeySerialBaud        = "SERIAL_BAUD"
)

const (
	ModeTCP = "tcp"
	ModeUSB = "usb"

	DeviceUSB    = "usb"
	DeviceSerial = "serial"
)

// Config holds the settings for both the dispatcher and the bridge server
type Config struct {
	ServerAddress string

	BridgeMode        string
	BridgeAddress     string
	BridgeDialTimeout time.Duration
	BridgePrinters    []string
	PrinterName       string
	PrintText         string
	PrintImage        string
	PrinterWidth      int
	FeedLines         int

	PrinterDevice string
	USBVendorID   uint16
	USBProductID  uint16
	SerialPort    string
	SerialBaud    int
}

// New returns a viper instance reading the environment, with defaults set
func New() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault(KeyServerAddress, "localhost:9100")
	v.SetDefault(KeyBridgeMode, ModeTCP)
	v.SetDefault(KeyBridgeAddress, "localhost:9100")
	v.SetDefault(KeyBridgeDialTimeout, 5*time.Second)
	v.SetDefault(KeyPrinterName, "Your Rongta Printer Name")
	v.SetDefault(KeyPrintText, "Hello Rongta!")
	v.SetDefault(KeyBridgePrinters, "")
	v.SetDefault(KeyPrintImage, "")
	v.SetDefault(KeyPrinterWidth, 576)
	v.SetDefault(KeyFeedLines, 1)
	v.SetDefault(KeyPrinterDevice, DeviceUSB)
	v.SetDefault(KeyUSBVendorID, 0)
	v.SetDefault(KeyUSBProductID, 0)
	v.SetDefault(KeySerialPort, "")
	v.SetDefault(KeySerialBaud, 9600)

	return v
}

// Load reads and validates the configuration from v
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		ServerAddress:     v.GetString(KeyServerAddress),
		BridgeMode:        strings.ToLower(strings.TrimSpace(v.GetString(KeyBridgeMode))),
		BridgeAddress:     v.GetString(KeyBridgeAddress),
		BridgeDialTimeout: v.GetDuration(KeyBridgeDialTimeout),
		PrinterName:       strings.TrimSpace(v.GetString(KeyPrinterName)),
		PrintText:         v.GetString(KeyPrintText),
		PrintImage:        strings.TrimSpace(v.GetString(KeyPrintImage)),
		PrinterWidth:      v.GetInt(KeyPrinterWidth),
		FeedLines:         v.GetInt(KeyFeedLines),
		PrinterDevice:     strings.ToLower(strings.TrimSpace(v.GetString(KeyPrinterDevice))),
		SerialPort:        v.GetString(KeySerialPort),
		SerialBaud:        v.GetInt(KeySerialBaud),
	}

	var err error
	if cfg.USBVendorID, err = parseUSBID(v.GetString(KeyUSBVendorID)); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", KeyUSBVendorID, err)
	}
	if cfg.USBProductID, err = parseUSBID(v.GetString(KeyUSBProductID)); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", KeyUSBProductID, err)
	}

	switch cfg.BridgeMode {
	case ModeTCP, ModeUSB:
	default:
		return nil, fmt.Errorf("invalid %s %q: want %s or %s", KeyBridgeMode, cfg.BridgeMode, ModeTCP, ModeUSB)
	}

	switch cfg.PrinterDevice {
	case DeviceUSB:
	case DeviceSerial:
		if cfg.SerialPort == "" {
			return nil, fmt.Errorf("%s is required when %s is %s", KeySerialPort, KeyPrinterDevice, DeviceSerial)
		}
	default:
		return nil, fmt.Errorf("invalid %s %q: want %s or %s", KeyPrinterDevice, cfg.PrinterDevice, DeviceUSB, DeviceSerial)
	}

	if cfg.PrinterName == "" {
		return nil, fmt.Errorf("%s must not be empty", KeyPrinterName)
	}

	cfg.BridgePrinters = printerList(v)
	if len(cfg.BridgePrinters) == 0 {
		cfg.BridgePrinters = []string{cfg.PrinterName}
	}

	if cfg.PrinterWidth <= 0 {
		return nil, fmt.Errorf("%s must be positive", KeyPrinterWidth)
	}
	if cfg.FeedLines < 0 || cfg.FeedLines > 255 {
		return nil, fmt.Errorf("%s must be between 0 and 255", KeyFeedLines)
	}

	return cfg, nil
}

// printerList reads BRIDGE_PRINTERS. The environment gives one comma
// separated string; a string slice flag gives the list directly.
// Printer names may contain spaces, so the string is split on commas only.
func printerList(v *viper.Viper) []string {
	var items []string
	if s, ok := v.Get(KeyBridgePrinters).(string); ok {
		items = strings.Split(s, ",")
	} else {
		items = v.GetStringSlice(KeyBridgePrinters)
	}

	var names []string
	for _, item := range items {
		if name := strings.TrimSpace(item); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// parseUSBID parses a hex VID/PID, with or without a 0x prefix
func parseUSBID(s string) (uint16, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	if s == "" {
		return 0, nil
	}

	id, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("%q is not a hex USB id", s)
	}
	return uint16(id), nil
}
