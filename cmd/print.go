package cmd

import (
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"os"

	"github.com/nixxel-company-limited/escpos-dispatch/config"
	"github.com/nixxel-company-limited/escpos-dispatch/dispatch"
	"github.com/nixxel-company-limited/escpos-dispatch/escpos"
	"github.com/spf13/cobra"
)

var printCmd = &cobra.Command{
	Use:   "print",
	Short: "Print a test line or an image on the configured printer and cut the paper",
	Long: `Connects to the bridge, lists its printers, sends ESC @, the text line
and GS V A 3 to the printer named by --printer, then disconnects.

With --image the job is the bitmap instead: ESC @, left align, GS v 0,
then at least 8 lines of feed and a full cut.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(v)
		if err != nil {
			return err
		}

		job, err := buildJob(cfg)
		if err != nil {
			return err
		}

		d := dispatch.NewWithBuffer(newClient(cfg), cfg.PrinterName, job)
		return d.Dispatch(cmd.Context())
	},
}

// buildJob returns the image page when an image is configured, else the test page
func buildJob(cfg *config.Config) (escpos.Buffer, error) {
	if cfg.PrintImage == "" {
		return escpos.TestPage(cfg.PrintText), nil
	}

	img, err := loadImage(cfg.PrintImage)
	if err != nil {
		return escpos.Buffer{}, err
	}
	return escpos.ImagePage(img, cfg.PrinterWidth, byte(cfg.FeedLines)), nil
}

func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}

func init() {
	flags := printCmd.Flags()
	flags.String("text", v.GetString(config.KeyPrintText), "text line to print")
	flags.String("image", v.GetString(config.KeyPrintImage), "PNG or JPEG file to print instead of text")
	flags.Int("width", v.GetInt(config.KeyPrinterWidth), "printer width in dots")
	flags.Int("feed-lines", v.GetInt(config.KeyFeedLines), "lines to feed before the cut (at least 8 are fed)")

	bindFlags(v, printCmd, map[string]string{
		config.KeyPrintText:    "text",
		config.KeyPrintImage:   "image",
		config.KeyPrinterWidth: "width",
		config.KeyFeedLines:    "feed-lines",
	})
}
