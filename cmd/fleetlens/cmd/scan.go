package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fleetlens/fleetlens/internal/extract"
	"github.com/fleetlens/fleetlens/internal/pipeline"
	"github.com/fleetlens/fleetlens/internal/recognize"
)

const (
	modeVehicle  = "vehicle"
	modeDocument = "document"
)

// scanCmd represents the scan command.
var scanCmd = &cobra.Command{
	Use:   "scan [image]",
	Short: "Extract a structured record from a single image",
	Long: `Recognize the text in one photographed image and extract a structured
record from it.

Supported formats: JPEG, PNG, BMP, TIFF, WebP

Examples:
  fleetlens scan plate.jpg --mode vehicle
  fleetlens scan invoice.png --mode document --format yaml
  fleetlens scan receipt.jpg --remote --api-key $KEY`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		mode, _ := cmd.Flags().GetString("mode")
		if mode != modeVehicle && mode != modeDocument {
			return fmt.Errorf("invalid mode %q (must be vehicle or document)", mode)
		}

		strategy := recognize.StrategyLocal
		if remote, _ := cmd.Flags().GetBool("remote"); remote {
			strategy = recognize.StrategyRemote
		}

		provider := recognize.NewProvider(cfg.Provider)
		opts := pipeline.Options{Strategy: strategy}
		in := recognize.Input{Path: args[0]}
		out := scanOutput{Mode: mode, Source: args[0]}

		var res recognize.Result
		switch mode {
		case modeVehicle:
			var fields extract.Vehicle
			fields, res = pipeline.NewVehicle(provider, opts).ProcessOne(cmd.Context(), in)
			out.Vehicle = &fields
		default:
			var fields extract.Document
			fields, res = pipeline.NewDocument(provider, opts).ProcessOne(cmd.Context(), in)
			out.Document = &fields
		}

		out.Confidence = roundConfidence(res.Confidence, cfg.Output.ConfidencePrecision)
		if res.Failed() {
			out.Error = res.Err
			out.Vehicle = nil
			out.Document = nil
		}

		if err := writeResult(cfg.Output, out); err != nil {
			return err
		}
		if res.Failed() {
			return errors.New(res.Err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringP("mode", "m", modeDocument, "extraction mode (vehicle, document)")
}
