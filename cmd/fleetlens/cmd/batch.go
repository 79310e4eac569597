package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/fleetlens/fleetlens/internal/pdf"
	"github.com/fleetlens/fleetlens/internal/pipeline"
	"github.com/fleetlens/fleetlens/internal/recognize"
)

// batchCmd represents the batch command.
var batchCmd = &cobra.Command{
	Use:   "batch [images...]",
	Short: "Reconcile multiple images into one structured record",
	Long: `Recognize several photographed images of the same subject concurrently
and reconcile the per-image extractions into a single record. Earlier
images take priority when the same field is found more than once.

Instead of images, --pdf extracts the embedded page images of a PDF file.

Examples:
  fleetlens batch front.jpg back.jpg --mode vehicle
  fleetlens batch scans/*.png --mode document --format yaml
  fleetlens batch --pdf statement.pdf --pages 1-3`,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		mode, _ := cmd.Flags().GetString("mode")
		if mode != modeVehicle && mode != modeDocument {
			return fmt.Errorf("invalid mode %q (must be vehicle or document)", mode)
		}

		pdfFile, _ := cmd.Flags().GetString("pdf")
		pages, _ := cmd.Flags().GetString("pages")

		var inputs []recognize.Input
		switch {
		case pdfFile != "":
			if len(args) > 0 {
				return errors.New("cannot combine image arguments with --pdf")
			}
			extracted, err := pdf.ExtractInputs(pdfFile, pages)
			if err != nil {
				return fmt.Errorf("failed to extract PDF images: %w", err)
			}
			if len(extracted) == 0 {
				return errors.New("PDF contains no images")
			}
			inputs = extracted
		case len(args) > 0:
			inputs = make([]recognize.Input, len(args))
			for i, path := range args {
				inputs[i] = recognize.Input{Path: path}
			}
		default:
			return errors.New("no input files provided")
		}

		strategy := recognize.StrategyLocal
		if remote, _ := cmd.Flags().GetBool("remote"); remote {
			strategy = recognize.StrategyRemote
		}

		workers := cfg.Batch.MaxWorkers
		if cmd.Flags().Changed("workers") {
			workers, _ = cmd.Flags().GetInt("workers")
		}

		provider := recognize.NewProvider(cfg.Provider)
		opts := pipeline.Options{
			Strategy:   strategy,
			MaxWorkers: workers,
			OnProgress: func(done, total int) {
				slog.Debug("Batch progress", "done", done, "total", total)
			},
		}

		out := batchOutput{Mode: mode, Count: len(inputs)}
		var failed bool
		switch mode {
		case modeVehicle:
			p := pipeline.NewVehicle(provider, opts)
			merged := p.ProcessMany(cmd.Context(), inputs)
			out.Confidence = roundConfidence(merged.Confidence, cfg.Output.ConfidencePrecision)
			out.FullText = merged.FullText
			out.Vehicle = &merged.Fields
			failed = p.State() == pipeline.StateFailed
		default:
			p := pipeline.NewDocument(provider, opts)
			merged := p.ProcessMany(cmd.Context(), inputs)
			out.Confidence = roundConfidence(merged.Confidence, cfg.Output.ConfidencePrecision)
			out.FullText = merged.FullText
			out.Document = &merged.Fields
			failed = p.State() == pipeline.StateFailed
		}

		if failed {
			out.Error = "all inputs failed recognition"
		}

		if err := writeResult(cfg.Output, out); err != nil {
			return err
		}
		if failed {
			return errors.New(out.Error)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().StringP("mode", "m", modeDocument, "extraction mode (vehicle, document)")
	batchCmd.Flags().String("pdf", "", "extract inputs from the page images of this PDF file")
	batchCmd.Flags().String("pages", "", "page range for --pdf, e.g. \"1-3,5\" (default all pages)")
	batchCmd.Flags().IntP("workers", "w", 0, "maximum concurrent recognitions (0 = one per image)")
}
