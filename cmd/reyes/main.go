// Command reyes renders a scene description to a set of image
// files using the reyes package. It is a thin shell: option parsing,
// scene loading and sink wiring live here; the pipeline itself is
// entirely in package reyes. Grounded on the pack's own cobra-based
// command shells (spf13/cobra is already in the teacher's go.mod);
// no concrete reference main.go survives in gviegas-neo3 (the
// teacher's GPU engine ran as a library embedded in a windowed
// process, not a CLI), so the command structure follows cobra's own
// documented root-command idiom.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/reyesrender/core"
	"github.com/reyesrender/core/rlog"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var optionsPath, scenePath, outPath string

	cmd := &cobra.Command{
		Use:   "reyes",
		Short: "Render a scene through the REYES split/dice/rasterize/filter pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), optionsPath, scenePath, outPath)
		},
	}

	cmd.Flags().StringVar(&optionsPath, "options", "", "path to a TOML options file (defaults used if omitted)")
	cmd.Flags().StringVar(&scenePath, "scene", "", "path to a JSON scene description (required)")
	cmd.Flags().StringVar(&outPath, "out", "out.rgba", "path for the rendered output, one file per output variable spec")
	cmd.MarkFlagRequired("scene")

	return cmd
}

func run(ctx context.Context, optionsPath, scenePath, outPath string) error {
	log := rlog.NewLogger()

	opt := reyes.DefaultOptions()
	if optionsPath != "" {
		loaded, err := reyes.Load(optionsPath, log)
		if err != nil {
			return fmt.Errorf("reyes: loading options: %w", err)
		}
		opt = *loaded
	} else {
		opt.Sanitize(log)
	}

	desc, err := loadSceneFile(scenePath)
	if err != nil {
		return fmt.Errorf("reyes: loading scene: %w", err)
	}
	scene, err := desc.build(log)
	if err != nil {
		return fmt.Errorf("reyes: building scene: %w", err)
	}

	outSpecs, sinks, defaultFrag, closeSinks, err := openOutputs(outPath, opt)
	if err != nil {
		return fmt.Errorf("reyes: opening output: %w", err)
	}
	defer closeSinks()

	r := reyes.New(opt, outSpecs, sinks, defaultFrag, log)
	return r.Render(ctx, scene)
}
