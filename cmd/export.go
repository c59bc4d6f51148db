package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cavena/mobility-cli/internal/export"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Re-export the artifacts of a stored run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "export run")
		}
		if run.State == nil {
			return eris.Errorf("run %s has no stored state", run.ID)
		}

		exportCfg := cfg.Export
		if exportOut != "" {
			exportCfg.OutDir = exportOut
		}
		renderer := export.NewRenderer(exportCfg, cfg.Isochrone, run.SiteName, run.City)
		if err := renderer.Render(ctx, run.State); err != nil {
			return err
		}

		zap.L().Info("export complete",
			zap.String("run_id", run.ID),
			zap.String("out_dir", exportCfg.OutDir))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output directory (default from config)")
	rootCmd.AddCommand(exportCmd)
}
