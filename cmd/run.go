package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	runInput string
	runSite  string
	runCity  string
	runOut   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full audit pipeline over a CSV of address pairs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		run, err := st.CreateRun(ctx, runSite, runCity)
		if err != nil {
			return err
		}
		zap.L().Info("run created", zap.String("run_id", run.ID))

		input, err := os.Open(runInput)
		if err != nil {
			return eris.Wrapf(err, "open input %s", runInput)
		}
		defer input.Close()

		state, summaries, runErr := executeRun(ctx, st, run.ID, runSite, runCity, runOut, input)
		if runErr != nil {
			return eris.Wrap(runErr, "pipeline run")
		}

		zap.L().Info("audit complete",
			zap.String("run_id", run.ID),
			zap.Int("trips", len(state.GeocodedTrips)),
			zap.Int("routes", len(state.Routes)),
			zap.Int("isochrones", len(state.Isochrones)),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	},
}

func init() {
	runCmd.Flags().StringVar(&runInput, "input", "", "CSV file of address pairs (required)")
	runCmd.Flags().StringVar(&runSite, "site", "Site Principal", "site name for exports")
	runCmd.Flags().StringVar(&runCity, "city", "", "site city for exports")
	runCmd.Flags().StringVar(&runOut, "out", "", "output directory (default from config)")
	_ = runCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(runCmd)
}
