package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/campaign-planner/internal/planner"
)

var curveCmd = &cobra.Command{
	Use:   "curve",
	Short: "Sample deduplicated reach across budgets",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx, false)
		if err != nil {
			return err
		}
		defer e.Close()

		market, _ := cmd.Flags().GetString("market")
		providers, _ := cmd.Flags().GetStringSlice("providers")
		maxBudget, _ := cmd.Flags().GetFloat64("max-budget")
		samples, _ := cmd.Flags().GetInt("samples")

		m, err := e.Service.Market(market)
		if err != nil {
			return err
		}
		points, err := e.Service.Curve(ctx, planner.CurveRequest{
			Market:    m.ID,
			Providers: providers,
			MaxBudget: maxBudget,
			Samples:   samples,
		})
		if err != nil {
			return eris.Wrap(err, "curve")
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		asCSV, _ := cmd.Flags().GetBool("csv")
		switch {
		case asJSON:
			return writeJSON(os.Stdout, points)
		case asCSV:
			return writeCurveCSV(os.Stdout, points)
		}
		formatCurve(os.Stdout, points, m.Universe)
		return nil
	},
}

func init() {
	f := curveCmd.Flags()
	f.String("market", "", "market id (default from config)")
	f.StringSlice("providers", nil, "enabled provider ids (default all providers of the market)")
	f.Float64("max-budget", 1_000_000, "largest sampled budget")
	f.Int("samples", 0, "number of curve points (default from config)")
	f.Bool("json", false, "print points as JSON")
	f.Bool("csv", false, "print budget,reach rows as CSV")
	curveCmd.MarkFlagsMutuallyExclusive("json", "csv")
	rootCmd.AddCommand(curveCmd)
}
