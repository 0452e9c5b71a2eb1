package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/campaign-planner/internal/affinity"
	"github.com/sells-group/campaign-planner/internal/catalog"
	"github.com/sells-group/campaign-planner/internal/planner"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend exposed and holdout geographic units for an audience",
	Long: `Scores every geographic unit of a market against an audience and splits the
qualifying units into exposed and holdout groups of similar quality.

The audience is given by exactly one of --audience, --dimensions, --query or
--affinity-file.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx, false)
		if err != nil {
			return err
		}
		defer e.Close()

		market, _ := cmd.Flags().GetString("market")
		audienceID, _ := cmd.Flags().GetString("audience")
		dims, _ := cmd.Flags().GetStringSlice("dimensions")
		query, _ := cmd.Flags().GetString("query")
		affinityFile, _ := cmd.Flags().GetString("affinity-file")

		req := planner.RecommendRequest{
			Market: market,
			AudienceRequest: planner.AudienceRequest{
				AudienceID: audienceID,
				Dimensions: dims,
				Query:      query,
			},
		}

		if affinityFile != "" {
			codeCol, _ := cmd.Flags().GetString("code-column")
			valueCol, _ := cmd.Flags().GetString("value-column")
			noHeader, _ := cmd.Flags().GetBool("no-header")

			table, err := catalog.LoadAffinityTable(affinityFile, affinity.TableOptions{
				HasHeader:   !noHeader,
				CodeColumn:  codeCol,
				ValueColumn: valueCol,
			})
			if err != nil {
				return err
			}
			for _, issue := range table.Skipped {
				zap.L().Warn("skipped affinity row", zap.Int("row", issue.Row), zap.String("reason", issue.Reason))
			}
			name := strings.TrimSuffix(filepath.Base(affinityFile), filepath.Ext(affinityFile))
			a := table.Audience("upload", name)
			req.Audience = &a
		}

		if cmd.Flags().Changed("min-score") {
			v, _ := cmd.Flags().GetInt("min-score")
			req.MinScore = &v
		}
		if cmd.Flags().Changed("max-units") {
			v, _ := cmd.Flags().GetInt("max-units")
			req.MaxUnits = &v
		}
		if cmd.Flags().Changed("exposed-ratio") {
			v, _ := cmd.Flags().GetFloat64("exposed-ratio")
			req.ExposedRatio = &v
		}

		rec, err := e.Service.Recommend(ctx, req)
		if err != nil {
			return eris.Wrap(err, "recommend")
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		asCSV, _ := cmd.Flags().GetBool("csv")
		switch {
		case asJSON:
			return writeJSON(os.Stdout, rec)
		case asCSV:
			return writeGroupsCSV(os.Stdout, rec)
		}

		show, _ := cmd.Flags().GetInt("show")
		formatRecommendation(os.Stdout, rec, show)
		return nil
	},
}

func init() {
	f := recommendCmd.Flags()
	f.String("market", "", "market id (default from config)")
	f.String("audience", "", "predefined audience id")
	f.StringSlice("dimensions", nil, "builder dimension ids to combine into an audience")
	f.String("query", "", "free-text audience description")
	f.String("affinity-file", "", "CSV, TSV or XLSX file of geo code and metric columns")
	f.String("code-column", "", "geo code column header in --affinity-file (default first column)")
	f.String("value-column", "", "metric column header in --affinity-file (default second column)")
	f.Bool("no-header", false, "treat the first row of --affinity-file as data")
	f.Int("min-score", 0, "minimum affinity score to qualify (default from config)")
	f.Int("max-units", 0, "maximum units selected (default from config)")
	f.Float64("exposed-ratio", 0, "share of selected units placed in the exposed group (default from config)")
	f.Int("show", 20, "number of exposed units to list")
	f.Bool("json", false, "print the full recommendation as JSON")
	f.Bool("csv", false, "print code,score,group rows as CSV")
	recommendCmd.MarkFlagsMutuallyExclusive("json", "csv")
	rootCmd.AddCommand(recommendCmd)
}
