package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/campaign-planner/internal/model"
	"github.com/sells-group/campaign-planner/internal/planner"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Allocate a media budget across providers",
	Long: `Splits a total budget across a market's providers and reports deduplicated
reach, frequency, blended CPM and GRPs.

Modes:
  auto    greedy marginal-reach allocation (default)
  equal   even split across the enabled providers
  manual  use the --alloc values as given`,
	Example: `  planner optimize --budget 250000
  planner optimize --market uk --budget 100000 --providers ctv,social
  planner optimize --mode manual --alloc ctv=60000 --alloc search=40000 --save "Q3 base"`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		save, _ := cmd.Flags().GetString("save")
		e, err := initEnv(ctx, save != "")
		if err != nil {
			return err
		}
		defer e.Close()

		market, _ := cmd.Flags().GetString("market")
		budget, _ := cmd.Flags().GetFloat64("budget")
		mode, _ := cmd.Flags().GetString("mode")
		providers, _ := cmd.Flags().GetStringSlice("providers")
		pairs, _ := cmd.Flags().GetStringArray("alloc")

		manual, err := parseAllocations(pairs)
		if err != nil {
			return err
		}
		req := planner.AllocateRequest{
			Market:      market,
			Mode:        model.AllocationMode(mode),
			TotalBudget: budget,
			Providers:   providers,
			Manual:      manual,
		}
		if req.Mode == model.ModeManual && !cmd.Flags().Changed("budget") {
			req.TotalBudget = manual.Total()
		}

		res, err := e.Service.Allocate(ctx, req)
		if err != nil {
			return eris.Wrap(err, "optimize")
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			if err := writeJSON(os.Stdout, res); err != nil {
				return err
			}
		} else {
			formatAllocation(os.Stdout, res)
		}

		if save != "" {
			plan, err := e.Service.SavePlan(ctx, save, req)
			if err != nil {
				return eris.Wrap(err, "optimize: save plan")
			}
			fmt.Fprintf(os.Stderr, "Saved plan %s (%s)\n", plan.Name, plan.ID)
		}
		return nil
	},
}

// parseAllocations parses provider=amount pairs.
func parseAllocations(pairs []string) (model.AllocationMap, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(model.AllocationMap, len(pairs))
	for _, p := range pairs {
		id, amount, ok := strings.Cut(p, "=")
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			return nil, eris.Errorf("invalid allocation %q: expected provider=amount", p)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(amount), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "invalid allocation amount for %s", id)
		}
		out[id] += v
	}
	return out, nil
}

func init() {
	f := optimizeCmd.Flags()
	f.String("market", "", "market id (default from config)")
	f.Float64("budget", 0, "total budget")
	f.String("mode", string(model.ModeAuto), "allocation mode: auto, equal or manual")
	f.StringSlice("providers", nil, "enabled provider ids (default all providers of the market)")
	f.StringArray("alloc", nil, "manual allocation as provider=amount (repeatable)")
	f.String("save", "", "save the result as a named plan")
	f.Bool("json", false, "print the result as JSON")
	rootCmd.AddCommand(optimizeCmd)
}
