package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/campaign-planner/internal/model"
	"github.com/sells-group/campaign-planner/internal/planner"
)

// scenarioFile is the YAML layout accepted by compare --file.
type scenarioFile struct {
	Market    string `yaml:"market"`
	Scenarios []struct {
		Name        string             `yaml:"name"`
		Market      string             `yaml:"market"`
		Mode        string             `yaml:"mode"`
		Budget      float64            `yaml:"budget"`
		Providers   []string           `yaml:"providers"`
		Allocations map[string]float64 `yaml:"allocations"`
	} `yaml:"scenarios"`
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare allocation scenarios side by side",
	Long: `Evaluates several allocation scenarios concurrently and prints one summary row
per scenario. Scenarios come from a YAML file (--file) or from one budget run
through several modes (--budget with --modes).`,
	Example: `  planner compare --budget 250000 --modes equal,auto
  planner compare --file scenarios.yaml`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx, false)
		if err != nil {
			return err
		}
		defer e.Close()

		file, _ := cmd.Flags().GetString("file")
		market, _ := cmd.Flags().GetString("market")

		var scenarios []planner.Scenario
		if file != "" {
			scenarios, err = loadScenarios(file, market)
			if err != nil {
				return err
			}
		} else {
			budget, _ := cmd.Flags().GetFloat64("budget")
			modes, _ := cmd.Flags().GetStringSlice("modes")
			providers, _ := cmd.Flags().GetStringSlice("providers")
			scenarios = modeScenarios(market, budget, modes, providers)
		}

		results, err := e.Service.Compare(ctx, scenarios)
		if err != nil {
			return eris.Wrap(err, "compare")
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			return writeJSON(os.Stdout, results)
		}
		formatComparison(os.Stdout, results)
		return nil
	},
}

// loadScenarios reads scenarios from a YAML file. A scenario without a
// market inherits the file-level market, then the flag value.
func loadScenarios(path, market string) ([]planner.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "compare: read %s", path)
	}
	var f scenarioFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "compare: parse %s", path)
	}
	if f.Market == "" {
		f.Market = market
	}

	out := make([]planner.Scenario, 0, len(f.Scenarios))
	for _, s := range f.Scenarios {
		m := s.Market
		if m == "" {
			m = f.Market
		}
		var manual model.AllocationMap
		if len(s.Allocations) > 0 {
			manual = model.AllocationMap(s.Allocations)
		}
		out = append(out, planner.Scenario{
			Name: s.Name,
			AllocateRequest: planner.AllocateRequest{
				Market:      m,
				Mode:        model.AllocationMode(s.Mode),
				TotalBudget: s.Budget,
				Providers:   s.Providers,
				Manual:      manual,
			},
		})
	}
	return out, nil
}

// modeScenarios builds one scenario per mode for the same budget.
func modeScenarios(market string, budget float64, modes, providers []string) []planner.Scenario {
	out := make([]planner.Scenario, 0, len(modes))
	for _, mode := range modes {
		out = append(out, planner.Scenario{
			Name: mode,
			AllocateRequest: planner.AllocateRequest{
				Market:      market,
				Mode:        model.AllocationMode(mode),
				TotalBudget: budget,
				Providers:   providers,
			},
		})
	}
	return out
}

func init() {
	f := compareCmd.Flags()
	f.String("file", "", "YAML file of scenarios")
	f.String("market", "", "market id (default from config)")
	f.Float64("budget", 0, "total budget for --modes scenarios")
	f.StringSlice("modes", []string{string(model.ModeEqual), string(model.ModeAuto)}, "allocation modes to compare")
	f.StringSlice("providers", nil, "enabled provider ids (default all providers of the market)")
	f.Bool("json", false, "print results as JSON")
	rootCmd.AddCommand(compareCmd)
}
