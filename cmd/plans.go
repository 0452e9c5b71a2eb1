package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/campaign-planner/internal/model"
	"github.com/sells-group/campaign-planner/internal/store"
)

var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "Inspect saved budget plans",
	Long:  "Commands for listing, viewing, and deleting saved budget plans.",
}

// -- plans list --

var plansListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved plans, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		market, _ := cmd.Flags().GetString("market")
		mode, _ := cmd.Flags().GetString("mode")
		limit, _ := cmd.Flags().GetInt("limit")

		plans, err := st.ListPlans(ctx, store.PlanFilter{
			Market: market,
			Mode:   model.AllocationMode(mode),
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "plans list")
		}

		if len(plans) == 0 {
			fmt.Fprintln(os.Stderr, "No plans found.")
			return nil
		}

		formatPlansList(os.Stdout, plans)
		return nil
	},
}

// -- plans show --

var plansShowCmd = &cobra.Command{
	Use:   "show <plan-id>",
	Short: "Show full details of a plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		plan, err := st.GetPlan(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "plans show")
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			return writeJSON(os.Stdout, plan)
		}
		fmt.Fprintf(os.Stdout, "Plan %s: %s (%s, %s)\n\n", plan.ID, plan.Name, plan.Market, plan.Mode)
		formatMetrics(os.Stdout, plan.Metrics)
		fmt.Fprintln(os.Stdout)
		for _, id := range sortedIDs(plan.Allocations) {
			fmt.Fprintf(os.Stdout, "  %-16s %s\n", id, money(plan.Allocations[id]))
		}
		return nil
	},
}

// -- plans delete --

var plansDeleteCmd = &cobra.Command{
	Use:   "delete <plan-id>",
	Short: "Delete a saved plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.DeletePlan(ctx, args[0]); err != nil {
			return eris.Wrap(err, "plans delete")
		}
		fmt.Fprintf(os.Stderr, "Deleted plan %s\n", args[0])
		return nil
	},
}

func init() {
	plansListCmd.Flags().String("market", "", "filter by market")
	plansListCmd.Flags().String("mode", "", "filter by allocation mode (equal, manual, auto)")
	plansListCmd.Flags().Int("limit", 20, "maximum number of plans to show")

	plansShowCmd.Flags().Bool("json", false, "print the plan as JSON")

	plansCmd.AddCommand(plansListCmd)
	plansCmd.AddCommand(plansShowCmd)
	plansCmd.AddCommand(plansDeleteCmd)
	rootCmd.AddCommand(plansCmd)
}
