package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/campaign-planner/internal/model"
	"github.com/sells-group/campaign-planner/internal/optimizer"
	"github.com/sells-group/campaign-planner/internal/planner"
)

var printer = message.NewPrinter(language.English)

// money formats an amount with thousands separators and no decimals.
func money(v float64) string {
	return printer.Sprintf("$%.0f", v)
}

// count formats a whole-number quantity with thousands separators.
func count(v float64) string {
	return printer.Sprintf("%.0f", v)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatAllocation writes a per-provider allocation table followed by the
// combined metrics.
func formatAllocation(out io.Writer, res *optimizer.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "PROVIDER\tSPEND\tSHARE\tIMPRESSIONS\tREACH\tFREQ")
	_, _ = fmt.Fprintln(w, "--------\t-----\t-----\t-----------\t-----\t----")

	byID := make(map[string]model.ProviderMetrics, len(res.Metrics.Providers))
	for _, p := range res.Metrics.Providers {
		byID[p.ProviderID] = p
	}
	total := res.Allocations.Total()
	for _, id := range sortedIDs(res.Allocations) {
		spend := res.Allocations[id]
		share := 0.0
		if total > 0 {
			share = spend / total * 100
		}
		pm := byID[id]
		_, _ = fmt.Fprintf(w, "%s\t%s\t%.1f%%\t%s\t%s\t%.2f\n",
			id, money(spend), share, count(pm.Impressions), count(pm.Reach), pm.Frequency)
	}
	_ = w.Flush()

	formatMetrics(out, res.Metrics)
	if res.Mode == model.ModeAuto {
		_, _ = fmt.Fprintf(out, "Iterations: %d (increment %s, cap %s)\n", res.Iterations, money(res.Increment), money(res.Cap))
	}
	for _, warn := range res.Warnings {
		_, _ = fmt.Fprintf(out, "warning: %s\n", warn)
	}
}

// formatMetrics writes combined campaign metrics.
func formatMetrics(out io.Writer, m model.CombinedMetrics) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Budget:\t%s\n", money(m.Budget))
	_, _ = fmt.Fprintf(w, "Gross reach:\t%s\n", count(m.GrossReach))
	_, _ = fmt.Fprintf(w, "Overlap deduction:\t%s\n", count(m.OverlapDeduction))
	_, _ = fmt.Fprintf(w, "Deduplicated reach:\t%s (%.1f%%)\n", count(m.DedupedReach), m.ReachPct)
	_, _ = fmt.Fprintf(w, "Frequency:\t%.2f\n", m.Frequency)
	_, _ = fmt.Fprintf(w, "Blended CPM:\t%s\n", printer.Sprintf("$%.2f", m.BlendedCPM))
	_, _ = fmt.Fprintf(w, "GRPs:\t%.1f\n", m.GRPs)
	_ = w.Flush()
}

// formatRecommendation writes group statistics and the exposed units.
func formatRecommendation(out io.Writer, rec *planner.Recommendation, showUnits int) {
	s := rec.Stats
	_, _ = fmt.Fprintf(out, "Audience: %s (%s)\n", rec.Audience.Name, rec.Audience.ID)
	if len(rec.Audience.MatchedTerms) > 0 {
		_, _ = fmt.Fprintf(out, "Matched terms: %v\n", rec.Audience.MatchedTerms)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Units:\t%d total, %d qualified, %d selected, %d not recommended\n",
		s.TotalUnits, s.QualifiedUnits, s.SelectedUnits, s.NotRecommended)
	_, _ = fmt.Fprintln(w, "GROUP\tUNITS\tAVG\tMIN\tMAX\tPOPULATION\tHOUSEHOLDS\tDIVERSITY")
	for _, g := range []struct {
		name  string
		stats model.GroupStats
	}{{"exposed", s.Exposed}, {"holdout", s.Holdout}} {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%.1f\t%d\t%d\t%s\t%s\t%.1f\n",
			g.name, g.stats.Count, g.stats.AvgScore, g.stats.MinScore, g.stats.MaxScore,
			count(float64(g.stats.Population)), count(float64(g.stats.Households)), g.stats.Diversity)
	}
	_ = w.Flush()

	if showUnits <= 0 || len(rec.Exposed) == 0 {
		return
	}
	_, _ = fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CODE\tSCORE\tPOPULATION")
	for i, u := range rec.Exposed {
		if i >= showUnits {
			_, _ = fmt.Fprintf(w, "...\t\t(%d more)\n", len(rec.Exposed)-showUnits)
			break
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\n", u.Code, u.Score, count(float64(u.Record.Population)))
	}
	_ = w.Flush()
}

// writeGroupsCSV writes one row per selected unit with its group.
func writeGroupsCSV(out io.Writer, rec *planner.Recommendation) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"code", "score", "group"}); err != nil {
		return err
	}
	for _, g := range []struct {
		name  string
		units []model.ScoredUnit
	}{{"exposed", rec.Exposed}, {"holdout", rec.Holdout}} {
		for _, u := range g.units {
			if err := w.Write([]string{u.Code, strconv.Itoa(u.Score), g.name}); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}

// formatCurve writes budget/reach points.
func formatCurve(out io.Writer, points []model.CurvePoint, universe float64) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "BUDGET\tREACH\tREACH%")
	for _, p := range points {
		pct := 0.0
		if universe > 0 {
			pct = p.Reach / universe * 100
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%.1f%%\n", money(p.Budget), count(p.Reach), pct)
	}
	_ = w.Flush()
}

func writeCurveCSV(out io.Writer, points []model.CurvePoint) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"budget", "reach"}); err != nil {
		return err
	}
	for _, p := range points {
		if err := w.Write([]string{
			strconv.FormatFloat(p.Budget, 'f', 2, 64),
			strconv.FormatFloat(p.Reach, 'f', 0, 64),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// formatComparison writes one summary row per scenario.
func formatComparison(out io.Writer, results []planner.ScenarioResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SCENARIO\tMODE\tBUDGET\tREACH\tREACH%\tFREQ\tCPM")
	_, _ = fmt.Fprintln(w, "--------\t----\t------\t-----\t------\t----\t---")
	for _, r := range results {
		m := r.Result.Metrics
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.1f%%\t%.2f\t%s\n",
			r.Name, r.Result.Mode, money(m.Budget), count(m.DedupedReach), m.ReachPct, m.Frequency,
			printer.Sprintf("$%.2f", m.BlendedCPM))
	}
	_ = w.Flush()
}

// formatPlansList writes a tabular list of saved plans.
func formatPlansList(out io.Writer, plans []model.Plan) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tMARKET\tMODE\tBUDGET\tREACH\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t----\t------\t----\t------\t-----\t-------")
	for _, p := range plans {
		name := p.Name
		if len(name) > 30 {
			name = name[:27] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(p.ID), name, p.Market, p.Mode, money(p.TotalBudget),
			count(p.Metrics.DedupedReach), p.CreatedAt.Format("2006-01-02 15:04"))
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func sortedIDs(alloc model.AllocationMap) []string {
	ids := make([]string, 0, len(alloc))
	for id := range alloc {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
