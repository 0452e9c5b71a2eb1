package reach

import "github.com/sells-group/campaign-planner/internal/model"

func testMarket() *model.Market {
	return &model.Market{
		ID:        "us",
		Name:      "United States",
		Universe:  1_000_000,
		Diversity: model.DiversityNumeric,
		Providers: []model.ProviderProfile{
			{ID: "ctv", Name: "Connected TV", MaxReachFraction: 0.6, CPM: 25, MaxFrequency: 6, Steepness: 1, Overlaps: map[string]float64{"social": 0.3, "search": 0.1}},
			{ID: "social", Name: "Social", MaxReachFraction: 0.7, CPM: 8, MaxFrequency: 10, Steepness: 0.8, Overlaps: map[string]float64{"search": 0.4}},
			{ID: "search", Name: "Search", MaxReachFraction: 0.4, CPM: 12, MaxFrequency: 8, Steepness: 1.2},
			{ID: "radio", Name: "Radio (unmodeled)", MaxReachFraction: 0.5},
		},
	}
}
