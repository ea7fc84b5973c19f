package content

import (
	"testing"

	"github.com/pkozlov/marketguard/internal/policy"
)

func FuzzClassify(f *testing.F) {
	cfg := policy.DefaultConfig()
	filter, err := New(cfg.ContentFiltering, cfg.Security.MaxInputLength)
	if err != nil {
		f.Fatalf("new filter: %v", err)
	}

	f.Add("should i buy AAPL")
	f.Add("'; DROP TABLE users; --")
	f.Add("what is the price of MSFT")
	f.Add("")

	f.Fuzz(func(t *testing.T, query string) {
		a := filter.Classify(query)
		if a.Blocked && a.Category == "" {
			t.Errorf("blocked assessment without category: %+v", a)
		}
		if !a.Blocked && a.Category != "" {
			t.Errorf("allowed assessment carries blocking category: %+v", a)
		}
		if _, ok := riskRank[a.Risk]; !ok {
			t.Errorf("unknown risk level %q", a.Risk)
		}
	})
}
