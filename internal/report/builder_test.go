package report_test

import (
	"testing"

	"github.com/nv4818/webtrack/internal/model"
	"github.com/nv4818/webtrack/internal/report"
)

func TestBuildMergesSecondsAndInput(t *testing.T) {
	b := report.NewBuilder(35)
	entries := b.Build(map[string]model.UsageEntry{
		"a.com": {Seconds: 12, Keys: 4, Clicks: 2, Scrolls: 1, MouseDistanceIn: 3.25},
		"b.com": {Seconds: 3},
	})
	if len(entries) != 2 {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[0].Domain != "a.com" || entries[1].Domain != "b.com" {
		t.Fatalf("entries must be sorted by domain: %+v", entries)
	}
	if entries[0].Seconds != 12 || entries[0].Keys != 4 || entries[0].MouseDistanceIn != 3.25 {
		t.Fatalf("a.com entry = %+v", entries[0])
	}
}

func TestBuildIncludesInputOnlyDomains(t *testing.T) {
	b := report.NewBuilder(35)
	entries := b.Build(map[string]model.UsageEntry{
		"quick.com": {Seconds: 0, Clicks: 1},
		"empty.com": {},
	})
	if len(entries) != 1 {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[0].Domain != "quick.com" || entries[0].Seconds != 0 || entries[0].Clicks != 1 {
		t.Fatalf("entry = %+v", entries[0])
	}
}

func TestBuildEmptyUsage(t *testing.T) {
	b := report.NewBuilder(35)
	if entries := b.Build(nil); len(entries) != 0 {
		t.Fatalf("entries = %+v", entries)
	}
	if entries := b.Build(map[string]model.UsageEntry{"a.com": {}}); len(entries) != 0 {
		t.Fatalf("all-zero usage must build an empty report: %+v", entries)
	}
}

func TestBuildClampsPerDomainSeconds(t *testing.T) {
	b := report.NewBuilder(35)
	entries := b.Build(map[string]model.UsageEntry{
		"a.com": {Seconds: 40},
	})
	if len(entries) != 1 || entries[0].Seconds != 35 {
		t.Fatalf("entries = %+v, want one entry clamped to 35", entries)
	}
}

func TestBuildWithholdsOverTotalCap(t *testing.T) {
	b := report.NewBuilder(35)
	entries := b.Build(map[string]model.UsageEntry{
		"a.com": {Seconds: 20},
		"b.com": {Seconds: 20},
		"c.com": {Seconds: 10},
	})
	// a.com (20) fits, b.com (20) would exceed 35 and is withheld,
	// c.com (10) still fits under the remaining budget.
	var total int64
	seen := map[string]bool{}
	for _, entry := range entries {
		total += entry.Seconds
		seen[entry.Domain] = true
	}
	if total > 35 {
		t.Fatalf("total %d exceeds peer limit: %+v", total, entries)
	}
	if !seen["a.com"] || seen["b.com"] || !seen["c.com"] {
		t.Fatalf("unexpected inclusion set: %+v", entries)
	}
}

func TestDomains(t *testing.T) {
	b := report.NewBuilder(35)
	entries := b.Build(map[string]model.UsageEntry{
		"a.com": {Seconds: 1},
		"b.com": {Clicks: 2},
	})
	domains := report.Domains(entries)
	if len(domains) != 2 || domains[0] != "a.com" || domains[1] != "b.com" {
		t.Fatalf("domains = %v", domains)
	}
}
