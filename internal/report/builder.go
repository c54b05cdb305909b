// Package report turns accumulated usage into the wire report list. The peer
// rejects reports above its per-domain and total second limits, so the
// builder clamps locally: overflow within a reported domain is dropped, and
// domains that no longer fit under the total cap are withheld for the next
// period (the caller clears only reported domains).
package report

import (
	"sort"

	"github.com/nv4818/webtrack/internal/model"
	"github.com/nv4818/webtrack/internal/protocol"
)

type Builder struct {
	maxDomainSeconds int64
	maxTotalSeconds  int64
}

func NewBuilder(maxSeconds int64) Builder {
	return Builder{maxDomainSeconds: maxSeconds, maxTotalSeconds: maxSeconds}
}

// Build returns the report entries for one usage_report, sorted by domain.
// A domain appears when it has whole seconds or any input counters; rapid
// switches therefore surface as zero-second entries with input attached.
func (b Builder) Build(usage map[string]model.UsageEntry) []protocol.ReportEntry {
	domains := make([]string, 0, len(usage))
	for domain, entry := range usage {
		if entry.Seconds <= 0 && !entry.HasInput() {
			continue
		}
		domains = append(domains, domain)
	}
	sort.Strings(domains)

	entries := make([]protocol.ReportEntry, 0, len(domains))
	var total int64
	for _, domain := range domains {
		entry := usage[domain]
		seconds := entry.Seconds
		if b.maxDomainSeconds > 0 && seconds > b.maxDomainSeconds {
			seconds = b.maxDomainSeconds
		}
		if b.maxTotalSeconds > 0 && total+seconds > b.maxTotalSeconds {
			// Withheld: stays in the accumulator for the next tick.
			continue
		}
		total += seconds
		entries = append(entries, protocol.ReportEntry{
			Domain:          domain,
			Seconds:         seconds,
			Keys:            entry.Keys,
			Clicks:          entry.Clicks,
			Scrolls:         entry.Scrolls,
			MouseDistanceIn: entry.MouseDistanceIn,
		})
	}
	return entries
}

// Domains lists the domains included in a built report; the accumulator
// clears exactly these on a confirmed send.
func Domains(entries []protocol.ReportEntry) []string {
	out := make([]string, len(entries))
	for i, entry := range entries {
		out[i] = entry.Domain
	}
	return out
}
