// Package aggregator provides batch utilities over strategy signals:
// confidence filtering with per-symbol dedupe, and multi-strategy
// combination into one decision per symbol.
//
// The two operations are independent — callers choose which to apply;
// neither assumes the other ran first. Both reject structurally
// invalid signals and produce deterministic, symbol-ordered output.
package aggregator

import (
	"sort"
	"time"

	"quant-corev1/internal/model"
)

// DefaultConfidenceThreshold is the global minimum confidence for a
// signal to survive filtering.
const DefaultConfidenceThreshold = 70.0

// FilterDedupe drops signals below the confidence threshold or failing
// structural validation, then keeps only the highest-confidence signal
// per symbol. Confidence ties are broken by the lexicographically
// smaller strategy name, so the result never depends on input order.
// Output is ordered by symbol.
func FilterDedupe(signals []model.Signal, threshold float64) []model.Signal {
	best := make(map[string]model.Signal)
	for _, sig := range signals {
		if sig.Validate() != nil {
			continue
		}
		if sig.Confidence < threshold {
			continue
		}
		cur, seen := best[sig.Symbol]
		if !seen || sig.Confidence > cur.Confidence ||
			(sig.Confidence == cur.Confidence && sig.Strategy < cur.Strategy) {
			best[sig.Symbol] = sig
		}
	}

	out := make([]model.Signal, 0, len(best))
	for _, sig := range best {
		out = append(out, sig)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Combine groups a batch of signals by symbol and merges each group
// into one AggregatedSignal: confidence is the mean of the group, the
// action is the majority vote, and the contributing strategy names are
// collected as a sorted set. Vote ties are broken by the canonical
// action order (BUY before SELL before HOLD before STRONG_BUY before
// STRONG_SELL), so the result never depends on input order.
// Structurally invalid signals are skipped. Output is ordered by symbol.
func Combine(signals []model.Signal) []model.AggregatedSignal {
	type group struct {
		strategies      map[string]struct{}
		actionCounts    map[model.Action]int
		totalConfidence float64
		count           int
	}

	groups := make(map[string]*group)
	for _, sig := range signals {
		if sig.Validate() != nil {
			continue
		}
		g, ok := groups[sig.Symbol]
		if !ok {
			g = &group{
				strategies:   make(map[string]struct{}),
				actionCounts: make(map[model.Action]int),
			}
			groups[sig.Symbol] = g
		}
		g.strategies[sig.Strategy] = struct{}{}
		g.actionCounts[sig.Action]++
		g.totalConfidence += sig.Confidence
		g.count++
	}

	out := make([]model.AggregatedSignal, 0, len(groups))
	for symbol, g := range groups {
		out = append(out, model.AggregatedSignal{
			Symbol:      symbol,
			Action:      majorityAction(g.actionCounts),
			Confidence:  g.totalConfidence / float64(g.count),
			Strategies:  sortedKeys(g.strategies),
			SignalCount: g.count,
			TS:          time.Now().UTC(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// majorityAction returns the most frequent action; ties resolve to the
// action appearing earliest in model.Actions.
func majorityAction(counts map[model.Action]int) model.Action {
	var winner model.Action
	bestCount := -1
	for _, action := range model.Actions {
		if c := counts[action]; c > bestCount {
			winner = action
			bestCount = c
		}
	}
	return winner
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
