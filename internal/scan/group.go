package scan

import (
	"context"
	"fmt"

	"github.com/tmarcus/lookalike/internal/method"
)

// group partitions the cached signatures into duplicate groups with a single
// greedy pass in candidate order: the first ungrouped path becomes a cluster
// seed, every remaining ungrouped path matching the seed moves into its
// cluster, and clusters of size one are dropped.
//
// This is seed-to-rest clustering, not transitive closure: two paths both
// close to the seed land in one group even if they are far from each other,
// and a path rejected against a seed is never re-evaluated against the
// members that seed collected. Group keys are "<method>_<ordinal>".
func (s *session) group(ctx context.Context, m method.Method) (map[string][]string, error) {
	ungrouped := make([]string, 0, len(s.cache))
	for _, p := range s.order {
		if _, ok := s.cache[p]; ok {
			ungrouped = append(ungrouped, p)
		}
	}

	groups := make(map[string][]string)
	ordinal := 0
	for len(ungrouped) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		seed := ungrouped[0]
		seedSig := s.cache[seed]
		cluster := []string{seed}

		var rest []string
		for _, cand := range ungrouped[1:] {
			if m.Matches(seedSig, s.cache[cand]) {
				cluster = append(cluster, cand)
			} else {
				rest = append(rest, cand)
			}
		}
		ungrouped = rest

		if len(cluster) > 1 {
			groups[fmt.Sprintf("%s_%d", m.Name(), ordinal)] = cluster
			ordinal++
		}
	}
	return groups, nil
}
