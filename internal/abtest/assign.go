package abtest

import (
	"hash/fnv"

	"github.com/formloom/formloom/internal/store"
)

// AssignVariant buckets a visitor into a variant. The assignment is
// deterministic over (test id, visitor id), so it is sticky across page
// loads without any stored state: the same visitor always lands in the
// same variant while the traffic split is unchanged.
//
// A concluded test with a recorded winner always resolves to the winner.
// Returns nil when the test has no variants.
func AssignVariant(test *store.ABTest, variants []store.Variant, visitorID string) *store.Variant {
	if len(variants) == 0 {
		return nil
	}

	if test.Status == store.TestConcluded && test.WinnerID != nil {
		for i := range variants {
			if variants[i].ID == *test.WinnerID {
				return &variants[i]
			}
		}
	}

	bucket := bucketOf(test.ID, visitorID)

	cumulative := 0.0
	for i := range variants {
		cumulative += variants[i].TrafficPct
		if bucket < cumulative {
			return &variants[i]
		}
	}
	// Traffic percentages short of 100 spill into the last variant.
	return &variants[len(variants)-1]
}

// bucketOf hashes (test, visitor) into [0, 100).
func bucketOf(testID, visitorID string) float64 {
	h := fnv.New64a()
	h.Write([]byte(testID))
	h.Write([]byte{':'})
	h.Write([]byte(visitorID))
	return float64(h.Sum64()%10000) / 100.0
}
