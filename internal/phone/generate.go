package phone

import "fmt"

// Source is the random source used for generating numbers. *rand.Rand from
// math/rand/v2 satisfies it.
type Source interface {
	IntN(n int) int
}

var prefixes = []string{"010", "011", "012", "015"}

const subscriberSpace = 100_000_000

// Capacity is the number of distinct numbers Generate can produce.
const Capacity = 4 * subscriberSpace

// Generate returns count distinct phone numbers made of a known operator
// prefix and eight random digits. count is capped at Capacity.
func Generate(count int, rng Source) []string {
	if count <= 0 {
		return []string{}
	}
	if count > Capacity {
		count = Capacity
	}
	seen := make(map[string]struct{}, count)
	out := make([]string, 0, count)
	for len(out) < count {
		p := prefixes[rng.IntN(len(prefixes))] + fmt.Sprintf("%08d", rng.IntN(subscriberSpace))
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
