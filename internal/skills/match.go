// Package skills scores how well an agent's skills cover a requirement set.
package skills

// Match returns |required ∩ held| / |required| in [0, 1]. An empty
// requirement set is a perfect match, not a zero one, so assignments without
// skill constraints are never penalized.
func Match(required, held []string) float64 {
	if len(required) == 0 {
		return 1.0
	}

	heldSet := make(map[string]struct{}, len(held))
	for _, s := range held {
		heldSet[s] = struct{}{}
	}

	seen := make(map[string]struct{}, len(required))
	distinct := 0
	matched := 0
	for _, s := range required {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		distinct++
		if _, ok := heldSet[s]; ok {
			matched++
		}
	}

	return float64(matched) / float64(distinct)
}
