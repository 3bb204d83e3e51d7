package triggerengine

// bjorklund distributes hits as evenly as possible across steps using the
// Bresenham-line formulation of Bjorklund's algorithm: it produces a
// maximally-even pattern that starts on a hit, matching the recursive
// euclidean-rhythm algorithm up to rotation, without the recursive
// bucket-pairing machinery.
func bjorklund(hits, steps int) []bool {
	pattern := make([]bool, steps)
	if steps <= 0 {
		return pattern
	}
	if hits <= 0 {
		return pattern
	}
	if hits >= steps {
		for i := range pattern {
			pattern[i] = true
		}
		return pattern
	}

	bucket := steps - hits
	for i := 0; i < steps; i++ {
		bucket += hits
		if bucket >= steps {
			bucket -= steps
			pattern[i] = true
		}
	}
	return pattern
}

// rotate cyclically shifts pattern left by n steps.
func rotate(pattern []bool, n int) []bool {
	steps := len(pattern)
	if steps == 0 {
		return pattern
	}
	n = ((n % steps) + steps) % steps
	out := make([]bool, steps)
	for i := range pattern {
		out[i] = pattern[(i+n)%steps]
	}
	return out
}
