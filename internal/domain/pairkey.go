package domain

// PairKey derives the symmetric dm conversation key for two user IDs. The
// result is independent of argument order, so both orientations of the same
// pair collide on the pair_key unique constraint instead of producing
// duplicate threads.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}
