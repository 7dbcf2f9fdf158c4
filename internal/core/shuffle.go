package core

import "math/rand/v2"

// Shuffle returns a random permutation of items. It repeatedly moves a uniformly chosen
// remaining element to the output, so every element appears exactly once. The input is
// left untouched and a nil or empty input yields an empty slice.
func Shuffle[T any](items []T) []T {
	remaining := make([]T, len(items))
	copy(remaining, items)

	shuffled := make([]T, 0, len(items))
	for len(remaining) > 0 {
		i := rand.IntN(len(remaining))
		shuffled = append(shuffled, remaining[i])
		remaining = append(remaining[:i], remaining[i+1:]...)
	}
	return shuffled
}
