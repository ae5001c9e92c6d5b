// Package dedup collapses records that share a natural key before they are loaded.
package dedup

import "github.com/tigerroll/cropwx/internal/domain/entity"

// Dedup returns one record per natural key. The last occurrence of a key wins;
// the output keeps the order in which each key first appeared.
func Dedup[R entity.Record](in []R) []R {
	if len(in) == 0 {
		return in
	}
	pos := make(map[string]int, len(in))
	out := make([]R, 0, len(in))
	for _, r := range in {
		key := r.NaturalKey()
		if i, ok := pos[key]; ok {
			out[i] = r
			continue
		}
		pos[key] = len(out)
		out = append(out, r)
	}
	return out
}

// Stats reports how many records Dedup discarded.
type Stats struct {
	In         int
	Out        int
	Duplicates int
}

// WithStats runs Dedup and counts the discarded records.
func WithStats[R entity.Record](in []R) ([]R, Stats) {
	out := Dedup(in)
	return out, Stats{In: len(in), Out: len(out), Duplicates: len(in) - len(out)}
}
