// Package replay generates historical documents and advances them through
// their workflows with randomized, policy constrained choices.
//
// All randomness flows through a *Rand so that a fixed seed reproduces a
// run. Documents dated in the past are pushed further towards completion
// than documents dated in the future.
package replay

import (
	"github.com/brianvoe/gofakeit/v7"
)

// Rand is the randomness source of a replay. It is not safe for concurrent
// use.
type Rand struct {
	f *gofakeit.Faker
}

// NewRand returns a source seeded with seed. A zero seed picks a random one.
func NewRand(seed uint64) *Rand {
	return &Rand{f: gofakeit.New(seed)}
}

// Between returns a uniformly distributed integer in [lo, hi].
func (r *Rand) Between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return r.f.Number(lo, hi)
}

// Float64 returns a number in [0, 1).
func (r *Rand) Float64() float64 {
	for {
		if v := r.f.Float64Range(0, 1); v < 1 {
			return v
		}
	}
}

// Chance returns true with probability p.
func (r *Rand) Chance(p float64) bool {
	switch {
	case p <= 0:
		return false
	case p >= 1:
		return true
	}
	return r.Float64() < p
}

// Sentence returns a short filler sentence for descriptions and notes.
func (r *Rand) Sentence(words int) string {
	return r.f.Sentence(words)
}

// Sample returns n distinct elements of items in random order. n is clamped
// to len(items). items is not modified.
func Sample[T any](r *Rand, items []T, n int) []T {
	if n > len(items) {
		n = len(items)
	}
	if n <= 0 {
		return nil
	}
	pool := append([]T(nil), items...)
	for i := 0; i < n; i++ {
		j := r.Between(i, len(pool)-1)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n]
}

// Pick returns a random element of items. ok is false when items is empty.
func Pick[T any](r *Rand, items []T) (v T, ok bool) {
	if len(items) == 0 {
		return v, false
	}
	return items[r.Between(0, len(items)-1)], true
}

// TwoThirds samples two thirds of items, rounded down.
func TwoThirds[T any](r *Rand, items []T) []T {
	return Sample(r, items, len(items)*2/3)
}

// Batch splits items into consecutive batches of lo to hi elements. The
// last batch may be smaller.
func Batch[T any](r *Rand, items []T, lo, hi int) [][]T {
	if lo < 1 {
		lo = 1
	}
	var batches [][]T
	for i := 0; i < len(items); {
		n := r.Between(lo, hi)
		end := min(i+n, len(items))
		batches = append(batches, items[i:end])
		i = end
	}
	return batches
}

// Interleave alternates the elements of a and b, starting with a. Once the
// shorter list is exhausted the rest of the longer one follows.
func Interleave[T any](a, b []T) []T {
	out := make([]T, 0, len(a)+len(b))
	for i := 0; i < max(len(a), len(b)); i++ {
		if i < len(a) {
			out = append(out, a[i])
		}
		if i < len(b) {
			out = append(out, b[i])
		}
	}
	return out
}
