package exam

import (
	"math/rand"
	"sync"
	"time"

	"github.com/stemsi/exstem-proctor/internal/model"
)

// Randomizer produces uniform permutations for question and option ordering.
// It is safe for concurrent use by many sessions.
type Randomizer struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandomizer creates a Randomizer with a fixed seed. Tests use this for
// reproducible orderings.
func NewRandomizer(seed int64) *Randomizer {
	return &Randomizer{rnd: rand.New(rand.NewSource(seed))}
}

// NewTimeSeededRandomizer creates a Randomizer seeded from the wall clock.
func NewTimeSeededRandomizer() *Randomizer {
	return NewRandomizer(time.Now().UnixNano())
}

// Permutation returns the index order for n items. Without shuffle it is the
// identity; with shuffle it is a Fisher-Yates permutation.
func (r *Randomizer) Permutation(n int, shuffle bool) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	if !shuffle || n < 2 {
		return perm
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i := n - 1; i > 0; i-- {
		j := r.rnd.Intn(i + 1)
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm
}

// OrderQuestions returns the questions in session order. The input is not modified.
func (r *Randomizer) OrderQuestions(questions []model.Question, shuffle bool) []model.Question {
	out := make([]model.Question, len(questions))
	for i, idx := range r.Permutation(len(questions), shuffle) {
		out[i] = questions[idx]
	}
	return out
}

// OrderOptions returns the options in display order. The input is not modified.
func (r *Randomizer) OrderOptions(options []string, shuffle bool) []string {
	out := make([]string, len(options))
	for i, idx := range r.Permutation(len(options), shuffle) {
		out[i] = options[idx]
	}
	return out
}
