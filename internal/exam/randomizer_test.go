package exam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermutation_NoShuffleIsIdentity(t *testing.T) {
	r := NewRandomizer(1)
	for _, n := range []int{0, 1, 2, 7} {
		perm := r.Permutation(n, false)
		for i, v := range perm {
			assert.Equal(t, i, v)
		}
		assert.Len(t, perm, n)
	}
}

func TestPermutation_ShuffleKeepsMultiset(t *testing.T) {
	r := NewRandomizer(7)
	for round := 0; round < 50; round++ {
		perm := r.Permutation(10, true)
		seen := make(map[int]bool, 10)
		for _, v := range perm {
			require.False(t, seen[v], "duplicate index %d", v)
			seen[v] = true
		}
		assert.Len(t, seen, 10)
	}
}

func TestPermutation_SameSeedSameOrder(t *testing.T) {
	a := NewRandomizer(99).Permutation(20, true)
	b := NewRandomizer(99).Permutation(20, true)
	assert.Equal(t, a, b)
}

func TestOrderOptions_DoesNotMutateInput(t *testing.T) {
	in := []string{"a", "b", "c", "d", "e"}
	out := NewRandomizer(3).OrderOptions(in, true)

	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, in)
	assert.ElementsMatch(t, in, out)
}

func TestOrderQuestions_WithoutShuffleStable(t *testing.T) {
	qs := sampleAssessment().Questions
	r := NewRandomizer(5)

	first := r.OrderQuestions(qs, false)
	second := r.OrderQuestions(qs, false)
	assert.Equal(t, first, second)
	assert.Equal(t, qs[0].ID, first[0].ID)
}
