package app

import "math/rand"

// choiceShuffle is the per-question random reordering of answer choices.
// It is created once per question position and never recomputed: reshuffling
// mid-question would invalidate payloads clients already received. Only the
// tally counts mutate after creation.
type choiceShuffle struct {
	// order maps shuffled position -> canonical choice index.
	order []int
	// correctIndex is the shuffled position holding the correct choice.
	correctIndex int
	// counts tallies answers per shuffled position.
	counts []int
}

func newChoiceShuffle(rng *rand.Rand, choiceCount, canonicalCorrect int) *choiceShuffle {
	order := rng.Perm(choiceCount)
	correct := 0
	for i, canonical := range order {
		if canonical == canonicalCorrect {
			correct = i
			break
		}
	}
	return &choiceShuffle{
		order:        order,
		correctIndex: correct,
		counts:       make([]int, choiceCount),
	}
}

// apply returns the choices reordered by this shuffle.
func (cs *choiceShuffle) apply(choices []string) []string {
	shuffled := make([]string, len(cs.order))
	for i, canonical := range cs.order {
		shuffled[i] = choices[canonical]
	}
	return shuffled
}

// tally counts a vote for the given shuffled position. Out-of-range indices
// are ignored rather than treated as fatal.
func (cs *choiceShuffle) tally(index int) {
	if index >= 0 && index < len(cs.counts) {
		cs.counts[index]++
	}
}

func (cs *choiceShuffle) answeredCount() int {
	total := 0
	for _, c := range cs.counts {
		total += c
	}
	return total
}
