package trade

import (
	"math/rand/v2"

	"github.com/disgoorg/snowflake/v2"
	"github.com/songswap/songswap/songswap/database/models"
)

// Derange builds the random directed pairing for a trade: each participant
// recommends to exactly one other and receives from exactly one other, and
// nobody is paired with themselves.
//
// The permutation is rejection-sampled whole: shuffle the recipient list and
// retry if any participant landed on themselves. Pairwise pick-and-reroll
// schemes can dead-end with two equal values left over; resampling the whole
// permutation cannot, and stays uniform over all derangements. The expected
// number of attempts is e (~2.72) independent of n.
//
// Fewer than two participants yields nil; callers must refuse to build a
// trade in that case.
func Derange(participants []snowflake.ID) []models.Edge {
	n := len(participants)
	if n < 2 {
		return nil
	}

	to := make([]snowflake.ID, n)
	copy(to, participants)

	for {
		rand.Shuffle(n, func(i, j int) {
			to[i], to[j] = to[j], to[i]
		})
		if !hasFixedPoint(participants, to) {
			break
		}
	}

	edges := make([]models.Edge, n)
	for i, from := range participants {
		edges[i] = models.Edge{From: from, To: to[i]}
	}
	return edges
}

func hasFixedPoint(from, to []snowflake.ID) bool {
	for i := range from {
		if from[i] == to[i] {
			return true
		}
	}
	return false
}
