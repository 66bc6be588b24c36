package trade

import (
	"testing"

	"github.com/disgoorg/snowflake/v2"
	"github.com/songswap/songswap/songswap/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func ids(n int) []snowflake.ID {
	out := make([]snowflake.ID, n)
	for i := range out {
		out[i] = snowflake.ID(i + 1)
	}
	return out
}

func TestDerange_FewerThanTwoParticipants(t *testing.T) {
	assert.Nil(t, Derange(nil))
	assert.Nil(t, Derange(ids(1)))
}

func TestDerange_TwoParticipantsSwap(t *testing.T) {
	edges := Derange(ids(2))
	require.Len(t, edges, 2)
	assert.Equal(t, models.Edge{From: 1, To: 2}, edges[0])
	assert.Equal(t, models.Edge{From: 2, To: 1}, edges[1])
}

func TestDerange_ThreeParticipantsFormCycle(t *testing.T) {
	// Every derangement of three elements is a 3-cycle: following the edges
	// from any participant must visit all three before coming back.
	edges := Derange(ids(3))
	require.Len(t, edges, 3)

	next := make(map[snowflake.ID]snowflake.ID, 3)
	for _, edge := range edges {
		next[edge.From] = edge.To
	}

	seen := map[snowflake.ID]bool{}
	current := snowflake.ID(1)
	for i := 0; i < 3; i++ {
		require.False(t, seen[current], "cycle shorter than 3")
		seen[current] = true
		current = next[current]
	}
	assert.Equal(t, snowflake.ID(1), current)
}

func TestProperty_DerangementInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(2, 20).Draw(t, "n")
		participants := ids(n)

		edges := Derange(participants)
		if len(edges) != n {
			t.Fatalf("expected %d edges, got %d", n, len(edges))
		}

		froms := make(map[snowflake.ID]bool, n)
		tos := make(map[snowflake.ID]bool, n)
		for _, edge := range edges {
			if edge.From == edge.To {
				t.Fatalf("participant %s paired with themselves", edge.From)
			}
			if froms[edge.From] {
				t.Fatalf("participant %s sends twice", edge.From)
			}
			if tos[edge.To] {
				t.Fatalf("participant %s receives twice", edge.To)
			}
			froms[edge.From] = true
			tos[edge.To] = true
		}

		for _, uid := range participants {
			if !froms[uid] {
				t.Fatalf("participant %s never sends", uid)
			}
			if !tos[uid] {
				t.Fatalf("participant %s never receives", uid)
			}
		}
	})
}
