package staking

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func buildArena(t *testing.T, edges [][2]string) *arena {
	t.Helper()
	a := newArena()
	_, err := a.register(testRoot, "Root", time.Time{})
	require.NoError(t, err)
	for _, e := range edges {
		_, err := a.register(e[1], e[1], time.Time{})
		require.NoError(t, err)
		require.NoError(t, a.addEdge(e[0], e[1]))
	}
	return a
}

func TestLevelOrderGroupsByDistance(t *testing.T) {
	a := buildArena(t, [][2]string{
		{testRoot, "A"}, {testRoot, "B"}, {"A", "C"}, {"A", "D"}, {"B", "E"}, {"D", "F"},
	})

	layers, err := a.levelOrder(testRoot)
	require.NoError(t, err)
	require.Equal(t, [][]string{{"A", "B"}, {"C", "D", "E"}, {"F"}}, layers)

	layers, err = a.levelOrder("A")
	require.NoError(t, err)
	require.Equal(t, [][]string{{"C", "D"}, {"F"}}, layers)

	layers, err = a.levelOrder("F")
	require.NoError(t, err)
	require.NotNil(t, layers)
	require.Empty(t, layers)

	_, err = a.levelOrder("ghost")
	require.ErrorIs(t, err, ErrUnknownUser)
}

func TestAncestorWalkStopsAtMaxHopsOrRoot(t *testing.T) {
	a := buildArena(t, [][2]string{{testRoot, "A"}, {"A", "B"}, {"B", "C"}})

	type hop struct {
		id string
		n  int
	}
	collect := func(start string, limit int) []hop {
		var out []hop
		for id, n := range a.ancestorWalk(start, limit) {
			out = append(out, hop{id, n})
		}
		return out
	}

	require.Equal(t, []hop{{"B", 1}, {"A", 2}, {testRoot, 3}}, collect("C", 5))
	require.Equal(t, []hop{{"B", 1}, {"A", 2}}, collect("C", 2))
	require.Empty(t, collect(testRoot, 5))
	require.Empty(t, collect("ghost", 5))
}

func TestAddEdgeRejectsInvalidLinks(t *testing.T) {
	a := buildArena(t, [][2]string{{testRoot, "A"}})
	_, err := a.register("B", "B", time.Time{})
	require.NoError(t, err)

	require.ErrorIs(t, a.addEdge("B", "B"), ErrSelfReferral)
	require.ErrorIs(t, a.addEdge("ghost", "B"), ErrUnknownReferrer)
	require.ErrorIs(t, a.addEdge("A", "ghost"), ErrNotRegistered)
	require.ErrorIs(t, a.addEdge("A", testRoot), ErrRootReferred)
	require.ErrorIs(t, a.addEdge(testRoot, "A"), ErrAlreadyReferred)
	require.NoError(t, a.addEdge("A", "B"))
	require.Equal(t, []string{"B"}, a.directChildren("A"))
}

func TestTraversalsHandleDeepChains(t *testing.T) {
	const depth = 50_000
	edges := make([][2]string, depth)
	prev := testRoot
	for i := range edges {
		id := fmt.Sprintf("u%d", i)
		edges[i] = [2]string{prev, id}
		prev = id
	}
	a := buildArena(t, edges)

	layers, err := a.levelOrder(testRoot)
	require.NoError(t, err)
	require.Len(t, layers, depth)
	require.Equal(t, []string{prev}, layers[depth-1])

	hops := 0
	for range a.ancestorWalk(prev, depth+10) {
		hops++
	}
	require.Equal(t, depth, hops)
}
